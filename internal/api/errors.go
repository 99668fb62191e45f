package api

import (
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/tcp_snm/tracker/internal/tracker_errors"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{tracker_errors.ErrInvalidRequest, http.StatusBadRequest},
	{tracker_errors.ErrUnAuthorized, http.StatusForbidden},
	{tracker_errors.ErrNotFound, http.StatusNotFound},
	{tracker_errors.ErrEntityAlreadyExist, http.StatusConflict},
	{tracker_errors.ErrDuplicateSubmission, http.StatusConflict},
	{tracker_errors.ErrContestEnded, http.StatusConflict},
	{tracker_errors.ErrContestNotStarted, http.StatusConflict},
	{tracker_errors.ErrNotConfigured, http.StatusPreconditionFailed},
	{tracker_errors.ErrNoValidSubmission, http.StatusUnprocessableEntity},
	{tracker_errors.ErrCooldownActive, http.StatusTooManyRequests},
	{tracker_errors.ErrVerificationUnavailable, http.StatusServiceUnavailable},
	{tracker_errors.ErrEmailServiceStopped, http.StatusServiceUnavailable},
	{tracker_errors.ErrHttpResponse, http.StatusBadGateway},
}

// statusOf maps an error kind to its http status, 500 when unknown
func statusOf(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

func handlerError(err error, w http.ResponseWriter) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Errorf("unexpected error reached handler, %v", err)
		http.Error(w, tracker_errors.ErrInternal.Error(), status)
		return
	}
	http.Error(w, err.Error(), status)
}
