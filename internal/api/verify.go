package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tcp_snm/tracker/internal/service"
)

func (a *Api) HandlerVerifySubmission(w http.ResponseWriter, r *http.Request) {
	contestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid contest id provided", http.StatusBadRequest)
		return
	}

	type params struct {
		ProblemSlug string `json:"problem_slug"`
	}
	var request params
	if err = decodeJsonBody(r.Body, &request); err != nil {
		msg := fmt.Sprintf("invalid request payload, %s", err.Error())
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(request.ProblemSlug) == "" {
		http.Error(w, "problem_slug is required", http.StatusBadRequest)
		return
	}

	claims, err := service.GetClaimsFromContext(r.Context())
	if err != nil {
		handlerError(err, w)
		return
	}

	key := fmt.Sprintf("%v|%v|%v", claims.UserID, contestID, strings.ToLower(strings.TrimSpace(request.ProblemSlug)))
	if !a.VerifyDebounce.Allow(key) {
		http.Error(w, "verification already in progress, please wait a few seconds", http.StatusTooManyRequests)
		return
	}

	result, err := a.ContestServiceConfig.VerifySubmission(r.Context(), claims.UserID, contestID, request.ProblemSlug)
	if err != nil {
		handlerError(err, w)
		return
	}

	marshalAndRespond(w, http.StatusCreated, result)
}
