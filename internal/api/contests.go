package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tcp_snm/tracker/internal/service/contest_service"
)

func (a *Api) HandlerCreateContest(w http.ResponseWriter, r *http.Request) {
	var request contest_service.CreateContestRequest
	if err := decodeJsonBody(r.Body, &request); err != nil {
		msg := fmt.Sprintf("invalid request payload, %s", err.Error())
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	contest, err := a.ContestServiceConfig.CreateContest(r.Context(), request)
	if err != nil {
		handlerError(err, w)
		return
	}

	marshalAndRespond(w, http.StatusCreated, contest)
}

// HandlerGetContests lists contests of the group in the query, or of the
// caller's own group when none is given
func (a *Api) HandlerGetContests(w http.ResponseWriter, r *http.Request) {
	var (
		contests []contest_service.Contest
		err      error
	)
	if group := r.URL.Query().Get("group"); group != "" {
		contests, err = a.ContestServiceConfig.ListContests(r.Context(), group)
	} else {
		contests, err = a.ContestServiceConfig.ListContestsForMember(r.Context())
	}
	if err != nil {
		handlerError(err, w)
		return
	}

	marshalAndRespond(w, http.StatusOK, contests)
}

func (a *Api) HandlerGetContestById(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid contest id provided", http.StatusBadRequest)
		return
	}

	contest, err := a.ContestServiceConfig.GetContestByID(r.Context(), id)
	if err != nil {
		handlerError(err, w)
		return
	}

	marshalAndRespond(w, http.StatusOK, contest)
}
