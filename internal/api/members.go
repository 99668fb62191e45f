package api

import (
	"fmt"
	"net/http"

	"github.com/tcp_snm/tracker/internal/service"
	"github.com/tcp_snm/tracker/internal/service/user_service"
)

func (a *Api) HandlerGetMe(w http.ResponseWriter, r *http.Request) {
	member, err := a.UserServiceConfig.GetMe(r.Context())
	if err != nil {
		handlerError(err, w)
		return
	}

	marshalAndRespond(w, http.StatusOK, member)
}

func (a *Api) HandlerLinkJudgeUsername(w http.ResponseWriter, r *http.Request) {
	var request user_service.LinkJudgeRequest
	if err := decodeJsonBody(r.Body, &request); err != nil {
		msg := fmt.Sprintf("invalid request payload, %s", err.Error())
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	member, err := a.UserServiceConfig.LinkJudgeUsername(r.Context(), request)
	if err != nil {
		handlerError(err, w)
		return
	}

	marshalAndRespond(w, http.StatusOK, member)
}

func (a *Api) HandlerSyncMe(w http.ResponseWriter, r *http.Request) {
	claims, err := service.GetClaimsFromContext(r.Context())
	if err != nil {
		handlerError(err, w)
		return
	}

	member, err := a.UserServiceConfig.SyncMember(r.Context(), claims.UserID)
	if err != nil {
		handlerError(err, w)
		return
	}

	marshalAndRespond(w, http.StatusOK, member)
}

func (a *Api) HandlerGetMyStats(w http.ResponseWriter, r *http.Request) {
	claims, err := service.GetClaimsFromContext(r.Context())
	if err != nil {
		handlerError(err, w)
		return
	}

	stats, err := a.UserServiceConfig.GetMemberStats(r.Context(), claims.UserID)
	if err != nil {
		handlerError(err, w)
		return
	}

	marshalAndRespond(w, http.StatusOK, stats)
}
