package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tcp_snm/tracker/internal/service"
	"github.com/tcp_snm/tracker/internal/service/leaderboard_service"
	"github.com/tcp_snm/tracker/internal/tracker_errors"
)

func (a *Api) HandlerGetGroupLeaderboard(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")
	mode := leaderboard_service.Mode(r.URL.Query().Get("mode"))

	// forced recomputation goes through the refresh route and its cooldown
	board, err := a.LeaderboardServiceConfig.GetGroupLeaderboard(r.Context(), groupID, mode, false)
	if errors.Is(err, tracker_errors.ErrAggregationPartialFailure) {
		// members the judge failed for are listed in excluded
		marshalAndRespond(w, http.StatusPartialContent, board)
		return
	}
	if err != nil {
		handlerError(err, w)
		return
	}

	marshalAndRespond(w, http.StatusOK, board)
}

func (a *Api) HandlerRefreshLeaderboard(w http.ResponseWriter, r *http.Request) {
	claims, err := service.GetClaimsFromContext(r.Context())
	if err != nil {
		handlerError(err, w)
		return
	}

	result, err := a.LeaderboardServiceConfig.RefreshLeaderboard(r.Context(), chi.URLParam(r, "id"), claims.UserID)
	if errors.Is(err, tracker_errors.ErrCooldownActive) {
		w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfterMinutes*60))
		marshalAndRespond(w, http.StatusTooManyRequests, result)
		return
	}
	if err != nil {
		handlerError(err, w)
		return
	}

	marshalAndRespond(w, http.StatusOK, result)
}
