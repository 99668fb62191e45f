package main

import (
	"github.com/go-chi/chi/v5"
	"github.com/tcp_snm/tracker/middleware"
)

func NewV1Router() *chi.Mux {
	v1 := chi.NewRouter()

	v1.Get("/healthz", apiConfig.HandlerReadiness)

	// members layer
	v1.Get("/me", middleware.JWTMiddleware(apiConfig.HandlerGetMe))
	v1.Put("/me/judge", middleware.JWTMiddleware(apiConfig.HandlerLinkJudgeUsername))
	v1.Post("/me/sync", middleware.JWTMiddleware(apiConfig.HandlerSyncMe))
	v1.Get("/me/stats", middleware.JWTMiddleware(apiConfig.HandlerGetMyStats))

	// contests layer
	v1.Post("/contests", middleware.JWTMiddleware(apiConfig.HandlerCreateContest))
	v1.Get("/contests", middleware.JWTMiddleware(apiConfig.HandlerGetContests))
	v1.Get("/contests/{id}", middleware.JWTMiddleware(apiConfig.HandlerGetContestById))
	// verify
	v1.Post("/contests/{id}/verify", middleware.JWTMiddleware(apiConfig.HandlerVerifySubmission))

	// leaderboard layer
	v1.Get("/groups/{id}/leaderboard", middleware.JWTMiddleware(apiConfig.HandlerGetGroupLeaderboard))
	v1.Post("/groups/{id}/leaderboard/refresh", middleware.JWTMiddleware(apiConfig.HandlerRefreshLeaderboard))

	return v1
}
