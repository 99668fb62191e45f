package api

import (
	"github.com/tcp_snm/tracker/internal/service/contest_service"
	"github.com/tcp_snm/tracker/internal/service/leaderboard_service"
	"github.com/tcp_snm/tracker/internal/service/user_service"
)

type Api struct {
	UserServiceConfig        *user_service.UserService
	ContestServiceConfig     *contest_service.ContestService
	LeaderboardServiceConfig *leaderboard_service.LeaderboardService
	VerifyDebounce           *VerifyDebouncer
}
