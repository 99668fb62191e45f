package leaderboard_service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tcp_snm/tracker/internal/database"
	"github.com/tcp_snm/tracker/internal/service"
	"github.com/tcp_snm/tracker/internal/service/judge_service"
	"github.com/tcp_snm/tracker/internal/service/stats_service"
	"github.com/tcp_snm/tracker/internal/throttle"
)

const (
	DefaultCacheTTL = time.Hour
	DefaultCooldown = 30 * time.Minute
)

type Mode string

const (
	ModeOverall Mode = "overall"
	ModeContest Mode = "contest"
)

type LeaderboardService struct {
	DB     database.CohortStore
	Cache  database.LeaderboardCache
	Judge  judge_service.Oracle
	Runner *throttle.Runner
	Now    service.Clock
	// Location decides where calendar days start for streaks
	Location *time.Location
	Weights  stats_service.Weights
	CacheTTL time.Duration
	// Cooldown is the minimum gap between forced refreshes by one member
	Cooldown     time.Duration
	JudgeTimeout time.Duration
	logger       *logrus.Entry
}

// ContestStanding is one member's total over every contest shown to a group
type ContestStanding struct {
	MemberID    uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Points      int       `json:"points"`
	Solved      int       `json:"solved"`
}

type Leaderboard struct {
	GroupID    string    `json:"group_id"`
	Mode       Mode      `json:"mode"`
	ComputedAt time.Time `json:"computed_at"`
	FromCache  bool      `json:"from_cache"`

	Overall []stats_service.Ranked[database.MemberStats] `json:"overall,omitempty"`
	Contest []stats_service.Ranked[ContestStanding]      `json:"contest,omitempty"`

	// Excluded lists members left out because the judge failed for them
	Excluded []uuid.UUID `json:"excluded,omitempty"`
}

type RefreshResult struct {
	Success           bool         `json:"success"`
	Message           string       `json:"message"`
	Data              *Leaderboard `json:"data,omitempty"`
	RetryAfterMinutes int          `json:"retry_after_minutes,omitempty"`
}

func (l *LeaderboardService) Start() {
	for _, field := range []struct {
		field any
		name  string
	}{
		{l.DB, "database"}, {l.Cache, "leaderboard cache"}, {l.Judge, "judge oracle"},
	} {
		if field.field == nil {
			panic(fmt.Sprintf("leaderboard service expects non-nil %v", field.name))
		}
	}
	if l.Runner == nil {
		l.Runner = throttle.NewRunner(3, 1500*time.Millisecond)
	}
	if l.Now == nil {
		l.Now = time.Now
	}
	if l.Location == nil {
		l.Location = time.Local
	}
	if l.Weights == (stats_service.Weights{}) {
		l.Weights = stats_service.DefaultWeights
	}
	if l.CacheTTL <= 0 {
		l.CacheTTL = DefaultCacheTTL
	}
	if l.Cooldown <= 0 {
		l.Cooldown = DefaultCooldown
	}
	if l.JudgeTimeout <= 0 {
		l.JudgeTimeout = judge_service.DefaultTimeout
	}
	l.logger = logrus.WithField("from", "leaderboard service")
	l.logger.Info("leaderboard service started")
}
