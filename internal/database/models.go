package database

import (
	"time"

	"github.com/google/uuid"
)

type SolveStatus string

const (
	SolveStatusTodo      SolveStatus = "Todo"
	SolveStatusAttempted SolveStatus = "Attempted"
	SolveStatusSolved    SolveStatus = "Solved"

	RoleStudent    = "student"
	RoleSupervisor = "supervisor"
	RoleAdmin      = "admin"

	// contests targeting this group are visible to every group
	TargetAllGroups = "All"
)

type SolveRecord struct {
	ProblemSlug string      `json:"problem_slug"`
	Status      SolveStatus `json:"status"`
	Difficulty  string      `json:"difficulty,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
}

type Member struct {
	ID            uuid.UUID     `json:"id"`
	DisplayName   string        `json:"display_name"`
	Email         string        `json:"email"`
	Role          string        `json:"role"`
	JudgeUsername string        `json:"judge_username"`
	GroupID       string        `json:"group_id"`
	Streak        int           `json:"streak"`
	SolveRecords  []SolveRecord `json:"solve_records"`
	Badges        []string      `json:"badges"`
	LastRefreshAt *time.Time    `json:"last_refresh_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

type Group struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Track string `json:"track"`
}

type ContestProblem struct {
	Slug   string `json:"slug"`
	Points int    `json:"points"`
}

type Contest struct {
	ID          uuid.UUID        `json:"id"`
	Title       string           `json:"title"`
	TargetGroup string           `json:"target_group"`
	StartTime   time.Time        `json:"start_time"`
	EndTime     time.Time        `json:"end_time"`
	Problems    []ContestProblem `json:"problems"`
	CreatedBy   uuid.UUID        `json:"created_by"`
	CreatedAt   time.Time        `json:"created_at"`
}

type Submission struct {
	ID          uuid.UUID `json:"id"`
	MemberID    uuid.UUID `json:"member_id"`
	ContestID   uuid.UUID `json:"contest_id"`
	ProblemSlug string    `json:"problem_slug"`
	Score       int       `json:"score"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// MemberStats is one row of the overall leaderboard as it is cached
type MemberStats struct {
	MemberID      uuid.UUID `json:"id"`
	DisplayName   string    `json:"display_name"`
	JudgeUsername string    `json:"judge_username"`
	EasySolved    int       `json:"easy_solved"`
	MediumSolved  int       `json:"medium_solved"`
	HardSolved    int       `json:"hard_solved"`
	TotalSolved   int       `json:"total_solved"`
	CurrentStreak int       `json:"current_streak"`
	LongestStreak int       `json:"longest_streak"`
	JudgeRanking  int       `json:"judge_ranking,omitempty"`
	TotalPoints   int       `json:"total_points"`
}

type LeaderboardCacheEntry struct {
	GroupID    string        `json:"group_id"`
	Stats      []MemberStats `json:"stats"`
	Excluded   []uuid.UUID   `json:"excluded"`
	ComputedAt time.Time     `json:"computed_at"`
}
