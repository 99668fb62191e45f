package stats_service

import (
	"github.com/google/uuid"
	"github.com/tcp_snm/tracker/internal/config"
	"github.com/tcp_snm/tracker/internal/database"
)

type Weights struct {
	Easy   int
	Medium int
	Hard   int
	Streak int
}

var DefaultWeights = Weights{Easy: 25, Medium: 50, Hard: 100, Streak: 10}

// WeightsFromConfig reads the SCORE_WEIGHT_* settings. Every binary scores
// with it so profiles, boards and reports agree.
func WeightsFromConfig(cfg config.Config) Weights {
	return Weights{
		Easy:   cfg.ScoreWeightEasy,
		Medium: cfg.ScoreWeightMedium,
		Hard:   cfg.ScoreWeightHard,
		Streak: cfg.ScoreWeightStreak,
	}
}

type SolvedCounts struct {
	Easy   int `json:"easy_solved"`
	Medium int `json:"medium_solved"`
	Hard   int `json:"hard_solved"`
}

func (s SolvedCounts) Total() int {
	return max(s.Easy, 0) + max(s.Medium, 0) + max(s.Hard, 0)
}

// Points is the single scoring rule used for profiles, leaderboards and
// reports. Negative inputs count as zero.
func Points(solved SolvedCounts, streak int, w Weights) int {
	return max(solved.Easy, 0)*w.Easy +
		max(solved.Medium, 0)*w.Medium +
		max(solved.Hard, 0)*w.Hard +
		max(streak, 0)*w.Streak
}

// NewMemberStats assembles one leaderboard row and scores it
func NewMemberStats(
	memberID uuid.UUID,
	displayName string,
	judgeUsername string,
	solved SolvedCounts,
	streak Streak,
	judgeRanking int,
	w Weights,
) database.MemberStats {
	return database.MemberStats{
		MemberID:      memberID,
		DisplayName:   displayName,
		JudgeUsername: judgeUsername,
		EasySolved:    max(solved.Easy, 0),
		MediumSolved:  max(solved.Medium, 0),
		HardSolved:    max(solved.Hard, 0),
		TotalSolved:   solved.Total(),
		CurrentStreak: streak.Current,
		LongestStreak: streak.Longest,
		JudgeRanking:  judgeRanking,
		TotalPoints:   Points(solved, streak.Current, w),
	}
}
