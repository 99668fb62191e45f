package leaderboard_service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tcp_snm/tracker/internal/database"
	"github.com/tcp_snm/tracker/internal/service/stats_service"
	"github.com/tcp_snm/tracker/internal/tracker_errors"
)

// CollectMemberStats fetches and scores every member that has a judge
// username, keeping member order. Calls to the judge go through the runner.
//
// A member whose solved counts cannot be fetched is left out and reported in
// excluded. A missing calendar counts as no streak and a missing profile as no
// judge ranking; neither excludes the member.
func (l *LeaderboardService) CollectMemberStats(
	ctx context.Context,
	members []database.Member,
) (stats []database.MemberStats, excluded []uuid.UUID) {
	linked := make([]database.Member, 0, len(members))
	for _, m := range members {
		if m.JudgeUsername != "" {
			linked = append(linked, m)
		}
	}

	results := make([]database.MemberStats, len(linked))
	errs := l.Runner.Run(ctx, len(linked), func(ctx context.Context, i int) error {
		s, err := l.fetchMemberStats(ctx, linked[i])
		results[i] = s
		return err
	})

	stats = make([]database.MemberStats, 0, len(linked))
	excluded = make([]uuid.UUID, 0)
	for i, err := range errs {
		if err != nil {
			l.logger.WithFields(logrus.Fields{
				"member_id":      linked[i].ID,
				"judge_username": linked[i].JudgeUsername,
			}).Warnf("excluding member from leaderboard: %v", err)
			excluded = append(excluded, linked[i].ID)
			continue
		}
		stats = append(stats, results[i])
	}
	return stats, excluded
}

func (l *LeaderboardService) fetchMemberStats(ctx context.Context, member database.Member) (database.MemberStats, error) {
	solvedCtx, cancel := context.WithTimeout(ctx, l.JudgeTimeout)
	solved, err := l.Judge.GetSolved(solvedCtx, member.JudgeUsername)
	cancel()
	if err != nil {
		return database.MemberStats{}, fmt.Errorf("%w, solved counts: %v", tracker_errors.ErrAggregationPartialFailure, err)
	}

	streak := stats_service.Streak{}
	calCtx, cancel := context.WithTimeout(ctx, l.JudgeTimeout)
	cal, err := l.Judge.GetCalendar(calCtx, member.JudgeUsername)
	cancel()
	if err != nil {
		l.logger.Warnf("no streak for %v, calendar unavailable: %v", member.JudgeUsername, err)
	} else {
		streak = stats_service.CalculateStreak(cal, l.Now(), l.Location)
	}

	ranking := 0
	profileCtx, cancel := context.WithTimeout(ctx, l.JudgeTimeout)
	profile, err := l.Judge.GetProfile(profileCtx, member.JudgeUsername)
	cancel()
	if err != nil {
		l.logger.Warnf("no judge ranking for %v: %v", member.JudgeUsername, err)
	} else {
		ranking = profile.Ranking
	}

	return stats_service.NewMemberStats(
		member.ID,
		member.DisplayName,
		member.JudgeUsername,
		stats_service.SolvedCounts{
			Easy:   solved.EasySolved,
			Medium: solved.MediumSolved,
			Hard:   solved.HardSolved,
		},
		streak,
		ranking,
		l.Weights,
	), nil
}
