package leaderboard_service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tcp_snm/tracker/internal/database"
	"github.com/tcp_snm/tracker/internal/service/judge_service"
	"github.com/tcp_snm/tracker/internal/service/stats_service"
	"github.com/tcp_snm/tracker/internal/tracker_errors"
)

// GetGroupLeaderboard ranks a group. Overall boards are served from the cache
// while it is at most CacheTTL old, unless forceRefresh is set. Contest boards
// are always computed from stored submissions.
//
// When the judge failed for some members the board of the rest is returned
// together with an error wrapping ErrAggregationPartialFailure.
func (l *LeaderboardService) GetGroupLeaderboard(
	ctx context.Context,
	groupID string,
	mode Mode,
	forceRefresh bool,
) (Leaderboard, error) {
	if _, err := l.DB.GetGroupByID(ctx, groupID); err != nil {
		return Leaderboard{}, err
	}

	switch mode {
	case ModeOverall, "":
		return l.overall(ctx, groupID, forceRefresh)
	case ModeContest:
		return l.contest(ctx, groupID)
	default:
		return Leaderboard{}, fmt.Errorf("%w, unknown leaderboard mode %q", tracker_errors.ErrInvalidRequest, mode)
	}
}

func (l *LeaderboardService) overall(ctx context.Context, groupID string, forceRefresh bool) (Leaderboard, error) {
	now := l.Now()

	if !forceRefresh {
		entry, ok, err := l.Cache.GetLeaderboardCache(ctx, groupID)
		if err != nil {
			l.logger.Warnf("recomputing group %v, cache read failed: %v", groupID, err)
		} else if ok && now.Sub(entry.ComputedAt) <= l.CacheTTL {
			board := Leaderboard{
				GroupID:    groupID,
				Mode:       ModeOverall,
				ComputedAt: entry.ComputedAt,
				FromCache:  true,
				Overall:    rankOverall(entry.Stats),
			}
			err = l.withExclusions(&board, entry.Excluded, len(entry.Stats))
			return board, err
		}
	} else {
		// memoized judge answers would defeat the recomputation
		ctx = judge_service.WithFreshReads(ctx)
	}

	members, err := l.DB.ListMembersByGroup(ctx, groupID)
	if err != nil {
		return Leaderboard{}, err
	}

	stats, excluded := l.CollectMemberStats(ctx, members)

	// exclusions are stored too so cached reads keep reporting them
	entry := database.LeaderboardCacheEntry{GroupID: groupID, Stats: stats, Excluded: excluded, ComputedAt: now}
	if err = l.Cache.PutLeaderboardCache(ctx, entry); err != nil {
		// the board is still correct, only the next read pays for it again
		l.logger.Errorf("cannot persist leaderboard of group %v: %v", groupID, err)
	}

	board := Leaderboard{
		GroupID:    groupID,
		Mode:       ModeOverall,
		ComputedAt: now,
		Overall:    rankOverall(stats),
	}
	if err = l.withExclusions(&board, excluded, len(stats)); err != nil {
		return board, err
	}

	l.logger.Infof("recomputed leaderboard of group %v with %d members", groupID, len(stats))
	return board, nil
}

func (l *LeaderboardService) withExclusions(board *Leaderboard, excluded []uuid.UUID, ranked int) error {
	if len(excluded) == 0 {
		return nil
	}
	board.Excluded = excluded
	return fmt.Errorf(
		"%w, %d of %d members left out",
		tracker_errors.ErrAggregationPartialFailure,
		len(excluded),
		len(excluded)+ranked,
	)
}

func rankOverall(stats []database.MemberStats) []stats_service.Ranked[database.MemberStats] {
	return stats_service.RankBy(stats, func(s database.MemberStats) int { return s.TotalPoints })
}

func (l *LeaderboardService) contest(ctx context.Context, groupID string) (Leaderboard, error) {
	targets := []string{groupID}
	if groupID != database.TargetAllGroups {
		targets = append(targets, database.TargetAllGroups)
	}

	contests, err := l.DB.ListContestsByTargets(ctx, targets)
	if err != nil {
		return Leaderboard{}, err
	}
	contestIDs := make([]uuid.UUID, 0, len(contests))
	for _, c := range contests {
		contestIDs = append(contestIDs, c.ID)
	}

	submissions := []database.Submission{}
	if len(contestIDs) > 0 {
		submissions, err = l.DB.ListSubmissionsByContests(ctx, contestIDs)
		if err != nil {
			return Leaderboard{}, err
		}
	}

	members, err := l.DB.ListMembersByGroup(ctx, groupID)
	if err != nil {
		return Leaderboard{}, err
	}

	return Leaderboard{
		GroupID:    groupID,
		Mode:       ModeContest,
		ComputedAt: l.Now(),
		Contest:    RankContest(members, submissions),
	}, nil
}

// RankContest sums submission scores per member. Every member appears, with
// zero points when they have no submissions; submissions of non-members are
// ignored.
func RankContest(members []database.Member, submissions []database.Submission) []stats_service.Ranked[ContestStanding] {
	index := make(map[uuid.UUID]int, len(members))
	standings := make([]ContestStanding, 0, len(members))
	for _, m := range members {
		index[m.ID] = len(standings)
		standings = append(standings, ContestStanding{MemberID: m.ID, DisplayName: m.DisplayName})
	}

	for _, sub := range submissions {
		i, ok := index[sub.MemberID]
		if !ok {
			continue
		}
		standings[i].Points += sub.Score
		standings[i].Solved++
	}

	return stats_service.RankBy(standings, func(s ContestStanding) int { return s.Points })
}
