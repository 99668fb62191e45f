package database

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CohortStore is the document store behind members, groups, contests and
// submissions. Joins happen in the services, never here.
//
// Lookups of a single entity return an error wrapping tracker_errors.ErrNotFound
// when nothing matches.
type CohortStore interface {
	GetMemberByID(ctx context.Context, id uuid.UUID) (Member, error)
	ListMembersByGroup(ctx context.Context, groupID string) ([]Member, error)
	ListLinkedMembers(ctx context.Context) ([]Member, error)
	ListMembersByRole(ctx context.Context, role string) ([]Member, error)
	UpdateJudgeUsername(ctx context.Context, id uuid.UUID, username string) (Member, error)
	// UpdateMemberProgress overwrites streak and solve records and unions
	// badges into the stored set, so badges never disappear.
	UpdateMemberProgress(ctx context.Context, id uuid.UUID, streak int, records []SolveRecord, badges []string) (Member, error)
	// StampRefresh sets the member's last refresh time to now only if the
	// stored value is absent or not after cutoff. It returns whether the stamp
	// happened and the stored value that blocked it otherwise.
	StampRefresh(ctx context.Context, id uuid.UUID, now, cutoff time.Time) (bool, *time.Time, error)

	GetGroupByID(ctx context.Context, id string) (Group, error)

	CreateContest(ctx context.Context, contest Contest) (Contest, error)
	GetContestByID(ctx context.Context, id uuid.UUID) (Contest, error)
	ListContestsByTargets(ctx context.Context, targets []string) ([]Contest, error)

	GetSubmission(ctx context.Context, memberID, contestID uuid.UUID, slug string) (Submission, error)
	// CreateSubmissionIfAbsent inserts sub unless a submission for the same
	// member, contest and problem exists. It reports whether a row was created.
	CreateSubmissionIfAbsent(ctx context.Context, sub Submission) (bool, error)
	ListSubmissionsByContests(ctx context.Context, contestIDs []uuid.UUID) ([]Submission, error)
}

// LeaderboardCache holds one materialized overall leaderboard per group.
// Writers replace the entry wholesale.
type LeaderboardCache interface {
	GetLeaderboardCache(ctx context.Context, groupID string) (LeaderboardCacheEntry, bool, error)
	PutLeaderboardCache(ctx context.Context, entry LeaderboardCacheEntry) error
}

func unionBadges(have, add []string) []string {
	seen := make(map[string]struct{}, len(have)+len(add))
	res := make([]string, 0, len(have)+len(add))
	for _, list := range [][]string{have, add} {
		for _, b := range list {
			if _, ok := seen[b]; ok || b == "" {
				continue
			}
			seen[b] = struct{}{}
			res = append(res, b)
		}
	}
	return res
}
