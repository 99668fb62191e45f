package leaderboard_service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tcp_snm/tracker/internal/database"
	"github.com/tcp_snm/tracker/internal/service/judge_service"
	"github.com/tcp_snm/tracker/internal/service/judge_service/judgetest"
	"github.com/tcp_snm/tracker/internal/throttle"
	"github.com/tcp_snm/tracker/internal/tracker_errors"
)

const group = "cse-a"

func TestMain(m *testing.M) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(logrus.ErrorLevel)
	os.Exit(m.Run())
}

type fixture struct {
	svc    *LeaderboardService
	store  *database.MemoryStore
	oracle *judgetest.Oracle
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  database.NewMemoryStore(),
		oracle: judgetest.New(),
		now:    time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC),
	}
	f.svc = &LeaderboardService{
		DB:       f.store,
		Cache:    f.store,
		Judge:    f.oracle,
		Runner:   throttle.NewRunner(3, 0),
		Now:      func() time.Time { return f.now },
		Location: time.UTC,
	}
	f.svc.Start()
	f.store.PutGroup(database.Group{ID: group, Name: "CSE A"})
	return f
}

func (f *fixture) addMember(name string, solved judge_service.Solved) database.Member {
	f.oracle.Set(name, judgetest.User{Solved: solved, Profile: judge_service.Profile{Ranking: 1000}})
	return f.store.PutMember(database.Member{DisplayName: name, JudgeUsername: name, GroupID: group})
}

func TestOverallRanksByPointsAndPersists(t *testing.T) {
	f := newFixture(t)
	low := f.addMember("low", judge_service.Solved{EasySolved: 1})
	high := f.addMember("high", judge_service.Solved{HardSolved: 2})
	f.store.PutMember(database.Member{DisplayName: "unlinked", GroupID: group})

	board, err := f.svc.GetGroupLeaderboard(context.Background(), group, ModeOverall, false)
	require.NoError(t, err)
	require.Len(t, board.Overall, 2)
	assert.Equal(t, high.ID, board.Overall[0].Entry.MemberID)
	assert.Equal(t, 1, board.Overall[0].Rank)
	assert.Equal(t, 200, board.Overall[0].Entry.TotalPoints)
	assert.Equal(t, low.ID, board.Overall[1].Entry.MemberID)
	assert.False(t, board.FromCache)

	entry, ok, err := f.store.GetLeaderboardCache(context.Background(), group)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, f.now, entry.ComputedAt)
	assert.Len(t, entry.Stats, 2)
}

func TestOverallPersistsEmptyGroup(t *testing.T) {
	f := newFixture(t)

	board, err := f.svc.GetGroupLeaderboard(context.Background(), group, ModeOverall, false)
	require.NoError(t, err)
	assert.Empty(t, board.Overall)

	entry, ok, err := f.store.GetLeaderboardCache(context.Background(), group)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, entry.Stats)
}

func TestOverallCacheStaleness(t *testing.T) {
	tests := []struct {
		name      string
		age       time.Duration
		force     bool
		wantCalls bool
	}{
		{"59 minutes old is reused", 59 * time.Minute, false, false},
		{"exactly one hour old is reused", time.Hour, false, false},
		{"61 minutes old is recomputed", 61 * time.Minute, false, true},
		{"forced refresh ignores a fresh cache", time.Minute, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			m := f.addMember("asha", judge_service.Solved{EasySolved: 3})
			require.NoError(t, f.store.PutLeaderboardCache(context.Background(), database.LeaderboardCacheEntry{
				GroupID:    group,
				Stats:      []database.MemberStats{{MemberID: m.ID, DisplayName: "asha", TotalPoints: 1}},
				ComputedAt: f.now.Add(-tt.age),
			}))

			board, err := f.svc.GetGroupLeaderboard(context.Background(), group, ModeOverall, tt.force)
			require.NoError(t, err)
			if tt.wantCalls {
				assert.Positive(t, f.oracle.Calls())
				assert.False(t, board.FromCache)
				assert.Equal(t, 75, board.Overall[0].Entry.TotalPoints)
				return
			}
			assert.Zero(t, f.oracle.Calls())
			assert.True(t, board.FromCache)
			assert.Equal(t, 1, board.Overall[0].Entry.TotalPoints)
		})
	}
}

func TestOverallPartialFailure(t *testing.T) {
	f := newFixture(t)
	var ok []uuid.UUID
	for _, name := range []string{"a", "b", "c", "d"} {
		ok = append(ok, f.addMember(name, judge_service.Solved{EasySolved: 1}).ID)
	}
	broken := f.store.PutMember(database.Member{DisplayName: "e", JudgeUsername: "e", GroupID: group})
	f.oracle.Set("e", judgetest.User{FailWith: tracker_errors.ErrHttpResponse})

	board, err := f.svc.GetGroupLeaderboard(context.Background(), group, ModeOverall, false)
	assert.ErrorIs(t, err, tracker_errors.ErrAggregationPartialFailure)
	require.Len(t, board.Overall, 4)
	for i, r := range board.Overall {
		assert.Equal(t, ok[i], r.Entry.MemberID)
	}
	assert.Equal(t, []uuid.UUID{broken.ID}, board.Excluded)
}

func TestOverallPartialFailureStaysReportedFromCache(t *testing.T) {
	f := newFixture(t)
	f.addMember("a", judge_service.Solved{EasySolved: 1})
	broken := f.store.PutMember(database.Member{DisplayName: "e", JudgeUsername: "e", GroupID: group})
	f.oracle.Set("e", judgetest.User{FailWith: tracker_errors.ErrHttpResponse})

	_, err := f.svc.GetGroupLeaderboard(context.Background(), group, ModeOverall, false)
	require.ErrorIs(t, err, tracker_errors.ErrAggregationPartialFailure)
	calls := f.oracle.Calls()

	f.now = f.now.Add(10 * time.Minute)
	board, err := f.svc.GetGroupLeaderboard(context.Background(), group, ModeOverall, false)
	assert.ErrorIs(t, err, tracker_errors.ErrAggregationPartialFailure)
	assert.True(t, board.FromCache)
	assert.Len(t, board.Overall, 1)
	assert.Equal(t, []uuid.UUID{broken.ID}, board.Excluded)
	assert.Equal(t, calls, f.oracle.Calls())
}

func TestForcedRecomputeAsksJudgeForFreshReads(t *testing.T) {
	f := newFixture(t)
	f.addMember("a", judge_service.Solved{EasySolved: 1})

	_, err := f.svc.GetGroupLeaderboard(context.Background(), group, ModeOverall, false)
	require.NoError(t, err)
	assert.Zero(t, f.oracle.FreshCalls())

	_, err = f.svc.GetGroupLeaderboard(context.Background(), group, ModeOverall, true)
	require.NoError(t, err)
	assert.Positive(t, f.oracle.FreshCalls())
	assert.Equal(t, f.oracle.Calls()-f.oracle.FreshCalls(), f.oracle.FreshCalls())
}

func TestOverallCalendarFailureKeepsMember(t *testing.T) {
	f := newFixture(t)
	f.store.PutMember(database.Member{DisplayName: "asha", JudgeUsername: "asha", GroupID: group})
	f.oracle.Set("asha", judgetest.User{Solved: judge_service.Solved{MediumSolved: 1}, FailCal: true})

	board, err := f.svc.GetGroupLeaderboard(context.Background(), group, ModeOverall, false)
	require.NoError(t, err)
	require.Len(t, board.Overall, 1)
	assert.Equal(t, 50, board.Overall[0].Entry.TotalPoints)
	assert.Zero(t, board.Overall[0].Entry.CurrentStreak)
}

func TestOverallTiesKeepMemberOrder(t *testing.T) {
	f := newFixture(t)
	first := f.addMember("first", judge_service.Solved{EasySolved: 2})
	second := f.addMember("second", judge_service.Solved{MediumSolved: 1})

	board, err := f.svc.GetGroupLeaderboard(context.Background(), group, ModeOverall, false)
	require.NoError(t, err)
	require.Len(t, board.Overall, 2)
	assert.Equal(t, board.Overall[0].Entry.TotalPoints, board.Overall[1].Entry.TotalPoints)
	assert.Equal(t, first.ID, board.Overall[0].Entry.MemberID)
	assert.Equal(t, 1, board.Overall[0].Rank)
	assert.Equal(t, second.ID, board.Overall[1].Entry.MemberID)
	assert.Equal(t, 2, board.Overall[1].Rank)
}

func TestOverallBoundsConcurrentJudgeCalls(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		f.addMember(name, judge_service.Solved{EasySolved: 1})
	}
	f.oracle.Delay = 20 * time.Millisecond

	_, err := f.svc.GetGroupLeaderboard(context.Background(), group, ModeOverall, false)
	require.NoError(t, err)
	assert.LessOrEqual(t, f.oracle.MaxInFlight(), 3)
}

func TestContestMode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	asha := f.store.PutMember(database.Member{DisplayName: "asha", GroupID: group})
	ravi := f.store.PutMember(database.Member{DisplayName: "ravi", GroupID: group})
	idle := f.store.PutMember(database.Member{DisplayName: "idle", GroupID: group})
	outsider := f.store.PutMember(database.Member{DisplayName: "out", GroupID: "cse-b"})

	own, err := f.store.CreateContest(ctx, database.Contest{Title: "own", TargetGroup: group})
	require.NoError(t, err)
	open, err := f.store.CreateContest(ctx, database.Contest{Title: "open", TargetGroup: database.TargetAllGroups})
	require.NoError(t, err)
	foreign, err := f.store.CreateContest(ctx, database.Contest{Title: "foreign", TargetGroup: "cse-b"})
	require.NoError(t, err)

	for _, sub := range []database.Submission{
		{MemberID: ravi.ID, ContestID: own.ID, ProblemSlug: "a", Score: 100},
		{MemberID: asha.ID, ContestID: own.ID, ProblemSlug: "a", Score: 100},
		{MemberID: asha.ID, ContestID: open.ID, ProblemSlug: "b", Score: 50},
		{MemberID: ravi.ID, ContestID: foreign.ID, ProblemSlug: "c", Score: 500},
		{MemberID: outsider.ID, ContestID: open.ID, ProblemSlug: "b", Score: 50},
	} {
		created, err := f.store.CreateSubmissionIfAbsent(ctx, sub)
		require.NoError(t, err)
		require.True(t, created)
	}

	board, err := f.svc.GetGroupLeaderboard(ctx, group, ModeContest, false)
	require.NoError(t, err)
	assert.Zero(t, f.oracle.Calls())
	require.Len(t, board.Contest, 3)
	assert.Equal(t, ContestStanding{MemberID: asha.ID, DisplayName: "asha", Points: 150, Solved: 2}, board.Contest[0].Entry)
	assert.Equal(t, ContestStanding{MemberID: ravi.ID, DisplayName: "ravi", Points: 100, Solved: 1}, board.Contest[1].Entry)
	assert.Equal(t, ContestStanding{MemberID: idle.ID, DisplayName: "idle", Points: 0}, board.Contest[2].Entry)
	assert.Equal(t, 3, board.Contest[2].Rank)

	_, ok, err := f.store.GetLeaderboardCache(ctx, group)
	require.NoError(t, err)
	assert.False(t, ok, "contest boards are never cached")
}

func TestGetGroupLeaderboardRejections(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetGroupLeaderboard(context.Background(), "nope", ModeOverall, false)
	assert.ErrorIs(t, err, tracker_errors.ErrNotFound)

	_, err = f.svc.GetGroupLeaderboard(context.Background(), group, Mode("weekly"), false)
	assert.ErrorIs(t, err, tracker_errors.ErrInvalidRequest)
}

func TestRefreshCooldown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	member := f.addMember("asha", judge_service.Solved{EasySolved: 1})
	start := f.now

	res, err := f.svc.RefreshLeaderboard(ctx, group, member.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.NotNil(t, res.Data)
	assert.Len(t, res.Data.Overall, 1)

	f.now = start.Add(5 * time.Minute)
	calls := f.oracle.Calls()
	res, err = f.svc.RefreshLeaderboard(ctx, group, member.ID)
	assert.ErrorIs(t, err, tracker_errors.ErrCooldownActive)
	assert.False(t, res.Success)
	assert.Equal(t, 25, res.RetryAfterMinutes)
	assert.Contains(t, res.Message, "25")
	assert.Nil(t, res.Data)
	assert.Equal(t, calls, f.oracle.Calls())

	f.now = start.Add(5*time.Minute + 30*time.Second)
	res, _ = f.svc.RefreshLeaderboard(ctx, group, member.ID)
	assert.Equal(t, 25, res.RetryAfterMinutes)

	f.now = start.Add(31 * time.Minute)
	res, err = f.svc.RefreshLeaderboard(ctx, group, member.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestRefreshRequiresGroupMembership(t *testing.T) {
	f := newFixture(t)
	outsider := f.store.PutMember(database.Member{DisplayName: "out", GroupID: "cse-b"})
	mentor := f.store.PutMember(database.Member{DisplayName: "meera", Role: database.RoleSupervisor})

	_, err := f.svc.RefreshLeaderboard(context.Background(), group, outsider.ID)
	assert.ErrorIs(t, err, tracker_errors.ErrUnAuthorized)

	res, err := f.svc.RefreshLeaderboard(context.Background(), group, mentor.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestRemainingMinutes(t *testing.T) {
	assert.Equal(t, 25, RemainingMinutes(25*time.Minute))
	assert.Equal(t, 25, RemainingMinutes(24*time.Minute+time.Second))
	assert.Equal(t, 1, RemainingMinutes(time.Second))
	assert.Equal(t, 1, RemainingMinutes(0))
}
