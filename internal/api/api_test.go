package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tcp_snm/tracker/internal/database"
	"github.com/tcp_snm/tracker/internal/service"
	"github.com/tcp_snm/tracker/internal/service/contest_service"
	"github.com/tcp_snm/tracker/internal/service/judge_service"
	"github.com/tcp_snm/tracker/internal/service/judge_service/judgetest"
	"github.com/tcp_snm/tracker/internal/service/leaderboard_service"
	"github.com/tcp_snm/tracker/internal/service/user_service"
	"github.com/tcp_snm/tracker/internal/throttle"
	"github.com/tcp_snm/tracker/internal/tracker_errors"
)

var testStart = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(logrus.ErrorLevel)
	service.InitializeServices()
	os.Exit(m.Run())
}

type testServer struct {
	router  *chi.Mux
	store   *database.MemoryStore
	oracle  *judgetest.Oracle
	member  database.Member
	contest database.Contest
}

// withMember stands in for the jwt middleware
func withMember(store *database.MemoryStore, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		member, err := store.GetMemberByID(r.Context(), memberFromHeader(r))
		if err != nil {
			http.Error(w, "unknown member", http.StatusUnauthorized)
			return
		}
		claims := service.UserCredentialClaims{UserID: member.ID, Role: member.Role}
		handler(w, r.WithContext(service.ContextWithClaims(r.Context(), claims)))
	}
}

func newTestServer(t *testing.T, debounce *VerifyDebouncer) *testServer {
	t.Helper()
	store := database.NewMemoryStore()
	oracle := judgetest.New()
	now := func() time.Time { return testStart.Add(time.Hour) }

	users := &user_service.UserService{DB: store, Judge: oracle, Now: now}
	users.Start()
	contests := &contest_service.ContestService{
		DB: store, Judge: oracle, UserServiceConfig: users, Now: now, JudgeTimeout: time.Second,
	}
	contests.Start()
	boards := &leaderboard_service.LeaderboardService{
		DB: store, Cache: store, Judge: oracle, Runner: throttle.NewRunner(3, 0), Now: now,
	}
	boards.Start()

	a := &Api{
		UserServiceConfig:        users,
		ContestServiceConfig:     contests,
		LeaderboardServiceConfig: boards,
		VerifyDebounce:           debounce,
	}

	router := chi.NewRouter()
	router.Get("/healthz", a.HandlerReadiness)
	router.Get("/me", withMember(store, a.HandlerGetMe))
	router.Put("/me/judge", withMember(store, a.HandlerLinkJudgeUsername))
	router.Get("/contests/{id}", withMember(store, a.HandlerGetContestById))
	router.Post("/contests/{id}/verify", withMember(store, a.HandlerVerifySubmission))
	router.Get("/groups/{id}/leaderboard", withMember(store, a.HandlerGetGroupLeaderboard))
	router.Post("/groups/{id}/leaderboard/refresh", withMember(store, a.HandlerRefreshLeaderboard))

	store.PutGroup(database.Group{ID: "cse-a", Name: "CSE A"})
	member := store.PutMember(database.Member{DisplayName: "asha", JudgeUsername: "asha", GroupID: "cse-a"})
	contest, err := store.CreateContest(context.Background(), database.Contest{
		Title:       "weekly",
		TargetGroup: "cse-a",
		StartTime:   testStart,
		EndTime:     testStart.Add(2 * time.Hour),
		Problems:    []database.ContestProblem{{Slug: "two-sum", Points: 100}},
	})
	require.NoError(t, err)

	return &testServer{router: router, store: store, oracle: oracle, member: member, contest: contest}
}

const memberHeader = "X-Test-Member"

func memberFromHeader(r *http.Request) uuid.UUID {
	id, _ := uuid.Parse(r.Header.Get(memberHeader))
	return id
}

func (s *testServer) do(t *testing.T, method, target, body string, member database.Member) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.Header.Set(memberHeader, member.ID.String())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)
	return w
}

func TestVerifyEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.oracle.Set("asha", judgetest.User{Accepted: []judge_service.AcceptedSubmission{
		{ProblemSlug: "two-sum", Timestamp: testStart.Add(time.Minute)},
	}})
	target := fmt.Sprintf("/contests/%v/verify", s.contest.ID)

	w := s.do(t, http.MethodPost, target, `{"problem_slug":"two-sum"}`, s.member)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var result contest_service.VerifyResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 100, result.Score)

	w = s.do(t, http.MethodPost, target, `{"problem_slug":"two-sum"}`, s.member)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, target, `{"problem_slug":""}`, s.member)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/contests/not-a-uuid/verify", `{"problem_slug":"two-sum"}`, s.member)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyEndpointOutcomes(t *testing.T) {
	s := newTestServer(t, nil)
	target := fmt.Sprintf("/contests/%v/verify", s.contest.ID)

	s.oracle.Set("asha", judgetest.User{FailWith: tracker_errors.ErrHttpResponse})
	w := s.do(t, http.MethodPost, target, `{"problem_slug":"two-sum"}`, s.member)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	s.oracle.Set("asha", judgetest.User{})
	w = s.do(t, http.MethodPost, target, `{"problem_slug":"two-sum"}`, s.member)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	unlinked := s.store.PutMember(database.Member{DisplayName: "ravi", GroupID: "cse-a"})
	w = s.do(t, http.MethodPost, target, `{"problem_slug":"two-sum"}`, unlinked)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestVerifyDebounce(t *testing.T) {
	s := newTestServer(t, NewVerifyDebouncer(time.Minute))
	s.oracle.Set("asha", judgetest.User{})
	target := fmt.Sprintf("/contests/%v/verify", s.contest.ID)

	w := s.do(t, http.MethodPost, target, `{"problem_slug":"two-sum"}`, s.member)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(t, http.MethodPost, target, `{"problem_slug":"Two-Sum"}`, s.member)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 1, s.oracle.Calls())
}

func TestLeaderboardEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	s.oracle.Set("asha", judgetest.User{Solved: judge_service.Solved{EasySolved: 2}})
	s.store.PutMember(database.Member{DisplayName: "ravi", JudgeUsername: "ravi", GroupID: "cse-a"})
	s.oracle.Set("ravi", judgetest.User{FailWith: tracker_errors.ErrHttpResponse})

	w := s.do(t, http.MethodGet, "/groups/cse-a/leaderboard?mode=overall", "", s.member)
	require.Equal(t, http.StatusPartialContent, w.Code, w.Body.String())
	var board leaderboard_service.Leaderboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &board))
	require.Len(t, board.Overall, 1)
	assert.Len(t, board.Excluded, 1)

	w = s.do(t, http.MethodGet, "/groups/cse-a/leaderboard?mode=contest", "", s.member)
	assert.Equal(t, http.StatusOK, w.Code)

	// served from the cache, still reporting who was left out
	calls := s.oracle.Calls()
	w = s.do(t, http.MethodGet, "/groups/cse-a/leaderboard", "", s.member)
	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, calls, s.oracle.Calls())

	w = s.do(t, http.MethodGet, "/groups/nope/leaderboard", "", s.member)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRefreshEndpointCooldown(t *testing.T) {
	s := newTestServer(t, nil)
	s.oracle.Set("asha", judgetest.User{Solved: judge_service.Solved{EasySolved: 2}})

	w := s.do(t, http.MethodPost, "/groups/cse-a/leaderboard/refresh", "", s.member)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/groups/cse-a/leaderboard/refresh", "", s.member)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	var result leaderboard_service.RefreshResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.Equal(t, 30, result.RetryAfterMinutes)
	assert.Equal(t, "1800", w.Header().Get("Retry-After"))
}

func TestLeaderboardGetCannotForceRecompute(t *testing.T) {
	s := newTestServer(t, nil)
	s.oracle.Set("asha", judgetest.User{Solved: judge_service.Solved{EasySolved: 2}})

	w := s.do(t, http.MethodPost, "/groups/cse-a/leaderboard/refresh", "", s.member)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, "/groups/cse-a/leaderboard/refresh", "", s.member)
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	calls := s.oracle.Calls()
	for range 5 {
		w = s.do(t, http.MethodGet, "/groups/cse-a/leaderboard?force=true", "", s.member)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var board leaderboard_service.Leaderboard
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &board))
		assert.True(t, board.FromCache)
	}
	assert.Equal(t, calls, s.oracle.Calls())
}

func TestLinkJudgeUsernameEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPut, "/me/judge", `{"judge_username":"asha_new"}`, s.member)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var member database.Member
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &member))
	assert.Equal(t, "asha_new", member.JudgeUsername)

	w = s.do(t, http.MethodPut, "/me/judge", `{"judge_username":"x","extra":1}`, s.member)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{tracker_errors.ErrDuplicateSubmission, http.StatusConflict},
		{tracker_errors.ErrNoValidSubmission, http.StatusUnprocessableEntity},
		{tracker_errors.ErrVerificationUnavailable, http.StatusServiceUnavailable},
		{tracker_errors.ErrNotConfigured, http.StatusPreconditionFailed},
		{tracker_errors.ErrCooldownActive, http.StatusTooManyRequests},
		{fmt.Errorf("%w, wrapped", tracker_errors.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, statusOf(tt.err), tt.err.Error())
	}
}
