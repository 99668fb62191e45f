package report_service

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tcp_snm/tracker/internal/database"
	"github.com/tcp_snm/tracker/internal/email"
	"github.com/tcp_snm/tracker/internal/service/judge_service"
	"github.com/tcp_snm/tracker/internal/service/judge_service/judgetest"
	"github.com/tcp_snm/tracker/internal/service/leaderboard_service"
	"github.com/tcp_snm/tracker/internal/throttle"
	"github.com/tcp_snm/tracker/internal/tracker_errors"
)

func TestMain(m *testing.M) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(logrus.ErrorLevel)
	os.Exit(m.Run())
}

type sentMail struct {
	subject string
	body    string
	purpose email.EmailPurpose
	to      []string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeMailer) NewMail(
	ctx context.Context,
	subject string,
	body string,
	bodyType email.EmailBodyType,
	purpose email.EmailPurpose,
	to ...string,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{subject, body, purpose, to})
	return nil
}

func newReportService(t *testing.T) (*ReportService, *database.MemoryStore, *judgetest.Oracle, *fakeMailer) {
	t.Helper()
	store := database.NewMemoryStore()
	oracle := judgetest.New()
	now := func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }

	board := &leaderboard_service.LeaderboardService{
		DB:     store,
		Cache:  store,
		Judge:  oracle,
		Runner: throttle.NewRunner(3, 0),
		Now:    now,
	}
	board.Start()

	mailer := &fakeMailer{}
	r := &ReportService{DB: store, Leaderboard: board, Mailer: mailer, Now: now}
	r.Start()
	return r, store, oracle, mailer
}

func TestBuildWeeklyReportRanksBySolvedCount(t *testing.T) {
	r, store, oracle, _ := newReportService(t)

	// more points but fewer problems
	oracle.Set("hard", judgetest.User{Solved: judge_service.Solved{HardSolved: 3}})
	oracle.Set("easy", judgetest.User{Solved: judge_service.Solved{EasySolved: 5}})
	oracle.Set("down", judgetest.User{FailWith: tracker_errors.ErrHttpResponse})
	hard := store.PutMember(database.Member{DisplayName: "hard", JudgeUsername: "hard", GroupID: "a"})
	easy := store.PutMember(database.Member{DisplayName: "easy", JudgeUsername: "easy", GroupID: "b"})
	down := store.PutMember(database.Member{DisplayName: "down", JudgeUsername: "down", GroupID: "a"})
	store.PutMember(database.Member{DisplayName: "unlinked", GroupID: "a"})

	report, err := r.BuildWeeklyReport(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Ranking, 2)
	assert.Equal(t, easy.ID, report.Ranking[0].Entry.MemberID)
	assert.Equal(t, hard.ID, report.Ranking[1].Entry.MemberID)
	assert.Equal(t, 2, report.Ranking[1].Rank)
	assert.Len(t, report.Excluded, 1)
	assert.Equal(t, down.ID, report.Excluded[0])
}

func TestSendWeeklyReport(t *testing.T) {
	r, store, oracle, mailer := newReportService(t)

	oracle.Set("asha", judgetest.User{Solved: judge_service.Solved{EasySolved: 4, MediumSolved: 2}})
	oracle.Set("ravi", judgetest.User{Solved: judge_service.Solved{EasySolved: 1}})
	store.PutMember(database.Member{DisplayName: "asha", JudgeUsername: "asha", Email: "asha@x.dev"})
	store.PutMember(database.Member{DisplayName: "ravi", JudgeUsername: "ravi"})
	store.PutMember(database.Member{DisplayName: "meera", Role: database.RoleSupervisor, Email: "meera@x.dev"})

	_, err := r.SendWeeklyReport(context.Background())
	require.NoError(t, err)

	require.Len(t, mailer.sent, 2)
	member := mailer.sent[0]
	assert.Equal(t, []string{"asha@x.dev"}, member.to)
	assert.Equal(t, email.PurposeWeeklyReport, member.purpose)
	assert.Contains(t, member.body, "ranked #1 of 2")
	assert.Contains(t, member.body, "6 problems solved")

	table := mailer.sent[1]
	assert.Equal(t, []string{"meera@x.dev"}, table.to)
	assert.Equal(t, email.PurposeSupervisorReport, table.purpose)
	assert.Contains(t, table.body, "asha")
	assert.Contains(t, table.body, "ravi")
	assert.Contains(t, table.subject, "18 Oct 2026")
}
