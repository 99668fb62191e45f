package contest_service

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tcp_snm/tracker/internal/database"
	"github.com/tcp_snm/tracker/internal/service"
	"github.com/tcp_snm/tracker/internal/service/judge_service"
	"github.com/tcp_snm/tracker/internal/service/user_service"
)

const (
	DefaultSubmissionLimit = 20
)

type ContestStatus string

const (
	StatusUpcoming ContestStatus = "upcoming"
	StatusActive   ContestStatus = "active"
	StatusEnded    ContestStatus = "ended"
)

type ContestService struct {
	DB                database.CohortStore
	Judge             judge_service.Oracle
	UserServiceConfig *user_service.UserService
	Now               service.Clock
	// JudgeTimeout bounds the accepted-submission lookup of one verification
	JudgeTimeout time.Duration
	// SubmissionLimit is how many recent accepted submissions are inspected
	SubmissionLimit int
	logger          *logrus.Entry
}

type ContestProblem struct {
	Slug   string `json:"slug" validate:"required,max=200"`
	Points int    `json:"points" validate:"gte=1,lte=10000"`
}

type CreateContestRequest struct {
	Title       string           `json:"title" validate:"required,min=3,max=100"`
	TargetGroup string           `json:"target_group" validate:"required,max=100"`
	StartTime   time.Time        `json:"start_time" validate:"required"`
	EndTime     time.Time        `json:"end_time" validate:"required,gtfield=StartTime"`
	Problems    []ContestProblem `json:"problems" validate:"required,min=1,max=50,unique=Slug,dive"`
}

// Contest is a stored contest together with its status at read time
type Contest struct {
	database.Contest
	Status ContestStatus `json:"status"`
}

type VerifyResult struct {
	Submission database.Submission `json:"submission"`
	Score      int                 `json:"score"`
}

func (c *ContestService) Start() {
	for _, field := range []struct {
		field any
		name  string
	}{
		{c.DB, "database"}, {c.Judge, "judge oracle"},
	} {
		if field.field == nil {
			panic(fmt.Sprintf("contest service expects non-nil %v", field.name))
		}
	}
	if c.UserServiceConfig == nil {
		panic("contest service expects non-nil user service")
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.JudgeTimeout <= 0 {
		c.JudgeTimeout = judge_service.DefaultTimeout
	}
	if c.SubmissionLimit <= 0 {
		c.SubmissionLimit = DefaultSubmissionLimit
	}
	c.logger = logrus.WithField("from", "contest service")
	c.logger.Info("contest service started")
}

func toView(contest database.Contest, now time.Time) Contest {
	return Contest{
		Contest: contest,
		Status:  StatusAt(now, contest.StartTime, contest.EndTime),
	}
}
