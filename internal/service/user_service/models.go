package user_service

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tcp_snm/tracker/internal/database"
	"github.com/tcp_snm/tracker/internal/service"
	"github.com/tcp_snm/tracker/internal/service/judge_service"
	"github.com/tcp_snm/tracker/internal/service/stats_service"
)

type UserService struct {
	DB       database.CohortStore
	Judge    judge_service.Oracle
	Now      service.Clock
	Location *time.Location
	Weights  stats_service.Weights
	// SubmissionLimit is how many recent accepted submissions a sync reads
	SubmissionLimit int
	logger          *logrus.Entry
}

type LinkJudgeRequest struct {
	JudgeUsername string `json:"judge_username" validate:"required,min=1,max=40,excludesall=/?#%"`
}

// MemberStats is what a member sees on their own profile
type MemberStats struct {
	database.MemberStats
	Badges    []string                     `json:"badges"`
	Skills    judge_service.SkillStats     `json:"skills"`
	Languages []judge_service.LanguageStat `json:"languages"`
}

func (u *UserService) Start() {
	for _, field := range []struct {
		field any
		name  string
	}{
		{u.DB, "database"}, {u.Judge, "judge oracle"},
	} {
		if field.field == nil {
			panic(fmt.Sprintf("user service expects non-nil %v", field.name))
		}
	}
	if u.Now == nil {
		u.Now = time.Now
	}
	if u.Location == nil {
		u.Location = time.Local
	}
	if u.Weights == (stats_service.Weights{}) {
		u.Weights = stats_service.DefaultWeights
	}
	if u.SubmissionLimit <= 0 {
		u.SubmissionLimit = 20
	}
	u.logger = logrus.WithField("from", "user service")
	u.logger.Info("user service started")
}
