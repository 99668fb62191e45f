package user_service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tcp_snm/tracker/internal/database"
	"github.com/tcp_snm/tracker/internal/service/stats_service"
	"github.com/tcp_snm/tracker/internal/tracker_errors"
)

// SyncMember mirrors the member's judge state into the store: the cached
// streak, solve records of recently accepted problems, and any newly earned
// badges. Solved counts are required; the calendar and submission log
// degrade to what is already stored.
func (u *UserService) SyncMember(ctx context.Context, memberID uuid.UUID) (database.Member, error) {
	member, err := u.DB.GetMemberByID(ctx, memberID)
	if err != nil {
		return database.Member{}, err
	}
	if member.JudgeUsername == "" {
		return database.Member{}, fmt.Errorf(
			"%w, member %v has not linked a judge username",
			tracker_errors.ErrNotConfigured,
			memberID,
		)
	}

	logger := u.logger.WithFields(logrus.Fields{
		"member_id":      member.ID,
		"judge_username": member.JudgeUsername,
	})

	solved, err := u.Judge.GetSolved(ctx, member.JudgeUsername)
	if err != nil {
		err = fmt.Errorf("%w, cannot fetch solved counts: %v", tracker_errors.ErrVerificationUnavailable, err)
		logger.Error(err)
		return database.Member{}, err
	}

	streak := stats_service.Streak{Current: member.Streak}
	if cal, err := u.Judge.GetCalendar(ctx, member.JudgeUsername); err != nil {
		logger.Warnf("keeping stored streak, calendar unavailable: %v", err)
	} else {
		streak = stats_service.CalculateStreak(cal, u.Now(), u.Location)
	}

	records := member.SolveRecords
	if accepted, err := u.Judge.GetAcceptedSubmissions(ctx, member.JudgeUsername, u.SubmissionLimit); err != nil {
		logger.Warnf("keeping stored solve records, submission log unavailable: %v", err)
	} else {
		slugs := make([]string, 0, len(accepted))
		for _, sub := range accepted {
			slugs = append(slugs, sub.ProblemSlug)
		}
		records = MarkSolved(records, slugs)
	}

	badges := stats_service.EarnedBadges(stats_service.BadgeInput{
		Solved: stats_service.SolvedCounts{
			Easy:   solved.EasySolved,
			Medium: solved.MediumSolved,
			Hard:   solved.HardSolved,
		},
		CurrentStreak: streak.Current,
		LongestStreak: streak.Longest,
	})

	updated, err := u.DB.UpdateMemberProgress(ctx, member.ID, streak.Current, records, badges)
	if err != nil {
		return database.Member{}, err
	}

	logger.Infof("synced member: streak %d, %d solve records, %d badges", updated.Streak, len(updated.SolveRecords), len(updated.Badges))
	return updated, nil
}

// MarkSolved returns records with every slug in solved set to Solved. Unknown
// slugs are appended in the order given; existing records keep their order,
// difficulty and tags.
func MarkSolved(records []database.SolveRecord, solved []string) []database.SolveRecord {
	res := make([]database.SolveRecord, 0, len(records)+len(solved))
	index := make(map[string]int, len(records))
	for _, r := range records {
		index[strings.ToLower(r.ProblemSlug)] = len(res)
		res = append(res, r)
	}

	for _, slug := range solved {
		key := strings.ToLower(strings.TrimSpace(slug))
		if key == "" {
			continue
		}
		if i, ok := index[key]; ok {
			res[i].Status = database.SolveStatusSolved
			continue
		}
		index[key] = len(res)
		res = append(res, database.SolveRecord{ProblemSlug: key, Status: database.SolveStatusSolved})
	}
	return res
}
