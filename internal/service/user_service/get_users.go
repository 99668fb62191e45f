package user_service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tcp_snm/tracker/internal/database"
	"github.com/tcp_snm/tracker/internal/service"
	"github.com/tcp_snm/tracker/internal/service/judge_service"
	"github.com/tcp_snm/tracker/internal/service/stats_service"
	"github.com/tcp_snm/tracker/internal/tracker_errors"
)

func (u *UserService) GetMe(ctx context.Context) (database.Member, error) {
	return u.FetchMemberFromClaims(ctx)
}

func (u *UserService) LinkJudgeUsername(ctx context.Context, request LinkJudgeRequest) (database.Member, error) {
	claims, err := service.GetClaimsFromContext(ctx)
	if err != nil {
		return database.Member{}, err
	}

	request.JudgeUsername = strings.TrimSpace(request.JudgeUsername)
	if err = service.ValidateInput(request); err != nil {
		return database.Member{}, err
	}

	member, err := u.DB.UpdateJudgeUsername(ctx, claims.UserID, request.JudgeUsername)
	if err != nil {
		return database.Member{}, err
	}

	u.logger.WithFields(map[string]any{
		"member_id":      claims.UserID,
		"judge_username": request.JudgeUsername,
	}).Info("linked judge username")
	return member, nil
}

// GetMemberStats computes the profile view of a member's judge stats. The
// judge is consulted with soft defaults, so an unreachable judge shows zeros
// instead of failing the page.
func (u *UserService) GetMemberStats(ctx context.Context, memberID uuid.UUID) (MemberStats, error) {
	member, err := u.DB.GetMemberByID(ctx, memberID)
	if err != nil {
		return MemberStats{}, err
	}
	if member.JudgeUsername == "" {
		return MemberStats{}, fmt.Errorf(
			"%w, member %v has not linked a judge username",
			tracker_errors.ErrNotConfigured,
			memberID,
		)
	}

	solved := judge_service.SolvedOrZero(ctx, u.Judge, member.JudgeUsername)
	cal := judge_service.CalendarOrEmpty(ctx, u.Judge, member.JudgeUsername)
	ranking := 0
	if profile, err := u.Judge.GetProfile(ctx, member.JudgeUsername); err == nil {
		ranking = profile.Ranking
	}

	streak := stats_service.CalculateStreak(cal, u.Now(), u.Location)
	stats := stats_service.NewMemberStats(
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
		u.Weights,
	)

	res := MemberStats{
		MemberStats: stats,
		Badges:      member.Badges,
		Languages:   []judge_service.LanguageStat{},
	}
	// tag and language breakdowns are decoration, a failure only hides them
	if skills, err := u.Judge.GetSkillStats(ctx, member.JudgeUsername); err == nil {
		res.Skills = skills
	} else {
		u.logger.Warnf("no skill stats for %v: %v", member.JudgeUsername, err)
	}
	if langs, err := u.Judge.GetLanguageStats(ctx, member.JudgeUsername); err == nil && langs != nil {
		res.Languages = langs
	} else if err != nil {
		u.logger.Warnf("no language stats for %v: %v", member.JudgeUsername, err)
	}
	return res, nil
}
