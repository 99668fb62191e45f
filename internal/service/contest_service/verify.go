package contest_service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tcp_snm/tracker/internal/database"
	"github.com/tcp_snm/tracker/internal/service/judge_service"
	"github.com/tcp_snm/tracker/internal/tracker_errors"
)

// VerifySubmission credits memberID for slug in the contest when the judge
// shows an accepted submission strictly after the contest started. A triple
// is credited at most once; the store enforces that under concurrency.
//
// The existing-credit check runs before the judge is contacted, so repeated
// attempts for an already credited problem cost no upstream calls.
func (c *ContestService) VerifySubmission(
	ctx context.Context,
	memberID uuid.UUID,
	contestID uuid.UUID,
	slug string,
) (VerifyResult, error) {
	slug = normalizeSlug(slug)
	logger := c.logger.WithFields(logrus.Fields{
		"member_id":  memberID,
		"contest_id": contestID,
		"slug":       slug,
	})

	contest, err := c.DB.GetContestByID(ctx, contestID)
	if err != nil {
		return VerifyResult{}, err
	}

	switch StatusAt(c.Now(), contest.StartTime, contest.EndTime) {
	case StatusEnded:
		return VerifyResult{}, fmt.Errorf("%w, contest %v ended at %v", tracker_errors.ErrContestEnded, contest.ID, contest.EndTime)
	case StatusUpcoming:
		return VerifyResult{}, fmt.Errorf("%w, contest %v starts at %v", tracker_errors.ErrContestNotStarted, contest.ID, contest.StartTime)
	}

	idx := slices.IndexFunc(contest.Problems, func(p database.ContestProblem) bool { return p.Slug == slug })
	if idx < 0 {
		return VerifyResult{}, fmt.Errorf("%w, problem %q is not part of contest %v", tracker_errors.ErrInvalidRequest, slug, contest.ID)
	}
	points := contest.Problems[idx].Points

	member, err := c.DB.GetMemberByID(ctx, memberID)
	if err != nil {
		return VerifyResult{}, err
	}
	if member.JudgeUsername == "" {
		return VerifyResult{}, fmt.Errorf("%w, link a judge username before verifying", tracker_errors.ErrNotConfigured)
	}

	_, err = c.DB.GetSubmission(ctx, memberID, contestID, slug)
	if err == nil {
		return VerifyResult{}, fmt.Errorf("%w, %q already credited in this contest", tracker_errors.ErrDuplicateSubmission, slug)
	}
	if !errors.Is(err, tracker_errors.ErrNotFound) {
		return VerifyResult{}, err
	}

	judgeCtx, cancel := context.WithTimeout(ctx, c.JudgeTimeout)
	accepted, err := c.Judge.GetAcceptedSubmissions(judgeCtx, member.JudgeUsername, c.SubmissionLimit)
	cancel()
	if err != nil {
		logger.Warnf("judge lookup failed: %v", err)
		return VerifyResult{}, fmt.Errorf(
			"%w, cannot reach the judge right now, try again later: %v",
			tracker_errors.ErrVerificationUnavailable,
			err,
		)
	}

	match, ok := findAcceptedAfter(accepted, slug, contest)
	if !ok {
		return VerifyResult{}, fmt.Errorf(
			"%w, no accepted submission for %q after the contest started",
			tracker_errors.ErrNoValidSubmission,
			slug,
		)
	}

	sub := database.Submission{
		ID:          uuid.New(),
		MemberID:    memberID,
		ContestID:   contestID,
		ProblemSlug: slug,
		Score:       points,
		SubmittedAt: match.Timestamp,
	}
	created, err := c.DB.CreateSubmissionIfAbsent(ctx, sub)
	if err != nil {
		return VerifyResult{}, err
	}
	if !created {
		// a concurrent attempt got there first
		return VerifyResult{}, fmt.Errorf("%w, %q already credited in this contest", tracker_errors.ErrDuplicateSubmission, slug)
	}

	logger.Infof("credited %d points", points)
	return VerifyResult{Submission: sub, Score: points}, nil
}

// findAcceptedAfter returns any accepted submission of slug made strictly
// after the contest started
func findAcceptedAfter(
	accepted []judge_service.AcceptedSubmission,
	slug string,
	contest database.Contest,
) (judge_service.AcceptedSubmission, bool) {
	for _, sub := range accepted {
		if normalizeSlug(sub.ProblemSlug) == slug && sub.Timestamp.After(contest.StartTime) {
			return sub, true
		}
	}
	return judge_service.AcceptedSubmission{}, false
}
