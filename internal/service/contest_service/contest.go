package contest_service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tcp_snm/tracker/internal/database"
	"github.com/tcp_snm/tracker/internal/service"
)

func (c *ContestService) CreateContest(ctx context.Context, request CreateContestRequest) (Contest, error) {
	claims, err := service.GetClaimsFromContext(ctx)
	if err != nil {
		return Contest{}, err
	}

	err = c.UserServiceConfig.AuthorizeUserRole(
		ctx,
		claims.UserID,
		fmt.Sprintf("user %v tried to create a contest", claims.UserID),
		database.RoleSupervisor,
		database.RoleAdmin,
	)
	if err != nil {
		return Contest{}, err
	}

	request.Title = strings.TrimSpace(request.Title)
	request.TargetGroup = strings.TrimSpace(request.TargetGroup)
	for i := range request.Problems {
		request.Problems[i].Slug = normalizeSlug(request.Problems[i].Slug)
	}
	if err = service.ValidateInput(request); err != nil {
		return Contest{}, err
	}

	if request.TargetGroup != database.TargetAllGroups {
		if _, err = c.DB.GetGroupByID(ctx, request.TargetGroup); err != nil {
			return Contest{}, err
		}
	}

	problems := make([]database.ContestProblem, 0, len(request.Problems))
	for _, p := range request.Problems {
		problems = append(problems, database.ContestProblem{Slug: p.Slug, Points: p.Points})
	}

	contest, err := c.DB.CreateContest(ctx, database.Contest{
		ID:          uuid.New(),
		Title:       request.Title,
		TargetGroup: request.TargetGroup,
		StartTime:   request.StartTime.UTC(),
		EndTime:     request.EndTime.UTC(),
		Problems:    problems,
		CreatedBy:   claims.UserID,
		CreatedAt:   c.Now().UTC(),
	})
	if err != nil {
		return Contest{}, err
	}

	c.logger.Infof("contest %v created by %v for group %v", contest.ID, claims.UserID, contest.TargetGroup)
	return toView(contest, c.Now()), nil
}

func (c *ContestService) GetContestByID(ctx context.Context, id uuid.UUID) (Contest, error) {
	contest, err := c.DB.GetContestByID(ctx, id)
	if err != nil {
		return Contest{}, err
	}
	return toView(contest, c.Now()), nil
}

// ListContests lists the contests visible to a group, its own and those
// targeting every group, in creation order
func (c *ContestService) ListContests(ctx context.Context, groupID string) ([]Contest, error) {
	targets := []string{database.TargetAllGroups}
	if groupID != "" && groupID != database.TargetAllGroups {
		targets = append(targets, groupID)
	}

	contests, err := c.DB.ListContestsByTargets(ctx, targets)
	if err != nil {
		return nil, err
	}

	now := c.Now()
	res := make([]Contest, 0, len(contests))
	for _, contest := range contests {
		res = append(res, toView(contest, now))
	}
	return res, nil
}

// ListContestsForMember lists the contests visible to the caller's group
func (c *ContestService) ListContestsForMember(ctx context.Context) ([]Contest, error) {
	member, err := c.UserServiceConfig.FetchMemberFromClaims(ctx)
	if err != nil {
		return nil, err
	}
	return c.ListContests(ctx, member.GroupID)
}

func normalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}
