package user_service

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/tcp_snm/tracker/internal/database"
	"github.com/tcp_snm/tracker/internal/service"
	"github.com/tcp_snm/tracker/internal/tracker_errors"
)

// FetchMemberFromClaims loads the member behind the request's jwt claims
func (u *UserService) FetchMemberFromClaims(ctx context.Context) (database.Member, error) {
	claims, err := service.GetClaimsFromContext(ctx)
	if err != nil {
		return database.Member{}, err
	}
	return u.DB.GetMemberByID(ctx, claims.UserID)
}

// AuthorizeUserRole succeeds when the stored role of userID is one of roles.
// The role in the token is not trusted since it may be outdated.
func (u *UserService) AuthorizeUserRole(
	ctx context.Context,
	userID uuid.UUID,
	warnMessage string,
	roles ...string,
) error {
	member, err := u.DB.GetMemberByID(ctx, userID)
	if err != nil {
		return err
	}
	if slices.Contains(roles, member.Role) {
		return nil
	}
	if warnMessage != "" {
		u.logger.Warn(warnMessage)
	}
	return fmt.Errorf("%w, requires one of roles %v", tracker_errors.ErrUnAuthorized, roles)
}
