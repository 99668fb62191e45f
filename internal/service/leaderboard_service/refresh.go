package leaderboard_service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/tcp_snm/tracker/internal/database"
	"github.com/tcp_snm/tracker/internal/tracker_errors"
)

// RefreshLeaderboard recomputes a group's overall board on behalf of a
// member, at most once per Cooldown per member. The cooldown is stamped
// before the recomputation starts so a second concurrent request is refused.
//
// A refused refresh returns a result with Success false together with an
// error wrapping ErrCooldownActive.
func (l *LeaderboardService) RefreshLeaderboard(
	ctx context.Context,
	groupID string,
	memberID uuid.UUID,
) (RefreshResult, error) {
	member, err := l.DB.GetMemberByID(ctx, memberID)
	if err != nil {
		return RefreshResult{}, err
	}
	if member.GroupID != groupID && member.Role != database.RoleSupervisor && member.Role != database.RoleAdmin {
		return RefreshResult{}, fmt.Errorf("%w, member %v is not in group %v", tracker_errors.ErrUnAuthorized, memberID, groupID)
	}

	now := l.Now()
	stamped, last, err := l.DB.StampRefresh(ctx, memberID, now, now.Add(-l.Cooldown))
	if err != nil {
		return RefreshResult{}, err
	}
	if !stamped {
		wait := l.Cooldown
		if last != nil {
			wait = last.Add(l.Cooldown).Sub(now)
		}
		minutes := RemainingMinutes(wait)
		result := RefreshResult{
			Success:           false,
			Message:           fmt.Sprintf("Please wait %d more minute(s) before refreshing again", minutes),
			RetryAfterMinutes: minutes,
		}
		return result, fmt.Errorf(
			"%w, member %v can refresh again in %d minute(s)",
			tracker_errors.ErrCooldownActive,
			memberID,
			minutes,
		)
	}

	board, err := l.GetGroupLeaderboard(ctx, groupID, ModeOverall, true)
	if errors.Is(err, tracker_errors.ErrAggregationPartialFailure) {
		return RefreshResult{
			Success: true,
			Message: fmt.Sprintf("Leaderboard refreshed, %d member(s) could not be fetched", len(board.Excluded)),
			Data:    &board,
		}, nil
	}
	if err != nil {
		return RefreshResult{}, err
	}

	l.logger.Infof("member %v refreshed leaderboard of group %v", memberID, groupID)
	return RefreshResult{
		Success: true,
		Message: "Leaderboard refreshed",
		Data:    &board,
	}, nil
}

// RemainingMinutes rounds a wait up to whole minutes, never below one
func RemainingMinutes(wait time.Duration) int {
	return max(int(math.Ceil(wait.Minutes())), 1)
}
