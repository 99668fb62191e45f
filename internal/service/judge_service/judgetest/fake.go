// Package judgetest provides an in-memory judge oracle for service tests.
package judgetest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tcp_snm/tracker/internal/service/judge_service"
	"github.com/tcp_snm/tracker/internal/tracker_errors"
)

// User is everything the fake judge knows about one username
type User struct {
	Profile   judge_service.Profile
	Solved    judge_service.Solved
	Calendar  judge_service.Calendar
	Accepted  []judge_service.AcceptedSubmission
	Skills    judge_service.SkillStats
	Languages []judge_service.LanguageStat
	FailWith  error // returned by every call when set
	FailSolve bool  // only GetSolved fails
	FailCal   bool  // only GetCalendar fails
}

type Oracle struct {
	mu    sync.Mutex
	users map[string]User
	// Delay is slept before every call, honouring ctx
	Delay time.Duration

	calls      atomic.Int64
	freshCalls atomic.Int64
	inFlight   atomic.Int64
	maxFlight  atomic.Int64
}

var _ judge_service.Oracle = (*Oracle)(nil)

func New() *Oracle {
	return &Oracle{users: make(map[string]User)}
}

func (o *Oracle) Set(username string, user User) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.users[username] = user
}

// Calls is the number of oracle calls made so far
func (o *Oracle) Calls() int {
	return int(o.calls.Load())
}

// FreshCalls is the number of calls whose context asked for fresh reads
func (o *Oracle) FreshCalls() int {
	return int(o.freshCalls.Load())
}

// MaxInFlight is the highest number of concurrent calls observed
func (o *Oracle) MaxInFlight() int {
	return int(o.maxFlight.Load())
}

func (o *Oracle) enter(ctx context.Context, username string) (User, error) {
	o.calls.Add(1)
	if judge_service.FreshReadsRequested(ctx) {
		o.freshCalls.Add(1)
	}
	n := o.inFlight.Add(1)
	defer o.inFlight.Add(-1)
	for {
		cur := o.maxFlight.Load()
		if n <= cur || o.maxFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	if o.Delay > 0 {
		select {
		case <-time.After(o.Delay):
		case <-ctx.Done():
			return User{}, fmt.Errorf("%w, %v", tracker_errors.ErrHttpResponse, ctx.Err())
		}
	}

	o.mu.Lock()
	user, ok := o.users[username]
	o.mu.Unlock()
	if !ok {
		return User{}, fmt.Errorf("%w, unknown judge user %v", tracker_errors.ErrHttpResponse, username)
	}
	if user.FailWith != nil {
		return User{}, user.FailWith
	}
	return user, nil
}

func (o *Oracle) GetProfile(ctx context.Context, username string) (judge_service.Profile, error) {
	user, err := o.enter(ctx, username)
	return user.Profile, err
}

func (o *Oracle) GetSolved(ctx context.Context, username string) (judge_service.Solved, error) {
	user, err := o.enter(ctx, username)
	if err == nil && user.FailSolve {
		err = fmt.Errorf("%w, solved counts unavailable", tracker_errors.ErrHttpResponse)
	}
	return user.Solved, err
}

func (o *Oracle) GetCalendar(ctx context.Context, username string) (judge_service.Calendar, error) {
	user, err := o.enter(ctx, username)
	if err == nil && user.FailCal {
		err = fmt.Errorf("%w, calendar unavailable", tracker_errors.ErrHttpResponse)
	}
	if err != nil {
		return nil, err
	}
	return user.Calendar, nil
}

func (o *Oracle) GetAcceptedSubmissions(ctx context.Context, username string, limit int) ([]judge_service.AcceptedSubmission, error) {
	user, err := o.enter(ctx, username)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(user.Accepted) > limit {
		return user.Accepted[:limit], nil
	}
	return user.Accepted, nil
}

func (o *Oracle) GetSkillStats(ctx context.Context, username string) (judge_service.SkillStats, error) {
	user, err := o.enter(ctx, username)
	return user.Skills, err
}

func (o *Oracle) GetLanguageStats(ctx context.Context, username string) ([]judge_service.LanguageStat, error) {
	user, err := o.enter(ctx, username)
	if err != nil {
		return nil, err
	}
	return user.Languages, nil
}
