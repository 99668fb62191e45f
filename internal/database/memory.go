package database

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tcp_snm/tracker/internal/tracker_errors"
)

type submissionKey struct {
	memberID  uuid.UUID
	contestID uuid.UUID
	slug      string
}

// MemoryStore is a process-local CohortStore and LeaderboardCache. It keeps
// the same uniqueness and conditional-write guarantees as the postgres store.
type MemoryStore struct {
	mu          sync.RWMutex
	members     map[uuid.UUID]Member
	memberOrder []uuid.UUID
	groups      map[string]Group
	contests    map[uuid.UUID]Contest
	contestList []uuid.UUID
	submissions map[submissionKey]Submission
	subOrder    []submissionKey
	cache       map[string]LeaderboardCacheEntry
}

var (
	_ CohortStore      = (*MemoryStore)(nil)
	_ LeaderboardCache = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		members:     make(map[uuid.UUID]Member),
		groups:      make(map[string]Group),
		contests:    make(map[uuid.UUID]Contest),
		submissions: make(map[submissionKey]Submission),
		cache:       make(map[string]LeaderboardCacheEntry),
	}
}

// PutMember inserts or replaces a member. Members are listed in insertion order.
func (m *MemoryStore) PutMember(member Member) Member {
	m.mu.Lock()
	defer m.mu.Unlock()
	if member.ID == uuid.Nil {
		member.ID = uuid.New()
	}
	if _, ok := m.members[member.ID]; !ok {
		m.memberOrder = append(m.memberOrder, member.ID)
	}
	m.members[member.ID] = cloneMember(member)
	return member
}

func (m *MemoryStore) PutGroup(group Group) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[group.ID] = group
}

func (m *MemoryStore) GetMemberByID(ctx context.Context, id uuid.UUID) (Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	member, ok := m.members[id]
	if !ok {
		return Member{}, fmt.Errorf("%w, no member with id %v", tracker_errors.ErrNotFound, id)
	}
	return cloneMember(member), nil
}

func (m *MemoryStore) listMembers(keep func(Member) bool) []Member {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]Member, 0)
	for _, id := range m.memberOrder {
		member := m.members[id]
		if keep(member) {
			res = append(res, cloneMember(member))
		}
	}
	return res
}

func (m *MemoryStore) ListMembersByGroup(ctx context.Context, groupID string) ([]Member, error) {
	return m.listMembers(func(member Member) bool { return member.GroupID == groupID }), nil
}

func (m *MemoryStore) ListLinkedMembers(ctx context.Context) ([]Member, error) {
	return m.listMembers(func(member Member) bool { return member.JudgeUsername != "" }), nil
}

func (m *MemoryStore) ListMembersByRole(ctx context.Context, role string) ([]Member, error) {
	return m.listMembers(func(member Member) bool { return member.Role == role }), nil
}

func (m *MemoryStore) updateMember(id uuid.UUID, mutate func(*Member)) (Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, ok := m.members[id]
	if !ok {
		return Member{}, fmt.Errorf("%w, no member with id %v", tracker_errors.ErrNotFound, id)
	}
	mutate(&member)
	m.members[id] = cloneMember(member)
	return cloneMember(member), nil
}

func (m *MemoryStore) UpdateJudgeUsername(ctx context.Context, id uuid.UUID, username string) (Member, error) {
	return m.updateMember(id, func(member *Member) { member.JudgeUsername = username })
}

func (m *MemoryStore) UpdateMemberProgress(
	ctx context.Context,
	id uuid.UUID,
	streak int,
	records []SolveRecord,
	badges []string,
) (Member, error) {
	return m.updateMember(id, func(member *Member) {
		member.Streak = streak
		member.SolveRecords = slices.Clone(records)
		member.Badges = unionBadges(member.Badges, badges)
	})
}

func (m *MemoryStore) StampRefresh(ctx context.Context, id uuid.UUID, now, cutoff time.Time) (bool, *time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, ok := m.members[id]
	if !ok {
		return false, nil, fmt.Errorf("%w, no member with id %v", tracker_errors.ErrNotFound, id)
	}
	if member.LastRefreshAt != nil && member.LastRefreshAt.After(cutoff) {
		last := *member.LastRefreshAt
		return false, &last, nil
	}
	stamp := now
	member.LastRefreshAt = &stamp
	m.members[id] = member
	return true, nil, nil
}

func (m *MemoryStore) GetGroupByID(ctx context.Context, id string) (Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	group, ok := m.groups[id]
	if !ok {
		return Group{}, fmt.Errorf("%w, no group with id %v", tracker_errors.ErrNotFound, id)
	}
	return group, nil
}

func (m *MemoryStore) CreateContest(ctx context.Context, contest Contest) (Contest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if contest.ID == uuid.Nil {
		contest.ID = uuid.New()
	}
	if _, ok := m.contests[contest.ID]; ok {
		return Contest{}, fmt.Errorf("%w, contest %v", tracker_errors.ErrEntityAlreadyExist, contest.ID)
	}
	contest.Problems = slices.Clone(contest.Problems)
	m.contests[contest.ID] = contest
	m.contestList = append(m.contestList, contest.ID)
	return contest, nil
}

func (m *MemoryStore) GetContestByID(ctx context.Context, id uuid.UUID) (Contest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	contest, ok := m.contests[id]
	if !ok {
		return Contest{}, fmt.Errorf("%w, no contest with id %v", tracker_errors.ErrNotFound, id)
	}
	contest.Problems = slices.Clone(contest.Problems)
	return contest, nil
}

func (m *MemoryStore) ListContestsByTargets(ctx context.Context, targets []string) ([]Contest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]Contest, 0)
	for _, id := range m.contestList {
		contest := m.contests[id]
		if slices.Contains(targets, contest.TargetGroup) {
			contest.Problems = slices.Clone(contest.Problems)
			res = append(res, contest)
		}
	}
	return res, nil
}

func (m *MemoryStore) GetSubmission(ctx context.Context, memberID, contestID uuid.UUID, slug string) (Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.submissions[submissionKey{memberID, contestID, slug}]
	if !ok {
		return Submission{}, fmt.Errorf(
			"%w, no submission of %v for %v in contest %v",
			tracker_errors.ErrNotFound, memberID, slug, contestID,
		)
	}
	return sub, nil
}

func (m *MemoryStore) CreateSubmissionIfAbsent(ctx context.Context, sub Submission) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := submissionKey{sub.MemberID, sub.ContestID, sub.ProblemSlug}
	if _, ok := m.submissions[key]; ok {
		return false, nil
	}
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	m.submissions[key] = sub
	m.subOrder = append(m.subOrder, key)
	return true, nil
}

func (m *MemoryStore) ListSubmissionsByContests(ctx context.Context, contestIDs []uuid.UUID) ([]Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]Submission, 0)
	for _, key := range m.subOrder {
		if slices.Contains(contestIDs, key.contestID) {
			res = append(res, m.submissions[key])
		}
	}
	return res, nil
}

func (m *MemoryStore) GetLeaderboardCache(ctx context.Context, groupID string) (LeaderboardCacheEntry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.cache[groupID]
	if !ok {
		return LeaderboardCacheEntry{}, false, nil
	}
	entry.Stats = slices.Clone(entry.Stats)
	entry.Excluded = slices.Clone(entry.Excluded)
	return entry, true, nil
}

func (m *MemoryStore) PutLeaderboardCache(ctx context.Context, entry LeaderboardCacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.Stats = slices.Clone(entry.Stats)
	entry.Excluded = slices.Clone(entry.Excluded)
	m.cache[entry.GroupID] = entry
	return nil
}

// SubmissionCount is the number of stored submissions
func (m *MemoryStore) SubmissionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.submissions)
}

func cloneMember(member Member) Member {
	member.SolveRecords = slices.Clone(member.SolveRecords)
	member.Badges = slices.Clone(member.Badges)
	if member.LastRefreshAt != nil {
		last := *member.LastRefreshAt
		member.LastRefreshAt = &last
	}
	return member
}
