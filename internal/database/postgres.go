package database

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/tcp_snm/tracker/internal/tracker_errors"
)

//go:embed schema.sql
var schema string

var errMsgs = map[string]map[string]string{
	tracker_errors.CodeUniqueConstraint: {
		"submissions_member_contest_problem_key": "problem already verified for this contest",
		"contests_pkey":                          "contest with that id already exists",
	},
	tracker_errors.CodeForeignKeyConstraint: {
		"members_group_id_fkey":       "group does not exist",
		"contests_created_by_fkey":    "contest creator does not exist",
		"submissions_member_id_fkey":  "member does not exist",
		"submissions_contest_id_fkey": "contest does not exist",
	},
}

const memberColumns = `id, display_name, email, role, judge_username, group_id,
	streak, solve_records, badges, last_refresh_at, created_at`

const contestColumns = `id, title, target_group, start_time, end_time, problems, created_by, created_at`

const submissionColumns = `id, member_id, contest_id, problem_slug, score, submitted_at`

type PgStore struct {
	pool *pgxpool.Pool
}

var (
	_ CohortStore      = (*PgStore)(nil)
	_ LeaderboardCache = (*PgStore)(nil)
)

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Migrate creates missing tables. Every statement is idempotent.
func (s *PgStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("%w, cannot apply schema: %w", tracker_errors.ErrInternal, err)
	}
	log.Info("database schema is up to date")
	return nil
}

func scanMember(row pgx.Row) (Member, error) {
	var (
		m          Member
		groupID    *string
		recordJson []byte
	)
	err := row.Scan(
		&m.ID, &m.DisplayName, &m.Email, &m.Role, &m.JudgeUsername, &groupID,
		&m.Streak, &recordJson, &m.Badges, &m.LastRefreshAt, &m.CreatedAt,
	)
	if err != nil {
		return Member{}, err
	}
	if groupID != nil {
		m.GroupID = *groupID
	}
	if err = json.Unmarshal(recordJson, &m.SolveRecords); err != nil {
		return Member{}, fmt.Errorf("cannot decode solve records of member %v: %w", m.ID, err)
	}
	return m, nil
}

func (s *PgStore) queryMembers(ctx context.Context, contextMessage string, query string, args ...any) ([]Member, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, tracker_errors.HandleDBErrors(err, errMsgs, contextMessage)
	}
	defer rows.Close()

	members := make([]Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, tracker_errors.HandleDBErrors(err, errMsgs, contextMessage)
		}
		members = append(members, m)
	}
	if err = rows.Err(); err != nil {
		return nil, tracker_errors.HandleDBErrors(err, errMsgs, contextMessage)
	}
	return members, nil
}

func (s *PgStore) GetMemberByID(ctx context.Context, id uuid.UUID) (Member, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id)
	m, err := scanMember(row)
	if err != nil {
		return Member{}, tracker_errors.HandleDBErrors(
			err, errMsgs, fmt.Sprintf("cannot fetch member with id %v from db", id),
		)
	}
	return m, nil
}

func (s *PgStore) ListMembersByGroup(ctx context.Context, groupID string) ([]Member, error) {
	return s.queryMembers(
		ctx,
		fmt.Sprintf("cannot list members of group %v", groupID),
		`SELECT `+memberColumns+` FROM members WHERE group_id = $1 ORDER BY created_at, id`,
		groupID,
	)
}

func (s *PgStore) ListLinkedMembers(ctx context.Context) ([]Member, error) {
	return s.queryMembers(
		ctx,
		"cannot list members with a judge username",
		`SELECT `+memberColumns+` FROM members WHERE judge_username <> '' ORDER BY created_at, id`,
	)
}

func (s *PgStore) ListMembersByRole(ctx context.Context, role string) ([]Member, error) {
	return s.queryMembers(
		ctx,
		fmt.Sprintf("cannot list members with role %v", role),
		`SELECT `+memberColumns+` FROM members WHERE role = $1 ORDER BY created_at, id`,
		role,
	)
}

func (s *PgStore) UpdateJudgeUsername(ctx context.Context, id uuid.UUID, username string) (Member, error) {
	row := s.pool.QueryRow(
		ctx,
		`UPDATE members SET judge_username = $2 WHERE id = $1 RETURNING `+memberColumns,
		id, username,
	)
	m, err := scanMember(row)
	if err != nil {
		return Member{}, tracker_errors.HandleDBErrors(
			err, errMsgs, fmt.Sprintf("cannot update judge username of member %v", id),
		)
	}
	return m, nil
}

func (s *PgStore) UpdateMemberProgress(
	ctx context.Context,
	id uuid.UUID,
	streak int,
	records []SolveRecord,
	badges []string,
) (Member, error) {
	if records == nil {
		records = []SolveRecord{}
	}
	recordJson, err := json.Marshal(records)
	if err != nil {
		return Member{}, fmt.Errorf("%w, cannot encode solve records: %w", tracker_errors.ErrInternal, err)
	}
	if badges == nil {
		badges = []string{}
	}

	// badges keep the order in which they were first earned
	row := s.pool.QueryRow(
		ctx,
		`UPDATE members SET
			streak = $2,
			solve_records = $3,
			badges = ARRAY(
				SELECT b FROM unnest(badges || $4::text[]) WITH ORDINALITY AS t(b, n)
				WHERE b <> ''
				GROUP BY b ORDER BY MIN(n)
			)
		WHERE id = $1
		RETURNING `+memberColumns,
		id, streak, string(recordJson), badges,
	)
	m, err := scanMember(row)
	if err != nil {
		return Member{}, tracker_errors.HandleDBErrors(
			err, errMsgs, fmt.Sprintf("cannot update progress of member %v", id),
		)
	}
	return m, nil
}

func (s *PgStore) StampRefresh(ctx context.Context, id uuid.UUID, now, cutoff time.Time) (bool, *time.Time, error) {
	var stamped time.Time
	err := s.pool.QueryRow(
		ctx,
		`UPDATE members SET last_refresh_at = $2
		WHERE id = $1 AND (last_refresh_at IS NULL OR last_refresh_at <= $3)
		RETURNING last_refresh_at`,
		id, now, cutoff,
	).Scan(&stamped)
	if err == nil {
		return true, nil, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, nil, tracker_errors.HandleDBErrors(
			err, errMsgs, fmt.Sprintf("cannot stamp refresh time of member %v", id),
		)
	}

	// either the member does not exist or the cooldown blocked the stamp
	var last *time.Time
	err = s.pool.QueryRow(ctx, `SELECT last_refresh_at FROM members WHERE id = $1`, id).Scan(&last)
	if err != nil {
		return false, nil, tracker_errors.HandleDBErrors(
			err, errMsgs, fmt.Sprintf("cannot read refresh time of member %v", id),
		)
	}
	return false, last, nil
}

func (s *PgStore) GetGroupByID(ctx context.Context, id string) (Group, error) {
	var g Group
	err := s.pool.QueryRow(ctx, `SELECT id, name, track FROM groups WHERE id = $1`, id).
		Scan(&g.ID, &g.Name, &g.Track)
	if err != nil {
		return Group{}, tracker_errors.HandleDBErrors(
			err, errMsgs, fmt.Sprintf("cannot fetch group %v from db", id),
		)
	}
	return g, nil
}

func scanContest(row pgx.Row) (Contest, error) {
	var (
		c           Contest
		problemJson []byte
	)
	err := row.Scan(&c.ID, &c.Title, &c.TargetGroup, &c.StartTime, &c.EndTime, &problemJson, &c.CreatedBy, &c.CreatedAt)
	if err != nil {
		return Contest{}, err
	}
	if err = json.Unmarshal(problemJson, &c.Problems); err != nil {
		return Contest{}, fmt.Errorf("cannot decode problems of contest %v: %w", c.ID, err)
	}
	return c, nil
}

func (s *PgStore) CreateContest(ctx context.Context, contest Contest) (Contest, error) {
	if contest.ID == uuid.Nil {
		contest.ID = uuid.New()
	}
	problemJson, err := json.Marshal(contest.Problems)
	if err != nil {
		return Contest{}, fmt.Errorf("%w, cannot encode contest problems: %w", tracker_errors.ErrInternal, err)
	}

	row := s.pool.QueryRow(
		ctx,
		`INSERT INTO contests (id, title, target_group, start_time, end_time, problems, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+contestColumns,
		contest.ID, contest.Title, contest.TargetGroup, contest.StartTime, contest.EndTime,
		string(problemJson), contest.CreatedBy,
	)
	created, err := scanContest(row)
	if err != nil {
		return Contest{}, tracker_errors.HandleDBErrors(
			err, errMsgs, fmt.Sprintf("cannot insert contest %q into db", contest.Title),
		)
	}
	return created, nil
}

func (s *PgStore) GetContestByID(ctx context.Context, id uuid.UUID) (Contest, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+contestColumns+` FROM contests WHERE id = $1`, id)
	c, err := scanContest(row)
	if err != nil {
		return Contest{}, tracker_errors.HandleDBErrors(
			err, errMsgs, fmt.Sprintf("cannot fetch contest with id %v from db", id),
		)
	}
	return c, nil
}

func (s *PgStore) ListContestsByTargets(ctx context.Context, targets []string) ([]Contest, error) {
	contextMessage := fmt.Sprintf("cannot list contests for targets %v", targets)
	rows, err := s.pool.Query(
		ctx,
		`SELECT `+contestColumns+` FROM contests WHERE target_group = ANY($1::text[]) ORDER BY start_time, id`,
		targets,
	)
	if err != nil {
		return nil, tracker_errors.HandleDBErrors(err, errMsgs, contextMessage)
	}
	defer rows.Close()

	contests := make([]Contest, 0)
	for rows.Next() {
		c, err := scanContest(rows)
		if err != nil {
			return nil, tracker_errors.HandleDBErrors(err, errMsgs, contextMessage)
		}
		contests = append(contests, c)
	}
	if err = rows.Err(); err != nil {
		return nil, tracker_errors.HandleDBErrors(err, errMsgs, contextMessage)
	}
	return contests, nil
}

func scanSubmission(row pgx.Row) (Submission, error) {
	var sub Submission
	err := row.Scan(&sub.ID, &sub.MemberID, &sub.ContestID, &sub.ProblemSlug, &sub.Score, &sub.SubmittedAt)
	return sub, err
}

func (s *PgStore) GetSubmission(ctx context.Context, memberID, contestID uuid.UUID, slug string) (Submission, error) {
	row := s.pool.QueryRow(
		ctx,
		`SELECT `+submissionColumns+` FROM submissions
		WHERE member_id = $1 AND contest_id = $2 AND problem_slug = $3`,
		memberID, contestID, slug,
	)
	sub, err := scanSubmission(row)
	if err != nil {
		return Submission{}, tracker_errors.HandleDBErrors(
			err, errMsgs,
			fmt.Sprintf("cannot fetch submission of %v for %v in contest %v", memberID, slug, contestID),
		)
	}
	return sub, nil
}

func (s *PgStore) CreateSubmissionIfAbsent(ctx context.Context, sub Submission) (bool, error) {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	tag, err := s.pool.Exec(
		ctx,
		`INSERT INTO submissions (`+submissionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ON CONSTRAINT submissions_member_contest_problem_key DO NOTHING`,
		sub.ID, sub.MemberID, sub.ContestID, sub.ProblemSlug, sub.Score, sub.SubmittedAt,
	)
	if err != nil {
		return false, tracker_errors.HandleDBErrors(
			err, errMsgs,
			fmt.Sprintf("cannot insert submission of %v for %v in contest %v", sub.MemberID, sub.ProblemSlug, sub.ContestID),
		)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PgStore) ListSubmissionsByContests(ctx context.Context, contestIDs []uuid.UUID) ([]Submission, error) {
	if len(contestIDs) == 0 {
		return []Submission{}, nil
	}
	ids := make([]string, 0, len(contestIDs))
	for _, id := range contestIDs {
		ids = append(ids, id.String())
	}

	contextMessage := fmt.Sprintf("cannot list submissions of %d contests", len(contestIDs))
	rows, err := s.pool.Query(
		ctx,
		`SELECT `+submissionColumns+` FROM submissions
		WHERE contest_id = ANY($1::uuid[]) ORDER BY submitted_at, id`,
		ids,
	)
	if err != nil {
		return nil, tracker_errors.HandleDBErrors(err, errMsgs, contextMessage)
	}
	defer rows.Close()

	subs := make([]Submission, 0)
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, tracker_errors.HandleDBErrors(err, errMsgs, contextMessage)
		}
		subs = append(subs, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, tracker_errors.HandleDBErrors(err, errMsgs, contextMessage)
	}
	return subs, nil
}

func (s *PgStore) GetLeaderboardCache(ctx context.Context, groupID string) (LeaderboardCacheEntry, bool, error) {
	var (
		entry        = LeaderboardCacheEntry{GroupID: groupID}
		statsJson    []byte
		excludedJson []byte
	)
	err := s.pool.QueryRow(
		ctx,
		`SELECT stats, excluded, computed_at FROM leaderboard_cache WHERE group_id = $1`,
		groupID,
	).Scan(&statsJson, &excludedJson, &entry.ComputedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaderboardCacheEntry{}, false, nil
	}
	if err != nil {
		return LeaderboardCacheEntry{}, false, tracker_errors.HandleDBErrors(
			err, errMsgs, fmt.Sprintf("cannot read leaderboard cache of group %v", groupID),
		)
	}
	err = json.Unmarshal(statsJson, &entry.Stats)
	if err == nil {
		err = json.Unmarshal(excludedJson, &entry.Excluded)
	}
	if err != nil {
		// a broken cell is treated as missing and gets recomputed
		log.Errorf("cannot decode leaderboard cache of group %v: %v", groupID, err)
		return LeaderboardCacheEntry{}, false, nil
	}
	return entry, true, nil
}

func (s *PgStore) PutLeaderboardCache(ctx context.Context, entry LeaderboardCacheEntry) error {
	stats := entry.Stats
	if stats == nil {
		stats = []MemberStats{}
	}
	statsJson, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("%w, cannot encode leaderboard stats: %w", tracker_errors.ErrInternal, err)
	}
	excluded := entry.Excluded
	if excluded == nil {
		excluded = []uuid.UUID{}
	}
	excludedJson, err := json.Marshal(excluded)
	if err != nil {
		return fmt.Errorf("%w, cannot encode leaderboard exclusions: %w", tracker_errors.ErrInternal, err)
	}

	_, err = s.pool.Exec(
		ctx,
		`INSERT INTO leaderboard_cache (group_id, stats, excluded, computed_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (group_id) DO UPDATE
		SET stats = EXCLUDED.stats, excluded = EXCLUDED.excluded, computed_at = EXCLUDED.computed_at`,
		entry.GroupID, string(statsJson), string(excludedJson), entry.ComputedAt,
	)
	if err != nil {
		return tracker_errors.HandleDBErrors(
			err, errMsgs, fmt.Sprintf("cannot write leaderboard cache of group %v", entry.GroupID),
		)
	}
	return nil
}
