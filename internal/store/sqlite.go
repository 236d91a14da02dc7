package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/classdeck/internal/apperr"
	"github.com/starford/classdeck/internal/models"
)

const courseColumns = `rowid, id, name, teacher, location, color, weekday, period, span,
	week_first, week_last, week_parity, created_at, updated_at`

// NewCourseID returns a time-ordered course identifier.
func NewCourseID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// prepareCourse validates c and fills in id and timestamps.
func prepareCourse(c *models.Course, now time.Time) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	if c.ID == "" {
		c.ID = NewCourseID()
	}
	if c.Weeks.Parity == "" {
		c.Weeks.Parity = models.ParityAll
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = now.UTC()
	return nil
}

// SaveCourse inserts or replaces a course.
func (s *SQLite) SaveCourse(ctx context.Context, c *models.Course) error {
	if err := prepareCourse(c, time.Now()); err != nil {
		return err
	}
	if err := s.putCourse(ctx, c); err != nil {
		return err
	}
	return s.clearTombstone(ctx, c.ID)
}

// putCourse upserts c as-is and marks it unsynced. The replication pull
// uses it to keep the remote timestamps, then marks the row synced.
func (s *SQLite) putCourse(ctx context.Context, c *models.Course) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO courses (id, name, teacher, location, color, weekday, period, span,
			week_first, week_last, week_parity, created_at, updated_at, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(id) DO UPDATE SET
			name        = excluded.name,
			teacher     = excluded.teacher,
			location    = excluded.location,
			color       = excluded.color,
			weekday     = excluded.weekday,
			period      = excluded.period,
			span        = excluded.span,
			week_first  = excluded.week_first,
			week_last   = excluded.week_last,
			week_parity = excluded.week_parity,
			updated_at  = excluded.updated_at,
			synced      = 0
	`, c.ID, c.Name, c.Teacher, c.Location, c.Color, int(c.Weekday), c.Period, c.Span,
		c.Weeks.First, c.Weeks.Last, string(c.Weeks.Parity), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: upsert course: %w", err)
	}
	return s.conn.QueryRowContext(ctx, `SELECT rowid FROM courses WHERE id = ?`, c.ID).Scan(&c.Seq)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCourse(r rowScanner) (models.Course, error) {
	var (
		c       models.Course
		weekday int
		parity  string
	)
	err := r.Scan(&c.Seq, &c.ID, &c.Name, &c.Teacher, &c.Location, &c.Color, &weekday,
		&c.Period, &c.Span, &c.Weeks.First, &c.Weeks.Last, &parity, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return c, err
	}
	c.Weekday = time.Weekday(weekday)
	c.Weeks.Parity = models.Parity(parity)
	return c, nil
}

// GetCourse returns one course by id.
func (s *SQLite) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = ?`, id)
	c, err := scanCourse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get course: %w", err)
	}
	return &c, nil
}

// ListCourses returns every course ordered by insertion.
func (s *SQLite) ListCourses(ctx context.Context) ([]models.Course, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+courseColumns+` FROM courses ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("store: list courses: %w", err)
	}
	defer rows.Close()

	var out []models.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan course: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCourse removes a course and leaves a tombstone for replication.
// Each call is its own durable transaction.
func (s *SQLite) DeleteCourse(ctx context.Context, id string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	res, err := tx.ExecContext(ctx, `DELETE FROM courses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete course: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO tombstones (id, deleted_at) VALUES (?, ?)`,
		id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: record tombstone: %w", err)
	}
	return tx.Commit()
}

// markSynced records that the remote holds the current revision of id.
func (s *SQLite) markSynced(ctx context.Context, id string) error {
	if _, err := s.conn.ExecContext(ctx, `UPDATE courses SET synced = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: mark synced: %w", err)
	}
	return nil
}

// syncedIDs returns the ids of courses the remote has acknowledged.
func (s *SQLite) syncedIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id FROM courses WHERE synced = 1`)
	if err != nil {
		return nil, fmt.Errorf("store: list synced: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// dropCourse removes a course another replica deleted. No tombstone is
// left because the remote already lacks it.
func (s *SQLite) dropCourse(ctx context.Context, id string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM courses WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: drop course: %w", err)
	}
	return nil
}

// Tombstones returns ids deleted locally and not yet removed remotely.
func (s *SQLite) Tombstones(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id FROM tombstones`)
	if err != nil {
		return nil, fmt.Errorf("store: list tombstones: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

func (s *SQLite) clearTombstone(ctx context.Context, id string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM tombstones WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: clear tombstone: %w", err)
	}
	return nil
}

// GetPreference returns a preference value, or ErrNotFound.
func (s *SQLite) GetPreference(ctx context.Context, key string) (string, error) {
	var v string
	err := s.conn.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: get preference: %w", err)
	}
	return v, nil
}

// SetPreference stores a preference value.
func (s *SQLite) SetPreference(ctx context.Context, key, value string) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: set preference: %w", err)
	}
	return nil
}
