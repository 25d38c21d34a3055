package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tableflip.dev/nexday/pkg/ordering"
	"tableflip.dev/nexday/pkg/progression"
	"tableflip.dev/nexday/pkg/settings"
	"tableflip.dev/nexday/pkg/task"
)

// Load opens the database named by cfg, loading the default config when cfg
// is nil.
func Load(cfg Config) (Persistence, error) {
	if cfg == nil {
		var err error
		cfg, err = LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return Open(cfg.BasePath())
}

// Open opens (creating if needed) and migrates the database at path.
func Open(path string) (Persistence, error) {
	if path == "" {
		return nil, errors.New("store: database path required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: ensure directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// One connection serializes writers in-process; busy_timeout covers
	// other processes.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", path, err)
	}
	if err := migrate(context.Background(), db, SchemaVersion); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &sqlitePersistence{
		db:   db,
		path: path,
		subs: make(map[int]*subscriber),
	}, nil
}

type sqlitePersistence struct {
	db   *sql.DB
	path string

	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	closed bool

	// lastCommit is the UnixNano of the latest local commit, used to skip
	// file events caused by our own writes.
	lastCommit atomic.Int64
}

func (p *sqlitePersistence) Update(ctx context.Context, fn func(Tx) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if p.isClosed() {
		return ErrClosed
	}
	sqlTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrTxFailed, err)
	}
	tx := &txn{ctx: ctx, tx: sqlTx, dirty: newEvent()}
	if err := fn(tx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrTxFailed, err)
	}
	p.lastCommit.Store(time.Now().UnixNano())
	if !tx.dirty.empty() {
		p.publish(tx.dirty.event())
	}
	return nil
}

// View runs fn in a deferred read transaction. The DSN's _txlock=immediate
// would take the write lock, so the transaction is opened by hand on a
// dedicated connection.
func (p *sqlitePersistence) View(ctx context.Context, fn func(Tx) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if p.isClosed() {
		return ErrClosed
	}
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("%w: conn: %v", ErrTxFailed, err)
	}
	defer func() { _ = conn.Close() }()
	if _, err := conn.ExecContext(ctx, "BEGIN DEFERRED"); err != nil {
		return fmt.Errorf("%w: begin: %v", ErrTxFailed, err)
	}
	defer func() { _, _ = conn.ExecContext(context.Background(), "ROLLBACK") }()
	return fn(&txn{ctx: ctx, tx: conn, dirty: newEvent(), readOnly: true})
}

func (p *sqlitePersistence) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	subs := p.subs
	p.subs = map[int]*subscriber{}
	p.mu.Unlock()

	for _, s := range subs {
		s.stop()
	}
	return p.db.Close()
}

func (p *sqlitePersistence) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

var errReadOnly = errors.New("store: write inside View")

// querier is what txn needs from *sql.Tx or a *sql.Conn inside BEGIN.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txn struct {
	ctx      context.Context
	tx       querier
	dirty    *eventSet
	readOnly bool
}

const taskColumns = `id, title, description, difficulty, scheduled_time, is_completed,
	completed_at, day_category, created_at, updated_at, order_key`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*task.Task, error) {
	var (
		t           task.Task
		description sql.NullString
		difficulty  string
		scheduled   sql.NullInt64
		completed   sql.NullInt64
		bucket      string
		created     int64
		updated     sql.NullInt64
	)
	if err := row.Scan(&t.ID, &t.Title, &description, &difficulty, &scheduled,
		&t.IsCompleted, &completed, &bucket, &created, &updated, &t.OrderKey); err != nil {
		return nil, err
	}
	t.Description = description.String
	t.Difficulty = task.Difficulty(difficulty)
	t.Bucket = task.Bucket(bucket)
	t.CreatedAt = fromNanos(created)
	if updated.Valid {
		t.UpdatedAt = fromNanos(updated.Int64)
	}
	t.ScheduledTime = nullableTime(scheduled)
	t.CompletedAt = nullableTime(completed)
	return &t, nil
}

func (x *txn) queryTasks(query string, args ...any) ([]*task.Task, error) {
	rows, err := x.tx.QueryContext(x.ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query tasks: %w", err)
	}
	defer rows.Close()
	out := make([]*task.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (x *txn) writable() error {
	if x.readOnly {
		return errReadOnly
	}
	return nil
}

func (x *txn) Task(id string) (*task.Task, error) {
	row := x.tx.QueryRowContext(x.ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: read task %s: %w", id, err)
	}
	return t, nil
}

func (x *txn) bucketOf(id string) (task.Bucket, bool, error) {
	var b string
	err := x.tx.QueryRowContext(x.ctx, `SELECT day_category FROM tasks WHERE id = ?`, id).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: read task %s: %w", id, err)
	}
	return task.Bucket(b), true, nil
}

func (x *txn) PutTask(t *task.Task) error {
	if err := x.writable(); err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if old, ok, err := x.bucketOf(t.ID); err != nil {
		return err
	} else if ok {
		x.dirty.touch(old)
	}
	t.UpdatedAt = time.Now().UTC()
	_, err := x.tx.ExecContext(x.ctx, `INSERT OR REPLACE INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, nullString(t.Description), string(t.Difficulty), toNullNanos(t.ScheduledTime),
		t.IsCompleted, toNullNanos(t.CompletedAt), string(t.Bucket), toNanos(t.CreatedAt),
		toNanos(t.UpdatedAt), t.OrderKey)
	if err != nil {
		return fmt.Errorf("store: write task %s: %w", t.ID, err)
	}
	x.dirty.touch(t.Bucket)
	return nil
}

func (x *txn) DeleteTask(id string) (bool, error) {
	if err := x.writable(); err != nil {
		return false, err
	}
	b, ok, err := x.bucketOf(id)
	if err != nil || !ok {
		return false, err
	}
	if _, err := x.tx.ExecContext(x.ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return false, fmt.Errorf("store: delete task %s: %w", id, err)
	}
	x.dirty.touch(b)
	return true, nil
}

func (x *txn) Bucket(b task.Bucket) ([]*task.Task, error) {
	return x.queryTasks(`SELECT `+taskColumns+` FROM tasks WHERE day_category = ?
		ORDER BY order_key ASC, created_at ASC, id ASC`, string(b))
}

func (x *txn) Tasks() ([]*task.Task, error) {
	return x.queryTasks(`SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at ASC, id ASC`)
}

func (x *txn) BucketIDs(b task.Bucket) ([]string, error) {
	rows, err := x.tx.QueryContext(x.ctx, `SELECT id FROM tasks WHERE day_category = ?
		ORDER BY order_key ASC, created_at ASC, id ASC`, string(b))
	if err != nil {
		return nil, fmt.Errorf("store: list %s: %w", b, err)
	}
	defer rows.Close()
	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (x *txn) SetBucket(ids []string, b task.Bucket, firstKey int64) error {
	if err := x.writable(); err != nil {
		return err
	}
	if !b.Valid() {
		return fmt.Errorf("%w: day %q", task.ErrInvalid, b)
	}
	if len(ids) == 0 {
		return nil
	}
	stmt, err := x.tx.PrepareContext(x.ctx,
		`UPDATE tasks SET day_category = ?, order_key = ?, updated_at = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("store: prepare move: %w", err)
	}
	defer stmt.Close()
	now := toNanos(time.Now().UTC())
	for i, id := range ids {
		old, ok, err := x.bucketOf(id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: task %s", ErrNotFound, id)
		}
		x.dirty.touch(old)
		if _, err := stmt.ExecContext(x.ctx, string(b), firstKey+int64(i), now, id); err != nil {
			return fmt.Errorf("store: move task %s: %w", id, err)
		}
	}
	x.dirty.touch(b)
	return nil
}

func (x *txn) SetOrderKeys(keys map[string]int64) error {
	if err := x.writable(); err != nil {
		return err
	}
	stmt, err := x.tx.PrepareContext(x.ctx, `UPDATE tasks SET order_key = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("store: prepare reorder: %w", err)
	}
	defer stmt.Close()
	for id, key := range keys {
		b, ok, err := x.bucketOf(id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: task %s", ErrNotFound, id)
		}
		if _, err := stmt.ExecContext(x.ctx, key, id); err != nil {
			return fmt.Errorf("store: reorder task %s: %w", id, err)
		}
		x.dirty.touch(b)
	}
	return nil
}

func (x *txn) DeleteCreatedBefore(b task.Bucket, cutoff time.Time) (int, error) {
	if err := x.writable(); err != nil {
		return 0, err
	}
	res, err := x.tx.ExecContext(x.ctx, `DELETE FROM tasks WHERE day_category = ? AND created_at < ?`,
		string(b), toNanos(cutoff))
	if err != nil {
		return 0, fmt.Errorf("store: expire %s: %w", b, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: expire %s: %w", b, err)
	}
	if n > 0 {
		x.dirty.touch(b)
	}
	return int(n), nil
}

func (x *txn) MaxOrderKey(b task.Bucket) (int64, error) {
	var key sql.NullInt64
	err := x.tx.QueryRowContext(x.ctx, `SELECT MAX(order_key) FROM tasks WHERE day_category = ?`,
		string(b)).Scan(&key)
	if err != nil {
		return 0, fmt.Errorf("store: max order key %s: %w", b, err)
	}
	return key.Int64, nil
}

func (x *txn) Count(b task.Bucket) (int, int, error) {
	var total, completed sql.NullInt64
	err := x.tx.QueryRowContext(x.ctx, `SELECT COUNT(*), SUM(is_completed) FROM tasks WHERE day_category = ?`,
		string(b)).Scan(&total, &completed)
	if err != nil {
		return 0, 0, fmt.Errorf("store: count %s: %w", b, err)
	}
	return int(total.Int64), int(completed.Int64), nil
}

func (x *txn) Progress() (progression.Snapshot, bool, error) {
	var p progression.Snapshot
	err := x.tx.QueryRowContext(x.ctx,
		`SELECT total_xp, current_level, xp_to_next_level FROM progress WHERE id = 1`).
		Scan(&p.TotalXP, &p.CurrentLevel, &p.XPToNextLevel)
	if errors.Is(err, sql.ErrNoRows) {
		return progression.At(0), false, nil
	}
	if err != nil {
		return p, false, fmt.Errorf("store: read progress: %w", err)
	}
	return p, true, nil
}

func (x *txn) PutProgress(p progression.Snapshot) error {
	if err := x.writable(); err != nil {
		return err
	}
	if !p.Consistent() {
		return fmt.Errorf("store: inconsistent progress %+v", p)
	}
	_, err := x.tx.ExecContext(x.ctx, `INSERT INTO progress (id, total_xp, current_level, xp_to_next_level)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET total_xp = excluded.total_xp,
			current_level = excluded.current_level, xp_to_next_level = excluded.xp_to_next_level`,
		p.TotalXP, p.CurrentLevel, p.XPToNextLevel)
	if err != nil {
		return fmt.Errorf("store: write progress: %w", err)
	}
	x.dirty.progress = true
	return nil
}

func (x *txn) Settings() (settings.Settings, error) {
	s := settings.Defaults()
	var (
		reminder sql.NullString
		sortType string
		manual   sql.NullString
	)
	err := x.tx.QueryRowContext(x.ctx, `SELECT rollover_enabled, rollover_hour, rollover_minute,
		notifications_enabled, task_reminders_enabled, daily_reminder_time,
		task_sort_type, is_reverse_sort, manual_task_order FROM settings WHERE id = 1`).
		Scan(&s.RolloverEnabled, &s.RolloverHour, &s.RolloverMinute,
			&s.NotificationsEnabled, &s.TaskRemindersEnabled, &reminder,
			&sortType, &s.ReverseSort, &manual)
	if errors.Is(err, sql.ErrNoRows) {
		return settings.Defaults(), nil
	}
	if err != nil {
		return s, fmt.Errorf("store: read settings: %w", err)
	}
	if reminder.Valid {
		s.DailyReminderTime = &reminder.String
	}
	if manual.Valid {
		s.ManualTaskOrder = &manual.String
	}
	s.SortType = ordering.Mode(sortType)
	return s.Normalize(), nil
}

func (x *txn) PutSettings(s settings.Settings) error {
	if err := x.writable(); err != nil {
		return err
	}
	s = s.Normalize()
	_, err := x.tx.ExecContext(x.ctx, `INSERT INTO settings (id, rollover_enabled, rollover_hour,
		rollover_minute, notifications_enabled, task_reminders_enabled, daily_reminder_time,
		task_sort_type, is_reverse_sort, manual_task_order)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET rollover_enabled = excluded.rollover_enabled,
			rollover_hour = excluded.rollover_hour, rollover_minute = excluded.rollover_minute,
			notifications_enabled = excluded.notifications_enabled,
			task_reminders_enabled = excluded.task_reminders_enabled,
			daily_reminder_time = excluded.daily_reminder_time,
			task_sort_type = excluded.task_sort_type, is_reverse_sort = excluded.is_reverse_sort,
			manual_task_order = excluded.manual_task_order`,
		s.RolloverEnabled, s.RolloverHour, s.RolloverMinute, s.NotificationsEnabled,
		s.TaskRemindersEnabled, nullStringPtr(s.DailyReminderTime), string(s.SortType),
		s.ReverseSort, nullStringPtr(s.ManualTaskOrder))
	if err != nil {
		return fmt.Errorf("store: write settings: %w", err)
	}
	x.dirty.settings = true
	return nil
}

func (x *txn) RolloverMarker() (time.Time, error) {
	var at sql.NullInt64
	err := x.tx.QueryRowContext(x.ctx, `SELECT last_rollover_at FROM rollover_state WHERE id = 1`).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !at.Valid) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("store: read rollover marker: %w", err)
	}
	return fromNanos(at.Int64), nil
}

func (x *txn) PutRolloverMarker(at time.Time) error {
	if err := x.writable(); err != nil {
		return err
	}
	_, err := x.tx.ExecContext(x.ctx, `INSERT INTO rollover_state (id, last_rollover_at) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET last_rollover_at = excluded.last_rollover_at`, toNanos(at))
	if err != nil {
		return fmt.Errorf("store: write rollover marker: %w", err)
	}
	return nil
}

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func toNullNanos(t *time.Time) sql.NullInt64 {
	if t == nil || t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toNanos(*t), Valid: true}
}

func nullableTime(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}

func nullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
