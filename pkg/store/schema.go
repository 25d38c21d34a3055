package store

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; PRAGMA user_version records how many have
// run. Each step only adds or backfills, except the rebuild that drops the
// retired theme column.
var migrations = []string{
	// 1: initial tables.
	`CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		difficulty TEXT NOT NULL,
		scheduled_time INTEGER,
		is_completed INTEGER NOT NULL DEFAULT 0,
		completed_at INTEGER,
		day_category TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS progress (
		id INTEGER PRIMARY KEY NOT NULL CHECK (id = 1),
		total_xp INTEGER NOT NULL DEFAULT 0,
		current_level INTEGER NOT NULL DEFAULT 1,
		xp_to_next_level INTEGER NOT NULL DEFAULT 2
	);
	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY NOT NULL CHECK (id = 1),
		rollover_hour INTEGER NOT NULL DEFAULT 0,
		notifications_enabled INTEGER NOT NULL DEFAULT 1,
		daily_reminder_time TEXT,
		task_reminders_enabled INTEGER NOT NULL DEFAULT 1,
		selected_theme TEXT
	);`,

	// 2: configurable rollover minute and toggle; midnight rows move to 03:00.
	`ALTER TABLE settings ADD COLUMN rollover_minute INTEGER NOT NULL DEFAULT 0;
	ALTER TABLE settings ADD COLUMN rollover_enabled INTEGER NOT NULL DEFAULT 1;
	UPDATE settings SET rollover_hour = 3 WHERE rollover_hour = 0;`,

	// 3: drop selected_theme.
	`CREATE TABLE settings_new (
		id INTEGER PRIMARY KEY NOT NULL CHECK (id = 1),
		rollover_hour INTEGER NOT NULL DEFAULT 3,
		rollover_minute INTEGER NOT NULL DEFAULT 0,
		rollover_enabled INTEGER NOT NULL DEFAULT 1,
		notifications_enabled INTEGER NOT NULL DEFAULT 1,
		daily_reminder_time TEXT,
		task_reminders_enabled INTEGER NOT NULL DEFAULT 1
	);
	INSERT INTO settings_new (id, rollover_hour, rollover_minute, rollover_enabled,
		notifications_enabled, daily_reminder_time, task_reminders_enabled)
	SELECT id, rollover_hour, rollover_minute, rollover_enabled,
		notifications_enabled, daily_reminder_time, task_reminders_enabled
	FROM settings;
	DROP TABLE settings;
	ALTER TABLE settings_new RENAME TO settings;`,

	// 4: sort preferences.
	`ALTER TABLE settings ADD COLUMN task_sort_type TEXT NOT NULL DEFAULT 'MANUAL';
	ALTER TABLE settings ADD COLUMN is_reverse_sort INTEGER NOT NULL DEFAULT 0;
	ALTER TABLE settings ADD COLUMN manual_task_order TEXT;`,

	// 5: explicit manual order key, seeded from creation order per bucket.
	`ALTER TABLE tasks ADD COLUMN order_key INTEGER NOT NULL DEFAULT 0;
	ALTER TABLE tasks ADD COLUMN updated_at INTEGER;
	UPDATE tasks SET order_key = (
		SELECT COUNT(*) FROM tasks AS t2
		WHERE t2.day_category = tasks.day_category
		AND (t2.created_at < tasks.created_at
			OR (t2.created_at = tasks.created_at AND t2.id <= tasks.id))
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_bucket_order ON tasks (day_category, order_key);`,

	// 6: rollover idempotence marker.
	`CREATE TABLE IF NOT EXISTS rollover_state (
		id INTEGER PRIMARY KEY NOT NULL CHECK (id = 1),
		last_rollover_at INTEGER
	);`,
}

// SchemaVersion is the version a fully migrated database reports.
var SchemaVersion = len(migrations)

func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("store: read schema version: %w", err)
	}
	return v, nil
}

// migrate brings db up to target, one transaction per step.
func migrate(ctx context.Context, db *sql.DB, target int) error {
	current, err := schemaVersion(ctx, db)
	if err != nil {
		return err
	}
	if current > len(migrations) {
		return fmt.Errorf("store: database schema %d is newer than supported %d", current, len(migrations))
	}
	for v := current; v < target && v < len(migrations); v++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("store: begin migration %d: %w", v+1, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("store: migration %d: %w", v+1, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("store: record migration %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("store: commit migration %d: %w", v+1, err)
		}
	}
	return nil
}
