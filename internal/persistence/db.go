// Package persistence provides a SQLite journal of editing sessions:
// board change events and dice-roll tallies. Board state itself is never
// stored; a session always starts from a freshly generated board.
package persistence

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/hexboard/internal/engine"
	"github.com/talgya/hexboard/internal/world"
)

// DB wraps a SQLite connection for the session journal.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session TEXT NOT NULL,
		revision INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rolls (
		id TEXT PRIMARY KEY,
		session TEXT NOT NULL,
		dice INTEGER NOT NULL,
		revision INTEGER NOT NULL,
		rolled_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS roll_cards (
		roll_id TEXT NOT NULL REFERENCES rolls(id),
		owner TEXT NOT NULL,
		material TEXT NOT NULL,
		count INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_session ON events(session);
	CREATE INDEX IF NOT EXISTS idx_rolls_session ON rolls(session);
	CREATE INDEX IF NOT EXISTS idx_roll_cards_roll ON roll_cards(roll_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveEvents appends board events to the journal.
func (db *DB) SaveEvents(session string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (session, revision, description, category, created_at) VALUES (?, ?, ?, ?, ?)",
			session, e.Revision, e.Description, e.Category, now,
		)
		if err != nil {
			return fmt.Errorf("insert event rev %d: %w", e.Revision, err)
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N events of a session, newest first.
func (db *DB) RecentEvents(session string, limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT revision, description, category FROM events WHERE session = ? ORDER BY id DESC LIMIT ?",
		session, limit,
	)
	return events, err
}

// Roll is one journaled dice roll with its tally.
type Roll struct {
	ID       string       `json:"id" db:"id"`
	Dice     int          `json:"dice" db:"dice"`
	Revision uint64       `json:"revision" db:"revision"`
	RolledAt int64        `json:"rolled_at" db:"rolled_at"`
	Cards    []engine.Row `json:"cards" db:"-"`
}

// RecordRoll stores a dice roll and the cards it produced.
func (db *DB) RecordRoll(session string, dice int, rev uint64, y engine.Yield) (*Roll, error) {
	roll := &Roll{
		ID:       uuid.NewString(),
		Dice:     dice,
		Revision: rev,
		RolledAt: time.Now().Unix(),
		Cards:    y.Rows(),
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO rolls (id, session, dice, revision, rolled_at) VALUES (?, ?, ?, ?, ?)",
		roll.ID, session, roll.Dice, roll.Revision, roll.RolledAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert roll: %w", err)
	}

	for _, c := range roll.Cards {
		_, err := tx.Exec(
			"INSERT INTO roll_cards (roll_id, owner, material, count) VALUES (?, ?, ?, ?)",
			roll.ID, c.Owner, c.Material, c.Count,
		)
		if err != nil {
			return nil, fmt.Errorf("insert roll card %s/%s: %w", c.Owner, c.Material, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	slog.Debug("roll recorded", "id", roll.ID, "dice", dice, "lines", len(roll.Cards))
	return roll, nil
}

// RecentRolls returns the last N rolls of a session with their cards, newest first.
func (db *DB) RecentRolls(session string, limit int) ([]Roll, error) {
	var rolls []Roll
	err := db.conn.Select(&rolls,
		"SELECT id, dice, revision, rolled_at FROM rolls WHERE session = ? ORDER BY rolled_at DESC, rowid DESC LIMIT ?",
		session, limit,
	)
	if err != nil {
		return nil, err
	}

	for i := range rolls {
		err := db.conn.Select(&rolls[i].Cards,
			"SELECT owner, material, count FROM roll_cards WHERE roll_id = ? ORDER BY owner, material",
			rolls[i].ID,
		)
		if err != nil {
			return nil, fmt.Errorf("cards for roll %s: %w", rolls[i].ID, err)
		}
	}
	return rolls, nil
}

// Totals sums every card an owner collected over all rolls of a session.
func (db *DB) Totals(session string) (engine.Yield, error) {
	var rows []engine.Row
	err := db.conn.Select(&rows, `
		SELECT c.owner AS owner, c.material AS material, SUM(c.count) AS count
		FROM roll_cards c JOIN rolls r ON r.id = c.roll_id
		WHERE r.session = ?
		GROUP BY c.owner, c.material`,
		session,
	)
	if err != nil {
		return nil, err
	}

	y := make(engine.Yield)
	for _, r := range rows {
		if y[r.Owner] == nil {
			y[r.Owner] = make(map[world.Material]int)
		}
		y[r.Owner][r.Material] += r.Count
	}
	return y, nil
}
