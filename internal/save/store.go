// Package save persists dungeon snapshots in a SQLite database.
package save

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/samdwyer/dungeonadventure/internal/world"
)

// ErrNotFound is returned when a save ID does not exist.
var ErrNotFound = errors.New("save not found")

// Store wraps the SQLite connection holding saved games.
type Store struct {
	db *sql.DB
}

// HeroState is the persisted part of the player character.
type HeroState struct {
	Name          string
	HP, MaxHP     int
	HealthPotions int
	VisionPotions int
	Pillars       []world.Pillar
}

// Record is one saved game: the seed that generated the dungeon, the rooms
// as they stood when saved and the hero.
type Record struct {
	Seed     int64
	Snapshot *world.Snapshot
	Hero     HeroState
}

// Summary describes one saved game without its room data.
type Summary struct {
	ID        uuid.UUID
	Seed      int64
	Location  uuid.UUID
	Width     int
	Height    int
	HeroName  string
	Pillars   int
	CreatedAt time.Time
}

// Open opens or creates the save database at the given path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create save directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open save database: %w", err)
	}
	// One connection keeps the PRAGMAs below in effect for every query.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the schema if it doesn't exist.
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS saves (
			id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			location TEXT NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			hero_name TEXT NOT NULL,
			hero_hp INTEGER NOT NULL,
			hero_max_hp INTEGER NOT NULL,
			health_potions INTEGER NOT NULL DEFAULT 0,
			vision_potions INTEGER NOT NULL DEFAULT 0,
			pillars TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS room_snapshots (
			save_id TEXT NOT NULL REFERENCES saves(id) ON DELETE CASCADE,
			grid_row INTEGER NOT NULL,
			grid_col INTEGER NOT NULL,
			memento BLOB NOT NULL,
			PRIMARY KEY (save_id, grid_row, grid_col)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_saves_created_at ON saves(created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Save stores a game and returns the new save's ID.
func (s *Store) Save(ctx context.Context, rec Record) (uuid.UUID, error) {
	snap := rec.Snapshot
	if snap == nil {
		return uuid.Nil, errors.New("cannot save a nil snapshot")
	}

	var width, height int
	type cell struct {
		row, col int
		data     []byte
	}
	var cells []cell
	var marshalErr error
	snap.Each(func(row, col int, m *world.Memento) {
		if marshalErr != nil {
			return
		}
		data, err := m.MarshalBinary()
		if err != nil {
			marshalErr = fmt.Errorf("room (%d,%d): %w", row, col, err)
			return
		}
		cells = append(cells, cell{row, col, data})
		height = max(height, row+1)
		width = max(width, col+1)
	})
	if marshalErr != nil {
		return uuid.Nil, marshalErr
	}

	id := uuid.New()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO saves (id, seed, location, width, height,
			hero_name, hero_hp, hero_max_hp, health_potions, vision_potions, pillars, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), rec.Seed, snap.Location().String(), width, height,
		rec.Hero.Name, rec.Hero.HP, rec.Hero.MaxHP, rec.Hero.HealthPotions, rec.Hero.VisionPotions,
		encodePillars(rec.Hero.Pillars), time.Now().UnixNano(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert save: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO room_snapshots (save_id, grid_row, grid_col, memento) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to prepare room insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range cells {
		if _, err := stmt.ExecContext(ctx, id.String(), c.row, c.col, c.data); err != nil {
			return uuid.Nil, fmt.Errorf("failed to insert room (%d,%d): %w", c.row, c.col, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit save: %w", err)
	}
	return id, nil
}

// Load returns the game stored under id.
func (s *Store) Load(ctx context.Context, id uuid.UUID) (Record, error) {
	sum, hero, err := s.header(ctx, id)
	if err != nil {
		return Record{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT grid_row, grid_col, memento FROM room_snapshots WHERE save_id = ?`, id.String())
	if err != nil {
		return Record{}, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	cells := make([][]*world.Memento, sum.Height)
	for row := range cells {
		cells[row] = make([]*world.Memento, sum.Width)
	}

	for rows.Next() {
		var row, col int
		var data []byte
		if err := rows.Scan(&row, &col, &data); err != nil {
			return Record{}, fmt.Errorf("failed to scan room: %w", err)
		}
		if row < 0 || row >= sum.Height || col < 0 || col >= sum.Width {
			return Record{}, fmt.Errorf("save %s: room (%d,%d) outside %dx%d grid", id, row, col, sum.Height, sum.Width)
		}
		m := new(world.Memento)
		if err := m.UnmarshalBinary(data); err != nil {
			return Record{}, fmt.Errorf("save %s: room (%d,%d): %w", id, row, col, err)
		}
		cells[row][col] = m
	}
	if err := rows.Err(); err != nil {
		return Record{}, fmt.Errorf("failed to read rooms: %w", err)
	}

	for row := range cells {
		for col, m := range cells[row] {
			if m == nil {
				return Record{}, fmt.Errorf("save %s: room (%d,%d) missing: %w", id, row, col, world.ErrCorruptMemento)
			}
		}
	}

	return Record{
		Seed:     sum.Seed,
		Snapshot: world.NewSnapshot(sum.Location, cells),
		Hero:     hero,
	}, nil
}

// List returns every save, newest first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+saveColumns+` FROM saves ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list saves: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		sum, _, err := scanSave(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes a save and its rooms.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saves WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete save: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

const saveColumns = `id, seed, location, width, height,
	hero_name, hero_hp, hero_max_hp, health_potions, vision_potions, pillars, created_at`

func (s *Store) header(ctx context.Context, id uuid.UUID) (Summary, HeroState, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+saveColumns+` FROM saves WHERE id = ?`, id.String())
	sum, hero, err := scanSave(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Summary{}, HeroState{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sum, hero, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSave(sc scanner) (Summary, HeroState, error) {
	var (
		sum           Summary
		hero          HeroState
		id, location  string
		pillars       string
		createdAtNano int64
	)
	err := sc.Scan(&id, &sum.Seed, &location, &sum.Width, &sum.Height,
		&hero.Name, &hero.HP, &hero.MaxHP, &hero.HealthPotions, &hero.VisionPotions, &pillars, &createdAtNano)
	if err != nil {
		return Summary{}, HeroState{}, err
	}
	if sum.ID, err = uuid.Parse(id); err != nil {
		return Summary{}, HeroState{}, fmt.Errorf("bad save id %q: %w", id, err)
	}
	if sum.Location, err = uuid.Parse(location); err != nil {
		return Summary{}, HeroState{}, fmt.Errorf("bad location id %q: %w", location, err)
	}
	if hero.Pillars, err = decodePillars(pillars); err != nil {
		return Summary{}, HeroState{}, err
	}
	sum.HeroName = hero.Name
	sum.Pillars = len(hero.Pillars)
	sum.CreatedAt = time.Unix(0, createdAtNano)
	return sum, hero, nil
}

// encodePillars stores pillars as their display characters, e.g. "AEP".
func encodePillars(ps []world.Pillar) string {
	runes := make([]rune, 0, len(ps))
	for _, p := range ps {
		runes = append(runes, p.Rune())
	}
	return string(runes)
}

func decodePillars(s string) ([]world.Pillar, error) {
	var out []world.Pillar
	for _, r := range s {
		p := world.PillarFromRune(r)
		if p == world.PillarNone {
			return nil, fmt.Errorf("unknown pillar %q in save", r)
		}
		out = append(out, p)
	}
	return out, nil
}
