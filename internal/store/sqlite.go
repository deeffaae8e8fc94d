// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Creates the schema on open and seeds the singleton couple row

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Seed values for the couple_data singleton on first boot
const (
	defaultStartDate   = "2023-11-10"
	defaultHomeMessage = "Default home message"
	defaultIntroText   = "Default intro text"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is created if it doesn't exist and the couple_data table is
// seeded with its singleton row. Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	if err := s.seedCoupleProfile(); err != nil {
		db.Close()
		return nil, fmt.Errorf("seeding couple profile: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS couple_data (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			start_date TEXT NOT NULL,
			home_message TEXT,
			intro_text TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS memories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			photo_filename TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_memories_created
			ON memories(created_at DESC);

		CREATE TABLE IF NOT EXISTS perspectives (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			perspective_number INTEGER NOT NULL UNIQUE,
			content TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_perspectives_number
			ON perspectives(perspective_number);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}

	return nil
}

// seedCoupleProfile inserts the singleton couple_data row if the table is
// empty. Re-running on an existing database never creates a second row.
func (s *SQLiteStore) seedCoupleProfile() error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM couple_data`).Scan(&count); err != nil {
		return fmt.Errorf("counting couple_data rows: %w", err)
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT INTO couple_data (start_date, home_message, intro_text, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		defaultStartDate, defaultHomeMessage, defaultIntroText, now, now,
	)
	if err != nil {
		return fmt.Errorf("inserting default couple row: %w", err)
	}

	s.logger.Info("seeded couple profile with defaults")
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// GetCoupleProfile retrieves the singleton couple profile row.
// Returns ErrNotFound if the table is (unexpectedly) empty.
func (s *SQLiteStore) GetCoupleProfile(ctx context.Context) (*CoupleProfile, error) {
	query := `
		SELECT id, start_date, home_message, intro_text, created_at, updated_at
		FROM couple_data
		ORDER BY id
		LIMIT 1
	`

	var profile CoupleProfile
	var homeMessage, introText sql.NullString
	var createdAtStr, updatedAtStr string

	err := s.db.QueryRowContext(ctx, query).Scan(
		&profile.ID,
		&profile.StartDate,
		&homeMessage,
		&introText,
		&createdAtStr,
		&updatedAtStr,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying couple profile: %w", err)
	}

	profile.HomeMessage = homeMessage.String
	profile.IntroText = introText.String

	profile.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	profile.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &profile, nil
}

// updateCoupleField updates one column of the singleton row and refreshes
// its updated_at timestamp.
func (s *SQLiteStore) updateCoupleField(ctx context.Context, column, value string) error {
	query := fmt.Sprintf(`UPDATE couple_data SET %s = ?, updated_at = ? WHERE id = 1`, column)

	_, err := s.db.ExecContext(ctx, query, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("updating %s: %w", column, err)
	}

	s.logger.Debug("updated couple profile", "field", column)
	return nil
}

// SetStartDate updates the couple's start date
func (s *SQLiteStore) SetStartDate(ctx context.Context, startDate string) error {
	return s.updateCoupleField(ctx, "start_date", startDate)
}

// SetHomeMessage updates the home message
func (s *SQLiteStore) SetHomeMessage(ctx context.Context, homeMessage string) error {
	return s.updateCoupleField(ctx, "home_message", homeMessage)
}

// SetIntroText updates the intro text
func (s *SQLiteStore) SetIntroText(ctx context.Context, introText string) error {
	return s.updateCoupleField(ctx, "intro_text", introText)
}

// scanMemory reads one memory row from a row scanner
func scanMemory(scan func(dest ...any) error) (*Memory, error) {
	var memory Memory
	var photoFilename sql.NullString
	var createdAtStr, updatedAtStr string

	err := scan(
		&memory.ID,
		&memory.Title,
		&memory.Description,
		&photoFilename,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return nil, err
	}

	memory.PhotoFilename = photoFilename.String

	memory.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	memory.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &memory, nil
}

// ListMemories retrieves all memories, newest first by creation time.
// The id is used as a tiebreaker for rows created in the same second.
func (s *SQLiteStore) ListMemories(ctx context.Context) ([]*Memory, error) {
	query := `
		SELECT id, title, description, photo_filename, created_at, updated_at
		FROM memories
		ORDER BY created_at DESC, id DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying memories: %w", err)
	}
	defer rows.Close()

	memories := make([]*Memory, 0)
	for rows.Next() {
		memory, err := scanMemory(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning memory: %w", err)
		}
		memories = append(memories, memory)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating memories: %w", err)
	}

	return memories, nil
}

// GetMemory retrieves a memory by id.
// Returns ErrNotFound if the memory doesn't exist.
func (s *SQLiteStore) GetMemory(ctx context.Context, id int64) (*Memory, error) {
	query := `
		SELECT id, title, description, photo_filename, created_at, updated_at
		FROM memories
		WHERE id = ?
	`

	memory, err := scanMemory(s.db.QueryRowContext(ctx, query, id).Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying memory: %w", err)
	}

	return memory, nil
}

// CreateMemory inserts a new memory and fills in its id and timestamps
func (s *SQLiteStore) CreateMemory(ctx context.Context, memory *Memory) error {
	now := time.Now().UTC()

	var photoFilename any
	if memory.PhotoFilename != "" {
		photoFilename = memory.PhotoFilename
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (title, description, photo_filename, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		memory.Title,
		memory.Description,
		photoFilename,
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting memory: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting memory id: %w", err)
	}

	memory.ID = id
	memory.CreatedAt = now
	memory.UpdatedAt = now

	s.logger.Debug("created memory", "id", id, "title", memory.Title)
	return nil
}

// UpdateMemory overwrites a memory's title and description, and its photo
// filename when photoFilename is non-nil. Updating an unknown id affects
// zero rows and is not an error.
func (s *SQLiteStore) UpdateMemory(ctx context.Context, id int64, title, description string, photoFilename *string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	var err error
	if photoFilename != nil {
		_, err = s.db.ExecContext(ctx,
			`UPDATE memories SET title = ?, description = ?, photo_filename = ?, updated_at = ? WHERE id = ?`,
			title, description, *photoFilename, now, id,
		)
	} else {
		_, err = s.db.ExecContext(ctx,
			`UPDATE memories SET title = ?, description = ?, updated_at = ? WHERE id = ?`,
			title, description, now, id,
		)
	}
	if err != nil {
		return fmt.Errorf("updating memory: %w", err)
	}

	s.logger.Debug("updated memory", "id", id)
	return nil
}

// DeleteMemory removes a memory row. Deleting an unknown id is not an error.
func (s *SQLiteStore) DeleteMemory(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting memory: %w", err)
	}

	s.logger.Debug("deleted memory", "id", id)
	return nil
}

// scanPerspective reads one perspective row from a row scanner
func scanPerspective(scan func(dest ...any) error) (*Perspective, error) {
	var p Perspective
	var createdAtStr, updatedAtStr string

	err := scan(
		&p.ID,
		&p.PerspectiveNumber,
		&p.Content,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return nil, err
	}

	p.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	p.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &p, nil
}

// ListPerspectives retrieves all perspectives ordered by number ascending
func (s *SQLiteStore) ListPerspectives(ctx context.Context) ([]*Perspective, error) {
	query := `
		SELECT id, perspective_number, content, created_at, updated_at
		FROM perspectives
		ORDER BY perspective_number
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying perspectives: %w", err)
	}
	defer rows.Close()

	perspectives := make([]*Perspective, 0)
	for rows.Next() {
		p, err := scanPerspective(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning perspective: %w", err)
		}
		perspectives = append(perspectives, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating perspectives: %w", err)
	}

	return perspectives, nil
}

// GetPerspective retrieves a perspective by its number.
// Returns ErrNotFound if no row exists for the number.
func (s *SQLiteStore) GetPerspective(ctx context.Context, number int) (*Perspective, error) {
	query := `
		SELECT id, perspective_number, content, created_at, updated_at
		FROM perspectives
		WHERE perspective_number = ?
	`

	p, err := scanPerspective(s.db.QueryRowContext(ctx, query, number).Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying perspective: %w", err)
	}

	return p, nil
}

// UpsertPerspective inserts a perspective or, when a row with the same
// number exists, updates its content and timestamp. created_at is kept
// from the original insert.
func (s *SQLiteStore) UpsertPerspective(ctx context.Context, number int, content string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO perspectives (perspective_number, content, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(perspective_number)
		 DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		number, content, now, now,
	)
	if err != nil {
		return fmt.Errorf("upserting perspective: %w", err)
	}

	s.logger.Debug("saved perspective", "number", number)
	return nil
}

// UpdatePerspective updates the content for an existing perspective
// number. An unknown number affects zero rows and is not an error.
func (s *SQLiteStore) UpdatePerspective(ctx context.Context, number int, content string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE perspectives SET content = ?, updated_at = ? WHERE perspective_number = ?`,
		content, time.Now().UTC().Format(time.RFC3339), number,
	)
	if err != nil {
		return fmt.Errorf("updating perspective: %w", err)
	}

	s.logger.Debug("updated perspective", "number", number)
	return nil
}
