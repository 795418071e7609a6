package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dam2452/ranchbot/pkg/types"
)

// Quota bounds what one owner may keep saved.
type Quota struct {
	// MaxClips is the per-owner saved clip count limit.
	MaxClips int
	// MaxNameLen is the longest accepted clip name.
	MaxNameLen int
}

// ClipStore persists saved clips in SQLite.
type ClipStore struct {
	db    *sql.DB
	quota Quota
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewClipStore opens (and migrates) the saved clip database.
func NewClipStore(dbPath string, quota Quota) (*ClipStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &ClipStore{db: db, quota: quota}, nil
}

// Close closes the database connection.
func (s *ClipStore) Close() error {
	return s.db.Close()
}

// Save persists a new clip for its owner. Name validation, per-owner
// uniqueness and the count quota are all checked inside one transaction
// before the row is written; any rejection leaves the store unchanged.
func (s *ClipStore) Save(ctx context.Context, clip *types.SavedClip) error {
	name := strings.TrimSpace(clip.Name)
	if name == "" {
		return types.NewError(types.KindValidation, "clip name cannot be empty")
	}
	if len(name) > s.quota.MaxNameLen {
		return types.NewError(types.KindValidation,
			fmt.Sprintf("clip name longer than %d characters", s.quota.MaxNameLen))
	}

	partsJSON, err := json.Marshal(clip.Parts)
	if err != nil {
		return fmt.Errorf("failed to encode clip parts: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM saved_clips WHERE owner_id = ?", clip.OwnerID).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to count saved clips: %w", err)
	}
	if count >= s.quota.MaxClips {
		return types.NewError(types.KindValidation,
			fmt.Sprintf("saved clip limit of %d reached, delete one first", s.quota.MaxClips))
	}

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM saved_clips WHERE owner_id = ? AND name = ?", clip.OwnerID, name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check name uniqueness: %w", err)
	}
	if exists > 0 {
		return types.NewError(types.KindConflict,
			fmt.Sprintf("a clip named %q already exists", name))
	}

	now := time.Now()
	clip.ID = uuid.NewString()
	clip.Name = name
	clip.CreatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO saved_clips (id, owner_id, name, video, parts_json, duration_seconds, source_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, clip.ID, clip.OwnerID, name, clip.Video, string(partsJSON), clip.Duration, clip.SourceText, now)
	if err != nil {
		return fmt.Errorf("failed to save clip: %w", err)
	}

	return tx.Commit()
}

// List returns the owner's clips in creation order.
func (s *ClipStore) List(ctx context.Context, ownerID string) ([]types.SavedClip, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, parts_json, duration_seconds, source_text, created_at
		FROM saved_clips
		WHERE owner_id = ?
		ORDER BY created_at, id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clips: %w", err)
	}
	defer func() { _ = rows.Close() }()

	clips := make([]types.SavedClip, 0)
	for rows.Next() {
		clip, err := scanClip(rows)
		if err != nil {
			return nil, err
		}
		clips = append(clips, clip)
	}
	return clips, rows.Err()
}

// Get fetches one clip by 1-based list position or by name. Video bytes
// are included.
func (s *ClipStore) Get(ctx context.Context, ownerID, positionOrName string) (types.SavedClip, error) {
	if pos, err := strconv.Atoi(positionOrName); err == nil {
		return s.getByPosition(ctx, ownerID, pos)
	}
	return s.GetByName(ctx, ownerID, positionOrName)
}

// GetByName fetches one clip by its per-owner unique name.
func (s *ClipStore) GetByName(ctx context.Context, ownerID, name string) (types.SavedClip, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, parts_json, duration_seconds, source_text, created_at, video
		FROM saved_clips
		WHERE owner_id = ? AND name = ?
	`, ownerID, name)
	return scanClipWithVideo(row, name)
}

func (s *ClipStore) getByPosition(ctx context.Context, ownerID string, position int) (types.SavedClip, error) {
	if position < 1 {
		return types.SavedClip{}, types.NewError(types.KindValidation, "clip position starts at 1")
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, parts_json, duration_seconds, source_text, created_at, video
		FROM saved_clips
		WHERE owner_id = ?
		ORDER BY created_at, id
		LIMIT 1 OFFSET ?
	`, ownerID, position-1)
	return scanClipWithVideo(row, strconv.Itoa(position))
}

// Delete removes the clip at the given 1-based list position.
func (s *ClipStore) Delete(ctx context.Context, ownerID string, position int) error {
	clip, err := s.getByPosition(ctx, ownerID, position)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, "DELETE FROM saved_clips WHERE id = ?", clip.ID)
	if err != nil {
		return fmt.Errorf("failed to delete clip: %w", err)
	}
	return nil
}

// Count returns how many clips the owner has saved.
func (s *ClipStore) Count(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM saved_clips WHERE owner_id = ?", ownerID).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClip(row rowScanner) (types.SavedClip, error) {
	var clip types.SavedClip
	var partsJSON string
	var sourceText sql.NullString
	err := row.Scan(&clip.ID, &clip.OwnerID, &clip.Name, &partsJSON,
		&clip.Duration, &sourceText, &clip.CreatedAt)
	if err != nil {
		return types.SavedClip{}, err
	}
	if sourceText.Valid {
		clip.SourceText = sourceText.String
	}
	if err := json.Unmarshal([]byte(partsJSON), &clip.Parts); err != nil {
		return types.SavedClip{}, fmt.Errorf("failed to decode clip parts: %w", err)
	}
	return clip, nil
}

func scanClipWithVideo(row *sql.Row, ref string) (types.SavedClip, error) {
	var clip types.SavedClip
	var partsJSON string
	var sourceText sql.NullString
	err := row.Scan(&clip.ID, &clip.OwnerID, &clip.Name, &partsJSON,
		&clip.Duration, &sourceText, &clip.CreatedAt, &clip.Video)
	if err == sql.ErrNoRows {
		return types.SavedClip{}, types.NewError(types.KindNotFound,
			fmt.Sprintf("no saved clip %q", ref))
	}
	if err != nil {
		return types.SavedClip{}, err
	}
	if sourceText.Valid {
		clip.SourceText = sourceText.String
	}
	if err := json.Unmarshal([]byte(partsJSON), &clip.Parts); err != nil {
		return types.SavedClip{}, fmt.Errorf("failed to decode clip parts: %w", err)
	}
	return clip, nil
}
