package search

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/dam2452/ranchbot/pkg/types"
)

// PGIndex queries a Postgres-backed segment index. Full-text matching
// uses the tsvector column maintained by the ingest pipeline; when an
// embedder is configured, results are scored by a blend of text rank
// and vector similarity against the segment embeddings.
type PGIndex struct {
	db       *sql.DB
	embedder Embedder
}

// NewPGIndex connects to the segment index. embedder may be nil, which
// disables the semantic path.
func NewPGIndex(dsn string, embedder Embedder) (*PGIndex, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach index database: %w", err)
	}
	return &PGIndex{db: db, embedder: embedder}, nil
}

// Close releases the database connection.
func (p *PGIndex) Close() error {
	return p.db.Close()
}

// Query executes a fuzzy full-text query, optionally blended with
// vector similarity.
func (p *PGIndex) Query(ctx context.Context, series, quote string, filters Filters, limit int) ([]ScoredSegment, error) {
	if p.embedder != nil {
		if hits, err := p.semanticQuery(ctx, series, quote, filters, limit); err == nil {
			return hits, nil
		}
		// Semantic path failure falls back to plain text search.
	}
	return p.textQuery(ctx, series, quote, filters, limit)
}

func (p *PGIndex) textQuery(ctx context.Context, series, quote string, filters Filters, limit int) ([]ScoredSegment, error) {
	query := `
		SELECT id, series, season, episode, speaker, text,
		       start_time, end_time, file_ref,
		       ts_rank_cd(text_tsv, websearch_to_tsquery('simple', $2)) AS score
		FROM segments
		WHERE series = $1
		  AND text_tsv @@ websearch_to_tsquery('simple', $2)
	`
	args := []interface{}{series, quote}
	query, args = appendFilters(query, args, filters)
	query += fmt.Sprintf(" ORDER BY score DESC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("text query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanHits(rows)
}

func (p *PGIndex) semanticQuery(ctx context.Context, series, quote string, filters Filters, limit int) ([]ScoredSegment, error) {
	vec, err := p.embedder.Embed(ctx, quote)
	if err != nil {
		return nil, fmt.Errorf("failed to embed quote: %w", err)
	}

	// Cosine distance is in [0,2]; 1 - d/2 keeps the score in [0,1]
	// with higher meaning closer, matching the text path's direction.
	query := `
		SELECT id, series, season, episode, speaker, text,
		       start_time, end_time, file_ref,
		       1 - (embedding <=> $2) / 2 AS score
		FROM segments
		WHERE series = $1
		  AND embedding IS NOT NULL
	`
	args := []interface{}{series, pgvector.NewVector(vec)}
	query, args = appendFilters(query, args, filters)
	query += fmt.Sprintf(" ORDER BY embedding <=> $2 LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("semantic query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanHits(rows)
}

// EpisodesBySeason lists distinct episodes of a season in chronological
// order.
func (p *PGIndex) EpisodesBySeason(ctx context.Context, series string, season int) ([]types.EpisodeRef, error) {
	query := `
		SELECT DISTINCT series, season, episode
		FROM segments
		WHERE series = $1 AND season = $2
		ORDER BY season, episode
	`
	rows, err := p.db.QueryContext(ctx, query, series, season)
	if err != nil {
		return nil, fmt.Errorf("episode query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	episodes := make([]types.EpisodeRef, 0)
	for rows.Next() {
		var ref types.EpisodeRef
		if err := rows.Scan(&ref.Series, &ref.Season, &ref.Episode); err != nil {
			return nil, err
		}
		episodes = append(episodes, ref)
	}
	return episodes, rows.Err()
}

func appendFilters(query string, args []interface{}, filters Filters) (string, []interface{}) {
	if filters.Season != nil {
		args = append(args, *filters.Season)
		query += fmt.Sprintf(" AND season = $%d", len(args))
	}
	if filters.Episode != nil {
		args = append(args, *filters.Episode)
		query += fmt.Sprintf(" AND episode = $%d", len(args))
	}
	return query, args
}

func scanHits(rows *sql.Rows) ([]ScoredSegment, error) {
	hits := make([]ScoredSegment, 0)
	for rows.Next() {
		var hit ScoredSegment
		var speaker sql.NullString
		err := rows.Scan(
			&hit.ID, &hit.Episode.Series, &hit.Episode.Season, &hit.Episode.Episode,
			&speaker, &hit.Text, &hit.Start, &hit.End, &hit.FileRef, &hit.Score,
		)
		if err != nil {
			return nil, err
		}
		if speaker.Valid {
			hit.Speaker = speaker.String
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}
