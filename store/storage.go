package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"brain/types"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ErrIndexNotFound means no index was ever built for the document id.
var ErrIndexNotFound = errors.New("index not found for document")

// Indexer is the write-once/read-many embedding index. An index is
// built for one document at upload time and queried by document id
// afterwards; there is no update or delete.
type Indexer interface {
	BuildIndex(context.Context, types.Document) error
	EnsureIndex(context.Context, uuid.UUID) error
	Search(ctx context.Context, docID uuid.UUID, queryVec []float32, limit int) ([]types.Chunk, error)
	GetDocumentByID(context.Context, uuid.UUID) (*types.Document, error)
}

type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{
		pool:   pool,
		logger: slog.Default(),
	}, nil
}

// BuildIndex stores the document and every embedded chunk in a single
// transaction, so a failed embedding run never leaves a partial index
// behind.
func (p *PostgresStore) BuildIndex(ctx context.Context, doc types.Document) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin index build: %w", err)
	}
	defer tx.Rollback(ctx)

	docQuery := `INSERT INTO documents (id, title, source, source_path, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.Exec(ctx, docQuery, doc.ID, doc.Title, doc.Source, doc.SourcePath, doc.CreatedAt); err != nil {
		return fmt.Errorf("save document: %w", err)
	}

	chunkQuery := `INSERT INTO chunks (id, doc_id, position, content, embedding)
		VALUES ($1, $2, $3, $4, $5)`
	for _, c := range doc.Chunks {
		if _, err := tx.Exec(ctx, chunkQuery,
			c.ID, c.DocID, c.Position, c.Content, pgvector.NewVector(c.Embedding),
		); err != nil {
			return fmt.Errorf("save chunk %d: %w", c.Position, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit index build: %w", err)
	}

	p.logger.Info("index built", "doc_id", doc.ID, "chunks", len(doc.Chunks))
	return nil
}

// EnsureIndex reports ErrIndexNotFound when the document id is unknown.
func (p *PostgresStore) EnsureIndex(ctx context.Context, docID uuid.UUID) error {
	var exists bool
	err := p.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)", docID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrIndexNotFound, docID)
	}
	return nil
}

// GetDocumentByID returns the stored document with its chunk texts in
// position order. Embeddings are not loaded; joined in order, the
// chunk contents reconstruct the document's full text.
func (p *PostgresStore) GetDocumentByID(ctx context.Context, docID uuid.UUID) (*types.Document, error) {
	doc := &types.Document{}
	err := p.pool.QueryRow(ctx,
		"SELECT id, title, source, source_path, created_at FROM documents WHERE id = $1", docID,
	).Scan(&doc.ID, &doc.Title, &doc.Source, &doc.SourcePath, &doc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, docID)
	}
	if err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx,
		"SELECT id, doc_id, position, content FROM chunks WHERE doc_id = $1 ORDER BY position", docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var c types.Chunk
		if err := rows.Scan(&c.ID, &c.DocID, &c.Position, &c.Content); err != nil {
			return nil, err
		}
		doc.Chunks = append(doc.Chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Search returns up to limit chunks of one document, nearest first by
// cosine distance. Ties resolve by chunk position, which matches
// insertion order. The LIMIT clamps naturally when the index holds
// fewer chunks.
func (p *PostgresStore) Search(ctx context.Context, docID uuid.UUID, queryVec []float32, limit int) ([]types.Chunk, error) {
	if len(queryVec) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}
	if limit <= 0 {
		limit = 5
	}

	if err := p.EnsureIndex(ctx, docID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, doc_id, position, content,
		       pc.embedding <=> $2 AS distance
		FROM chunks pc
		WHERE pc.doc_id = $1
		ORDER BY pc.embedding <=> $2, pc.position
		LIMIT $3
	`
	rows, err := p.pool.Query(ctx, query, docID, pgvector.NewVector(queryVec), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []types.Chunk
	for rows.Next() {
		var chunk types.Chunk
		if err := rows.Scan(
			&chunk.ID,
			&chunk.DocID,
			&chunk.Position,
			&chunk.Content,
			&chunk.Distance,
		); err != nil {
			return nil, err
		}

		p.logger.Info("chunk matched", "doc_id", chunk.DocID, "position", chunk.Position, "distance", chunk.Distance)
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func (p *PostgresStore) createIndexTables(ctx context.Context) error {
	query := `
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS documents (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		source TEXT,
		source_path TEXT,
		created_at TIMESTAMP WITH TIME ZONE
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id UUID PRIMARY KEY,
		doc_id UUID NOT NULL,
		position INT NOT NULL,
		content TEXT NOT NULL,
		embedding vector(768)
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks USING ivfflat (embedding vector_cosine_ops)
	WITH (lists = 100);

	CREATE INDEX IF NOT EXISTS idx_chunks_doc_id ON chunks(doc_id);
	`
	_, err := p.pool.Exec(ctx, query)
	return err
}

func (p *PostgresStore) Init(ctx context.Context) error {
	return p.createIndexTables(ctx)
}

// Close closes the connection pool.
func (p *PostgresStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
		p.logger.Info("postgres connection pool closed")
	}
	return nil
}
