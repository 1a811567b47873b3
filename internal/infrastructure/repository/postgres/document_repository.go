package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/infrastructure/repository/docrow"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2024031501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	batch_id TEXT NOT NULL,
	position INTEGER NOT NULL DEFAULT 0,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	raw_text TEXT NOT NULL DEFAULT '',
	document_type TEXT NOT NULL,
	fields JSONB NOT NULL DEFAULT '{}'::jsonb,
	status TEXT NOT NULL,
	field_errors JSONB NOT NULL DEFAULT '[]'::jsonb,
	stage TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_batch ON documents(batch_id, position);
CREATE INDEX IF NOT EXISTS idx_documents_stage ON documents(stage);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	fieldsJSON, err := docrow.EncodeFields(doc.Fields)
	if err != nil {
		return err
	}
	errorsJSON, err := docrow.EncodeErrors(doc.FieldErrors)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO documents (`+docrow.Columns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`,
		doc.ID, doc.BatchID, doc.Position, doc.Filename, doc.MimeType, doc.StoragePath, doc.RawText,
		string(doc.Type), fieldsJSON, string(doc.Status), errorsJSON, string(doc.Stage), doc.Error,
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+docrow.Columns+`
FROM documents
WHERE id = $1
`, id)

	doc, err := docrow.Scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) ListByBatch(ctx context.Context, batchID string) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+docrow.Columns+`
FROM documents
WHERE batch_id = $1
ORDER BY position, created_at
`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list batch documents: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := docrow.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch documents: %w", err)
	}
	return out, nil
}

func (r *DocumentRepository) UpdateStage(ctx context.Context, id string, stage domain.ProcessingStage, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET stage = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(stage), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document stage: %w", err)
	}
	return requireRow(result, "update document stage", id)
}

func (r *DocumentRepository) SaveAnalysis(ctx context.Context, doc *domain.Document) error {
	fieldsJSON, err := docrow.EncodeFields(doc.Fields)
	if err != nil {
		return err
	}
	errorsJSON, err := docrow.EncodeErrors(doc.FieldErrors)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET raw_text = $2, document_type = $3, fields = $4, status = $5, field_errors = $6,
	stage = $7, error_message = $8, updated_at = $9
WHERE id = $1
`, doc.ID, doc.RawText, string(doc.Type), fieldsJSON, string(doc.Status), errorsJSON,
		string(doc.Stage), doc.Error, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return requireRow(result, "save analysis", doc.ID)
}

func (r *DocumentRepository) SaveFields(ctx context.Context, doc *domain.Document) error {
	fieldsJSON, err := docrow.EncodeFields(doc.Fields)
	if err != nil {
		return err
	}
	errorsJSON, err := docrow.EncodeErrors(doc.FieldErrors)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET fields = $2, status = $3, field_errors = $4, updated_at = $5
WHERE id = $1
`, doc.ID, fieldsJSON, string(doc.Status), errorsJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save fields: %w", err)
	}
	return requireRow(result, "save fields", doc.ID)
}

func requireRow(result sql.Result, operation, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}
