// Package sqlite stores documents in an embedded SQLite database for single-node
// deployments and the command-line tool.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/infrastructure/repository/docrow"
)

const MemoryPath = ":memory:"

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// OpenDB opens path and applies the connection pragmas. An in-memory database is
// pinned to a single connection because every connection would get its own.
func OpenDB(path string) (*sql.DB, error) {
	if path == "" {
		path = MemoryPath
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	if path != MemoryPath {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
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
	fields TEXT NOT NULL DEFAULT '{}',
	status TEXT NOT NULL,
	field_errors TEXT NOT NULL DEFAULT '[]',
	stage TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_batch ON documents(batch_id, position);
`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	fieldsJSON, errorsJSON, err := encodeState(doc)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO documents (`+docrow.Columns+`)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
`,
		doc.ID, doc.BatchID, doc.Position, doc.Filename, doc.MimeType, doc.StoragePath, doc.RawText,
		string(doc.Type), fieldsJSON, string(doc.Status), errorsJSON, string(doc.Stage), doc.Error,
		docrow.FormatTime(doc.CreatedAt), docrow.FormatTime(doc.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+docrow.Columns+` FROM documents WHERE id = ?`, id)

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
WHERE batch_id = ?
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
UPDATE documents SET stage = ?, error_message = ?, updated_at = ? WHERE id = ?
`, string(stage), errMessage, now(), id)
	if err != nil {
		return fmt.Errorf("update document stage: %w", err)
	}
	return requireRow(result, "update document stage", id)
}

func (r *DocumentRepository) SaveAnalysis(ctx context.Context, doc *domain.Document) error {
	fieldsJSON, errorsJSON, err := encodeState(doc)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET raw_text = ?, document_type = ?, fields = ?, status = ?, field_errors = ?,
	stage = ?, error_message = ?, updated_at = ?
WHERE id = ?
`, doc.RawText, string(doc.Type), fieldsJSON, string(doc.Status), errorsJSON,
		string(doc.Stage), doc.Error, now(), doc.ID)
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return requireRow(result, "save analysis", doc.ID)
}

func (r *DocumentRepository) SaveFields(ctx context.Context, doc *domain.Document) error {
	fieldsJSON, errorsJSON, err := encodeState(doc)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE documents SET fields = ?, status = ?, field_errors = ?, updated_at = ? WHERE id = ?
`, fieldsJSON, string(doc.Status), errorsJSON, now(), doc.ID)
	if err != nil {
		return fmt.Errorf("save fields: %w", err)
	}
	return requireRow(result, "save fields", doc.ID)
}

func encodeState(doc *domain.Document) (string, string, error) {
	fieldsJSON, err := docrow.EncodeFields(doc.Fields)
	if err != nil {
		return "", "", err
	}
	errorsJSON, err := docrow.EncodeErrors(doc.FieldErrors)
	if err != nil {
		return "", "", err
	}
	return string(fieldsJSON), string(errorsJSON), nil
}

func now() string {
	return docrow.FormatTime(time.Now())
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
