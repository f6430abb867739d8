package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id             TEXT NOT NULL,
	tenant_id      TEXT NOT NULL,
	filename       TEXT NOT NULL,
	ext            TEXT NOT NULL,
	stored_path    TEXT NOT NULL DEFAULT '',
	full_text_path TEXT NOT NULL DEFAULT '',
	text_chars     INTEGER NOT NULL DEFAULT 0,
	rows           INTEGER NOT NULL DEFAULT 0,
	cols           INTEGER NOT NULL DEFAULT 0,
	column_names   TEXT NOT NULL DEFAULT 'null',
	created_at     DATETIME NOT NULL,
	PRIMARY KEY (tenant_id, id)
);

CREATE INDEX IF NOT EXISTS idx_documents_tenant_filename
	ON documents (tenant_id, filename);

CREATE TABLE IF NOT EXISTS doc_sessions (
	tenant_id  TEXT NOT NULL,
	thread_key TEXT NOT NULL,
	active     INTEGER NOT NULL DEFAULT 0,
	doc_id     TEXT NOT NULL DEFAULT '',
	filename   TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (tenant_id, thread_key)
);
`

// SQLiteCatalog stores document metadata and per-thread session state on
// SQLite. Session upserts for the same (tenant, thread) are serialized with a
// per-key mutex so interleaved turns cannot clobber each other.
type SQLiteCatalog struct {
	db   *sql.DB
	path string

	mu       sync.Mutex
	sessions map[string]*sync.Mutex
}

// NewSQLiteCatalog opens (creating if needed) the catalog database under
// dataDir.
func NewSQLiteCatalog(dataDir string) (*SQLiteCatalog, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "catalog.db")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteCatalog{
		db:       db,
		path:     dbPath,
		sessions: make(map[string]*sync.Mutex),
	}, nil
}

// Close closes the database connection.
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

// Path returns the database file path.
func (c *SQLiteCatalog) Path() string {
	return c.path
}

func (c *SQLiteCatalog) UpsertDocument(ctx context.Context, doc Document) error {
	cols, err := json.Marshal(doc.ColumnNames)
	if err != nil {
		return fmt.Errorf("marshaling column names: %w", err)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO documents
			(id, tenant_id, filename, ext, stored_path, full_text_path,
			 text_chars, rows, cols, column_names, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, id) DO UPDATE SET
			filename = excluded.filename,
			ext = excluded.ext,
			stored_path = excluded.stored_path,
			full_text_path = excluded.full_text_path,
			text_chars = excluded.text_chars,
			rows = excluded.rows,
			cols = excluded.cols,
			column_names = excluded.column_names`,
		doc.ID, doc.TenantID, doc.Filename, doc.Ext, doc.StoredPath, doc.FullTextPath,
		doc.TextChars, doc.Rows, doc.Cols, string(cols), doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("upserting document %s: %w", doc.ID, err)
	}
	return nil
}

func (c *SQLiteCatalog) GetDocument(ctx context.Context, tenantID, docID string) (Document, error) {
	row := c.db.QueryRowContext(ctx, selectDocument+` WHERE tenant_id = ? AND id = ?`, tenantID, docID)
	return scanDocument(row)
}

func (c *SQLiteCatalog) GetDocumentByFilename(ctx context.Context, tenantID, filename string) (Document, error) {
	row := c.db.QueryRowContext(ctx,
		selectDocument+` WHERE tenant_id = ? AND filename = ? ORDER BY created_at DESC LIMIT 1`,
		tenantID, filename)
	return scanDocument(row)
}

func (c *SQLiteCatalog) FindDocumentByHint(ctx context.Context, tenantID, hint string) (Document, error) {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return Document{}, ErrDocumentNotFound
	}

	// Exact id first, then exact filename, then containment.
	doc, err := c.GetDocument(ctx, tenantID, hint)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, ErrDocumentNotFound) {
		return Document{}, err
	}

	doc, err = c.GetDocumentByFilename(ctx, tenantID, hint)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, ErrDocumentNotFound) {
		return Document{}, err
	}

	row := c.db.QueryRowContext(ctx,
		selectDocument+` WHERE tenant_id = ? AND LOWER(filename) LIKE ?
		ORDER BY created_at DESC LIMIT 1`,
		tenantID, "%"+strings.ToLower(hint)+"%")
	return scanDocument(row)
}

func (c *SQLiteCatalog) ListDocuments(ctx context.Context, tenantID string) ([]Document, error) {
	rows, err := c.db.QueryContext(ctx,
		selectDocument+` WHERE tenant_id = ? ORDER BY created_at DESC, id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (c *SQLiteCatalog) DeleteDocument(ctx context.Context, tenantID, docID string) error {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM documents WHERE tenant_id = ? AND id = ?`, tenantID, docID)
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", docID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func (c *SQLiteCatalog) UpdateTableStats(ctx context.Context, tenantID, docID string, rowCount, colCount int, columns []string) error {
	cols, err := json.Marshal(columns)
	if err != nil {
		return fmt.Errorf("marshaling column names: %w", err)
	}
	res, err := c.db.ExecContext(ctx, `
		UPDATE documents SET rows = ?, cols = ?, column_names = ?
		WHERE tenant_id = ? AND id = ?`,
		rowCount, colCount, string(cols), tenantID, docID)
	if err != nil {
		return fmt.Errorf("updating table stats for %s: %w", docID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func (c *SQLiteCatalog) UpsertSession(ctx context.Context, st SessionState) error {
	mu := c.sessionMutex(st.TenantID, st.ThreadKey)
	mu.Lock()
	defer mu.Unlock()

	now := time.Now().UTC()
	if st.CreatedAt.IsZero() {
		st.CreatedAt = now
	}
	st.UpdatedAt = now

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO doc_sessions
			(tenant_id, thread_key, active, doc_id, filename, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, thread_key) DO UPDATE SET
			active = excluded.active,
			doc_id = excluded.doc_id,
			filename = excluded.filename,
			updated_at = excluded.updated_at`,
		st.TenantID, st.ThreadKey, boolToInt(st.Active), st.DocID, st.Filename,
		st.CreatedAt, st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting session %s/%s: %w", st.TenantID, st.ThreadKey, err)
	}
	return nil
}

func (c *SQLiteCatalog) GetSession(ctx context.Context, tenantID, threadKey string) (SessionState, bool, error) {
	var (
		st     SessionState
		active int
	)
	err := c.db.QueryRowContext(ctx, `
		SELECT tenant_id, thread_key, active, doc_id, filename, created_at, updated_at
		FROM doc_sessions WHERE tenant_id = ? AND thread_key = ?`,
		tenantID, threadKey).
		Scan(&st.TenantID, &st.ThreadKey, &active, &st.DocID, &st.Filename,
			&st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionState{}, false, nil
	}
	if err != nil {
		return SessionState{}, false, fmt.Errorf("loading session %s/%s: %w", tenantID, threadKey, err)
	}
	st.Active = active != 0
	return st, true, nil
}

func (c *SQLiteCatalog) sessionMutex(tenantID, threadKey string) *sync.Mutex {
	key := tenantID + "\x00" + threadKey
	c.mu.Lock()
	defer c.mu.Unlock()
	mu, ok := c.sessions[key]
	if !ok {
		mu = &sync.Mutex{}
		c.sessions[key] = mu
	}
	return mu
}

const selectDocument = `
	SELECT id, tenant_id, filename, ext, stored_path, full_text_path,
	       text_chars, rows, cols, column_names, created_at
	FROM documents`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		doc  Document
		cols string
	)
	err := row.Scan(&doc.ID, &doc.TenantID, &doc.Filename, &doc.Ext,
		&doc.StoredPath, &doc.FullTextPath, &doc.TextChars,
		&doc.Rows, &doc.Cols, &cols, &doc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrDocumentNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("scanning document: %w", err)
	}
	if cols != "" && cols != "null" {
		if err := json.Unmarshal([]byte(cols), &doc.ColumnNames); err != nil {
			return Document{}, fmt.Errorf("unmarshaling column names: %w", err)
		}
	}
	return doc, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
