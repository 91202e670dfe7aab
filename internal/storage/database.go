package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// New opens a SQLite database connection at the given path.
// It enables foreign keys and sets connection pool settings.
func New(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys (disabled by default in SQLite)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate runs database migrations to create the required tables.
// It is idempotent and can be run multiple times safely.
func Migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			filename TEXT NOT NULL,
			display_name TEXT NOT NULL,
			doc_type TEXT NOT NULL,
			procedure_id TEXT,
			file_path TEXT NOT NULL UNIQUE,
			content_hash TEXT NOT NULL,
			page_count INTEGER NOT NULL DEFAULT 0,
			ingested_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS pages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id INTEGER NOT NULL,
			page_number INTEGER NOT NULL,
			text TEXT NOT NULL,
			char_count INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE,
			UNIQUE (document_id, page_number)
		);`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id INTEGER NOT NULL,
			chunk_index INTEGER NOT NULL,
			page_start INTEGER NOT NULL,
			page_end INTEGER NOT NULL,
			section_id TEXT,
			heading TEXT,
			chunk_kind TEXT NOT NULL DEFAULT 'content',
			is_table INTEGER NOT NULL DEFAULT 0,
			is_definition INTEGER NOT NULL DEFAULT 0,
			is_procedure INTEGER NOT NULL DEFAULT 0,
			equation_score REAL NOT NULL DEFAULT 0,
			table_uid TEXT,
			table_row_index INTEGER,
			table_label TEXT,
			text TEXT NOT NULL,
			FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE,
			UNIQUE (document_id, chunk_index)
		);`,
		`CREATE TABLE IF NOT EXISTS tables (
			table_uid TEXT PRIMARY KEY,
			document_id INTEGER NOT NULL,
			section_id TEXT,
			page_number INTEGER NOT NULL,
			table_index_on_page INTEGER NOT NULL,
			table_label TEXT NOT NULL DEFAULT '',
			title TEXT,
			FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE,
			UNIQUE (document_id, page_number, table_index_on_page)
		);`,
		`CREATE TABLE IF NOT EXISTS table_rows (
			table_uid TEXT NOT NULL,
			row_index INTEGER NOT NULL,
			row_text TEXT NOT NULL,
			PRIMARY KEY (table_uid, row_index),
			FOREIGN KEY (table_uid) REFERENCES tables(table_uid) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS table_cells (
			table_uid TEXT NOT NULL,
			row_num INTEGER NOT NULL,
			col_num INTEGER NOT NULL,
			cell_text TEXT NOT NULL DEFAULT '',
			row_index_min INTEGER,
			row_index_max INTEGER,
			PRIMARY KEY (table_uid, row_num, col_num),
			FOREIGN KEY (table_uid) REFERENCES tables(table_uid) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_section ON chunks(section_id);`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_table ON chunks(table_uid);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// TableUID derives the stable composite identity for an extracted table.
// It depends only on document, page, and ordinal position on the page,
// never on row content, so the identity survives re-extraction of the
// same table.
func TableUID(documentID int64, pageNumber, indexOnPage int) string {
	return fmt.Sprintf("tbl-%d-p%d-%d", documentID, pageNumber, indexOnPage)
}
