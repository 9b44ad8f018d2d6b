// Package store persists bookmarks and session settings in a local
// SQLite database. A single worker goroutine owns the connection and
// serves requests over channels so callers never block on disk.
package store

import (
	"database/sql"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

type EventType int

const (
	FetchBookmarks EventType = iota
	AddBookmark
	RemoveBookmark
	FetchSettings
	SaveSetting
)

// Well-known settings keys.
const (
	SettingShowHidden = "show_hidden"
	SettingLastPath   = "last_path"
)

type Request struct {
	Op    EventType
	Path  string
	Key   string
	Value string
}

type Response struct {
	Op        EventType
	Bookmarks []string          // List of paths
	Settings  map[string]string // Key-value settings
	Err       error
}

type DB struct {
	conn         *sql.DB
	log          *zap.Logger
	RequestChan  chan Request
	ResponseChan chan Response
}

func NewDB(log *zap.Logger) *DB {
	if log == nil {
		log = zap.NewNop()
	}
	return &DB{
		log:          log,
		RequestChan:  make(chan Request, 10),
		ResponseChan: make(chan Response, 10),
	}
}

// Open initializes the database connection and schema
func (d *DB) Open(dbPath string) error {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}

	// WAL mode allows simultaneous readers and writers
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return err
	}
	// Synchronous NORMAL is safe against app crashes, faster than FULL
	if _, err := db.Exec("PRAGMA synchronous=NORMAL;"); err != nil {
		return err
	}

	query := `
	CREATE TABLE IF NOT EXISTS bookmarks (
		path TEXT PRIMARY KEY,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(query); err != nil {
		return err
	}

	settingsQuery := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := db.Exec(settingsQuery); err != nil {
		return err
	}

	d.conn = db
	return nil
}

// Start runs the worker loop. It returns when RequestChan is closed.
func (d *DB) Start() {
	for req := range d.RequestChan {
		switch req.Op {
		case FetchBookmarks:
			d.handleFetch()
		case AddBookmark:
			d.handleAdd(req.Path)
		case RemoveBookmark:
			d.handleRemove(req.Path)
		case FetchSettings:
			d.handleFetchSettings()
		case SaveSetting:
			d.handleSaveSetting(req.Key, req.Value)
		}
	}
}

func (d *DB) handleFetch() {
	rows, err := d.conn.Query("SELECT path FROM bookmarks ORDER BY created_at ASC")
	if err != nil {
		d.ResponseChan <- Response{Op: FetchBookmarks, Err: err}
		return
	}
	defer rows.Close()

	var marks []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err == nil {
			marks = append(marks, path)
		}
	}

	d.ResponseChan <- Response{Op: FetchBookmarks, Bookmarks: marks}
}

func (d *DB) handleAdd(path string) {
	// INSERT OR IGNORE handles duplicates gracefully
	_, err := d.conn.Exec("INSERT OR IGNORE INTO bookmarks (path) VALUES (?)", path)
	if err != nil {
		d.log.Error("bookmark add failed", zap.String("path", path), zap.Error(err))
	}
	// Always re-fetch after a modification so consumers stay in sync
	d.handleFetch()
}

func (d *DB) handleRemove(path string) {
	_, err := d.conn.Exec("DELETE FROM bookmarks WHERE path = ?", path)
	if err != nil {
		d.log.Error("bookmark remove failed", zap.String("path", path), zap.Error(err))
	}
	d.handleFetch()
}

func (d *DB) handleFetchSettings() {
	rows, err := d.conn.Query("SELECT key, value FROM settings")
	if err != nil {
		d.ResponseChan <- Response{Op: FetchSettings, Err: err}
		return
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err == nil {
			settings[key] = value
		}
	}

	d.ResponseChan <- Response{Op: FetchSettings, Settings: settings}
}

func (d *DB) handleSaveSetting(key, value string) {
	_, err := d.conn.Exec("INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		d.log.Error("setting save failed", zap.String("key", key), zap.Error(err))
	}
	d.handleFetchSettings()
}

func (d *DB) Close() {
	if d.conn != nil {
		d.conn.Close()
	}
}
