package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/ljankila/lingoscene/internal/errors"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed init.sql
var initialiseSchemaScript string

// SQLiteKV stores blobs in a single SQLite table, one JSON document per
// key. It mirrors the browser's localStorage, which is itself backed by
// SQLite.
type SQLiteKV struct {
	db *sqlx.DB
}

var _ KV = (*SQLiteKV)(nil)

func NewSQLiteKV(url string) (*SQLiteKV, error) {
	db, err := sqlx.Connect("sqlite3", fmt.Sprintf("file:%s?_txlock=immediate", url))
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite store")
	}
	db.SetMaxOpenConns(1)
	if _, err = db.Exec(initialiseSchemaScript); err != nil {
		return nil, errors.Join(errors.Wrap(err, "initialise sqlite schema"), db.Close())
	}
	return &SQLiteKV{db: db}, nil
}

func (kv *SQLiteKV) Get(key string, out any) (bool, error) {
	var raw string
	err := kv.db.Get(&raw, "SELECT value FROM blobs WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "read blob")
	}
	if err = json.Unmarshal([]byte(raw), out); err != nil {
		return false, errors.Wrap(err, "decode blob")
	}
	return true, nil
}

func (kv *SQLiteKV) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "encode blob")
	}
	_, err = kv.db.Exec(
		"INSERT INTO blobs (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value",
		key, string(raw),
	)
	if err != nil {
		return errors.Wrap(err, "write blob")
	}
	return nil
}

func (kv *SQLiteKV) Delete(key string) error {
	if _, err := kv.db.Exec("DELETE FROM blobs WHERE key = ?", key); err != nil {
		return errors.Wrap(err, "delete blob")
	}
	return nil
}

// Flush is a no-op: SQLite writes are durable per statement.
func (kv *SQLiteKV) Flush() error {
	return nil
}

func (kv *SQLiteKV) Close() error {
	if err := kv.db.Close(); err != nil {
		return errors.Wrap(err, "close sqlite store")
	}
	return nil
}
