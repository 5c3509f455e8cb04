// Package dbtest opens a throwaway sqlite database carrying the storefront
// tables the sync writes to.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const Schema = `
CREATE TABLE products (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL DEFAULT '',
	short_name TEXT NOT NULL DEFAULT '',
	slug TEXT NOT NULL DEFAULT '',
	sku TEXT NULL,
	qty INTEGER NOT NULL DEFAULT 0,
	thumb_image TEXT NOT NULL DEFAULT '',
	category_id INTEGER NOT NULL DEFAULT 0,
	sub_category_id INTEGER NOT NULL DEFAULT 0,
	child_category_id INTEGER NOT NULL DEFAULT 0,
	weight REAL NOT NULL DEFAULT 0,
	seo_title TEXT NOT NULL DEFAULT '',
	seo_description TEXT NOT NULL DEFAULT '',
	price REAL NOT NULL DEFAULT 0,
	cost_price REAL NOT NULL DEFAULT 0,
	short_description TEXT NOT NULL DEFAULT '',
	long_description TEXT NOT NULL DEFAULT '',
	status INTEGER NOT NULL DEFAULT 0,
	approve_by_admin INTEGER NOT NULL DEFAULT 0,
	uuid TEXT NOT NULL DEFAULT '',
	remote_key_id VARCHAR(101) NULL UNIQUE,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE product_variants (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	product_id INTEGER NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	sku TEXT NOT NULL,
	stock INTEGER NOT NULL DEFAULT 0,
	price REAL NOT NULL DEFAULT 0,
	cost_price REAL NOT NULL DEFAULT 0,
	percentage INTEGER NOT NULL DEFAULT 0,
	weight REAL NOT NULL DEFAULT 0,
	details TEXT NOT NULL DEFAULT '[]',
	status INTEGER NOT NULL DEFAULT 0,
	remote_key_id VARCHAR(101) NULL UNIQUE,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL
);
`

// New returns a fresh database with Schema applied. It is closed when the
// test ends.
func New(t testing.TB) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Open("sqlite3", filepath.Join(t.TempDir(), "storefront.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		t.Fatalf("apply schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}
