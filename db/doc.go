// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the vote database and creates its schema.

# Opening

Open accepts a database type and a driver-specific URL:

	conn, err := db.Open(db.TypeSQLite, "file:voting.db")
	conn, err := db.Open(db.TypePostgres, "postgres://...")

SQLite uses the pure-Go modernc.org/sqlite driver and is the default.
PostgreSQL uses github.com/lib/pq.

# Schema Creation

CreateSchema initializes the vote table:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS.

# Tables

	vote (voter TEXT PRIMARY KEY, candidate TEXT NOT NULL)

The table is insert-only. Inserts use ON CONFLICT (voter) DO NOTHING, which
both SQLite and PostgreSQL support, so a duplicate voter is ignored rather
than overwritten.
*/
package db
