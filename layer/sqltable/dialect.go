package sqltable

import (
	"fmt"
	"strings"
)

// Dialect holds the SQL that differs between backends.
type Dialect struct {
	Name   string
	Driver string // database/sql driver name
	quote  byte
	dollar bool // $1 placeholders instead of ?

	createTable string // fmt verb: table
	upsertTail  string // appended after VALUES (...)
	prefixOp    string // "LIKE" or "GLOB"
	escape      func(prefix string) string
}

var (
	MySQL = Dialect{
		Name:   "mysql",
		Driver: "mysql",
		quote:  '`',
		// binary key column keeps comparisons case-sensitive
		createTable: "CREATE TABLE IF NOT EXISTS %s (`key` VARBINARY(255) NOT NULL, `value` LONGBLOB, PRIMARY KEY (`key`)) ENGINE=InnoDB",
		upsertTail:  " ON DUPLICATE KEY UPDATE `value` = VALUES(`value`)",
		prefixOp:    "LIKE",
		escape:      likePrefix,
	}
	SQLite = Dialect{
		Name:        "sqlite",
		Driver:      "sqlite",
		quote:       '"',
		createTable: `CREATE TABLE IF NOT EXISTS %s ("key" TEXT NOT NULL PRIMARY KEY, "value" BLOB)`,
		upsertTail:  ` ON CONFLICT("key") DO UPDATE SET "value" = excluded."value"`,
		// LIKE is case-insensitive in SQLite; GLOB is not
		prefixOp: "GLOB",
		escape:   globPrefix,
	}
	Postgres = Dialect{
		Name:        "postgres",
		Driver:      "pgx",
		quote:       '"',
		dollar:      true,
		createTable: `CREATE TABLE IF NOT EXISTS %s ("key" VARCHAR(255) NOT NULL PRIMARY KEY, "value" BYTEA)`,
		upsertTail:  ` ON CONFLICT ("key") DO UPDATE SET "value" = EXCLUDED."value"`,
		prefixOp:    "LIKE",
		escape:      likePrefix,
	}
)

// DialectByName resolves "mysql", "sqlite" or "postgres".
func DialectByName(name string) (Dialect, bool) {
	switch strings.ToLower(name) {
	case "mysql":
		return MySQL, true
	case "sqlite", "sqlite3":
		return SQLite, true
	case "postgres", "postgresql", "pgx":
		return Postgres, true
	}
	return Dialect{}, false
}

func (d Dialect) ident(s string) string {
	q := string(d.quote)
	return q + s + q
}

// placeholders returns n comma-separated placeholders starting at position from (1-based).
func (d Dialect) placeholders(from, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		if d.dollar {
			fmt.Fprintf(&b, "$%d", from+i)
		} else {
			b.WriteByte('?')
		}
	}
	return b.String()
}

// rows returns n "(p, p)" groups for a two-column insert.
func (d Dialect) rows(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		b.WriteString(d.placeholders(1+2*i, 2))
		b.WriteByte(')')
	}
	return b.String()
}

type queries struct {
	create   string
	get      string
	contains string
	flush    string
	del      string
	// prefixes completed per batch size
	getIn    string
	deleteIn string
	upsert   string
}

func (d Dialect) queries(table string) queries {
	t := d.ident(table)
	k, v := d.ident("key"), d.ident("value")
	return queries{
		create:   fmt.Sprintf(d.createTable, t),
		get:      fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s LIMIT 1", v, t, k, d.placeholders(1, 1)),
		contains: fmt.Sprintf("SELECT 1 FROM %s WHERE %s = %s LIMIT 1", t, k, d.placeholders(1, 1)),
		flush:    d.flushQuery(t, k),
		del:      fmt.Sprintf("DELETE FROM %s WHERE %s = %s", t, k, d.placeholders(1, 1)),
		getIn:    fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s IN ", k, v, t, k),
		deleteIn: fmt.Sprintf("DELETE FROM %s WHERE %s IN ", t, k),
		upsert:   fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES ", t, k, v),
	}
}

func (d Dialect) flushQuery(t, k string) string {
	q := fmt.Sprintf("DELETE FROM %s WHERE %s %s %s", t, k, d.prefixOp, d.placeholders(1, 1))
	if d.prefixOp == "LIKE" {
		q += " ESCAPE '!'"
	}
	return q
}

var likeReplacer = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func likePrefix(p string) string { return likeReplacer.Replace(p) + "%" }

var globReplacer = strings.NewReplacer("[", "[[]", "*", "[*]", "?", "[?]")

func globPrefix(p string) string { return globReplacer.Replace(p) + "*" }
