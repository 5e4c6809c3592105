package sqltable

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/tiercache/layer"
	"github.com/unkn0wn-root/tiercache/layer/layertest"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestContract(t *testing.T) {
	backends := map[*testing.T]*sql.DB{}
	layertest.Run(t, func(t *testing.T, ns string) layer.Layer {
		db, ok := backends[t]
		if !ok {
			db = openMemory(t)
			backends[t] = db
		}
		l, err := New(context.Background(), db, SQLite, "key_value", true)
		require.NoError(t, err)
		l.SetNamespace(ns)
		return l
	}, layertest.Options{})
}

func TestFlushIsCaseSensitiveAndLiteral(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)
	mk := func(ns string) *Layer {
		l, err := New(ctx, db, SQLite, "kv", true)
		require.NoError(t, err)
		l.SetNamespace(ns)
		return l
	}
	lower, upper, glob := mk("mx"), mk("MX"), mk("m*")
	for _, l := range []*Layer{lower, upper, glob} {
		_, err := l.Set(ctx, "k", []byte(l.Namespace()))
		require.NoError(t, err)
	}

	require.NoError(t, glob.Flush(ctx))
	ok, _ := lower.Contains(ctx, "k")
	assert.True(t, ok, "flush of m* must not match mx")

	require.NoError(t, lower.Flush(ctx))
	ok, _ = upper.Contains(ctx, "k")
	assert.True(t, ok, "flush of mx must not match MX")
	ok, _ = lower.Contains(ctx, "k")
	assert.False(t, ok)
}

func TestLongKeysAreBounded(t *testing.T) {
	ctx := context.Background()
	l, err := New(ctx, openMemory(t), SQLite, "kv", true)
	require.NoError(t, err)
	l.SetNamespace("mx")

	long := strings.Repeat("k", 1000)
	other := strings.Repeat("k", 999) + "j"
	_, err = l.Set(ctx, long, []byte("1"))
	require.NoError(t, err)
	_, err = l.Set(ctx, other, []byte("2"))
	require.NoError(t, err)

	v, ok, err := l.Get(ctx, long)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", string(v))

	got, err := l.GetMulti(ctx, []string{long, other, "absent"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{long: []byte("1"), other: []byte("2")}, got)

	require.NoError(t, l.Flush(ctx))
	got, err = l.GetMulti(ctx, []string{long, other})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBatchesLargerThanOneChunk(t *testing.T) {
	ctx := context.Background()
	l, err := New(ctx, openMemory(t), SQLite, "kv", true)
	require.NoError(t, err)

	n := batchSize*2 + 7
	items := make(map[string][]byte, n)
	ks := make([]string, 0, n)
	for i := 0; i < n; i++ {
		k := fmt.Sprintf("k%04d", i)
		items[k] = []byte(k)
		ks = append(ks, k)
	}
	ok, err := l.SetMulti(ctx, items)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := l.GetMulti(ctx, ks)
	require.NoError(t, err)
	assert.Len(t, got, n)

	require.NoError(t, l.DeleteMulti(ctx, ks))
	got, err = l.GetMulti(ctx, ks)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpenSQLiteFromOptions(t *testing.T) {
	l, err := SQLiteFactory(map[string]any{
		"path":                 ":memory:",
		"table_name":           "cache_kv",
		"cache_not_found_keys": true,
	})
	require.NoError(t, err)
	defer l.Close(context.Background())
	assert.True(t, l.CacheNotFoundKeys())

	ctx := context.Background()
	ok, err := l.Set(ctx, "a", []byte("b"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOpenValidation(t *testing.T) {
	cases := []struct {
		name string
		o    Options
	}{
		{"unknown driver", Options{Driver: "oracle", DSN: "x", TableName: "t"}},
		{"sqlite without path", Options{Driver: "sqlite", TableName: "t"}},
		{"mysql without host", Options{Driver: "mysql", Port: 3306, DBName: "d", Username: "u", TableName: "t"}},
		{"mysql without port", Options{Driver: "mysql", Host: "h", DBName: "d", Username: "u", TableName: "t"}},
		{"postgres without dbname", Options{Driver: "postgres", Host: "h", Port: 5432, Username: "u", TableName: "t"}},
		{"missing table", Options{Driver: "sqlite", Path: ":memory:"}},
		{"bad table", Options{Driver: "sqlite", Path: ":memory:", TableName: "kv; DROP TABLE x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Open(context.Background(), tc.o)
			assert.ErrorIs(t, err, layer.ErrInvalidConfig)
		})
	}
}

func TestDSN(t *testing.T) {
	my, err := Options{Host: "db", Port: 3306, DBName: "cache", Username: "u", Password: "p"}.dsn(MySQL)
	require.NoError(t, err)
	assert.Contains(t, my, "u:p@tcp(db:3306)/cache")

	pg, err := Options{Host: "db", Port: 5432, DBName: "cache", Username: "u", Password: "p", SSLMode: "disable"}.dsn(Postgres)
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/cache?sslmode=disable", pg)

	explicit, err := Options{DSN: "custom"}.dsn(Postgres)
	require.NoError(t, err)
	assert.Equal(t, "custom", explicit)
}

func TestDialectSQL(t *testing.T) {
	pq := Postgres.queries("kv")
	assert.Equal(t, `SELECT "value" FROM "kv" WHERE "key" = $1 LIMIT 1`, pq.get)
	assert.Equal(t, `DELETE FROM "kv" WHERE "key" LIKE $1 ESCAPE '!'`, pq.flush)
	assert.Equal(t, "($1,$2),($3,$4)", Postgres.rows(2))

	mq := MySQL.queries("kv")
	assert.Equal(t, "SELECT `value` FROM `kv` WHERE `key` = ? LIMIT 1", mq.get)
	assert.Equal(t, "(?,?),(?,?)", MySQL.rows(2))

	assert.Equal(t, `a!_b!%c!!%`, likePrefix("a_b%c!"))
	assert.Equal(t, `m[*]x[?][[]:*`, globPrefix("m*x?[:"))

	d, ok := DialectByName("PostgreSQL")
	assert.True(t, ok)
	assert.Equal(t, "pgx", d.Driver)
}
