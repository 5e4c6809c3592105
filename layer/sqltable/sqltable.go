// Package sqltable is the durable tier: a two-column key/value table in MySQL,
// SQLite or PostgreSQL, reached through database/sql.
//
// Keys longer than the key column are bounded with keys.Safe, so two caller keys
// share a row only on a 64-bit hash collision of their full storage keys.
package sqltable

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "modernc.org/sqlite"             // Pure Go SQLite driver - no CGO required

	"github.com/unkn0wn-root/tiercache/internal/keys"
	"github.com/unkn0wn-root/tiercache/layer"
)

const (
	maxKeyLen = 255
	batchSize = 500
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

type Layer struct {
	layer.Scope
	db      *sql.DB
	dialect Dialect
	q       queries
	ownsDB  bool
}

var _ layer.Layer = (*Layer)(nil)

type Options struct {
	Driver string `mapstructure:"driver"` // mysql | sqlite | postgres
	// DSN wins over the discrete connection fields below.
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	DBName   string `mapstructure:"dbname"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"` // postgres only
	Path     string `mapstructure:"path"`    // sqlite only; ":memory:" allowed

	TableName          string `mapstructure:"table_name"`
	EnsureTableCreated *bool  `mapstructure:"ensure_table_created"` // nil => true
	MaxOpenConns       int    `mapstructure:"max_open_conns"`
	CacheNotFoundKeys  bool   `mapstructure:"cache_not_found_keys"`
}

// Open connects using o and, unless disabled, creates the table.
func Open(ctx context.Context, o Options) (*Layer, error) {
	d, ok := DialectByName(o.Driver)
	if !ok {
		return nil, fmt.Errorf("%w: sqltable: unknown driver %q", layer.ErrInvalidConfig, o.Driver)
	}
	dsn, err := o.dsn(d)
	if err != nil {
		return nil, err
	}
	if o.TableName == "" {
		return nil, layer.Missing(d.Name, "table_name")
	}
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: sqltable: open %s: %v", layer.ErrInvalidConfig, d.Name, err)
	}
	switch {
	case d.Name == SQLite.Name:
		// SQLite only supports 1 writer; ":memory:" is also per-connection
		db.SetMaxOpenConns(1)
	case o.MaxOpenConns > 0:
		db.SetMaxOpenConns(o.MaxOpenConns)
	}
	ensure := o.EnsureTableCreated == nil || *o.EnsureTableCreated
	l, err := newLayer(ctx, db, d, o.TableName, ensure)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	l.ownsDB = true
	l.SetCacheNotFoundKeys(o.CacheNotFoundKeys)
	return l, nil
}

// New wraps an existing pool. The caller keeps ownership of db.
func New(ctx context.Context, db *sql.DB, d Dialect, table string, ensureTable bool) (*Layer, error) {
	return newLayer(ctx, db, d, table, ensureTable)
}

func newLayer(ctx context.Context, db *sql.DB, d Dialect, table string, ensure bool) (*Layer, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("%w: sqltable: invalid table name %q", layer.ErrInvalidConfig, table)
	}
	l := &Layer{db: db, dialect: d, q: d.queries(table)}
	if ensure {
		if _, err := db.ExecContext(ctx, l.q.create); err != nil {
			return nil, fmt.Errorf("sqltable: create table: %w", err)
		}
	}
	return l, nil
}

func (o Options) dsn(d Dialect) (string, error) {
	if o.DSN != "" {
		return o.DSN, nil
	}
	switch d.Name {
	case SQLite.Name:
		if o.Path == "" {
			return "", layer.Missing(d.Name, "path")
		}
		return o.Path, nil
	}
	for _, req := range []struct{ name, val string }{
		{"host", o.Host}, {"dbname", o.DBName}, {"username", o.Username},
	} {
		if req.val == "" {
			return "", layer.Missing(d.Name, req.name)
		}
	}
	if o.Port == 0 {
		return "", layer.Missing(d.Name, "port")
	}
	addr := net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
	if d.Name == MySQL.Name {
		cfg := mysql.NewConfig()
		cfg.User = o.Username
		cfg.Passwd = o.Password
		cfg.Net = "tcp"
		cfg.Addr = addr
		cfg.DBName = o.DBName
		return cfg.FormatDSN(), nil
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(o.Username, o.Password),
		Host:   addr,
		Path:   "/" + o.DBName,
	}
	if o.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {o.SSLMode}}.Encode()
	}
	return u.String(), nil
}

// Factories bind the dialect so configs only need adapter_name.

func MySQLFactory(opts map[string]any) (layer.Layer, error)  { return factory(MySQL, opts) }
func SQLiteFactory(opts map[string]any) (layer.Layer, error) { return factory(SQLite, opts) }
func PostgresFactory(opts map[string]any) (layer.Layer, error) {
	return factory(Postgres, opts)
}

func factory(d Dialect, opts map[string]any) (layer.Layer, error) {
	var o Options
	if err := layer.DecodeOptions(opts, &o); err != nil {
		return nil, err
	}
	if o.Driver == "" {
		o.Driver = d.Name
	}
	return Open(context.Background(), o)
}

func (l *Layer) storageKey(k string) string { return keys.Safe(l.Key(k), maxKeyLen) }

func (l *Layer) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var v []byte
	err := l.db.QueryRowContext(ctx, l.q.get, l.storageKey(key)).Scan(&v)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqltable: get: %w", err)
	}
	if v == nil {
		// row exists: an empty or NULL value is still a hit
		v = []byte{}
	}
	return v, true, nil
}

func (l *Layer) GetMulti(ctx context.Context, ks []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(ks))
	byStorage := make(map[string]string, len(ks))
	sks := make([]string, 0, len(ks))
	for _, k := range ks {
		sk := l.storageKey(k)
		if _, dup := byStorage[sk]; !dup {
			sks = append(sks, sk)
		}
		byStorage[sk] = k
	}
	for _, chunk := range chunks(sks) {
		if err := l.getChunk(ctx, chunk, byStorage, out); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (l *Layer) getChunk(ctx context.Context, sks []string, byStorage map[string]string, out map[string][]byte) error {
	q := l.q.getIn + "(" + l.dialect.placeholders(1, len(sks)) + ")"
	rows, err := l.db.QueryContext(ctx, q, anySlice(sks)...)
	if err != nil {
		return fmt.Errorf("sqltable: get multi: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			sk string
			v  []byte
		)
		if err := rows.Scan(&sk, &v); err != nil {
			return fmt.Errorf("sqltable: get multi: %w", err)
		}
		if v == nil {
			v = []byte{}
		}
		if k, ok := byStorage[sk]; ok {
			out[k] = v
		}
	}
	return rows.Err()
}

func (l *Layer) Set(ctx context.Context, key string, value []byte) (bool, error) {
	return l.SetMulti(ctx, map[string][]byte{key: value})
}

func (l *Layer) SetMulti(ctx context.Context, items map[string][]byte) (bool, error) {
	if len(items) == 0 {
		return true, nil
	}
	// dedupe on storage key; MySQL and PostgreSQL reject a row touched twice per statement
	rows := make(map[string][]byte, len(items))
	for k, v := range items {
		if v == nil {
			v = []byte{}
		}
		rows[l.storageKey(k)] = v
	}
	sks := make([]string, 0, len(rows))
	for sk := range rows {
		sks = append(sks, sk)
	}
	for _, chunk := range chunks(sks) {
		args := make([]any, 0, 2*len(chunk))
		for _, sk := range chunk {
			args = append(args, sk, rows[sk])
		}
		q := l.q.upsert + l.dialect.rows(len(chunk)) + l.dialect.upsertTail
		if _, err := l.db.ExecContext(ctx, q, args...); err != nil {
			return false, fmt.Errorf("sqltable: upsert: %w", err)
		}
	}
	return true, nil
}

func (l *Layer) Contains(ctx context.Context, key string) (bool, error) {
	var one int
	err := l.db.QueryRowContext(ctx, l.q.contains, l.storageKey(key)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqltable: contains: %w", err)
	}
	return true, nil
}

func (l *Layer) Delete(ctx context.Context, key string) error {
	if _, err := l.db.ExecContext(ctx, l.q.del, l.storageKey(key)); err != nil {
		return fmt.Errorf("sqltable: delete: %w", err)
	}
	return nil
}

func (l *Layer) DeleteMulti(ctx context.Context, ks []string) error {
	sks := make([]string, 0, len(ks))
	for _, k := range keys.Uniq(ks) {
		sks = append(sks, l.storageKey(k))
	}
	for _, chunk := range chunks(sks) {
		q := l.q.deleteIn + "(" + l.dialect.placeholders(1, len(chunk)) + ")"
		if _, err := l.db.ExecContext(ctx, q, anySlice(chunk)...); err != nil {
			return fmt.Errorf("sqltable: delete multi: %w", err)
		}
	}
	return nil
}

// Flush deletes the rows of the current namespace only.
func (l *Layer) Flush(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, l.q.flush, l.dialect.escape(l.Prefix())); err != nil {
		return fmt.Errorf("sqltable: flush: %w", err)
	}
	return nil
}

// Close closes the pool when the layer opened it.
func (l *Layer) Close(_ context.Context) error {
	if l.ownsDB {
		return l.db.Close()
	}
	return nil
}

func chunks(ss []string) [][]string {
	var out [][]string
	for len(ss) > batchSize {
		out = append(out, ss[:batchSize])
		ss = ss[batchSize:]
	}
	if len(ss) > 0 {
		out = append(out, ss)
	}
	return out
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
