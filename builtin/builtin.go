// Package builtin registers every layer adapter shipped with tiercache.
//
//	cfg, _ := tiercache.LoadConfig("tiers.yaml")
//	cache, err := builtin.New[User](cfg, tiercache.Options[User]{Logger: zaplog.New(l)})
package builtin

import (
	"github.com/unkn0wn-root/tiercache"
	"github.com/unkn0wn-root/tiercache/layer/array"
	"github.com/unkn0wn-root/tiercache/layer/bigcache"
	"github.com/unkn0wn-root/tiercache/layer/local"
	"github.com/unkn0wn-root/tiercache/layer/redis"
	"github.com/unkn0wn-root/tiercache/layer/ristretto"
	"github.com/unkn0wn-root/tiercache/layer/sqltable"
)

// Registry returns a fresh registry with:
//
//	array            unbounded in-process map
//	local, apcu      in-process map with TTL (go-cache)
//	bigcache         sharded off-heap byte cache
//	ristretto        admission-controlled in-process cache
//	redis            Redis / Redis Cluster
//	mysql            MySQL table
//	sqlite           SQLite table (pure Go driver)
//	postgres         PostgreSQL table (pgx)
func Registry() *tiercache.Registry {
	r := tiercache.NewRegistry()
	r.Register("array", array.Factory)
	r.Register("local", local.Factory)
	r.Register("apcu", local.Factory)
	r.Register("bigcache", bigcache.Factory)
	r.Register("ristretto", ristretto.Factory)
	r.Register("redis", redis.Factory)
	r.Register("mysql", sqltable.MySQLFactory)
	r.Register("sqlite", sqltable.SQLiteFactory)
	r.Register("postgres", sqltable.PostgresFactory)
	return r
}

// New builds a cache from cfg using Registry().
func New[V any](cfg tiercache.Config, opts tiercache.Options[V]) (tiercache.Cache[V], error) {
	return tiercache.NewFromConfig[V](cfg, Registry(), opts)
}
