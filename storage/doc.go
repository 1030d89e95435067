// Package storage provides cache storage adapters and utilities for the loading engine.
//
// SilentErrorStorage wraps any CacheStorage so that backend failures are reported to a
// callback instead of reaching the callers of a load; FunctionsStorage builds a storage
// out of function callbacks, which is handy in tests.
//
// Implementations wrap their failures with ErrGet, ErrSet, ErrDelete or ErrPurge.
package storage
