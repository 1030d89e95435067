// Package memstorage provides an in-memory implementation of the loadingengine.CacheStorage interface.
//
// Keys are spread over independently locked buckets by a key hash. Values are cloned
// on the way in and out, and expired entries are hidden from reads and dropped by Purge.
package memstorage
