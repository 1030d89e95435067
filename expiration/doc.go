// Package expiration decides when a cached load result is stale.
//
// A policy is consulted by storages on every read and purge. Entries without an
// expiration time never expire regardless of the policy; see Expired.
package expiration
