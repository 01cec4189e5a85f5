// Package adb is the persistence façade: an ordered key/value store with
// atomic batched writes and bucket-scoped prefix iteration. Each entry
// family (token metadata, token balances, governance freeze entries, cost
// entries, ...) owns its own Index rather than sharing a keyspace
// discriminated by a leading tag byte, so callers never hand-decode a raw
// char prefix to know which family a key belongs to.
package adb

import "errors"

// ErrNotEmpty is returned by callers that require an empty bucket and find
// data already present.
var ErrNotEmpty = errors.New("adb: bucket is not empty")

type DB interface {
	Index(string) Index

	View(func(txn Txn) error) error
	Update(func(txn Txn) error) error

	// Sync flushes any buffered writes to stable storage.
	Sync() error

	Close() error
}

// Index identifies a bucket/sub-database. Its concrete type is
// backend-specific (a bucket name for bbolt, a DBI for lmdb); callers treat
// it as opaque.
type Index any

// Txn is a single read or read-write transaction scoped to one or more
// buckets. Write methods are only valid inside DB.Update.
type Txn interface {
	Get(Index, []byte) []byte
	Put(Index, []byte, []byte) error
	Del(Index, []byte) error
	Exists(Index, []byte) bool

	// IsEmpty reports whether the bucket holds no entries at all.
	IsEmpty(Index) (bool, error)

	ForEach(Index, func(k, v []byte) error) error
	ForEachInterrupt(Index, func(k, v []byte) (bool, error)) error

	// Seek iterates entries whose key has the given prefix, in ascending
	// lexicographic order, starting at the first key ≥ prefix and stopping
	// at the first key that no longer carries that prefix. f returning
	// (true, nil) stops iteration early without error.
	Seek(idx Index, prefix []byte, f func(k, v []byte) (bool, error)) error

	// SeekReverse is like Seek but visits matching keys in descending order;
	// it is the iteration strategy height-indexed readers (governance cost
	// table, fee-address table) use to find the maximum-height entry for a
	// given prefix without a full bucket scan.
	SeekReverse(idx Index, prefix []byte, f func(k, v []byte) (bool, error)) error

	Entries(Index) (uint64, error)
}
