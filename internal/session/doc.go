// Package session holds the authoritative session table and its SQLite
// journal.
//
// The Registry is the single writer for session state: creation under the
// concurrency cap, transitions validated against a closed table, worker slot
// claims, event sequence allocation, and the expiry sweep. Everything outside
// the registry works with Snapshot copies.
//
// The journal in sessions.db is transient storage for recent history rather
// than a long-term archive; the sweep prunes it together with the in-memory
// table and each session's artifact directory.
package session
