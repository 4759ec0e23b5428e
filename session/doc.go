// Package session stores the opaque authentication tickets issued by the
// repository.
//
// Tickets expire server-side, so every store entry carries a TTL. The
// in-memory store is the default and keeps tickets private to one client
// instance; the Redis store lets a fleet of web-tier instances share
// tickets instead of each starting its own repository session.
package session
