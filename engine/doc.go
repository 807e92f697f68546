// Package engine opens SQLite databases through the pure-Go modernc.org/sqlite
// driver and registers SQL scalar functions that understand vector blobs and
// dotted version strings, so stored vectors can be ranked inside queries.
package engine
