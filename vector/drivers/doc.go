// Package drivers provides vector.Store backends beyond SQLite: an in-memory
// map for tests and demos, and Redis. New selects a backend by name.
package drivers
