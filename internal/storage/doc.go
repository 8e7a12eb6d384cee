// Package storage provides the small key-value store backing the color
// cache. Two drivers exist: a dependency-free JSON file (atomic snapshot
// writes) and SQLite.
package storage
