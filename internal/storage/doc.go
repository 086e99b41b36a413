// Package storage is the persistence gateway. A Gateway runs typed commands
// against either an embedded SQLite database or, when that engine cannot be
// opened, a bbolt key-value file holding one JSON collection per table.
package storage
