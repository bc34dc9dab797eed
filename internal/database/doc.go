// Package database persists the history of finished transcode jobs in
// SQLite. Running jobs live in memory with the transcoder; this store
// only sees terminal states, written by the transcoder's finish hook
// and read by the history endpoint.
package database
