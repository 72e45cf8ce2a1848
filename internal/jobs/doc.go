// Package jobs persists launched training and inference work in SQLite
// and maps NGC batch job states onto the local lifecycle.
package jobs
