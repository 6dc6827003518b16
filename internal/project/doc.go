// Package project owns the authoritative project record: the status state
// machine, the prompt and clip lists, and their SQLite persistence.
package project
