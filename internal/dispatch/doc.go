// Package dispatch defines the gateway to the external job dispatcher and
// the inbox of job lifecycle events it reports back. The Redis Streams
// implementation gives at-least-once delivery in both directions; the local
// implementation backs tests and redis-less development runs.
package dispatch
