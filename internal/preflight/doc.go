// Package preflight provides readiness checks for external services
// and filesystem paths that the daemon depends on.
//
// The daemon runs RunAll once at startup and logs any failures; a failed
// check does not stop the daemon because storage or Redis may come back
// while it runs. Each check is gated by its config toggle and disabled
// features are skipped.
package preflight
