// Package notifications delivers push notifications for project lifecycle
// milestones via ntfy. The service degrades to a noop when no topic is
// configured so callers never need a nil check.
package notifications
