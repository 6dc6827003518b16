// Package logging provides slog construction, shared attribute helpers, and
// the standardized field keys used across Reel components.
package logging
