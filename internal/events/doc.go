// Package events buffers per-project progress events and fans them out to
// API subscribers. Each project gets a bounded ring of recent events with
// monotonically increasing sequence numbers; subscribers poll or long-poll
// from a known sequence and never block publishers.
package events
