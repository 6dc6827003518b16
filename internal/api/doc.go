// Package api defines the wire DTOs shared by the daemon's HTTP surface
// and the CLI, plus converters from internal records. Internal types never
// cross the transport boundary directly.
package api
