// Package artifact provides the verifier interface over durable clip
// storage, plus a filesystem-backed implementation.
package artifact
