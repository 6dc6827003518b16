package project

import "errors"

var (
	// ErrNotFound indicates the requested project does not exist.
	ErrNotFound = errors.New("project not found")
	// ErrOwnerMismatch indicates a mutation attempted by a non-owning account.
	ErrOwnerMismatch = errors.New("project owned by another account")
	// ErrNotDraft indicates a draft-only edit attempted in another state.
	ErrNotDraft = errors.New("project is not in draft")
	// ErrUnknownStatus indicates a write with a status outside the enum.
	ErrUnknownStatus = errors.New("unknown project status")
	// ErrInvalidTransition indicates a status change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrClipOverflow indicates more clips than prompts on a project record.
	ErrClipOverflow = errors.New("clip count exceeds prompt count")
)
