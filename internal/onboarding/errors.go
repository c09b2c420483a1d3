package onboarding

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy rejects a call made while a submit is in flight.
	ErrBusy = errors.New("a submission is already in progress")
	// ErrClosed rejects calls on a discarded session.
	ErrClosed = errors.New("onboarding session is closed")
	// ErrWrongStep rejects an action that belongs to another step.
	ErrWrongStep = errors.New("action not available at the current step")
	// ErrBackNotAllowed is returned by Back when the previous step cannot be revisited.
	ErrBackNotAllowed = errors.New("cannot go back from the current step")
	// ErrNoIdentity means the account step has not produced an identity.
	ErrNoIdentity = errors.New("create an account first")
	// ErrSlugTaken means another profile owns the slug.
	ErrSlugTaken = errors.New("that slug is already taken")
	// ErrSlugChecking means the availability lookup has not settled.
	ErrSlugChecking = errors.New("still checking slug availability")
	// ErrDraftNotFound reports an unknown draft key.
	ErrDraftNotFound = errors.New("memory draft not found")
	// ErrDraftCommitted rejects edits to a draft whose memory is already saved.
	ErrDraftCommitted = errors.New("memory draft was already saved")
)

// PartialCompletionError reports a completion that stopped on a failing draft.
// Drafts before it stay committed; drafts after it were not attempted.
type PartialCompletionError struct {
	Result CompletionResult
	Cause  error
}

// Error summarizes how many drafts were saved before the failure.
func (e *PartialCompletionError) Error() string {
	committed := e.Result.Committed()
	return fmt.Sprintf("saved %d of %d memories: %v", committed, e.Result.Total, e.Cause)
}

// Unwrap returns the failure that stopped the run.
func (e *PartialCompletionError) Unwrap() error { return e.Cause }
