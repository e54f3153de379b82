package lifecycle

import "errors"

// Local precondition failures. None of them involve a backend call.
var (
	ErrIssueNotFound     = errors.New("issue not found")
	ErrAlreadyInProgress = errors.New("an operation is already in progress for this issue")
	ErrNoProposal        = errors.New("no ready fix proposal for this issue")
	ErrStaleProposal     = errors.New("fix proposal no longer matches the issue")
	ErrCancelled         = errors.New("operation was cancelled before the backend responded")
)

// IsPrecondition reports whether err is a local precondition failure rather than a
// backend failure.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrIssueNotFound) ||
		errors.Is(err, ErrAlreadyInProgress) ||
		errors.Is(err, ErrNoProposal) ||
		errors.Is(err, ErrStaleProposal) ||
		errors.Is(err, ErrCancelled)
}
