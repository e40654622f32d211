package pipeline

import "errors"

// ErrClaimDenied is the expected contention outcome: another run owns the
// post, or it is no longer eligible. Not a failure.
var ErrClaimDenied = errors.New("publish claim denied")

// ContentGenerationError wraps a failed AI content resolution. The platform
// is never contacted; the failure is retryable.
type ContentGenerationError struct {
	Err error
}

func (e *ContentGenerationError) Error() string {
	return "content generation failed: " + e.Err.Error()
}

func (e *ContentGenerationError) Unwrap() error { return e.Err }

// TransientPublishError marks an environmental publish failure (network,
// timeout, rate limit). Retryable.
type TransientPublishError struct {
	Err error
}

func (e *TransientPublishError) Error() string {
	return "transient publish error: " + e.Err.Error()
}

func (e *TransientPublishError) Unwrap() error { return e.Err }

// PermanentPublishError marks a validation or policy rejection. Not retryable.
type PermanentPublishError struct {
	Err error
}

func (e *PermanentPublishError) Error() string {
	return "permanent publish error: " + e.Err.Error()
}

func (e *PermanentPublishError) Unwrap() error { return e.Err }

// CommentPostError marks a failed follow-up comment. The main post stays
// published; this is surfaced as a warning only.
type CommentPostError struct {
	Err error
}

func (e *CommentPostError) Error() string {
	return "comment post failed: " + e.Err.Error()
}

func (e *CommentPostError) Unwrap() error { return e.Err }

// Retryable classifies a pipeline failure for the lifecycle recorder.
// Unknown errors count as transient so an environmental blip never strands a
// post in failed without exhausting the attempt budget first.
func Retryable(err error) bool {
	var permanent *PermanentPublishError
	return !errors.As(err, &permanent)
}
