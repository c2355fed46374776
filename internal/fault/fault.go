package fault

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Class buckets every pipeline error into one of a small, fixed set of
// outcomes. Only Throttled and Timeout are retryable.
type Class int

const (
	Unknown Class = iota
	NotFound
	Throttled
	Timeout
	UnavailableContent
	IntegrityFailure
	InvalidInput
)

func (c Class) String() string {
	switch c {
	case NotFound:
		return "not_found"
	case Throttled:
		return "throttled"
	case Timeout:
		return "timeout"
	case UnavailableContent:
		return "unavailable_content"
	case IntegrityFailure:
		return "integrity_failure"
	case InvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Fault is a classified pipeline error. Stage and VideoID identify where it
// happened; Attempts records how many tries the stage made before escalating.
type Fault struct {
	Class    Class
	Stage    string
	VideoID  string
	Attempts int
	Hint     time.Duration // provider-supplied retry delay, 0 if none
	Err      error
}

func (f *Fault) Error() string {
	msg := fmt.Sprintf("%s: %s", f.Stage, f.Class)
	if f.VideoID != "" {
		msg += " video_id=" + f.VideoID
	}
	if f.Attempts > 0 {
		msg += fmt.Sprintf(" attempts=%d", f.Attempts)
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Fault) Unwrap() error { return f.Err }

// RetryAfter exposes the provider retry hint to the retry policy.
func (f *Fault) RetryAfter() time.Duration { return f.Hint }

// SetAttempts records how many tries a stage made before escalating.
func (f *Fault) SetAttempts(n int) { f.Attempts = n }

// New builds a classified fault for a stage.
func New(class Class, stage, videoID string, err error) *Fault {
	return &Fault{Class: class, Stage: stage, VideoID: videoID, Err: err}
}

// ClassOf returns the class of err, unwrapping as needed. Context deadline
// errors classify as Timeout even when not wrapped in a Fault.
func ClassOf(err error) Class {
	var f *Fault
	if errors.As(err, &f) {
		return f.Class
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	return Unknown
}

// Retryable reports whether err belongs to the retryable class
// (rate-limited or timed out).
func Retryable(err error) bool {
	switch ClassOf(err) {
	case Throttled, Timeout:
		return true
	}
	return false
}
