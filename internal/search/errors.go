package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/Clark-Hu/movie-search/internal/gemini"
)

// User-facing messages. Every failure a search can run into is reported as one of these.
const (
	MsgAmbiguousInput    = "Clear either the Title* field or the AI description field."
	MsgInsufficientInput = "Enter at least 3 characters in the Title* field or use the AI description field."
	MsgAIUnreachable     = "Error reaching Gemini AI. Please try again later."
	MsgAINoMatch         = "Gemini AI could not find a matching title. Please rephrase your description."
	MsgFetchTitles       = "Error fetching movie titles. Please try again later."
	MsgFetchDetails      = "Error fetching movie details. Please try again later."
	MsgNoResults         = "No results found. Please refine your search criteria."
	MsgCanceled          = "The search was cancelled. Please try again."
	MsgUnexpected        = "Something went wrong. Please try again later."
	UsageHint            = "For search tips, see the usage guide."
)

var (
	// ErrAmbiguousInput is returned when both a title fragment and a prompt are supplied.
	ErrAmbiguousInput = errors.New("search: ambiguous input")
	// ErrInsufficientInput is returned when the title fragment is too short and no prompt is given.
	ErrInsufficientInput = errors.New("search: insufficient input")
	// ErrNoMatch is returned when the resolver answered but gave no usable title.
	ErrNoMatch = errors.New("search: ai resolution had no confident match")
	// ErrSuperseded is returned by Session.Search when a newer search replaced this one.
	ErrSuperseded = errors.New("search: superseded by a newer search")
)

// Kind classifies a failed search invocation.
type Kind int

const (
	KindUnknown Kind = iota
	KindAmbiguousInput
	KindInsufficientInput
	KindAIResolution
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindAmbiguousInput:
		return "AMBIGUOUS_INPUT"
	case KindInsufficientInput:
		return "INSUFFICIENT_INPUT"
	case KindAIResolution:
		return "AI_RESOLUTION_FAILED"
	case KindCanceled:
		return "CANCELED"
	default:
		return "UNKNOWN"
	}
}

// Error is an invocation-level failure: the pipeline stopped without a result list.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("search: %s", e.Kind)
	}
	return fmt.Sprintf("search: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the Kind from err; KindUnknown when err is not a search error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, ErrSuperseded) || errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	return KindUnknown
}

// UserMessage maps err to the fixed message shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindAmbiguousInput:
		return MsgAmbiguousInput
	case KindInsufficientInput:
		return MsgInsufficientInput
	case KindAIResolution:
		if errors.Is(err, ErrNoMatch) || errors.Is(err, gemini.ErrNoMatch) {
			return MsgAINoMatch
		}
		return MsgAIUnreachable
	case KindCanceled:
		return MsgCanceled
	default:
		return MsgUnexpected
	}
}
