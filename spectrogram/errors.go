package spectrogram

import (
	"errors"
	"fmt"
)

// Kind classifies why a transform failed
type Kind int

const (
	// InvalidFormat: file unreadable or not a RIFF/WAVE stream
	InvalidFormat Kind = iota + 1
	// ChannelOutOfRange: requested channel >= channels in the file
	ChannelOutOfRange
	// DurationOutOfRange: duration outside the accepted open interval
	DurationOutOfRange
	// RenderFailure: spectrogram computation or image write failed
	RenderFailure
	// InsufficientChunks: fewer whole chunks than the images need
	InsufficientChunks
)

func (k Kind) String() string {
	switch k {
	case InvalidFormat:
		return "InvalidFormat"
	case ChannelOutOfRange:
		return "ChannelOutOfRange"
	case DurationOutOfRange:
		return "DurationOutOfRange"
	case RenderFailure:
		return "RenderFailure"
	case InsufficientChunks:
		return "InsufficientChunks"
	default:
		return "Unknown"
	}
}

// Sentinels for errors.Is; they match any *Error of the same Kind.
var (
	ErrInvalidFormat      = &Error{Kind: InvalidFormat}
	ErrChannelOutOfRange  = &Error{Kind: ChannelOutOfRange}
	ErrDurationOutOfRange = &Error{Kind: DurationOutOfRange}
	ErrRenderFailure      = &Error{Kind: RenderFailure}
	ErrInsufficientChunks = &Error{Kind: InsufficientChunks}
)

// Error is the failure side of a transform. Msg is meant for operators;
// the optional fields carry the measured values behind it.
type Error struct {
	Kind Kind
	Msg  string
	Err  error

	Channels int      // ChannelOutOfRange: channels in the file
	Duration float64  // DurationOutOfRange: seconds, one decimal
	Chunks   int      // InsufficientChunks: whole chunks available
	Written  []string // RenderFailure: images already on disk
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by Kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == "" && t.Err == nil
}

// KindOf returns the Kind of a transform error, or 0 if err is not one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}
