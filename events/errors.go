package events

import "github.com/pkg/errors"

// Error taxonomy of the notification core. All errors are returned
// synchronously to the caller at the point of misuse, wrapped with
// operation tags; callers can branch on errors.Cause.
var (
	// ErrInvalidArgument reports a malformed event signature or selector.
	ErrInvalidArgument = errors.New("invalid event argument")
	// ErrNotCallable reports a nil callback or handler passed to connect.
	ErrNotCallable = errors.New("only callables can be connected")
	// ErrInsufficientArguments reports a trigger call that cannot satisfy an
	// integer-arity callback or a required signature argument.
	ErrInsufficientArguments = errors.New("insufficient trigger arguments")
	// ErrSignatureMismatch reports trigger arguments that do not match the
	// event's fixed signature.
	ErrSignatureMismatch = errors.New("trigger arguments do not match event signature")
	// ErrNoSuppressionTarget reports a suppressor add call that resolved no
	// viable target.
	ErrNoSuppressionTarget = errors.New("no viable suppression targets")
	// ErrEventNotFound reports retrieval of an unregistered event name.
	ErrEventNotFound = errors.New("event not found")
	// ErrStreamClosed reports reads from a closed event stream.
	ErrStreamClosed = errors.New("event stream is closed")
)
