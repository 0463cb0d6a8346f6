// Package r3err defines the error taxonomy shared by every r3 core package.
//
// Errors surface from the core as a *Error carrying a Kind; the CLI layer
// is the single place that turns a Kind into exit-code and stderr text
// (spec.md 7, "Propagation policy"). Core packages never recover from
// these errors internally.
package r3err

import "fmt"

// Kind identifies the class of failure, independent of the message or
// wrapped cause. Callers inspect it with errors.As against *Error.
type Kind int

const (
	// Unknown is the zero value; never returned deliberately.
	Unknown Kind = iota

	// PathExists: Repository init at a path that already exists.
	PathExists
	// NotARepository: open a path lacking r3.yaml.
	NotARepository
	// NotFound: a path or job does not exist.
	NotFound
	// MissingDependency: a resolved dependency is not present at commit time.
	MissingDependency
	// Unresolvable: a query matched zero jobs.
	Unresolvable
	// InvalidQuery: a query token doesn't start with '#', or is blank.
	InvalidQuery
	// HasDependents: remove blocked because other jobs depend on this one.
	HasDependents
	// HashUnresolved: attempt to hash a QueryDep/QueryAllDep.
	HashUnresolved
	// UnrecognisedURL: a git dependency URL doesn't match a supported pattern.
	UnrecognisedURL
	// UnsupportedIgnorePattern: an ignore pattern doesn't start with '/'.
	UnsupportedIgnorePattern
	// IOError: wraps an underlying filesystem failure.
	IOError
)

func (k Kind) String() string {
	switch k {
	case PathExists:
		return "PathExists"
	case NotARepository:
		return "NotARepository"
	case NotFound:
		return "NotFound"
	case MissingDependency:
		return "MissingDependency"
	case Unresolvable:
		return "Unresolvable"
	case InvalidQuery:
		return "InvalidQuery"
	case HasDependents:
		return "HasDependents"
	case HashUnresolved:
		return "HashUnresolved"
	case UnrecognisedURL:
		return "UnrecognisedURL"
	case UnsupportedIgnorePattern:
		return "UnsupportedIgnorePattern"
	case IOError:
		return "IOError"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned by every core package.
type Error struct {
	Kind    Kind
	Message string
	Err     error

	// DependentIDs is set only for HasDependents, listing the job ids that
	// still depend on the job being removed.
	DependentIDs []string
}

func (e *Error) Error() string {
	if e.Message == "" && e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs an *Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf constructs an *Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an *Error of the given kind wrapping err.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Wrapf constructs an *Error of the given kind wrapping err with a
// formatted message.
func Wrapf(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Is reports whether err is an *Error of the given kind. It follows the
// same contract as errors.Is so it composes with wrapped errors.
func Is(err error, kind Kind) bool {
	var e *Error
	return asError(err, &e) && e.Kind == kind
}

// As unwraps err looking for an *Error, the way errors.As does for a
// concrete type.
func As(err error) (*Error, bool) {
	var e *Error
	ok := asError(err, &e)
	return e, ok
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
