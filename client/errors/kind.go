package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure of an install or launch operation.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindTimeout
	KindIncompleteTransfer
	KindIO
	KindIntegrity
	KindExtract
	KindNotFound
	KindAlreadyRunning
	KindRunnerMissing
	KindSpawn
	KindUninstall
	KindCancelled
)

// Sentinels for errors.Is checks. An *Error matches the sentinel of its kind.
var (
	NetworkError            = &Error{Kind: KindNetwork}
	TimeoutError            = &Error{Kind: KindTimeout}
	IncompleteTransferError = &Error{Kind: KindIncompleteTransfer}
	IoError                 = &Error{Kind: KindIO}
	IntegrityError          = &Error{Kind: KindIntegrity}
	ExtractError            = &Error{Kind: KindExtract}
	NotFoundError           = &Error{Kind: KindNotFound}
	AlreadyRunningError     = &Error{Kind: KindAlreadyRunning}
	RunnerMissingError      = &Error{Kind: KindRunnerMissing}
	SpawnError              = &Error{Kind: KindSpawn}
	UninstallError          = &Error{Kind: KindUninstall}
	Cancelled               = &Error{Kind: KindCancelled}
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network error"
	case KindTimeout:
		return "timeout"
	case KindIncompleteTransfer:
		return "incomplete transfer"
	case KindIO:
		return "io error"
	case KindIntegrity:
		return "integrity error"
	case KindExtract:
		return "extract error"
	case KindNotFound:
		return "not found"
	case KindAlreadyRunning:
		return "already running"
	case KindRunnerMissing:
		return "runner missing"
	case KindSpawn:
		return "spawn error"
	case KindUninstall:
		return "uninstall error"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown error"
	}
}

// Error is a classified failure. Version is empty for operations that are not
// bound to a single version.
type Error struct {
	Kind    Kind
	Op      string
	Version string
	Err     error
}

// New builds a classified error for op.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf is New with a formatted cause.
func Newf(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// WithVersion returns a copy of e bound to version.
func (e *Error) WithVersion(version string) *Error {
	c := *e
	c.Version = version
	return &c
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Version != "" {
		msg = fmt.Sprintf("%s (version %s)", msg, e.Version)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel, or an *Error, of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
