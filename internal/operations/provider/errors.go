package provider

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the scheduler can decide retry, skip or abort.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransient
	KindPermanent
	KindExecution
	KindPersistence
	KindInsufficientData
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindExecution:
		return "execution"
	case KindPersistence:
		return "persistence"
	case KindInsufficientData:
		return "insufficient_data"
	default:
		return "unknown"
	}
}

// Error tags a provider failure with its kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap tags err with kind. A nil err stays nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindUnknown
}

// IsTransient reports whether err is worth retrying on a read path.
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}

// ErrReconciliation marks a live order whose position record could not be saved.
var ErrReconciliation = errors.New("order executed but position was not recorded")
