package dexlock

import (
	"errors"
	"fmt"
)

type Source uint8

const (
	SourceInput  Source = 1
	SourceOutput Source = 2
)

func (s Source) String() string {
	switch s {
	case SourceInput:
		return "input"
	case SourceOutput:
		return "output"
	default:
		return fmt.Sprintf("source(%d)", uint8(s))
	}
}

// Host is the transaction query surface the lock runs against. Every call
// is synchronous and side-effect free; indexes past the end of a cell list
// report ErrIndexOutOfBound.
//
// The cancellation path relies on the host evaluating every input's own
// lock independently: when an input carries the maker's lock, the host runs
// the maker's authorization for that input and rejects the whole
// transaction if it fails. Implementations must provide that guarantee.
type Host interface {
	// LoadScript returns the serialized lock script currently executing,
	// including its args.
	LoadScript() ([]byte, error)
	LoadCellLock(index int, src Source) ([]byte, error)
	LoadCellCapacity(index int, src Source) (uint64, error)
	// LoadCellTypeHash reports ok=false for a cell without a type script.
	LoadCellTypeHash(index int, src Source) (hash [32]byte, ok bool, err error)
	LoadCellData(index int, src Source) ([]byte, error)
}

// SysError is a failure reported by the host query layer.
type SysError struct {
	Code uint64
	// Actual is the available length for SYS_LENGTH_NOT_ENOUGH.
	Actual int
}

const (
	SYS_INDEX_OUT_OF_BOUND uint64 = 1
	SYS_ITEM_MISSING       uint64 = 2
	SYS_LENGTH_NOT_ENOUGH  uint64 = 3
	SYS_ENCODING           uint64 = 4
)

var (
	ErrIndexOutOfBound = &SysError{Code: SYS_INDEX_OUT_OF_BOUND}
	ErrItemMissing     = &SysError{Code: SYS_ITEM_MISSING}
	ErrEncoding        = &SysError{Code: SYS_ENCODING}
)

func ErrLengthNotEnough(actual int) error {
	return &SysError{Code: SYS_LENGTH_NOT_ENOUGH, Actual: actual}
}

func (e *SysError) Error() string {
	switch e.Code {
	case SYS_INDEX_OUT_OF_BOUND:
		return "sys: index out of bound"
	case SYS_ITEM_MISSING:
		return "sys: item missing"
	case SYS_LENGTH_NOT_ENOUGH:
		return fmt.Sprintf("sys: length not enough (%d)", e.Actual)
	case SYS_ENCODING:
		return "sys: encoding"
	default:
		return fmt.Sprintf("sys: unknown error %d", e.Code)
	}
}

// Is matches on Code so wrapped host errors compare equal to the sentinels.
func (e *SysError) Is(target error) bool {
	t, ok := target.(*SysError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func isIndexOutOfBound(err error) bool {
	return errors.Is(err, ErrIndexOutOfBound)
}

// fromSysError converts a host error into a validation error. Unknown host
// codes and foreign errors are faults of the environment; they are wrapped
// and returned without a validation code.
func fromSysError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := CodeOf(err); ok {
		return err
	}
	var se *SysError
	if !errors.As(err, &se) {
		return fmt.Errorf("dexlock: host fault: %w", err)
	}
	switch se.Code {
	case SYS_INDEX_OUT_OF_BOUND:
		return lockerr(ERR_INDEX_OUT_OF_BOUND, se.Error())
	case SYS_ITEM_MISSING:
		return lockerr(ERR_ITEM_MISSING, se.Error())
	case SYS_LENGTH_NOT_ENOUGH:
		return lockerr(ERR_LENGTH_NOT_ENOUGH, se.Error())
	case SYS_ENCODING:
		return lockerr(ERR_ENCODING, se.Error())
	default:
		return fmt.Errorf("dexlock: unexpected sys error %d: %w", se.Code, err)
	}
}
