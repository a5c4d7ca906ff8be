package dexlock

import (
	"errors"
	"fmt"
)

// ErrorCode is the script exit code reported for a rejected transaction.
// Values are part of the on-chain interface and must not be renumbered.
type ErrorCode int8

const (
	ERR_INDEX_OUT_OF_BOUND ErrorCode = 1
	ERR_ITEM_MISSING       ErrorCode = 2
	ERR_LENGTH_NOT_ENOUGH  ErrorCode = 3
	ERR_ENCODING           ErrorCode = 4

	ERR_LOCK_ARGS_INVALID             ErrorCode = 5
	ERR_DEX_OWNER_LOCK_NOT_MATCH      ErrorCode = 6
	ERR_DEX_FT_TOTAL_VALUE_NOT_MATCH  ErrorCode = 7
	ERR_DEX_NFT_TOTAL_VALUE_NOT_MATCH ErrorCode = 8
	ERR_DEX_SETUP_INVALID             ErrorCode = 9
	ERR_TOTAL_VALUE_OVERFLOW          ErrorCode = 10
	ERR_UNIT_TYPE_NOT_MATCH           ErrorCode = 11
	ERR_TOTAL_VALUE_NOT_MATCH         ErrorCode = 12
)

var errorCodeNames = map[ErrorCode]string{
	ERR_INDEX_OUT_OF_BOUND:            "ERR_INDEX_OUT_OF_BOUND",
	ERR_ITEM_MISSING:                  "ERR_ITEM_MISSING",
	ERR_LENGTH_NOT_ENOUGH:             "ERR_LENGTH_NOT_ENOUGH",
	ERR_ENCODING:                      "ERR_ENCODING",
	ERR_LOCK_ARGS_INVALID:             "ERR_LOCK_ARGS_INVALID",
	ERR_DEX_OWNER_LOCK_NOT_MATCH:      "ERR_DEX_OWNER_LOCK_NOT_MATCH",
	ERR_DEX_FT_TOTAL_VALUE_NOT_MATCH:  "ERR_DEX_FT_TOTAL_VALUE_NOT_MATCH",
	ERR_DEX_NFT_TOTAL_VALUE_NOT_MATCH: "ERR_DEX_NFT_TOTAL_VALUE_NOT_MATCH",
	ERR_DEX_SETUP_INVALID:             "ERR_DEX_SETUP_INVALID",
	ERR_TOTAL_VALUE_OVERFLOW:          "ERR_TOTAL_VALUE_OVERFLOW",
	ERR_UNIT_TYPE_NOT_MATCH:           "ERR_UNIT_TYPE_NOT_MATCH",
	ERR_TOTAL_VALUE_NOT_MATCH:         "ERR_TOTAL_VALUE_NOT_MATCH",
}

func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ERR_UNKNOWN(%d)", int8(c))
}

type LockError struct {
	Code ErrorCode
	Msg  string
}

func (e *LockError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func lockerr(code ErrorCode, msg string) error {
	return &LockError{Code: code, Msg: msg}
}

// CodeOf extracts the validation code carried by err.
func CodeOf(err error) (ErrorCode, bool) {
	var le *LockError
	if errors.As(err, &le) && le != nil {
		return le.Code, true
	}
	return 0, false
}

// ExitCode maps a verification result to the script exit code.
// A nil error is 0. Errors that carry no validation code are host
// faults and map to -1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if code, ok := CodeOf(err); ok {
		return int(code)
	}
	return -1
}
