package dynamics

import (
	"errors"
	"fmt"
	"strings"
)

// Error is returned for every consistency or contract violation detected while
// writing or reading dynamics files. Storage errors are wrapped in Err.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Path is the epoch file involved, if any.
	Path string

	// Key is the instance identifier involved, if any.
	Key string

	// Err is the underlying cause (decode failure, I/O error).
	Err error
}

// ErrorCode categorizes dynamics errors.
type ErrorCode string

const (
	// ErrCodeMissingEpochFile indicates an epoch file in 0..N-1 does not exist.
	ErrCodeMissingEpochFile ErrorCode = "MISSING_EPOCH_FILE"

	// ErrCodeFirstSeenLate indicates an instance was first observed after epoch 0.
	ErrCodeFirstSeenLate ErrorCode = "INSTANCE_FIRST_SEEN_LATE"

	// ErrCodeLengthMismatch indicates ids, logits and golds differ in length.
	ErrCodeLengthMismatch ErrorCode = "LENGTH_MISMATCH"

	// ErrCodeInvalidEpoch indicates a negative epoch number.
	ErrCodeInvalidEpoch ErrorCode = "INVALID_EPOCH"

	// ErrCodeInvalidKind indicates a kind other than training or eval.
	ErrCodeInvalidKind ErrorCode = "INVALID_KIND"

	// ErrCodeInvalidBurnOut indicates a negative epoch cutoff.
	ErrCodeInvalidBurnOut ErrorCode = "INVALID_BURN_OUT"

	// ErrCodeMalformedRecord indicates a line that is not a valid record.
	ErrCodeMalformedRecord ErrorCode = "MALFORMED_RECORD"

	// ErrCodeInvalidIdentifier indicates an identifier that is neither a
	// string nor an integer, or one that cannot be truncated.
	ErrCodeInvalidIdentifier ErrorCode = "INVALID_IDENTIFIER"

	// ErrCodeWidthMismatch indicates a score vector whose length differs from
	// the instance's earlier vectors (strict reads only).
	ErrCodeWidthMismatch ErrorCode = "WIDTH_MISMATCH"

	// ErrCodeGoldMismatch indicates a gold label that changed between epochs
	// (strict reads only).
	ErrCodeGoldMismatch ErrorCode = "GOLD_MISMATCH"

	// ErrCodeDuplicateInstance indicates an instance recorded twice in one
	// epoch (strict reads only).
	ErrCodeDuplicateInstance ErrorCode = "DUPLICATE_INSTANCE"

	// ErrCodeInstanceMissing indicates an instance absent from an epoch after
	// it was first seen (strict reads only).
	ErrCodeInstanceMissing ErrorCode = "INSTANCE_MISSING"
)

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	switch {
	case e.Path != "" && e.Key != "":
		fmt.Fprintf(&b, " (path=%s, key=%s)", e.Path, e.Key)
	case e.Path != "":
		fmt.Fprintf(&b, " (path=%s)", e.Path)
	case e.Key != "":
		fmt.Fprintf(&b, " (key=%s)", e.Key)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the ErrorCode carried by err, or "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsMissingEpochFile returns true if err reports a missing epoch file.
func IsMissingEpochFile(err error) bool {
	return CodeOf(err) == ErrCodeMissingEpochFile
}

// IsFirstSeenLate returns true if err reports an instance first seen after epoch 0.
func IsFirstSeenLate(err error) bool {
	return CodeOf(err) == ErrCodeFirstSeenLate
}

// IsInconsistent returns true for any cross-epoch consistency violation:
// late first sighting, or one of the strict-mode checks.
func IsInconsistent(err error) bool {
	switch CodeOf(err) {
	case ErrCodeFirstSeenLate, ErrCodeWidthMismatch, ErrCodeGoldMismatch,
		ErrCodeDuplicateInstance, ErrCodeInstanceMissing:
		return true
	}
	return false
}

func newMissingEpochFileError(path string, epoch int, err error) *Error {
	return &Error{
		Code:    ErrCodeMissingEpochFile,
		Message: fmt.Sprintf("epoch %d file not found", epoch),
		Path:    path,
		Err:     err,
	}
}

func newFirstSeenLateError(path string, epoch int, key GUID) *Error {
	return &Error{
		Code:    ErrCodeFirstSeenLate,
		Message: fmt.Sprintf("instance first seen at epoch %d, expected epoch 0", epoch),
		Path:    path,
		Key:     key.String(),
	}
}

func newMalformedRecordError(path string, line int, err error) *Error {
	return &Error{
		Code:    ErrCodeMalformedRecord,
		Message: fmt.Sprintf("line %d is not a valid record", line),
		Path:    path,
		Err:     err,
	}
}
