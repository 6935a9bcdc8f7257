package dynamics

import (
	"fmt"
	"os"
	"path/filepath"
)

// Kind selects the training or evaluation split.
type Kind string

const (
	Training Kind = "training"
	Eval     Kind = "eval"
)

// Kinds lists the supported kinds.
var Kinds = []Kind{Training, Eval}

// ParseKind accepts "training" or "eval".
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", &Error{
		Code:    ErrCodeInvalidKind,
		Message: fmt.Sprintf("unknown kind %q: must be one of %v", s, Kinds),
	}
}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	return k == Training || k == Eval
}

// Dir is the subdirectory holding this kind's epoch files.
func (k Kind) Dir() string {
	return string(k) + "_dynamics"
}

// Label is the capitalized name used in log messages.
func (k Kind) Label() string {
	switch k {
	case Training:
		return "Training"
	case Eval:
		return "Eval"
	}
	return string(k)
}

// EpochFileName returns "dynamics_epoch_<epoch>.jsonl".
func EpochFileName(epoch int) string {
	return fmt.Sprintf("dynamics_epoch_%d.jsonl", epoch)
}

// DynamicsDir returns <baseDir>/<kind>_dynamics.
func DynamicsDir(baseDir string, kind Kind) string {
	return filepath.Join(baseDir, kind.Dir())
}

// EpochPath returns <baseDir>/<kind>_dynamics/dynamics_epoch_<epoch>.jsonl.
func EpochPath(baseDir string, kind Kind, epoch int) string {
	return filepath.Join(DynamicsDir(baseDir, kind), EpochFileName(epoch))
}

// CountEpochFiles returns the number of regular files in dir. Every regular
// file counts, whatever its name; the reader uses the count as the number of
// epochs to load.
func CountEpochFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("list dynamics dir: %w", err)
	}
	n := 0
	for _, e := range entries {
		if e.Type().IsRegular() {
			n++
		}
	}
	return n, nil
}

func checkKind(kind Kind) error {
	if kind.Valid() {
		return nil
	}
	return &Error{
		Code:    ErrCodeInvalidKind,
		Message: fmt.Sprintf("unknown kind %q: must be one of %v", kind, Kinds),
	}
}
