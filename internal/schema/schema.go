// Package schema validates dynamics epoch files against a CUE definition of
// the record layout.
//
// The definition is closed, so besides type errors it reports fields that do
// not belong to the epoch (for example logits_epoch_2 inside epoch 1's file).
package schema

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/roach88/cartography/internal/dynamics"
)

// recordTemplate is filled with the quoted id field and logits field.
const recordTemplate = `#Record: {
	%s!: string | int
	%s!: [...number]
	gold!: int
}
`

const maxLineSize = 64 << 20

// Violation is one schema failure in an epoch file.
type Violation struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("line %d: %s", v.Line, v.Message)
}

// Validator checks records for one identifier field. Definitions are compiled
// once per epoch and cached.
//
// Thread-safety: Validator is safe for concurrent use via internal mutex.
type Validator struct {
	mu      sync.Mutex
	ctx     *cue.Context
	idField string
	defs    map[int]cue.Value
}

// New creates a Validator. An empty idField defaults to "guid".
func New(idField string) *Validator {
	if idField == "" {
		idField = dynamics.DefaultIDField
	}
	return &Validator{
		ctx:     cuecontext.New(),
		idField: idField,
		defs:    make(map[int]cue.Value),
	}
}

// Definition returns the CUE source of the record definition for epoch.
func (v *Validator) Definition(epoch int) string {
	return fmt.Sprintf(recordTemplate, strconv.Quote(v.idField), strconv.Quote(dynamics.LogitsField(epoch)))
}

func (v *Validator) definition(epoch int) (cue.Value, error) {
	if def, ok := v.defs[epoch]; ok {
		return def, nil
	}
	val := v.ctx.CompileString(v.Definition(epoch), cue.Filename("record.cue"))
	if err := val.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile record schema: %w", err)
	}
	def := val.LookupPath(cue.ParsePath("#Record"))
	if err := def.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("lookup #Record: %w", err)
	}
	v.defs[epoch] = def
	return def, nil
}

// ValidateRecord checks one JSON line against the epoch's definition.
// Returns nil if the line is valid.
func (v *Validator) ValidateRecord(line []byte, epoch int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	def, err := v.definition(epoch)
	if err != nil {
		return err
	}

	expr, err := cuejson.Extract("record.json", line)
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	data := v.ctx.BuildExpr(expr)
	if err := data.Err(); err != nil {
		return err
	}

	return def.Unify(data).Validate(cue.Concrete(true))
}

// ValidateFile checks every non-blank line of an epoch file and returns all
// violations in line order. The error is non-nil only if the file cannot be
// read or the schema cannot be built.
func (v *Validator) ValidateFile(path string, epoch int) ([]Violation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open epoch file: %w", err)
	}
	defer f.Close()

	violations := []Violation{}
	lineNo := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := v.ValidateRecord(line, epoch); err != nil {
			violations = append(violations, toViolations(lineNo, err)...)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read epoch file: %w", err)
	}
	return violations, nil
}

// toViolations splits a CUE error list into one Violation per error.
func toViolations(line int, err error) []Violation {
	var cerr cueerrors.Error
	if !errors.As(err, &cerr) {
		return []Violation{{Line: line, Message: err.Error()}}
	}
	var out []Violation
	for _, e := range cueerrors.Errors(cerr) {
		out = append(out, Violation{Line: line, Message: e.Error()})
	}
	if len(out) == 0 {
		out = append(out, Violation{Line: line, Message: err.Error()})
	}
	return out
}
