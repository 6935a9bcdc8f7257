package harness

import (
	"fmt"
	"reflect"

	"github.com/roach88/cartography/internal/dynamics"
)

// EvaluateExpectations checks a read outcome against exp and returns one
// message per failed expectation.
//
// When an error is expected, nothing else is checked.
func EvaluateExpectations(exp Expectation, h dynamics.History, readErr error) []string {
	if exp.Error != "" {
		if readErr == nil {
			return []string{fmt.Sprintf("expected error %s, read succeeded", exp.Error)}
		}
		if got := dynamics.CodeOf(readErr); string(got) != exp.Error {
			return []string{fmt.Sprintf("expected error %s, got %q: %v", exp.Error, got, readErr)}
		}
		return nil
	}
	if readErr != nil {
		return []string{fmt.Sprintf("unexpected read error: %v", readErr)}
	}

	var errs []string
	if exp.Instances != nil && h.Len() != *exp.Instances {
		errs = append(errs, fmt.Sprintf("expected %d instances, got %d", *exp.Instances, h.Len()))
	}

	for _, want := range exp.History {
		guid, err := toGUID(want.GUID)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		inst, ok := h[guid]
		if !ok {
			errs = append(errs, fmt.Sprintf("instance %s not found", guid))
			continue
		}
		if inst.Gold != want.Gold {
			errs = append(errs, fmt.Sprintf("instance %s: expected gold %d, got %d", guid, want.Gold, inst.Gold))
		}
		if !reflect.DeepEqual(inst.Logits, want.Logits) {
			errs = append(errs, fmt.Sprintf("instance %s: expected logits %v, got %v", guid, want.Logits, inst.Logits))
		}
	}
	return errs
}
