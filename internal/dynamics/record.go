package dynamics

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DefaultIDField is the record field holding the instance identifier.
const DefaultIDField = "guid"

// Record is one instance's output for one epoch.
type Record struct {
	GUID   GUID
	Epoch  int
	Logits []float64
	Gold   int
}

// LogitsField returns "logits_epoch_<epoch>".
func LogitsField(epoch int) string {
	return fmt.Sprintf("logits_epoch_%d", epoch)
}

// MarshalLine encodes r as a single JSON object without a trailing newline.
// Fields appear in column order: guid, logits_epoch_<N>, gold.
func (r Record) MarshalLine() ([]byte, error) {
	guid, err := r.GUID.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal guid: %w", err)
	}

	logits := r.Logits
	if logits == nil {
		logits = []float64{}
	}
	logitsJSON, err := json.Marshal(logits)
	if err != nil {
		return nil, fmt.Errorf("marshal logits: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(`{"guid":`)
	buf.Write(guid)
	fmt.Fprintf(&buf, `,"%s":`, LogitsField(r.Epoch))
	buf.Write(logitsJSON)
	fmt.Fprintf(&buf, `,"gold":%d}`, r.Gold)
	return buf.Bytes(), nil
}

// ParseRecord decodes one line of an epoch file. The identifier is read from
// idField and the scores from logits_epoch_<epoch>.
func ParseRecord(line []byte, epoch int, idField string) (Record, error) {
	if idField == "" {
		idField = DefaultIDField
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return Record{}, err
	}

	rawID, ok := fields[idField]
	if !ok {
		return Record{}, fmt.Errorf("missing identifier field %q", idField)
	}
	var guid GUID
	if err := json.Unmarshal(rawID, &guid); err != nil {
		return Record{}, fmt.Errorf("field %q: %w", idField, err)
	}

	logitsField := LogitsField(epoch)
	rawLogits, ok := fields[logitsField]
	if !ok {
		return Record{}, fmt.Errorf("missing field %q", logitsField)
	}
	var logits []float64
	if err := json.Unmarshal(rawLogits, &logits); err != nil {
		return Record{}, fmt.Errorf("field %q: %w", logitsField, err)
	}

	rawGold, ok := fields["gold"]
	if !ok {
		return Record{}, fmt.Errorf("missing field %q", "gold")
	}
	var gold int
	if err := json.Unmarshal(rawGold, &gold); err != nil {
		return Record{}, fmt.Errorf("field %q: %w", "gold", err)
	}

	return Record{GUID: guid, Epoch: epoch, Logits: logits, Gold: gold}, nil
}
