package dynamics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// GUID identifies one instance across epochs.
//
// Identifiers are either JSON strings or JSON integers, and the two never
// merge: 1 and "1" are different instances. String identifiers are kept
// byte-for-byte; use NFC to fold canonically equivalent spellings together.
// GUID is comparable and can be used as a map key.
type GUID struct {
	text    string
	numeric bool
}

// StringGUID returns a string identifier. s is stored unchanged.
func StringGUID(s string) GUID {
	return GUID{text: s}
}

// IntGUID returns an integer identifier.
func IntGUID(n int64) GUID {
	return GUID{text: strconv.FormatInt(n, 10), numeric: true}
}

// IntGUIDs converts integer identifiers in order.
func IntGUIDs(ids ...int64) []GUID {
	out := make([]GUID, len(ids))
	for i, id := range ids {
		out[i] = IntGUID(id)
	}
	return out
}

// StringGUIDs converts string identifiers in order.
func StringGUIDs(ids ...string) []GUID {
	out := make([]GUID, len(ids))
	for i, id := range ids {
		out[i] = StringGUID(id)
	}
	return out
}

// String returns the identifier's text form.
func (g GUID) String() string {
	return g.text
}

// IsInt reports whether the identifier was an integer.
func (g GUID) IsInt() bool {
	return g.numeric
}

// Int returns the integer value of a numeric identifier.
func (g GUID) Int() (int64, bool) {
	if !g.numeric {
		return 0, false
	}
	n, err := strconv.ParseInt(g.text, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// StripLast drops the final character of a string identifier.
// An empty string stays empty. Integer identifiers cannot be truncated.
func (g GUID) StripLast() (GUID, error) {
	if g.numeric {
		return GUID{}, &Error{
			Code:    ErrCodeInvalidIdentifier,
			Message: "cannot strip last character of an integer identifier",
			Key:     g.text,
		}
	}
	if g.text == "" {
		return g, nil
	}
	_, size := utf8.DecodeLastRuneInString(g.text)
	return GUID{text: g.text[:len(g.text)-size]}, nil
}

// NFC returns the identifier with its text in Unicode normalization form C.
// Integer identifiers are returned as is.
func (g GUID) NFC() GUID {
	if g.numeric {
		return g
	}
	return GUID{text: norm.NFC.String(g.text)}
}

// Compare orders integer identifiers before string identifiers, integers
// numerically and strings by byte order.
func (g GUID) Compare(other GUID) int {
	if g.numeric != other.numeric {
		if g.numeric {
			return -1
		}
		return 1
	}
	if g.numeric {
		a, _ := g.Int()
		b, _ := other.Int()
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	}
	return strings.Compare(g.text, other.text)
}

// MarshalJSON writes integers bare and strings quoted, without HTML escaping.
func (g GUID) MarshalJSON() ([]byte, error) {
	if g.numeric {
		return []byte(g.text), nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(g.text); err != nil {
		return nil, err
	}
	// Encoder adds a trailing newline
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON accepts a JSON string or a JSON integer.
func (g *GUID) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}

	switch val := v.(type) {
	case string:
		*g = StringGUID(val)
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return &Error{
				Code:    ErrCodeInvalidIdentifier,
				Message: fmt.Sprintf("numeric identifier %s is not an integer", val),
				Err:     err,
			}
		}
		*g = IntGUID(n)
	default:
		return &Error{
			Code:    ErrCodeInvalidIdentifier,
			Message: fmt.Sprintf("identifier must be a string or integer, got %s", string(data)),
		}
	}
	return nil
}
