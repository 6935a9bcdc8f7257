package dynamics

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGUID_IntegerAndStringNeverMerge(t *testing.T) {
	assert.NotEqual(t, IntGUID(1), StringGUID("1"))
	assert.Equal(t, "1", IntGUID(1).String())
	assert.Equal(t, "1", StringGUID("1").String())
}

func TestGUID_StringKeptVerbatim(t *testing.T) {
	// "é" precomposed vs e + combining acute
	composed, decomposed := StringGUID("caf\u00e9"), StringGUID("cafe\u0301")
	assert.NotEqual(t, composed, decomposed)
	assert.Equal(t, "cafe\u0301", decomposed.String())

	data, err := json.Marshal(decomposed)
	require.NoError(t, err)
	var back GUID
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, decomposed, back)
}

func TestGUID_NFC(t *testing.T) {
	assert.Equal(t, StringGUID("caf\u00e9"), StringGUID("cafe\u0301").NFC())
	assert.Equal(t, StringGUID("caf\u00e9"), StringGUID("caf\u00e9").NFC())
	assert.Equal(t, IntGUID(5), IntGUID(5).NFC())
}

func TestGUID_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		guid GUID
		want string
	}{
		{"integer", IntGUID(42), `42`},
		{"negative integer", IntGUID(-7), `-7`},
		{"string", StringGUID("train-3"), `"train-3"`},
		{"no html escaping", StringGUID("a<b>&c"), `"a<b>&c"`},
		{"quote escaped", StringGUID(`say "hi"`), `"say \"hi\""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.guid)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestGUID_UnmarshalJSON(t *testing.T) {
	var g GUID
	require.NoError(t, json.Unmarshal([]byte(`9007199254740993`), &g))
	n, ok := g.Int()
	require.True(t, ok)
	assert.Equal(t, int64(9007199254740993), n, "large integers keep full precision")

	require.NoError(t, json.Unmarshal([]byte(`"abc"`), &g))
	assert.Equal(t, StringGUID("abc"), g)
	assert.False(t, g.IsInt())

	for _, bad := range []string{`1.5`, `true`, `null`, `[1]`, `{"a":1}`} {
		err := json.Unmarshal([]byte(bad), &g)
		assert.Error(t, err, bad)
	}
}

func TestGUID_StripLast(t *testing.T) {
	g, err := StringGUID("abc1").StripLast()
	require.NoError(t, err)
	assert.Equal(t, StringGUID("abc"), g)

	g, err = StringGUID("naive\u00e9").StripLast()
	require.NoError(t, err)
	assert.Equal(t, StringGUID("naive"), g, "strips a whole rune, not a byte")

	g, err = StringGUID("cafe\u0301x").StripLast()
	require.NoError(t, err)
	assert.Equal(t, "cafe\u0301", g.String())

	g, err = StringGUID("").StripLast()
	require.NoError(t, err)
	assert.Equal(t, StringGUID(""), g)

	_, err = IntGUID(12).StripLast()
	assert.Equal(t, ErrCodeInvalidIdentifier, CodeOf(err))
}

func TestGUID_Compare(t *testing.T) {
	assert.Negative(t, IntGUID(2).Compare(IntGUID(10)))
	assert.Positive(t, IntGUID(10).Compare(IntGUID(2)))
	assert.Zero(t, IntGUID(3).Compare(IntGUID(3)))
	assert.Negative(t, IntGUID(99).Compare(StringGUID("0")))
	assert.Negative(t, StringGUID("a").Compare(StringGUID("b")))
}

func TestRecord_MarshalLine(t *testing.T) {
	line, err := Record{GUID: StringGUID("x"), Epoch: 4, Logits: []float64{-0.5, 2.25}, Gold: 3}.MarshalLine()
	require.NoError(t, err)
	assert.Equal(t, `{"guid":"x","logits_epoch_4":[-0.5,2.25],"gold":3}`, string(line))

	rec, err := ParseRecord(line, 4, "")
	require.NoError(t, err)
	assert.Equal(t, Record{GUID: StringGUID("x"), Epoch: 4, Logits: []float64{-0.5, 2.25}, Gold: 3}, rec)
}

func TestParseRecord_Errors(t *testing.T) {
	tests := map[string]string{
		"not json":      `{`,
		"missing guid":  `{"logits_epoch_0":[1],"gold":0}`,
		"missing gold":  `{"guid":1,"logits_epoch_0":[1]}`,
		"float gold":    `{"guid":1,"logits_epoch_0":[1],"gold":0.5}`,
		"string logits": `{"guid":1,"logits_epoch_0":"1","gold":0}`,
		"wrong epoch":   `{"guid":1,"logits_epoch_2":[1],"gold":0}`,
	}
	for name, line := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRecord([]byte(line), 0, "guid")
			assert.Error(t, err)
		})
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("eval")
	require.NoError(t, err)
	assert.Equal(t, Eval, k)
	assert.Equal(t, "eval_dynamics", k.Dir())
	assert.Equal(t, "training_dynamics", Training.Dir())

	_, err = ParseKind("test")
	assert.Equal(t, ErrCodeInvalidKind, CodeOf(err))
}
