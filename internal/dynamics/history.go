package dynamics

import "sort"

// Instance is one identifier's merged history.
type Instance struct {
	Gold   int
	Logits [][]float64 // indexed by epoch, epoch 0 first
}

// History maps each identifier to its merged history.
type History map[GUID]*Instance

// Entry is a flattened History element, used for ordered output.
type Entry struct {
	GUID   GUID        `json:"guid"`
	Gold   int         `json:"gold"`
	Logits [][]float64 `json:"logits"`
}

// Len returns the number of instances.
func (h History) Len() int {
	return len(h)
}

// Keys returns all identifiers in GUID.Compare order.
func (h History) Keys() []GUID {
	keys := make([]GUID, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Compare(keys[j]) < 0
	})
	return keys
}

// Entries returns the history as a slice ordered by Keys.
func (h History) Entries() []Entry {
	keys := h.Keys()
	out := make([]Entry, len(keys))
	for i, k := range keys {
		inst := h[k]
		out[i] = Entry{GUID: k, Gold: inst.Gold, Logits: inst.Logits}
	}
	return out
}
