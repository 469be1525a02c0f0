package voices

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownVoice is returned when an identifier is not part of the table.
var ErrUnknownVoice = errors.New("unknown voice")

var builtin = map[string]string{
	"sonic":              "sonic",
	"david-attenborough": "david-attenborough",
	"ben-stein":          "ben-stein",
	"bill-gates":         "bill-gates",
	"gilbert-gottfried":  "gilbert-gottfried",
	"hal-9000":           "hal-9000",
	"neil-degrasse":      "neil-degrasse-tyson",
	"peter-thiel":        "peter-thiel",
	"sir-david":          "david-attenborough",
	"wilford-brimley":    "wilford-brimley",
}

// Table maps voice identifiers to provider speaker names. It is immutable
// after construction and safe for concurrent reads.
type Table struct {
	speakers map[string]string
	ids      []string
}

// Default returns the built-in table.
func Default() *Table {
	return New(builtin)
}

// New copies entries into a new table.
func New(entries map[string]string) *Table {
	t := &Table{speakers: make(map[string]string, len(entries))}
	for id, speaker := range entries {
		t.speakers[id] = speaker
		t.ids = append(t.ids, id)
	}
	sort.Strings(t.ids)
	return t
}

// WithOverrides returns the built-in table extended by entries; entries win on conflict.
func WithOverrides(entries map[string]string) *Table {
	merged := make(map[string]string, len(builtin)+len(entries))
	for id, speaker := range builtin {
		merged[id] = speaker
	}
	for id, speaker := range entries {
		merged[id] = speaker
	}
	return New(merged)
}

func (t *Table) Lookup(id string) (string, error) {
	speaker, ok := t.speakers[id]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownVoice, id)
	}
	return speaker, nil
}

func (t *Table) Has(id string) bool {
	_, ok := t.speakers[id]
	return ok
}

// IDs returns the identifiers in sorted order. The returned slice is a copy.
func (t *Table) IDs() []string {
	out := make([]string, len(t.ids))
	copy(out, t.ids)
	return out
}

func (t *Table) Len() int { return len(t.ids) }
