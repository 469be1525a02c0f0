package voices

import (
	"errors"
	"sort"
	"testing"
)

func TestLookupKnownVoice(t *testing.T) {
	table := Default()
	speaker, err := table.Lookup("sonic")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if speaker != "sonic" {
		t.Fatalf("unexpected speaker %q", speaker)
	}
}

func TestLookupUnknownVoiceDoesNotFallBack(t *testing.T) {
	table := Default()
	speaker, err := table.Lookup("nobody")
	if !errors.Is(err, ErrUnknownVoice) {
		t.Fatalf("expected ErrUnknownVoice, got %v", err)
	}
	if speaker != "" {
		t.Fatalf("expected no substitute speaker, got %q", speaker)
	}
}

func TestIDsSortedCopy(t *testing.T) {
	table := Default()
	ids := table.IDs()
	if !sort.StringsAreSorted(ids) {
		t.Fatalf("expected sorted ids, got %v", ids)
	}
	ids[0] = "mutated"
	if table.IDs()[0] == "mutated" {
		t.Fatal("IDs must return a copy")
	}
}

func TestNewIsolatedFromSource(t *testing.T) {
	src := map[string]string{"a": "speaker-a"}
	table := New(src)
	src["a"] = "changed"
	src["b"] = "speaker-b"
	if got, _ := table.Lookup("a"); got != "speaker-a" {
		t.Fatalf("table changed with source map: %q", got)
	}
	if table.Has("b") {
		t.Fatal("table gained entry from source map")
	}
}

func TestWithOverrides(t *testing.T) {
	table := WithOverrides(map[string]string{"sonic": "sonic-v2", "narrator": "narrator"})
	if got, _ := table.Lookup("sonic"); got != "sonic-v2" {
		t.Fatalf("expected override, got %q", got)
	}
	if !table.Has("narrator") || !table.Has("hal-9000") {
		t.Fatal("expected merged table")
	}
	if Default().Len() != len(builtin) {
		t.Fatal("overrides leaked into builtin table")
	}
}
