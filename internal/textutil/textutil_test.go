package textutil

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 9, 7, 5, 3, 0, time.Local)

func TestCleanRemovesDisallowedRunes(t *testing.T) {
	cases := []struct{ in, want string }{
		{in: "Hello, world!", want: "Hello, world!"},
		{in: "tab\there\nnew\rline", want: "tab here new line"},
		{in: `say "hi" {json}`, want: "say hi json"},
		{in: "costs $5? it's fine.", want: "costs $5? it's fine."},
		{in: "caf\u00e9 na\u00efve \u2014", want: "caf nave "},
		{in: "emoji \U0001F600 gone", want: "emoji  gone"},
		{in: "no\u00a0break", want: "no break"},
		{in: "semi;colon:dash-under_", want: "semicolondashunder"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Clean(tc.in), "input %q", tc.in)
	}
}

func TestCleanOutputAlphabetAndIdempotence(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"  \t\n ",
		"Ünïcödé & <html> \"quotes\" \\ back/slash",
		"mixed 123 !?.,$'   end",
	}
	for _, in := range inputs {
		once := Clean(in)
		for _, r := range once {
			ok := isASCIIAlnum(r) || r == ' ' || strings.ContainsRune(",.!?$'", r)
			require.Truef(t, ok, "rune %q not allowed in %q", r, once)
		}
		assert.Equal(t, once, Clean(once), "clean must be idempotent for %q", in)
	}
}

func TestSuggestFilenameShape(t *testing.T) {
	name := SuggestFilename("sonic", "A test message", fixedNow)
	assert.Equal(t, "sonic_a_test_message_2024-03-09-070503.wav", name)
}

func TestSuggestFilenameUsesFirstFourWords(t *testing.T) {
	name := SuggestFilename("hal-9000", "one two three four five six", fixedNow)
	assert.Equal(t, "hal-9000_one_two_three_four_2024-03-09-070503.wav", name)
	assert.NotContains(t, name, "five")
	assert.NotContains(t, name, "six")
}

func TestSuggestFilenameTrimsPunctuation(t *testing.T) {
	name := SuggestFilename("sonic", "Hello, World! ... it's", fixedNow)
	assert.Equal(t, "sonic_hello_world_it's_2024-03-09-070503.wav", name)
}

func TestSuggestFilenameEmptyMiddle(t *testing.T) {
	for _, text := range []string{"", "   ", "!!! ... ???"} {
		name := SuggestFilename("sonic", text, fixedNow)
		assert.Equal(t, "sonic__2024-03-09-070503.wav", name)
	}
}

func TestSuggestFilenamePrefixAndSuffix(t *testing.T) {
	inputs := []string{"", "x", "Many words are here for sure", "$$$ 42"}
	for _, in := range inputs {
		name := SuggestFilename("ben-stein", Clean(in), fixedNow)
		assert.True(t, strings.HasPrefix(name, "ben-stein_"), name)
		assert.True(t, strings.HasSuffix(name, ".wav"), name)
	}
}
