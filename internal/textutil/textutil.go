// Package textutil normalizes user text before it is sent for synthesis and
// derives output filenames from it.
package textutil

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

const (
	filenameWords      = 4
	filenameTimeLayout = "2006-01-02-150405"
	filenameExt        = ".wav"
)

// Clean maps every whitespace rune to a plain space and drops every rune that
// is not an ASCII letter, digit, space or one of , . ! ? $ '.
func Clean(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case isASCIIAlnum(r):
			b.WriteRune(r)
		case strings.ContainsRune(",.!?$'", r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SuggestFilename builds "<voice>_<first four words>_<timestamp>.wav" from
// already cleaned text. The timestamp is rendered in now's location.
func SuggestFilename(voice, text string, now time.Time) string {
	fields := strings.Fields(text)
	if len(fields) > filenameWords {
		fields = fields[:filenameWords]
	}
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.TrimFunc(strings.ToLower(f), func(r rune) bool { return !isASCIIAlnum(r) })
		if w != "" {
			words = append(words, w)
		}
	}
	return fmt.Sprintf("%s_%s_%s%s", voice, strings.Join(words, "_"), now.Format(filenameTimeLayout), filenameExt)
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
