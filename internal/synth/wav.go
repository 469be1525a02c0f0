package synth

import (
	"bytes"
	"errors"
	"time"

	"github.com/go-audio/wav"
)

type wavInfo struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
}

// inspectWAV reads the RIFF header of a downloaded file. It never changes the
// outcome of a request; callers only log the result.
func inspectWAV(data []byte) (wavInfo, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return wavInfo{}, errors.New("response is not a valid wav file")
	}
	dur, err := d.Duration()
	if err != nil {
		return wavInfo{}, err
	}
	return wavInfo{
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
		Duration:   dur,
	}, nil
}
