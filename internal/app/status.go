package app

import (
	"fmt"
	"time"
)

type StatusKind int

const (
	StatusIdle StatusKind = iota
	StatusProcessing
	StatusSuccess
)

// Status is the download state shown to the user. Since is set only for
// StatusProcessing.
type Status struct {
	Kind  StatusKind
	Since time.Time
}

func Idle() Status { return Status{Kind: StatusIdle} }

func Processing(start time.Time) Status { return Status{Kind: StatusProcessing, Since: start} }

func Success() Status { return Status{Kind: StatusSuccess} }

func (s Status) String() string {
	switch s.Kind {
	case StatusIdle:
		return "Idle"
	case StatusProcessing:
		return "Processing"
	case StatusSuccess:
		return "Success"
	default:
		return fmt.Sprintf("Status(%d)", int(s.Kind))
	}
}

// Elapsed reports how long a request has been processing, zero otherwise.
func (s Status) Elapsed(now time.Time) time.Duration {
	if s.Kind != StatusProcessing {
		return 0
	}
	return now.Sub(s.Since)
}
