package protocol

import "fmt"

// SynthesisRequest is one user action: speak Text with Voice and save the
// audio at OutputPath. It is not mutated after submission.
type SynthesisRequest struct {
	ID         string
	Voice      string
	Text       string
	OutputPath string
}

// Outcome is the single result produced for a consumed request. A nil Err
// means the audio file has been written.
type Outcome struct {
	RequestID string
	Err       *SynthesisError
}

func (o Outcome) Success() bool { return o.Err == nil }

// ErrorKind classifies a SynthesisError.
type ErrorKind int

const (
	// KindTransport covers connection failures, DNS failures and timeouts.
	KindTransport ErrorKind = iota + 1
	// KindRemote means a response arrived with a non-2xx status.
	KindRemote
	// KindPersistence means the audio could not be read or written to disk.
	KindPersistence
	// KindLookup means the request named a voice outside the table.
	KindLookup
	// KindUnavailable means the worker has ended.
	KindUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindRemote:
		return "remote"
	case KindPersistence:
		return "persistence"
	case KindLookup:
		return "lookup"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

const (
	TitleTransport      = "Error: Failed to generate audio"
	TitlePersistence    = "Error: Failed to save the audio"
	TitleLookup         = "Error: Unknown voice"
	TitleWorkerExited   = "Error: The downloader has exited unexpectedly."
	TitleSubmitFailed   = "A critical error has occurred"
	MessageEmptyBody    = "(response was empty)"
	MessageUnreadable   = "<Failed to get the error message>"
	MessageWorkerExited = "The background downloader has stopped. The application cannot continue functioning without it and must be shut down."
	remoteTitleFormat   = "Error: The server's response wasn't a success (%s)"
)

// SynthesisError is a classified failure shown to the user. Acknowledged is
// owned by the UI layer and never set by the worker.
type SynthesisError struct {
	Kind         ErrorKind
	Title        string
	Message      string
	Fatal        bool
	Acknowledged bool
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("%s: %s", e.Title, e.Message)
}

func TransportError(err error) *SynthesisError {
	return &SynthesisError{Kind: KindTransport, Title: TitleTransport, Message: err.Error()}
}

// RemoteError builds the error for a non-2xx response. status is the full
// status line (e.g. "503 Service Unavailable").
func RemoteError(status, body string) *SynthesisError {
	if body == "" {
		body = MessageEmptyBody
	}
	return &SynthesisError{Kind: KindRemote, Title: fmt.Sprintf(remoteTitleFormat, status), Message: body}
}

func PersistenceError(err error) *SynthesisError {
	return &SynthesisError{Kind: KindPersistence, Title: TitlePersistence, Message: err.Error()}
}

func LookupError(err error) *SynthesisError {
	return &SynthesisError{Kind: KindLookup, Title: TitleLookup, Message: err.Error()}
}

// WorkerExitedError is reported when the outcome channel closes.
func WorkerExitedError() *SynthesisError {
	return &SynthesisError{Kind: KindUnavailable, Title: TitleWorkerExited, Message: MessageWorkerExited, Fatal: true}
}

// SubmitFailedError is reported when a request cannot be handed to the worker.
func SubmitFailedError(err error) *SynthesisError {
	return &SynthesisError{Kind: KindUnavailable, Title: TitleSubmitFailed, Message: err.Error(), Fatal: true}
}
