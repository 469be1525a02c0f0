package protocol

import "time"

// DownloadEvent is broadcast on the bus after every processed request.
type DownloadEvent struct {
	RequestID  string    `json:"request_id"`
	Voice      string    `json:"voice"`
	Speaker    string    `json:"speaker,omitempty"`
	OutputPath string    `json:"output_path"`
	Bytes      int       `json:"bytes,omitempty"`
	Success    bool      `json:"success"`
	Kind       string    `json:"kind,omitempty"`
	Title      string    `json:"title,omitempty"`
	Message    string    `json:"message,omitempty"`
	LatencyMS  int64     `json:"latency_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

const (
	SubjectDownloadCompleted = "tts.download.completed"
	SubjectDownloadFailed    = "tts.download.failed"
)
