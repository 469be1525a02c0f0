// Package app holds the state the user interface renders each frame: the
// prompt being edited, the selected voice, the suggested filename, the most
// recent error and the download status. It owns the only Submitter and talks
// to the worker through it.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/loqalabs/loqa-speak/internal/protocol"
	"github.com/loqalabs/loqa-speak/internal/synth"
	"github.com/loqalabs/loqa-speak/internal/textutil"
	"github.com/loqalabs/loqa-speak/internal/voices"
)

// ErrCannotSubmit is returned by Download while a request is processing, the
// prompt is empty or the application has hit a fatal error.
var ErrCannotSubmit = errors.New("download is not available right now")

// Submitter is the caller side of the synthesis worker.
type Submitter interface {
	Submit(req protocol.SynthesisRequest) (string, error)
	Poll() (protocol.Outcome, synth.PollState)
}

type Options struct {
	Voice  string
	Prompt string
	Clock  func() time.Time
	Logger *slog.Logger
}

type App struct {
	submitter Submitter
	voices    *voices.Table
	clock     func() time.Time
	logger    *slog.Logger

	prompt   string
	voice    string
	filename string
	err      *protocol.SynthesisError
	status   Status
	halted   bool
	lastID   string
}

func New(sub Submitter, table *voices.Table, opts Options) (*App, error) {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Voice == "" {
		opts.Voice = "sonic"
	}
	if opts.Prompt == "" {
		opts.Prompt = "A test message"
	}
	if !table.Has(opts.Voice) {
		return nil, fmt.Errorf("default voice: %w: %q", voices.ErrUnknownVoice, opts.Voice)
	}
	a := &App{
		submitter: sub,
		voices:    table,
		clock:     opts.Clock,
		logger:    opts.Logger.With(slog.String("component", "app")),
		prompt:    opts.Prompt,
		voice:     opts.Voice,
		status:    Idle(),
	}
	a.regenerateFilename()
	return a, nil
}

func (a *App) regenerateFilename() {
	a.filename = textutil.SuggestFilename(a.voice, textutil.Clean(a.prompt), a.clock())
}

// SetPrompt replaces the prompt and regenerates the suggested filename.
func (a *App) SetPrompt(text string) {
	if text == a.prompt {
		return
	}
	a.prompt = text
	a.regenerateFilename()
}

// SetVoice selects a voice from the table and regenerates the filename.
func (a *App) SetVoice(id string) error {
	if !a.voices.Has(id) {
		return fmt.Errorf("%w: %q", voices.ErrUnknownVoice, id)
	}
	if id == a.voice {
		return nil
	}
	a.voice = id
	a.regenerateFilename()
	return nil
}

// SetFilename overrides the suggested filename until the prompt or voice changes.
func (a *App) SetFilename(name string) {
	a.filename = name
}

func (a *App) CanSubmit() bool {
	return !a.halted && a.status.Kind != StatusProcessing && a.prompt != ""
}

// Download submits the current prompt. Status becomes Processing even if the
// worker is gone; the fatal error is shown instead.
func (a *App) Download() error {
	if !a.CanSubmit() {
		return ErrCannotSubmit
	}
	req := protocol.SynthesisRequest{
		Voice:      a.voice,
		Text:       textutil.Clean(a.prompt),
		OutputPath: a.filename,
	}
	id, err := a.submitter.Submit(req)
	if err != nil {
		a.logger.Error("failed to submit synthesis request", slog.String("error", err.Error()))
		a.err = protocol.SubmitFailedError(err)
		a.halted = true
	}
	a.lastID = id
	a.status = Processing(a.clock())
	return err
}

// Update is called once per frame. It polls the worker without blocking and
// clears an acknowledged error. Clearing an error always resets the status to
// Idle, including after a success.
func (a *App) Update() {
	out, state := a.submitter.Poll()
	switch state {
	case synth.PollReady:
		if out.Err == nil {
			a.status = Success()
		} else {
			a.err = out.Err
		}
	case synth.PollDisconnected:
		a.logger.Error("synthesis worker disconnected")
		a.err = out.Err
		if a.err == nil {
			a.err = protocol.WorkerExitedError()
		}
		a.halted = true
	}

	if a.err != nil && a.err.Acknowledged {
		a.err = nil
		a.status = Idle()
	}
}

// Acknowledge marks the current error as seen. It returns true when the
// error is fatal and the application must exit.
func (a *App) Acknowledge() bool {
	if a.err == nil {
		return false
	}
	a.err.Acknowledged = true
	return a.err.Fatal
}

// Halted reports whether a fatal error has ended interaction.
func (a *App) Halted() bool { return a.halted }

type ErrorView struct {
	Title     string
	Message   string
	ExitOnAck bool
}

// View is a snapshot of everything the UI renders.
type View struct {
	Status    Status
	Elapsed   time.Duration
	Prompt    string
	Voice     string
	Filename  string
	Voices    []string
	CanSubmit bool
	RequestID string
	Error     *ErrorView
}

func (a *App) View() View {
	v := View{
		Status:    a.status,
		Elapsed:   a.status.Elapsed(a.clock()),
		Prompt:    a.prompt,
		Voice:     a.voice,
		Filename:  a.filename,
		Voices:    a.voices.IDs(),
		CanSubmit: a.CanSubmit(),
		RequestID: a.lastID,
	}
	if a.err != nil && !a.err.Acknowledged {
		v.Error = &ErrorView{Title: a.err.Title, Message: a.err.Message, ExitOnAck: a.err.Fatal}
	}
	return v
}
