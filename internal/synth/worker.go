package synth

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/loqalabs/loqa-speak/internal/config"
	"github.com/loqalabs/loqa-speak/internal/protocol"
	"github.com/loqalabs/loqa-speak/internal/voices"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTimeout bounds a single request. The remote service has been seen to
// hang without ever answering.
const DefaultTimeout = 180 * time.Second

// Recorder stores the outcome of a processed request.
type Recorder interface {
	Record(ctx context.Context, req protocol.SynthesisRequest, out protocol.Outcome, bytes int) error
}

// Publisher broadcasts a processed request to other processes.
type Publisher interface {
	PublishDownload(ctx context.Context, evt protocol.DownloadEvent) error
}

type Option func(*worker)

func WithRecorder(r Recorder) Option {
	return func(w *worker) { w.recorder = r }
}

func WithPublisher(p Publisher) Option {
	return func(w *worker) { w.publisher = p }
}

type worker struct {
	cfg       config.SynthConfig
	voices    *voices.Table
	logger    *slog.Logger
	recorder  Recorder
	publisher Publisher
	inst      instruments
	now       func() time.Time
}

// Spawn starts the single download worker and returns its handle. The worker
// runs until the handle is closed. If the HTTP client cannot be built the
// worker exits at once and the handle reports a disconnection on Poll.
func Spawn(cfg config.SynthConfig, table *voices.Table, logger *slog.Logger, opts ...Option) *Handle {
	w := &worker{
		cfg:    cfg,
		voices: table,
		logger: logger.With(slog.String("component", "synth-worker")),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.inst = newInstruments(w.logger)

	h := newHandle(cfg.RequestBuffer)
	go w.run(h)
	return h
}

func (w *worker) run(h *Handle) {
	defer close(h.done)
	defer close(h.outcomes)
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("synthesis worker panicked",
				slog.String("panic", fmt.Sprint(r)),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	sp, err := newSpeaker(w.cfg)
	if err != nil {
		w.logger.Error("failed to start synthesis worker", slogError(err))
		return
	}
	w.logger.Info("synthesis worker started",
		slog.String("endpoint", sp.endpoint),
		slog.Duration("timeout", sp.client.Timeout))

	for req := range h.requests {
		w.handle(h, sp, req)
	}
	w.logger.Info("synthesis worker stopped")
}

func (w *worker) handle(h *Handle, sp *speaker, req protocol.SynthesisRequest) {
	start := w.now()
	ctx, span := w.inst.tracer.Start(context.Background(), "synth.download",
		trace.WithAttributes(
			attribute.String("request.id", req.ID),
			attribute.String("voice", req.Voice),
		))
	defer span.End()

	log := w.logger.With(slog.String("request_id", req.ID), slog.String("voice", req.Voice))
	log.Info("received synthesis request", slog.Int("text_len", len(req.Text)), slog.String("output", req.OutputPath))

	speakerName, written, serr := w.process(ctx, log, sp, req)
	out := protocol.Outcome{RequestID: req.ID, Err: serr}
	elapsed := w.now().Sub(start)

	outcome := "success"
	if serr != nil {
		outcome = serr.Kind.String()
		span.SetStatus(codes.Error, serr.Title)
		span.RecordError(serr)
		log.Warn("synthesis request failed",
			slog.String("kind", outcome),
			slog.String("title", serr.Title),
			slog.String("message", serr.Message),
			slog.Duration("latency", elapsed))
	} else {
		log.Info("synthesis request complete",
			slog.String("size", humanize.Bytes(uint64(written))),
			slog.Duration("latency", elapsed))
	}
	w.inst.observe(ctx, req.Voice, outcome, written, elapsed)

	select {
	case h.outcomes <- out:
	case <-h.abandoned:
		log.Debug("outcome discarded, handle closed")
	}

	if w.recorder != nil {
		if err := w.recorder.Record(ctx, req, out, written); err != nil {
			log.Warn("failed to record download", slogError(err))
		}
	}
	if w.publisher != nil {
		evt := downloadEvent(req, speakerName, out, written, elapsed, w.now())
		if err := w.publisher.PublishDownload(ctx, evt); err != nil {
			log.Warn("failed to publish download event", slogError(err))
		}
	}
}

// process resolves the voice, downloads the audio and writes it to disk.
func (w *worker) process(ctx context.Context, log *slog.Logger, sp *speaker, req protocol.SynthesisRequest) (string, int, *protocol.SynthesisError) {
	speakerName, err := w.voices.Lookup(req.Voice)
	if err != nil {
		log.Error("request names a voice outside the table", slogError(err))
		return "", 0, protocol.LookupError(err)
	}

	audio, serr := sp.speak(ctx, speakerName, req.Text)
	if serr != nil {
		return speakerName, 0, serr
	}

	if err := os.WriteFile(req.OutputPath, audio, 0o644); err != nil {
		return speakerName, 0, protocol.PersistenceError(err)
	}

	if info, err := inspectWAV(audio); err != nil {
		log.Warn("downloaded audio is not a readable wav", slogError(err))
	} else {
		log.Debug("downloaded wav",
			slog.Int("sample_rate", info.SampleRate),
			slog.Int("channels", info.Channels),
			slog.Int("bit_depth", info.BitDepth),
			slog.Duration("duration", info.Duration))
	}
	return speakerName, len(audio), nil
}

func downloadEvent(req protocol.SynthesisRequest, speakerName string, out protocol.Outcome, written int, elapsed time.Duration, now time.Time) protocol.DownloadEvent {
	evt := protocol.DownloadEvent{
		RequestID:  req.ID,
		Voice:      req.Voice,
		Speaker:    speakerName,
		OutputPath: req.OutputPath,
		Bytes:      written,
		Success:    out.Success(),
		LatencyMS:  elapsed.Milliseconds(),
		Timestamp:  now.UTC(),
	}
	if out.Err != nil {
		evt.Kind = out.Err.Kind.String()
		evt.Title = out.Err.Title
		evt.Message = out.Err.Message
	}
	return evt
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
