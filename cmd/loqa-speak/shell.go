package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/loqalabs/loqa-speak/internal/app"
	"github.com/loqalabs/loqa-speak/internal/config"
	"github.com/loqalabs/loqa-speak/internal/history"
	"github.com/loqalabs/loqa-speak/internal/runtime"
	"github.com/mattn/go-shellwords"
)

const frameInterval = 50 * time.Millisecond

var errFatalAcknowledged = errors.New("application stopped after a fatal error")

const helpText = `commands:
  text <words...>   set the message to speak
  voice <id>        choose a voice
  voices            list voices
  file <name>       override the output filename
  download          synthesize and save the current message
  ok                dismiss the current error
  status            show the current state
  history [n]       show recent downloads
  quit              exit`

func runShell(parent context.Context, cfg config.Config, logger *slog.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt := runtime.New(cfg, logger)
	if err := rt.Start(ctx); err != nil {
		return fmt.Errorf("start runtime: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := rt.Close(shutdownCtx); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
		}
	}()

	a, err := app.New(rt.Handle(), rt.Voices(), app.Options{
		Voice:  cfg.Synth.DefaultVoice,
		Prompt: cfg.Synth.DefaultPrompt,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "speak> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".loqa_speak_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	s := &shell{app: a, rt: rt, out: rl.Stdout()}
	fmt.Fprintf(s.out, "loqa-speak %s, type 'help' for commands\n", version)
	s.printStatus()
	return s.loop(ctx, rl)
}

type shell struct {
	app *app.App
	rt  *runtime.Runtime
	out io.Writer

	lastStatus app.StatusKind
	shownError *app.ErrorView
}

type inputLine struct {
	text string
	err  error
}

func (s *shell) loop(ctx context.Context, rl *readline.Instance) error {
	lines := make(chan inputLine)
	go func() {
		for {
			line, err := rl.Readline()
			select {
			case lines <- inputLine{text: line, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil && !errors.Is(err, readline.ErrInterrupt) {
				return
			}
		}
	}()

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.frame()
		case in := <-lines:
			if in.err != nil {
				if errors.Is(in.err, readline.ErrInterrupt) || errors.Is(in.err, io.EOF) {
					return nil
				}
				return in.err
			}
			done, err := s.dispatch(ctx, in.text)
			if err != nil || done {
				return err
			}
			s.frame()
		}
	}
}

// frame is one UI update: poll once, then render anything that changed.
func (s *shell) frame() {
	s.app.Update()
	v := s.app.View()

	if v.Error != nil && (s.shownError == nil || *s.shownError != *v.Error) {
		s.shownError = v.Error
		fmt.Fprintf(s.out, "\n[%s]\n%s\n", v.Error.Title, v.Error.Message)
		if v.Error.ExitOnAck {
			fmt.Fprintln(s.out, "type 'ok' to exit")
		} else {
			fmt.Fprintln(s.out, "type 'ok' to dismiss")
		}
	}
	if v.Error == nil {
		s.shownError = nil
	}
	if v.Status.Kind != s.lastStatus {
		s.lastStatus = v.Status.Kind
		s.printStatus()
	}
}

func (s *shell) printStatus() {
	v := s.app.View()
	line := fmt.Sprintf("(status: %s)", v.Status)
	if v.Status.Kind == app.StatusProcessing {
		line += fmt.Sprintf(" %s", v.Elapsed.Truncate(time.Second))
	}
	fmt.Fprintln(s.out, line)
}

func (s *shell) dispatch(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	args, err := shellwords.Parse(line)
	if err != nil {
		fmt.Fprintf(s.out, "could not parse input: %v\n", err)
		return false, nil
	}
	if len(args) == 0 {
		return false, nil
	}
	cmd := strings.ToLower(args[0])

	if s.app.Halted() && cmd != "ok" && cmd != "quit" && cmd != "exit" {
		fmt.Fprintln(s.out, "the downloader has stopped; type 'ok' to exit")
		return false, nil
	}

	switch cmd {
	case "help", "?":
		fmt.Fprintln(s.out, helpText)
	case "quit", "exit":
		return true, nil
	case "text":
		s.app.SetPrompt(strings.TrimSpace(strings.TrimPrefix(line, args[0])))
		fmt.Fprintf(s.out, "file: %s\n", s.app.View().Filename)
	case "voice":
		if len(args) != 2 {
			fmt.Fprintln(s.out, "usage: voice <id>")
			return false, nil
		}
		if err := s.app.SetVoice(args[1]); err != nil {
			fmt.Fprintln(s.out, err)
			return false, nil
		}
		fmt.Fprintf(s.out, "file: %s\n", s.app.View().Filename)
	case "voices":
		v := s.app.View()
		for _, id := range v.Voices {
			marker := " "
			if id == v.Voice {
				marker = "*"
			}
			fmt.Fprintf(s.out, "%s %s\n", marker, id)
		}
	case "file":
		if len(args) != 2 {
			fmt.Fprintln(s.out, "usage: file <name>")
			return false, nil
		}
		s.app.SetFilename(args[1])
	case "download":
		if err := s.app.Download(); errors.Is(err, app.ErrCannotSubmit) {
			fmt.Fprintln(s.out, "nothing to download, or a download is already in progress")
		}
	case "ok":
		if s.app.Acknowledge() {
			return true, errFatalAcknowledged
		}
	case "status":
		v := s.app.View()
		fmt.Fprintf(s.out, "voice: %s\ntext: %s\nfile: %s\n", v.Voice, v.Prompt, v.Filename)
		s.printStatus()
	case "history":
		limit := 10
		if len(args) > 1 {
			if n, err := strconv.Atoi(args[1]); err == nil {
				limit = n
			}
		}
		s.printHistory(ctx, limit)
	default:
		fmt.Fprintf(s.out, "unknown command %q, type 'help'\n", args[0])
	}
	return false, nil
}

func (s *shell) printHistory(ctx context.Context, limit int) {
	entries, err := s.rt.History().List(ctx, limit)
	if err != nil {
		fmt.Fprintf(s.out, "history unavailable: %v\n", err)
		return
	}
	if len(entries) == 0 {
		fmt.Fprintln(s.out, "no downloads recorded")
		return
	}
	for _, e := range entries {
		fmt.Fprintln(s.out, formatEntry(e))
	}
}

func formatEntry(e history.Entry) string {
	result := "ok"
	if !e.Success {
		result = e.Kind + ": " + e.Title
	}
	return fmt.Sprintf("%s  %-12s %s  %s", e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Voice, e.OutputPath, result)
}
