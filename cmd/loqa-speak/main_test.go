package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/loqalabs/loqa-speak/internal/app"
	"github.com/loqalabs/loqa-speak/internal/config"
	"github.com/loqalabs/loqa-speak/internal/history"
	"github.com/loqalabs/loqa-speak/internal/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Equal(t, version+"\n", out.String())
}

func TestVoicesCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"voices"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "sonic")
	assert.Contains(t, out.String(), "hal-9000")
}

func newTestShell(t *testing.T) (*shell, *bytes.Buffer) {
	t.Helper()
	speak := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("audio"))
	}))
	t.Cleanup(speak.Close)

	cfg := config.Default()
	cfg.Synth.Endpoint = speak.URL
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rt := runtime.New(cfg, logger)
	require.NoError(t, rt.Start(context.Background()))
	t.Cleanup(func() { _ = rt.Close(context.Background()) })

	a, err := app.New(rt.Handle(), rt.Voices(), app.Options{Logger: logger})
	require.NoError(t, err)

	var out bytes.Buffer
	return &shell{app: a, rt: rt, out: &out}, &out
}

func TestShellDownloadSession(t *testing.T) {
	s, out := newTestShell(t)
	ctx := context.Background()
	target := filepath.Join(t.TempDir(), "hello.wav")

	done, err := s.dispatch(ctx, "text Hello there, shell")
	require.NoError(t, err)
	require.False(t, done)
	assert.Contains(t, out.String(), "sonic_hello_there_shell_")

	_, _ = s.dispatch(ctx, "voice nobody")
	assert.Contains(t, out.String(), "unknown voice")

	_, _ = s.dispatch(ctx, "file "+target)
	_, _ = s.dispatch(ctx, "download")

	deadline := time.Now().Add(10 * time.Second)
	for s.app.View().Status.Kind != app.StatusSuccess {
		require.True(t, time.Now().Before(deadline), "download never finished")
		s.frame()
		time.Sleep(10 * time.Millisecond)
	}
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "audio", string(data))
	assert.Contains(t, out.String(), "(status: Success)")

	require.Eventually(t, func() bool {
		entries, err := s.rt.History().List(ctx, 5)
		return err == nil && len(entries) == 1
	}, 5*time.Second, 10*time.Millisecond)
	_, _ = s.dispatch(ctx, "history 5")
	assert.Contains(t, out.String(), target)

	done, err = s.dispatch(ctx, "quit")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestShellRejectsUnparsableInput(t *testing.T) {
	s, out := newTestShell(t)
	done, err := s.dispatch(context.Background(), `file "unterminated`)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Contains(t, out.String(), "could not parse input")
}

func TestFormatEntry(t *testing.T) {
	e := history.Entry{Voice: "sonic", OutputPath: "a.wav", Success: false, Kind: "remote", Title: "Error: x", CreatedAt: time.Now()}
	line := formatEntry(e)
	assert.True(t, strings.HasSuffix(line, "remote: Error: x"), line)
}
