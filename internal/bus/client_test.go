package bus

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/loqalabs/loqa-speak/internal/config"
	"github.com/loqalabs/loqa-speak/internal/natsserver"
	"github.com/loqalabs/loqa-speak/internal/protocol"
	"github.com/nats-io/nats.go"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestPublishDownloadSubjects(t *testing.T) {
	srv, err := natsserver.Start(config.BusConfig{Enabled: true, Embedded: true, Port: -1}, newLogger())
	if err != nil {
		t.Fatalf("start embedded nats: %v", err)
	}
	t.Cleanup(srv.Shutdown)

	client, err := Connect(context.Background(), config.BusConfig{Servers: []string{srv.ClientURL()}, ConnectTimeout: 2000}, newLogger())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(client.Close)
	if !client.Healthy() {
		t.Fatal("expected healthy connection")
	}

	msgs := make(chan *nats.Msg, 4)
	sub, err := client.Conn().ChanSubscribe("tts.download.*", msgs)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	t.Cleanup(func() { _ = sub.Unsubscribe() })
	if err := client.Conn().Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	ctx := context.Background()
	if err := client.PublishDownload(ctx, protocol.DownloadEvent{RequestID: "ok", Success: true}); err != nil {
		t.Fatalf("publish success: %v", err)
	}
	if err := client.PublishDownload(ctx, protocol.DownloadEvent{RequestID: "bad", Kind: "remote"}); err != nil {
		t.Fatalf("publish failure: %v", err)
	}

	want := map[string]string{"ok": protocol.SubjectDownloadCompleted, "bad": protocol.SubjectDownloadFailed}
	for i := 0; i < 2; i++ {
		select {
		case msg := <-msgs:
			var evt protocol.DownloadEvent
			if err := json.Unmarshal(msg.Data, &evt); err != nil {
				t.Fatalf("decode event: %v", err)
			}
			if want[evt.RequestID] != msg.Subject {
				t.Fatalf("event %s published on %s", evt.RequestID, msg.Subject)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestConnectWithoutServers(t *testing.T) {
	if _, err := Connect(context.Background(), config.BusConfig{}, newLogger()); err == nil {
		t.Fatal("expected error without servers")
	}
}

func TestEmbeddedDisabled(t *testing.T) {
	srv, err := natsserver.Start(config.BusConfig{Enabled: true, Embedded: false}, newLogger())
	if err != nil || srv != nil {
		t.Fatalf("expected nil server when not embedded, got %v %v", srv, err)
	}
	srv.Shutdown()
}
