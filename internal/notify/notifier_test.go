package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

type fakeSender struct {
	name  string
	err   error
	sent  int
	title string
}

func (f *fakeSender) Send(_ context.Context, title, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent++
	f.title = title
	return nil
}

func (f *fakeSender) Name() string { return f.name }

func notifyLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifierDeliversToAllSenders(t *testing.T) {
	a := &fakeSender{name: "a"}
	b := &fakeSender{name: "b"}

	n := NewNotifier([]Sender{a, b}, notifyLogger())
	if err := n.Notify(context.Background(), "title", "body"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if a.sent != 1 || b.sent != 1 {
		t.Errorf("sent = %d/%d, want 1/1", a.sent, b.sent)
	}
	if a.title != "title" {
		t.Errorf("title = %q", a.title)
	}
}

func TestNotifierSenderFailureDoesNotBlockOthers(t *testing.T) {
	broken := &fakeSender{name: "broken", err: errors.New("api down")}
	ok := &fakeSender{name: "ok"}

	n := NewNotifier([]Sender{broken, ok}, notifyLogger())
	err := n.Notify(context.Background(), "title", "body")
	if err == nil {
		t.Fatal("expected combined error")
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Errorf("error %q does not name the failed sender", err)
	}
	if ok.sent != 1 {
		t.Error("healthy sender skipped after earlier failure")
	}
}

func TestNotifierNoSenders(t *testing.T) {
	n := NewNotifier(nil, notifyLogger())
	if err := n.Notify(context.Background(), "title", "body"); err != nil {
		t.Fatalf("Notify with no senders: %v", err)
	}
}
