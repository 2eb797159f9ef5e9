package publishers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

type stubPublisher struct {
	id  string
	typ string
	err error

	mu     sync.Mutex
	events []Event
}

func (s *stubPublisher) ID() string   { return s.id }
func (s *stubPublisher) Type() string { return s.typ }
func (s *stubPublisher) Publish(_ context.Context, evt Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	return s.err
}

func TestNotifierDeliversToAllAndJoinsFailures(t *testing.T) {
	ok := &stubPublisher{id: "ok", typ: TypeHTTP}
	bad := &stubPublisher{id: "bad", typ: TypeSQS, err: errors.New("throttled")}
	n := NewNotifier(ok, nil, bad)

	if n.Len() != 2 {
		t.Fatalf("expected nil publisher to be ignored, len=%d", n.Len())
	}
	if got := strings.Join(n.Targets(), ","); got != "http:ok,sqs:bad" {
		t.Fatalf("unexpected targets %q", got)
	}

	delivered, err := n.Notify(context.Background(), NewVersionEvent("client", "3.4.0", "3.4.1"))
	if delivered != 1 {
		t.Fatalf("expected 1 delivery, got %d", delivered)
	}
	if err == nil || !strings.Contains(err.Error(), `sqs publisher "bad": throttled`) {
		t.Fatalf("expected failure naming the sqs publisher, got %v", err)
	}
	if len(bad.events) != 1 {
		t.Fatalf("failing publisher should still be attempted")
	}
	if len(ok.events) != 1 || ok.events[0].Type != EventVersionChanged || ok.events[0].LatestVersion != "3.4.1" {
		t.Fatalf("unexpected delivered events %#v", ok.events)
	}
}

func TestNilNotifierIsEmpty(t *testing.T) {
	var n *Notifier
	delivered, err := n.Notify(context.Background(), Event{})
	if delivered != 0 || err != nil {
		t.Fatalf("expected no-op, got %d %v", delivered, err)
	}
	if n.Len() != 0 || n.Targets() != nil {
		t.Fatalf("expected empty nil notifier")
	}
}

func TestBuildCreatesPublishersPerSink(t *testing.T) {
	sinks, err := Prepare([]Sink{{ID: "hook", Type: TypeHTTP, HTTP: &WebhookSink{URL: "https://hooks.example"}}})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	n, err := Build(context.Background(), sinks, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := n.Targets(); len(got) != 1 || got[0] != "http:hook" {
		t.Fatalf("unexpected targets %v", got)
	}

	if _, err := Build(context.Background(), []Sink{{ID: "x", Type: "kafka"}}, nil); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
	if _, err := Build(context.Background(), []Sink{{ID: "x", Type: TypeHTTP}}, nil); err == nil {
		t.Fatalf("expected error for missing http block")
	}
}
