package publishers

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Notifier announces version events to every configured publisher.
type Notifier struct {
	pubs []Publisher
}

// Build creates one publisher per prepared sink.
func Build(ctx context.Context, sinks []Sink, log Logger) (*Notifier, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	log = ensureLogger(log)

	pubs := make([]Publisher, 0, len(sinks))
	for _, s := range sinks {
		var (
			pub Publisher
			err error
		)
		switch s.Type {
		case TypeHTTP:
			pub, err = newHTTPPublisher(s, log)
		case TypeSQS:
			pub, err = newSQSPublisher(ctx, s, log)
		default:
			err = fmt.Errorf("unsupported type %q", s.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("build publisher %q: %w", s.ID, err)
		}
		pubs = append(pubs, pub)
	}
	return NewNotifier(pubs...), nil
}

// NewNotifier wraps pubs. Nil entries are ignored.
func NewNotifier(pubs ...Publisher) *Notifier {
	n := &Notifier{}
	for _, p := range pubs {
		if p != nil {
			n.pubs = append(n.pubs, p)
		}
	}
	return n
}

// Notify delivers evt to all publishers in parallel and waits for them. It
// returns how many accepted the event; failures are joined in publisher order.
func (n *Notifier) Notify(ctx context.Context, evt Event) (int, error) {
	if n.Len() == 0 {
		return 0, nil
	}

	failures := make([]error, len(n.pubs))
	var wg sync.WaitGroup
	for i, p := range n.pubs {
		i, p := i, p
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Publish(ctx, evt); err != nil {
				failures[i] = fmt.Errorf("%s publisher %q: %w", p.Type(), p.ID(), err)
			}
		}()
	}
	wg.Wait()

	delivered := 0
	for _, err := range failures {
		if err == nil {
			delivered++
		}
	}
	return delivered, errors.Join(failures...)
}

// Len returns the number of publishers.
func (n *Notifier) Len() int {
	if n == nil {
		return 0
	}
	return len(n.pubs)
}

// Targets lists publishers as "type:id" for logging.
func (n *Notifier) Targets() []string {
	if n.Len() == 0 {
		return nil
	}
	out := make([]string, len(n.pubs))
	for i, p := range n.pubs {
		out[i] = p.Type() + ":" + p.ID()
	}
	return out
}
