package events

import (
	"sync"

	"github.com/pkg/errors"

	lib "github.com/din14970/hyperspy/library"
)

// Notification is one delivered trigger as seen by stream receivers.
type Notification struct {
	Args   []interface{}
	Kwargs map[string]interface{}
}

type message struct {
	c chan message
	v Notification
}

// hub fans an event's triggers out to stream receivers over a linked channel
// chain. Publishing hands the value to the run loop and returns; receivers
// chase the chain at their own pace.
type hub struct {
	listenc   chan chan (chan message)
	sendc     chan Notification
	shutdown  chan struct{}
	closeOnce sync.Once
}

func newHub() *hub {
	h := &hub{
		listenc:  make(chan chan (chan message)),
		sendc:    make(chan Notification),
		shutdown: make(chan struct{}),
	}
	go func() {
		currc := make(chan message, 1)
		for {
			select {
			case v := <-h.sendc:
				c := make(chan message, 1)
				currc <- message{c: c, v: v}
				currc = c
			case r := <-h.listenc:
				r <- currc
			case <-h.shutdown:
				return
			}
		}
	}()
	return h
}

func (h *hub) publish(n Notification) {
	select {
	case h.sendc <- n:
	case <-h.shutdown:
	}
}

func (h *hub) listen() (*Stream, error) {
	c := make(chan chan message)
	select {
	case h.listenc <- c:
		return &Stream{c: <-c, shutdown: h.shutdown}, nil
	case <-h.shutdown:
		return nil, errors.Wrap(ErrStreamClosed, lib.StringTags("stream"))
	}
}

func (h *hub) close() {
	h.closeOnce.Do(func() {
		close(h.shutdown)
	})
}

// Stream receives an event's triggers as values instead of callbacks, so a
// goroutine can range over state changes. Streams bypass arity selection;
// suppression still gates delivery.
type Stream struct {
	c        chan message
	shutdown chan struct{}
}

// Read returns the next notification, waiting until one is delivered or the
// event's streams are closed.
func (s *Stream) Read() (Notification, error) {
	if s.c == nil {
		return Notification{}, errors.Wrap(ErrStreamClosed, lib.StringTags("stream read"))
	}
	select {
	case m := <-s.c:
		s.c <- m
		s.c = m.c
		return m.v, nil
	case <-s.shutdown:
		s.c = nil
		return Notification{}, errors.Wrap(ErrStreamClosed, lib.StringTags("stream read"))
	}
}

// Stream registers a new receiver for this event's triggers.
func (e *Event) Stream() (*Stream, error) {
	e.mux.Lock()
	if e.streams == nil {
		e.streams = newHub()
	}
	h := e.streams
	e.mux.Unlock()
	return h.listen()
}

// CloseStreams shuts down stream delivery; pending and future Read calls
// fail with ErrStreamClosed. Connected callbacks are unaffected.
func (e *Event) CloseStreams() {
	e.mux.Lock()
	h := e.streams
	e.mux.Unlock()
	if h != nil {
		h.close()
	}
}
