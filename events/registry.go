package events

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	lib "github.com/din14970/hyperspy/library"
)

// Events is a dynamic registry of named Event instances, one per stateful
// owner. It is the explicit name -> event mapping: registrations go through
// Add/New, retrieval through Get, no attribute interception involved.
type Events struct {
	mux    sync.RWMutex
	events map[string]*Event
}

// CreateEvents create an events container
func CreateEvents() *Events {
	return &Events{events: make(map[string]*Event)}
}

// Add registers event under name, replacing any previous registration of
// that name.
func (es *Events) Add(name string, e *Event) error {
	if !lib.IsIdentifier(name) {
		return errors.Wrapf(ErrInvalidArgument, "event name invalid: %q", name)
	}
	if e == nil {
		return errors.Wrap(ErrInvalidArgument, lib.StringTags("add event", "nil event"))
	}
	es.mux.Lock()
	es.events[name] = e
	es.mux.Unlock()
	return nil
}

// New creates an event and registers it under name in one step.
func (es *Events) New(name string, options ...CreateEventOptions) (*Event, error) {
	e, err := CreateEvent(options...)
	if err != nil {
		return nil, errors.Wrap(err, lib.StringTags("new event", name))
	}
	if err = es.Add(name, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Get returns the event registered under name.
func (es *Events) Get(name string) (*Event, error) {
	es.mux.RLock()
	defer es.mux.RUnlock()
	e, ok := es.events[name]
	if !ok {
		return nil, errors.Wrapf(ErrEventNotFound, "%q", name)
	}
	return e, nil
}

// MustGet is Get for names known to be registered; it panics otherwise.
// Meant for events the owner registered itself at construction.
func (es *Events) MustGet(name string) *Event {
	e, err := es.Get(name)
	if err != nil {
		panic(err)
	}
	return e
}

// Remove drops the registration under name. Unknown names are ignored.
func (es *Events) Remove(name string) {
	es.mux.Lock()
	delete(es.events, name)
	es.mux.Unlock()
}

// Len returns the number of registered events.
func (es *Events) Len() int {
	es.mux.RLock()
	defer es.mux.RUnlock()
	return len(es.events)
}

// Names returns the registered event names, sorted.
func (es *Events) Names() []string {
	es.mux.RLock()
	defer es.mux.RUnlock()
	names := make([]string, 0, len(es.events))
	for name := range es.events {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllEvents returns the registered events ordered by name.
func (es *Events) AllEvents() []*Event {
	es.mux.RLock()
	defer es.mux.RUnlock()
	names := make([]string, 0, len(es.events))
	for name := range es.events {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*Event, 0, len(names))
	for _, name := range names {
		out = append(out, es.events[name])
	}
	return out
}

// Doc builds a composite description of the registered events and their
// docstrings for introspection displays.
func (es *Events) Doc() string {
	var b strings.Builder
	b.WriteString("Events:\n-------\n")
	for _, name := range es.Names() {
		e, err := es.Get(name)
		if err != nil {
			continue
		}
		short := e.Doc()
		if i := strings.IndexByte(short, '\n'); i >= 0 {
			short = short[:i]
		}
		fmt.Fprintf(&b, "%s :\n    %s\n", name, short)
	}
	return b.String()
}

// Suppress turns every currently-registered event off until the returned
// restore function runs. Each event's own prior flag value is what gets
// restored, so an event suppressed before entry stays suppressed after exit.
func (es *Events) Suppress() (restore func()) {
	all := es.AllEvents()
	restores := make([]func(), 0, len(all))
	for _, e := range all {
		restores = append(restores, e.Suppress())
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(restores) - 1; i >= 0; i-- {
				restores[i]()
			}
		})
	}
}

func (es *Events) String() string {
	return fmt.Sprintf("<events.Events: %s>", lib.JoinWithComma(es.Names()))
}
