package events

import (
	"sync"

	"github.com/pkg/errors"

	lib "github.com/din14970/hyperspy/library"
)

// scope is a lazily-built suppression scope: invoking it arms the scope and
// returns the matching restore function.
type scope func() (restore func())

// Target is anything a Suppressor can batch: an *Event (suppress the whole
// event), an *Events container (suppress every contained event), the
// callback pairs built by WithCallback and WithCallbackIn, or a Group of the
// above.
type Target interface {
	suppressionScopes() []scope
}

func (e *Event) suppressionScopes() []scope {
	return []scope{e.Suppress}
}

func (es *Events) suppressionScopes() []scope {
	return []scope{es.Suppress}
}

type callbackTarget struct {
	event    *Event
	callback Callback
}

func (t callbackTarget) suppressionScopes() []scope {
	return []scope{func() func() {
		return t.event.SuppressCallback(t.callback)
	}}
}

// WithCallback targets only cb within e.
func WithCallback(e *Event, cb Callback) Target {
	if e == nil || cb == nil {
		return nil
	}
	return callbackTarget{event: e, callback: cb}
}

type containerCallbackTarget struct {
	container *Events
	callback  Callback
}

// The container is re-scanned when the scope is armed, not when the target
// is added, so events registered in between are still covered.
func (t containerCallbackTarget) suppressionScopes() []scope {
	return []scope{func() func() {
		all := t.container.AllEvents()
		restores := make([]func(), 0, len(all))
		for _, e := range all {
			restores = append(restores, e.SuppressCallback(t.callback))
		}
		return func() {
			for i := len(restores) - 1; i >= 0; i-- {
				restores[i]()
			}
		}
	}}
}

// WithCallbackIn targets cb in every event of the container where it is
// connected.
func WithCallbackIn(es *Events, cb Callback) Target {
	if es == nil || cb == nil {
		return nil
	}
	return containerCallbackTarget{container: es, callback: cb}
}

type groupTarget []Target

func (g groupTarget) suppressionScopes() []scope {
	var scopes []scope
	for _, t := range g {
		if t == nil {
			continue
		}
		scopes = append(scopes, t.suppressionScopes()...)
	}
	return scopes
}

// Group flattens nested target collections into a single target.
func Group(targets ...Target) Target {
	return groupTarget(targets)
}

// Suppressor batches many independent suppression scopes into one scope.
// Scopes are entered in registration order and unwound in reverse, so nested
// overlapping suppressions restore correctly regardless of how the scope
// exits.
type Suppressor struct {
	mux    sync.Mutex
	scopes []scope
}

// CreateSuppressor create a suppressor object holding the given targets
func CreateSuppressor(targets ...Target) (*Suppressor, error) {
	s := &Suppressor{}
	if len(targets) > 0 {
		if err := s.Add(targets...); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add appends suppression targets. It fails when no argument resolves to a
// viable target.
func (s *Suppressor) Add(targets ...Target) error {
	scopes := groupTarget(targets).suppressionScopes()
	if len(scopes) == 0 {
		return errors.Wrap(ErrNoSuppressionTarget, lib.StringTags("suppressor add"))
	}
	s.mux.Lock()
	s.scopes = append(s.scopes, scopes...)
	s.mux.Unlock()
	return nil
}

// Suppress arms every added scope in order. The returned restore exits only
// the scopes that were entered, in reverse order; a panic while arming
// unwinds the already-entered scopes before propagating.
func (s *Suppressor) Suppress() (restore func()) {
	s.mux.Lock()
	scopes := make([]scope, len(s.scopes))
	copy(scopes, s.scopes)
	s.mux.Unlock()

	entered := make([]func(), 0, len(scopes))
	unwind := func() {
		for i := len(entered) - 1; i >= 0; i-- {
			entered[i]()
		}
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				unwind()
				panic(r)
			}
		}()
		for _, sc := range scopes {
			entered = append(entered, sc())
		}
	}()
	var once sync.Once
	return func() {
		once.Do(unwind)
	}
}
