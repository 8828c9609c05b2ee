// Package events implements the notification core of the toolkit: named
// notification channels with per-callback argument selection and composable,
// nested suppression. Stateful objects own an Events container, register the
// events relevant to their own state changes and call Trigger at mutation
// points; interested parties connect callbacks without coupling to the owner.
package events

import (
	"fmt"
	"sort"
	"sync"
	"unsafe"

	"github.com/pkg/errors"

	lib "github.com/din14970/hyperspy/library"
)

// Arity selects how many positional arguments a connected callback receives
// when the event triggers.
type Arity int

// All passes every positional and keyword argument to the callback verbatim.
const All Arity = -1

// Callback is the signature of functions connected to an Event. Callbacks
// connected with an integer arity receive exactly that many positional
// arguments and nil kwargs; callbacks connected with All receive the trigger
// arguments untouched.
type Callback func(args []interface{}, kwargs map[string]interface{})

// Kwargs is the keyword argument set passed to Trigger.
type Kwargs = map[string]interface{}

// Args builds a positional argument list for Trigger.
func Args(values ...interface{}) []interface{} {
	return values
}

// Handler is a connectable callback object that reports its own argument
// count. NArgs returning ok == false means the handler takes every argument.
// Handler values must be comparable (pointer receivers are) since they key
// the registration.
type Handler interface {
	Handle(args []interface{}, kwargs map[string]interface{})
	NArgs() (n int, ok bool)
}

// Argument describes one formal argument of an event's fixed trigger
// signature.
type Argument struct {
	Name       string
	Default    interface{}
	HasDefault bool
}

// Arg builds a required trigger argument.
func Arg(name string) Argument {
	return Argument{Name: name}
}

// ArgDefault builds a trigger argument with a default value.
func ArgDefault(name string, def interface{}) Argument {
	return Argument{Name: name, Default: def, HasDefault: true}
}

// CreateEventOptions set create event options
type CreateEventOptions func(*EventConfig) error

// EventConfig defines event properties
type EventConfig struct {
	Doc       string
	Arguments []Argument
}

// SetDocOption sets the event documentation string option
func SetDocOption(doc string) CreateEventOptions {
	return func(config *EventConfig) error {
		config.Doc = doc
		return nil
	}
}

// SetArgumentsOption fixes the trigger signature of the event. Once set,
// every Trigger call must match the signature, not just the first.
func SetArgumentsOption(args ...Argument) CreateEventOptions {
	return func(config *EventConfig) error {
		config.Arguments = args
		return nil
	}
}

// Event is a single named notification channel: a set of connected callbacks
// keyed by arity selector, a suppression flag and an optional fixed trigger
// signature. Identity is object identity; the name belongs to the container.
// Use CreateEvent, the zero value is not usable.
type Event struct {
	mux        sync.RWMutex
	doc        string
	arguments  []Argument
	connected  map[Arity]map[interface{}]Callback
	suppressed bool
	streams    *hub
}

// CreateEvent create an event object
func CreateEvent(options ...CreateEventOptions) (*Event, error) {
	config := EventConfig{}
	for _, op := range options {
		if err := op(&config); err != nil {
			return nil, errors.Wrap(err, lib.StringTags("create event", "option error"))
		}
	}
	if err := validateArguments(config.Arguments); err != nil {
		return nil, errors.Wrap(err, lib.StringTags("create event", "arguments"))
	}
	return &Event{
		doc:       config.Doc,
		arguments: config.Arguments,
		connected: make(map[Arity]map[interface{}]Callback),
	}, nil
}

func validateArguments(args []Argument) error {
	seenDefault := false
	seenName := make(map[string]struct{}, len(args))
	for _, a := range args {
		if !lib.IsIdentifier(a.Name) {
			return errors.Wrapf(ErrInvalidArgument, "argument name invalid: %q", a.Name)
		}
		if _, ok := seenName[a.Name]; ok {
			return errors.Wrapf(ErrInvalidArgument, "duplicate argument name %q", a.Name)
		}
		seenName[a.Name] = struct{}{}
		if a.HasDefault {
			seenDefault = true
		} else if seenDefault {
			return errors.Wrapf(ErrInvalidArgument,
				"non-default argument %q follows default argument", a.Name)
		}
	}
	return nil
}

// Doc returns the event documentation string
func (e *Event) Doc() string {
	return e.doc
}

// Arguments returns a copy of the fixed trigger signature, nil if the event
// accepts anything.
func (e *Event) Arguments() []Argument {
	if e.arguments == nil {
		return nil
	}
	out := make([]Argument, len(e.arguments))
	copy(out, e.arguments)
	return out
}

// Copy returns an event with the same documentation and signature but no
// connections and no suppression. Connections are instance wiring, not
// cloneable state.
func (e *Event) Copy() *Event {
	return &Event{
		doc:       e.doc,
		arguments: e.arguments,
		connected: make(map[Arity]map[interface{}]Callback),
	}
}

// Callbacks are keyed by the address of the func value itself, not its code
// pointer: method values bound to different receivers and closures built
// from one literal are independent subscriptions. The registry keeps the
// callback alive, so keys stay unique among live registrations. Disconnect
// and SuppressCallback match only the exact value handed to Connect; hold
// on to it.
func callbackKey(cb Callback) interface{} {
	return *(*uintptr)(unsafe.Pointer(&cb))
}

// Connect registers callback under the given arity selector. Connecting the
// same callback under the same selector again is a no-op; connecting it
// under a different selector creates an independent subscription.
func (e *Event) Connect(cb Callback, arity Arity) error {
	if cb == nil {
		return errors.Wrap(ErrNotCallable, lib.StringTags("connect"))
	}
	if arity < All {
		return errors.Wrapf(ErrInvalidArgument, "arity %d out of range", arity)
	}
	e.addKey(callbackKey(cb), cb, arity)
	return nil
}

// ConnectHandler connects h.Handle under the arity h reports. This is the
// capability-query replacement for callback signature reflection.
func (e *Event) ConnectHandler(h Handler) error {
	if h == nil {
		return errors.Wrap(ErrNotCallable, lib.StringTags("connect handler"))
	}
	arity := All
	if n, ok := h.NArgs(); ok {
		if n < 0 {
			return errors.Wrapf(ErrInvalidArgument, "handler arity %d out of range", n)
		}
		arity = Arity(n)
	}
	e.addKey(h, h.Handle, arity)
	return nil
}

func (e *Event) addKey(key interface{}, cb Callback, arity Arity) {
	e.mux.Lock()
	defer e.mux.Unlock()
	set, ok := e.connected[arity]
	if !ok {
		set = make(map[interface{}]Callback)
		e.connected[arity] = set
	}
	set[key] = cb
}

// Disconnect removes callback from every arity selector it is registered
// under, regardless of which selector it was connected with. Not an error if
// the callback is not connected.
func (e *Event) Disconnect(cb Callback) {
	if cb == nil {
		return
	}
	e.removeKey(callbackKey(cb))
}

// DisconnectHandler removes a connected Handler from every selector.
func (e *Event) DisconnectHandler(h Handler) {
	if h == nil {
		return
	}
	e.removeKey(h)
}

func (e *Event) removeKey(key interface{}) map[Arity]Callback {
	e.mux.Lock()
	defer e.mux.Unlock()
	found := make(map[Arity]Callback)
	for arity, set := range e.connected {
		if cb, ok := set[key]; ok {
			found[arity] = cb
			delete(set, key)
			if len(set) == 0 {
				delete(e.connected, arity)
			}
		}
	}
	return found
}

// Connected returns the callbacks registered under arity.
func (e *Event) Connected(arity Arity) []Callback {
	e.mux.RLock()
	defer e.mux.RUnlock()
	set := e.connected[arity]
	out := make([]Callback, 0, len(set))
	for _, cb := range set {
		out = append(out, cb)
	}
	return out
}

// ConnectedAll returns the union of callbacks across every arity selector. A
// callback registered under several selectors appears once.
func (e *Event) ConnectedAll() []Callback {
	e.mux.RLock()
	defer e.mux.RUnlock()
	seen := make(map[interface{}]struct{})
	var out []Callback
	for _, set := range e.connected {
		for key, cb := range set {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, cb)
		}
	}
	return out
}

// Suppressed reports the current suppression flag.
func (e *Event) Suppressed() bool {
	e.mux.RLock()
	defer e.mux.RUnlock()
	return e.suppressed
}

// Suppress turns the event off until the returned restore function runs.
// Restore puts back the flag value seen at entry, so nested scopes unwind
// correctly whichever way the scope exits. Use with defer:
//
//	defer e.Suppress()()
func (e *Event) Suppress() (restore func()) {
	e.mux.Lock()
	old := e.suppressed
	e.suppressed = true
	e.mux.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			e.mux.Lock()
			e.suppressed = old
			e.mux.Unlock()
		})
	}
}

// SuppressCallback disconnects exactly cb until the returned restore
// function runs, then reconnects it under the same selectors it held. Other
// callbacks trigger as normal inside the scope; a no-op scope if cb is not
// connected.
func (e *Event) SuppressCallback(cb Callback) (restore func()) {
	if cb == nil {
		return func() {}
	}
	return e.suppressKey(callbackKey(cb))
}

// SuppressHandler is SuppressCallback for connected Handler objects.
func (e *Event) SuppressHandler(h Handler) (restore func()) {
	if h == nil {
		return func() {}
	}
	return e.suppressKey(h)
}

func (e *Event) suppressKey(key interface{}) func() {
	found := e.removeKey(key)
	var once sync.Once
	return func() {
		once.Do(func() {
			if len(found) == 0 {
				return
			}
			e.mux.Lock()
			defer e.mux.Unlock()
			for arity, cb := range found {
				set, ok := e.connected[arity]
				if !ok {
					set = make(map[interface{}]Callback)
					e.connected[arity] = set
				}
				set[key] = cb
			}
		})
	}
}

// Trigger fires the event. It does nothing while the event is suppressed.
// Callbacks are invoked against a snapshot of the registry taken at call
// start, so a callback that changes connections mid-trigger does not affect
// the in-flight invocation; argument errors surface before any callback
// runs. On events with a fixed signature the arguments are validated against
// it and unsupplied defaults are added to the keyword set.
func (e *Event) Trigger(args []interface{}, kwargs map[string]interface{}) error {
	e.mux.RLock()
	if e.suppressed {
		e.mux.RUnlock()
		return nil
	}
	snapshot := make(map[Arity][]Callback, len(e.connected))
	for arity, set := range e.connected {
		cbs := make([]Callback, 0, len(set))
		for _, cb := range set {
			cbs = append(cbs, cb)
		}
		snapshot[arity] = cbs
	}
	declared := e.arguments
	streams := e.streams
	e.mux.RUnlock()

	if declared != nil {
		completed, err := bindArguments(declared, args, kwargs)
		if err != nil {
			return errors.Wrap(err, lib.StringTags("trigger"))
		}
		kwargs = completed
	}

	resolved := make(map[Arity][]interface{}, len(snapshot))
	for arity := range snapshot {
		if arity == All {
			continue
		}
		positional, err := fillPositional(declared, args, kwargs, int(arity))
		if err != nil {
			return errors.Wrap(err, lib.StringTags("trigger"))
		}
		resolved[arity] = positional
	}

	// every receiver gets its own copies, so a callback that mutates its
	// arguments cannot change what later callbacks or stream readers see
	for _, arity := range sortedArities(snapshot) {
		for _, cb := range snapshot[arity] {
			if arity == All {
				cb(copyArgs(args), copyKwargs(kwargs))
			} else {
				cb(copyArgs(resolved[arity]), nil)
			}
		}
	}
	if streams != nil {
		streams.publish(Notification{Args: copyArgs(args), Kwargs: copyKwargs(kwargs)})
	}
	return nil
}

func copyArgs(args []interface{}) []interface{} {
	if args == nil {
		return nil
	}
	out := make([]interface{}, len(args))
	copy(out, args)
	return out
}

func copyKwargs(kwargs map[string]interface{}) map[string]interface{} {
	if kwargs == nil {
		return nil
	}
	out := make(map[string]interface{}, len(kwargs))
	for k, v := range kwargs {
		out[k] = v
	}
	return out
}

// bindArguments checks args/kwargs against the declared signature and
// returns the keyword set completed with unsupplied defaults. Positional
// arguments cover the leading declared names.
func bindArguments(declared []Argument, args []interface{},
	kwargs map[string]interface{}) (map[string]interface{}, error) {
	if len(args) > len(declared) {
		return nil, errors.Wrapf(ErrSignatureMismatch,
			"takes at most %d arguments (%d given)", len(declared), len(args))
	}
	index := make(map[string]int, len(declared))
	for i, a := range declared {
		index[a.Name] = i
	}
	for name := range kwargs {
		i, ok := index[name]
		if !ok {
			return nil, errors.Wrapf(ErrSignatureMismatch,
				"unexpected keyword argument %q", name)
		}
		if i < len(args) {
			return nil, errors.Wrapf(ErrSignatureMismatch,
				"got multiple values for argument %q", name)
		}
	}
	completed := make(map[string]interface{}, len(declared))
	for name, v := range kwargs {
		completed[name] = v
	}
	for i, a := range declared {
		if i < len(args) {
			continue
		}
		if _, ok := completed[a.Name]; ok {
			continue
		}
		if !a.HasDefault {
			return nil, errors.Wrapf(ErrInsufficientArguments,
				"missing required argument %q", a.Name)
		}
		completed[a.Name] = a.Default
	}
	return completed, nil
}

// fillPositional assembles exactly n positional arguments for an
// integer-arity callback. Missing positionals are backfilled from kwargs by
// the event's declared argument names in declaration order, never by
// inspecting the callback.
func fillPositional(declared []Argument, args []interface{},
	kwargs map[string]interface{}, n int) ([]interface{}, error) {
	if len(args) >= n {
		return args[:n], nil
	}
	filled := make([]interface{}, len(args), n)
	copy(filled, args)
	for i := len(args); i < len(declared) && len(filled) < n; i++ {
		if v, ok := kwargs[declared[i].Name]; ok {
			filled = append(filled, v)
		}
	}
	if len(filled) < n {
		return nil, errors.Wrapf(ErrInsufficientArguments,
			"callback requires %d arguments, %d positional and %d keyword supplied",
			n, len(args), len(kwargs))
	}
	return filled, nil
}

// sortedArities orders the snapshot selectors deterministically, All first.
func sortedArities(snapshot map[Arity][]Callback) []Arity {
	arities := make([]Arity, 0, len(snapshot))
	for arity := range snapshot {
		arities = append(arities, arity)
	}
	sort.Slice(arities, func(i, j int) bool { return arities[i] < arities[j] })
	return arities
}

func (e *Event) String() string {
	e.mux.RLock()
	defer e.mux.RUnlock()
	n := 0
	for _, set := range e.connected {
		n += len(set)
	}
	return fmt.Sprintf("<events.Event: %d connected, suppressed=%t>", n, e.suppressed)
}
