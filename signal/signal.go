package signal

import (
	"github.com/pkg/errors"

	"github.com/din14970/hyperspy/events"
	lib "github.com/din14970/hyperspy/library"
)

// Event names registered on every signal.
const (
	EventDataChanged = "data_changed"
	EventAxesChanged = "axes_changed"
	// EventAnyAxisChanged is registered on the axes manager and republishes
	// the changed event of every owned axis.
	EventAnyAxisChanged = "any_axis_changed"
)

// AxesManager owns the ordered axes of a signal and republishes their change
// notifications as a single any_axis_changed event.
type AxesManager struct {
	axes   []*Axis
	events *events.Events
}

// CreateAxesManager create an axes manager over the given axes
func CreateAxesManager(axes ...*Axis) (*AxesManager, error) {
	if len(axes) == 0 {
		return nil, errors.New("axes manager needs at least one axis")
	}
	m := &AxesManager{axes: axes, events: events.CreateEvents()}
	_, err := m.events.New(EventAnyAxisChanged,
		events.SetDocOption("fires after any owned axis mutates"),
		events.SetArgumentsOption(events.Arg("obj")),
	)
	if err != nil {
		return nil, errors.Wrap(err, lib.StringTags("create axes manager", "register events"))
	}
	for _, a := range axes {
		if a == nil {
			return nil, errors.New("nil axis")
		}
		if err = a.Events().MustGet(EventAxisChanged).Connect(m.onAxisChanged, events.All); err != nil {
			return nil, errors.Wrap(err, lib.StringTags("create axes manager", "connect axis"))
		}
	}
	return m, nil
}

func (m *AxesManager) onAxisChanged(args []interface{}, kwargs map[string]interface{}) {
	// the originating trigger call cannot observe a forwarding failure
	_ = m.events.MustGet(EventAnyAxisChanged).Trigger(args, kwargs)
}

// Events returns the manager events container
func (m *AxesManager) Events() *events.Events {
	return m.events
}

// Len returns the number of axes
func (m *AxesManager) Len() int {
	return len(m.axes)
}

// Axis returns the axis of dimension i
func (m *AxesManager) Axis(i int) (*Axis, error) {
	if i < 0 || i >= len(m.axes) {
		return nil, errors.Errorf("axis %d out of range [0, %d)", i, len(m.axes))
	}
	return m.axes[i], nil
}

// CreateSignalOptions create signal options
type CreateSignalOptions func(*SignalConfig) error

// SignalConfig defines signal properties
type SignalConfig struct {
	Name string
	Axes []*Axis
}

// SetSignalNameOption set signal name option
func SetSignalNameOption(name string) CreateSignalOptions {
	return func(config *SignalConfig) error {
		config.Name = name
		return nil
	}
}

// SetAxesOption supplies calibrated axes instead of the defaults. One axis
// per dimension, sizes matching the shape.
func SetAxesOption(axes ...*Axis) CreateSignalOptions {
	return func(config *SignalConfig) error {
		config.Axes = axes
		return nil
	}
}

// Signal is a multidimensional dataset: a row-major data buffer plus the
// axes describing each dimension. Mutations fire data_changed; axis
// calibration changes surface as axes_changed.
type Signal struct {
	name   string
	data   []float64
	shape  []int
	axes   *AxesManager
	events *events.Events
}

// CreateSignal create a signal holding data with the given shape
func CreateSignal(data []float64, shape []int, options ...CreateSignalOptions) (*Signal, error) {
	if len(shape) == 0 {
		return nil, errors.New("signal shape cannot be empty")
	}
	n := 1
	for _, dim := range shape {
		if dim <= 0 {
			return nil, errors.Errorf("shape dimension must be positive, got %d", dim)
		}
		n *= dim
	}
	if n != len(data) {
		return nil, errors.Errorf("data length %d does not match shape (%d elements)",
			len(data), n)
	}
	config := SignalConfig{}
	for _, op := range options {
		if err := op(&config); err != nil {
			return nil, errors.Wrap(err, lib.StringTags("create signal", "option error"))
		}
	}
	axes := config.Axes
	if axes == nil {
		axes = make([]*Axis, len(shape))
		for i, dim := range shape {
			a, err := CreateAxis(dim)
			if err != nil {
				return nil, errors.Wrap(err, lib.StringTags("create signal", "default axis"))
			}
			axes[i] = a
		}
	}
	if len(axes) != len(shape) {
		return nil, errors.Errorf("got %d axes for %d dimensions", len(axes), len(shape))
	}
	for i, a := range axes {
		if a == nil {
			return nil, errors.New("nil axis")
		}
		if a.Size() != shape[i] {
			return nil, errors.Errorf("axis %d size %d does not match shape dimension %d",
				i, a.Size(), shape[i])
		}
	}
	manager, err := CreateAxesManager(axes...)
	if err != nil {
		return nil, errors.Wrap(err, lib.StringTags("create signal", "axes manager"))
	}

	s := &Signal{
		name:   config.Name,
		data:   append([]float64(nil), data...),
		shape:  append([]int(nil), shape...),
		axes:   manager,
		events: events.CreateEvents(),
	}
	_, err = s.events.New(EventDataChanged,
		events.SetDocOption("fires after the data buffer mutates"),
		events.SetArgumentsOption(events.Arg("obj")),
	)
	if err != nil {
		return nil, errors.Wrap(err, lib.StringTags("create signal", "register events"))
	}
	_, err = s.events.New(EventAxesChanged,
		events.SetDocOption("fires after any axis of the signal mutates"),
		events.SetArgumentsOption(events.Arg("obj")),
	)
	if err != nil {
		return nil, errors.Wrap(err, lib.StringTags("create signal", "register events"))
	}
	err = manager.Events().MustGet(EventAnyAxisChanged).Connect(s.onAxesChanged, events.All)
	if err != nil {
		return nil, errors.Wrap(err, lib.StringTags("create signal", "connect axes"))
	}
	return s, nil
}

func (s *Signal) onAxesChanged(args []interface{}, kwargs map[string]interface{}) {
	_ = s.events.MustGet(EventAxesChanged).Trigger(nil, events.Kwargs{"obj": s})
}

// Events returns the signal events container
func (s *Signal) Events() *events.Events {
	return s.events
}

// Axes returns the signal axes manager
func (s *Signal) Axes() *AxesManager {
	return s.axes
}

// Name returns the signal name
func (s *Signal) Name() string {
	return s.name
}

// Shape returns a copy of the signal dimensions
func (s *Signal) Shape() []int {
	return append([]int(nil), s.shape...)
}

// Data returns the row-major data buffer. The slice is the live buffer;
// mutate through SetData or SetAt so listeners are notified.
func (s *Signal) Data() []float64 {
	return s.data
}

// SetData replaces the whole data buffer and fires data_changed.
func (s *Signal) SetData(data []float64) error {
	if len(data) != len(s.data) {
		return errors.Errorf("data length %d does not match signal size %d",
			len(data), len(s.data))
	}
	copy(s.data, data)
	return s.dataChanged()
}

// At returns the value at the given indices.
func (s *Signal) At(indices ...int) (float64, error) {
	i, err := s.flatIndex(indices)
	if err != nil {
		return 0, err
	}
	return s.data[i], nil
}

// SetAt writes one value and fires data_changed.
func (s *Signal) SetAt(value float64, indices ...int) error {
	i, err := s.flatIndex(indices)
	if err != nil {
		return err
	}
	s.data[i] = value
	return s.dataChanged()
}

// Apply maps fn over every element and fires data_changed once.
func (s *Signal) Apply(fn func(float64) float64) error {
	if fn == nil {
		return errors.New("nil function")
	}
	for i, v := range s.data {
		s.data[i] = fn(v)
	}
	return s.dataChanged()
}

// Update runs fn with data_changed suppressed and fires it once afterwards,
// so a batch of mutations produces a single notification instead of a storm.
// If fn fails nothing is fired and the error is returned.
func (s *Signal) Update(fn func(*Signal) error) error {
	if fn == nil {
		return errors.New("nil function")
	}
	err := func() error {
		defer s.events.MustGet(EventDataChanged).Suppress()()
		return fn(s)
	}()
	if err != nil {
		return errors.Wrap(err, lib.StringTags("update signal"))
	}
	return s.dataChanged()
}

func (s *Signal) dataChanged() error {
	return s.events.MustGet(EventDataChanged).Trigger(nil, events.Kwargs{"obj": s})
}

func (s *Signal) flatIndex(indices []int) (int, error) {
	if len(indices) != len(s.shape) {
		return 0, errors.Errorf("got %d indices for %d dimensions",
			len(indices), len(s.shape))
	}
	flat := 0
	for dim, index := range indices {
		if index < 0 || index >= s.shape[dim] {
			return 0, errors.Errorf("index %d out of range [0, %d) in dimension %d",
				index, s.shape[dim], dim)
		}
		flat = flat*s.shape[dim] + index
	}
	return flat, nil
}
