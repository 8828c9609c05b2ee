// Package signal holds the minimal multidimensional dataset objects of the
// toolkit: a data buffer plus calibrated axes, each wired to an events
// container so independent parts of an application can react to state
// changes without coupling to the owner.
package signal

import (
	"github.com/pkg/errors"

	"github.com/din14970/hyperspy/events"
	lib "github.com/din14970/hyperspy/library"
)

// EventAxisChanged fires after any calibration field of an axis mutates.
const EventAxisChanged = "changed"

// CreateAxisOptions create axis options
type CreateAxisOptions func(*AxisConfig) error

// AxisConfig defines axis properties
type AxisConfig struct {
	Name   string
	Units  string
	Scale  float64
	Offset float64
}

// SetNameOption set axis name option
func SetNameOption(name string) CreateAxisOptions {
	return func(config *AxisConfig) error {
		config.Name = name
		return nil
	}
}

// SetUnitsOption set axis units option
func SetUnitsOption(units string) CreateAxisOptions {
	return func(config *AxisConfig) error {
		config.Units = units
		return nil
	}
}

// SetScaleOption set axis scale option
func SetScaleOption(scale float64) CreateAxisOptions {
	return func(config *AxisConfig) error {
		if scale == 0 {
			return errors.New("axis scale cannot be zero")
		}
		config.Scale = scale
		return nil
	}
}

// SetOffsetOption set axis offset option
func SetOffsetOption(offset float64) CreateAxisOptions {
	return func(config *AxisConfig) error {
		config.Offset = offset
		return nil
	}
}

// Axis describes one dimension of a signal: a uniform mapping from index to
// calibrated value. Every calibration change fires the axis "changed" event
// with the axis as the obj argument.
type Axis struct {
	size   int
	name   string
	units  string
	scale  float64
	offset float64
	events *events.Events
}

// CreateAxis create an axis of the given size
func CreateAxis(size int, options ...CreateAxisOptions) (*Axis, error) {
	if size <= 0 {
		return nil, errors.Errorf("axis size must be positive, got %d", size)
	}
	config := AxisConfig{Scale: 1}
	for _, op := range options {
		if err := op(&config); err != nil {
			return nil, errors.Wrap(err, lib.StringTags("create axis", "option error"))
		}
	}
	a := &Axis{
		size:   size,
		name:   config.Name,
		units:  config.Units,
		scale:  config.Scale,
		offset: config.Offset,
		events: events.CreateEvents(),
	}
	_, err := a.events.New(EventAxisChanged,
		events.SetDocOption("fires after any calibration field of the axis mutates"),
		events.SetArgumentsOption(events.Arg("obj")),
	)
	if err != nil {
		return nil, errors.Wrap(err, lib.StringTags("create axis", "register events"))
	}
	return a, nil
}

// Events returns the axis events container
func (a *Axis) Events() *events.Events {
	return a.events
}

// Size returns the number of points on the axis
func (a *Axis) Size() int {
	return a.size
}

// Name returns the axis name
func (a *Axis) Name() string {
	return a.name
}

// Units returns the axis units
func (a *Axis) Units() string {
	return a.units
}

// Scale returns the distance between two consecutive axis points
func (a *Axis) Scale() float64 {
	return a.scale
}

// Offset returns the calibrated value of the first axis point
func (a *Axis) Offset() float64 {
	return a.offset
}

// Value returns the calibrated value at index
func (a *Axis) Value(index int) (float64, error) {
	if index < 0 || index >= a.size {
		return 0, errors.Errorf("index %d out of range [0, %d)", index, a.size)
	}
	return a.offset + a.scale*float64(index), nil
}

// SetName renames the axis
func (a *Axis) SetName(name string) error {
	a.name = name
	return a.changed()
}

// SetUnits sets the axis units
func (a *Axis) SetUnits(units string) error {
	a.units = units
	return a.changed()
}

// SetScale sets the distance between two consecutive axis points
func (a *Axis) SetScale(scale float64) error {
	if scale == 0 {
		return errors.New("axis scale cannot be zero")
	}
	a.scale = scale
	return a.changed()
}

// SetOffset sets the calibrated value of the first axis point
func (a *Axis) SetOffset(offset float64) error {
	a.offset = offset
	return a.changed()
}

func (a *Axis) changed() error {
	return a.events.MustGet(EventAxisChanged).Trigger(nil, events.Kwargs{"obj": a})
}
