package events

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestEventsAdd(t *testing.T) {
	t.Parallel()
	t.Run("register and get", func(t *testing.T) {
		t.Parallel()
		es := CreateEvents()
		e, err := CreateEvent()
		require.Nil(t, err)
		require.Nil(t, es.Add("data_changed", e))
		got, err := es.Get("data_changed")
		require.Nil(t, err)
		require.Equal(t, e, got)
	})
	t.Run("replace on collision", func(t *testing.T) {
		t.Parallel()
		es := CreateEvents()
		first, err := CreateEvent()
		require.Nil(t, err)
		second, err := CreateEvent()
		require.Nil(t, err)
		require.Nil(t, es.Add("changed", first))
		require.Nil(t, es.Add("changed", second))
		got, err := es.Get("changed")
		require.Nil(t, err)
		require.Equal(t, second, got)
		require.Equal(t, 1, es.Len())
	})
	t.Run("invalid name", func(t *testing.T) {
		t.Parallel()
		es := CreateEvents()
		e, err := CreateEvent()
		require.Nil(t, err)
		err = es.Add("not a name", e)
		require.Error(t, err)
		require.Equal(t, ErrInvalidArgument, errors.Cause(err))
	})
	t.Run("nil event", func(t *testing.T) {
		t.Parallel()
		es := CreateEvents()
		err := es.Add("changed", nil)
		require.Error(t, err)
		require.Equal(t, ErrInvalidArgument, errors.Cause(err))
	})
}

func TestEventsNew(t *testing.T) {
	t.Parallel()
	es := CreateEvents()
	e, err := es.New("axes_changed", SetDocOption("fires on any axis change"))
	require.Nil(t, err)
	require.NotNil(t, e)
	got, err := es.Get("axes_changed")
	require.Nil(t, err)
	require.Equal(t, e, got)

	_, err = es.New("bad name")
	require.Error(t, err)
}

func TestEventsGet(t *testing.T) {
	t.Parallel()
	es := CreateEvents()
	_, err := es.Get("missing")
	require.Error(t, err)
	require.Equal(t, ErrEventNotFound, errors.Cause(err))

	require.Panics(t, func() {
		es.MustGet("missing")
	})
}

func TestEventsRemove(t *testing.T) {
	t.Parallel()
	es := CreateEvents()
	_, err := es.New("changed")
	require.Nil(t, err)
	es.Remove("changed")
	_, err = es.Get("changed")
	require.Error(t, err)
	// unknown names are ignored
	es.Remove("changed")
}

func TestEventsNames(t *testing.T) {
	t.Parallel()
	es := CreateEvents()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := es.New(name)
		require.Nil(t, err)
	}
	require.Equal(t, []string{"alpha", "mid", "zeta"}, es.Names())
	require.Len(t, es.AllEvents(), 3)
}

func TestEventsDoc(t *testing.T) {
	t.Parallel()
	es := CreateEvents()
	_, err := es.New("data_changed",
		SetDocOption("fires when the data buffer mutates\n\nlong tail"))
	require.Nil(t, err)
	doc := es.Doc()
	require.Contains(t, doc, "data_changed")
	require.Contains(t, doc, "fires when the data buffer mutates")
	require.NotContains(t, doc, "long tail")
}

func TestEventsSuppress(t *testing.T) {
	t.Parallel()
	t.Run("all events muted inside the scope", func(t *testing.T) {
		t.Parallel()
		es := CreateEvents()
		a, err := es.New("a")
		require.Nil(t, err)
		b, err := es.New("b")
		require.Nil(t, err)
		count := 0
		cb := func(args []interface{}, kwargs Kwargs) { count++ }
		require.Nil(t, a.Connect(cb, 0))
		require.Nil(t, b.Connect(cb, 0))

		restore := es.Suppress()
		require.Nil(t, a.Trigger(nil, nil))
		require.Nil(t, b.Trigger(nil, nil))
		require.Equal(t, 0, count)
		restore()
		require.Nil(t, a.Trigger(nil, nil))
		require.Nil(t, b.Trigger(nil, nil))
		require.Equal(t, 2, count)
	})
	t.Run("individual prior state restored", func(t *testing.T) {
		t.Parallel()
		es := CreateEvents()
		a, err := es.New("a")
		require.Nil(t, err)
		b, err := es.New("b")
		require.Nil(t, err)
		// a was suppressed before the container scope was entered
		defer a.Suppress()()
		restore := es.Suppress()
		restore()
		require.True(t, a.Suppressed())
		require.False(t, b.Suppressed())
	})
	t.Run("events added after entry are untouched", func(t *testing.T) {
		t.Parallel()
		es := CreateEvents()
		_, err := es.New("a")
		require.Nil(t, err)
		restore := es.Suppress()
		late, err := es.New("late")
		require.Nil(t, err)
		require.False(t, late.Suppressed())
		restore()
		require.False(t, late.Suppressed())
	})
}
