package events

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestSuppressorAdd(t *testing.T) {
	t.Parallel()
	t.Run("no targets", func(t *testing.T) {
		t.Parallel()
		s, err := CreateSuppressor()
		require.Nil(t, err)
		err = s.Add()
		require.Error(t, err)
		require.Equal(t, ErrNoSuppressionTarget, errors.Cause(err))
	})
	t.Run("nil target", func(t *testing.T) {
		t.Parallel()
		s, err := CreateSuppressor()
		require.Nil(t, err)
		err = s.Add(nil)
		require.Error(t, err)
		require.Equal(t, ErrNoSuppressionTarget, errors.Cause(err))
	})
	t.Run("empty group", func(t *testing.T) {
		t.Parallel()
		_, err := CreateSuppressor(Group())
		require.Error(t, err)
		require.Equal(t, ErrNoSuppressionTarget, errors.Cause(err))
	})
	t.Run("nil pair collapses", func(t *testing.T) {
		t.Parallel()
		s, err := CreateSuppressor()
		require.Nil(t, err)
		err = s.Add(WithCallback(nil, nil))
		require.Error(t, err)
	})
	t.Run("mixed valid and nil", func(t *testing.T) {
		t.Parallel()
		e, err := CreateEvent()
		require.Nil(t, err)
		s, err := CreateSuppressor(Group(nil, e))
		require.Nil(t, err)
		require.NotNil(t, s)
	})
}

func TestSuppressorSuppress(t *testing.T) {
	t.Parallel()
	t.Run("composed targets restored", func(t *testing.T) {
		t.Parallel()
		eventA, err := CreateEvent()
		require.Nil(t, err)
		eventB, err := CreateEvent()
		require.Nil(t, err)
		container := CreateEvents()
		c, err := container.New("c")
		require.Nil(t, err)

		s, err := CreateSuppressor(eventA, eventB, container)
		require.Nil(t, err)
		restore := s.Suppress()
		require.True(t, eventA.Suppressed())
		require.True(t, eventB.Suppressed())
		require.True(t, c.Suppressed())
		restore()
		require.False(t, eventA.Suppressed())
		require.False(t, eventB.Suppressed())
		require.False(t, c.Suppressed())
	})
	t.Run("pre-suppressed target stays suppressed", func(t *testing.T) {
		t.Parallel()
		eventA, err := CreateEvent()
		require.Nil(t, err)
		eventB, err := CreateEvent()
		require.Nil(t, err)
		defer eventB.Suppress()()

		s, err := CreateSuppressor(eventA, eventB)
		require.Nil(t, err)
		restore := s.Suppress()
		restore()
		require.False(t, eventA.Suppressed())
		require.True(t, eventB.Suppressed())
	})
	t.Run("callback pair", func(t *testing.T) {
		t.Parallel()
		e, err := CreateEvent()
		require.Nil(t, err)
		muted := 0
		f := func(args []interface{}, kwargs Kwargs) { muted++ }
		others := 0
		g := func(args []interface{}, kwargs Kwargs) { others++ }
		require.Nil(t, e.Connect(f, 0))
		require.Nil(t, e.Connect(g, 0))

		s, err := CreateSuppressor(WithCallback(e, f))
		require.Nil(t, err)
		restore := s.Suppress()
		require.Nil(t, e.Trigger(nil, nil))
		require.Equal(t, 0, muted)
		require.Equal(t, 1, others)
		restore()
		require.Nil(t, e.Trigger(nil, nil))
		require.Equal(t, 1, muted)
		require.Equal(t, 2, others)
	})
	t.Run("container pair rescans on entry", func(t *testing.T) {
		t.Parallel()
		container := CreateEvents()
		early, err := container.New("early")
		require.Nil(t, err)
		count := 0
		f := func(args []interface{}, kwargs Kwargs) { count++ }
		require.Nil(t, early.Connect(f, 0))

		s, err := CreateSuppressor(WithCallbackIn(container, f))
		require.Nil(t, err)

		// registered after Add but before the scope is armed
		late, err := container.New("late")
		require.Nil(t, err)
		require.Nil(t, late.Connect(f, 0))

		restore := s.Suppress()
		require.Nil(t, early.Trigger(nil, nil))
		require.Nil(t, late.Trigger(nil, nil))
		require.Equal(t, 0, count)
		restore()
		require.Nil(t, early.Trigger(nil, nil))
		require.Nil(t, late.Trigger(nil, nil))
		require.Equal(t, 2, count)
	})
	t.Run("restore runs on panic", func(t *testing.T) {
		t.Parallel()
		e, err := CreateEvent()
		require.Nil(t, err)
		s, err := CreateSuppressor(e)
		require.Nil(t, err)
		require.Panics(t, func() {
			defer s.Suppress()()
			panic("callback error")
		})
		require.False(t, e.Suppressed())
	})
	t.Run("nested with callback suppression", func(t *testing.T) {
		t.Parallel()
		eventA, err := CreateEvent()
		require.Nil(t, err)
		eventB, err := CreateEvent()
		require.Nil(t, err)
		fCalls := 0
		f := func(args []interface{}, kwargs Kwargs) { fCalls++ }
		gCalls := 0
		g := func(args []interface{}, kwargs Kwargs) { gCalls++ }
		require.Nil(t, eventA.Connect(f, 0))
		require.Nil(t, eventA.Connect(g, 0))

		s, err := CreateSuppressor(eventA, eventB)
		require.Nil(t, err)
		outer := s.Suppress()
		inner := eventA.SuppressCallback(f)
		// container-level suppression dominates: nothing fires
		require.Nil(t, eventA.Trigger(nil, nil))
		require.Equal(t, 0, fCalls)
		require.Equal(t, 0, gCalls)
		inner()
		outer()
		require.Nil(t, eventA.Trigger(nil, nil))
		require.Equal(t, 1, fCalls)
		require.Equal(t, 1, gCalls)
	})
}
