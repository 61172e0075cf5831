package workflow

import (
	"testing"

	"github.com/AhmedB2023/ecommerce-backend/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type light string
type signal string

const (
	red    light = "red"
	green  light = "green"
	yellow light = "yellow"
	broken light = "broken"

	next  signal = "next"
	smash signal = "smash"
	check signal = "check"
)

func newLights() *Machine[light, signal] {
	return New("light",
		Transition[light, signal]{From: red, Event: next, To: green},
		Transition[light, signal]{From: green, Event: next, To: yellow},
		Transition[light, signal]{From: yellow, Event: next, To: red},
		Transition[light, signal]{From: red, Event: smash, To: broken},
		Transition[light, signal]{From: green, Event: smash, To: broken},
		Transition[light, signal]{From: broken, Event: check, To: broken},
	)
}

func TestMachine_Next(t *testing.T) {
	m := newLights()

	testCases := []struct {
		name    string
		from    light
		event   signal
		want    light
		wantErr bool
	}{
		{"listed transition", red, next, green, false},
		{"another listed transition", green, smash, broken, false},
		{"self loop", broken, check, broken, false},
		{"unlisted pair", yellow, smash, "", true},
		{"unknown state", light("blue"), next, "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := m.Next(tc.from, tc.event)
			if tc.wantErr {
				require.ErrorIs(t, err, apperrors.ErrInvalidTransition)

				var te *apperrors.TransitionError
				require.ErrorAs(t, err, &te)
				assert.Equal(t, "light", te.Entity)
				assert.Equal(t, string(tc.from), te.From)
				assert.Equal(t, string(tc.event), te.Event)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.True(t, m.Can(tc.from, tc.event))
		})
	}
}

func TestMachine_EventsAndTerminal(t *testing.T) {
	m := newLights()

	assert.Equal(t, []signal{next, smash}, m.Events(red))
	assert.Empty(t, m.Events(light("blue")))

	events := m.Events(red)
	events[0] = check
	assert.Equal(t, []signal{next, smash}, m.Events(red), "Events must return a copy")

	assert.False(t, m.Terminal(red))
	assert.True(t, m.Terminal(broken))
	assert.True(t, m.Terminal(light("blue")))
}

func TestNew_ConflictingTargetsPanics(t *testing.T) {
	assert.Panics(t, func() {
		New("light",
			Transition[light, signal]{From: red, Event: next, To: green},
			Transition[light, signal]{From: red, Event: next, To: yellow},
		)
	})

	assert.NotPanics(t, func() {
		New("light",
			Transition[light, signal]{From: red, Event: next, To: green},
			Transition[light, signal]{From: red, Event: next, To: green},
		)
	})
}
