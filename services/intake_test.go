package services

import (
	"testing"

	"card-battle-engine/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntakeAcceptsMatchmakingHandoff(t *testing.T) {
	e := newTestEngine(t)
	intake := NewIntakeService(e.db, e.policy)

	m, err := intake.Accept(MatchIntake{
		PlayerA:            "p1",
		PlayerB:            "bot:trainer-7",
		FirstTurnOwner:     "p1",
		TurnTimeoutSeconds: 30,
		EntryFee:           10,
	})
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusActive, m.Status)
	assert.Equal(t, "p1", m.CurrentTurnOwner)
	assert.Equal(t, 0, m.TimeoutWarningsA)
	assert.Equal(t, 0, m.TimeoutWarningsB)
	assert.Equal(t, e.policy.DefaultPlayerHP, m.PlayerAHP)
	assert.Equal(t, e.policy.DefaultPlayerHP, m.PlayerBHP)
	require.NotNil(t, m.TurnStartedAt, "first turn clock starts at intake")

	// immediately sweepable, but nothing to do yet
	out := e.sweeper.CheckOne(m.ID)
	assert.Equal(t, SweepNotTimedOut, out.Status)
}

func TestIntakeValidation(t *testing.T) {
	e := newTestEngine(t)
	intake := NewIntakeService(e.db, e.policy)

	cases := []struct {
		name string
		in   MatchIntake
	}{
		{"same participant twice", MatchIntake{PlayerA: "p1", PlayerB: "p1", TurnTimeoutSeconds: 30}},
		{"missing participant", MatchIntake{PlayerA: "p1", TurnTimeoutSeconds: 30}},
		{"zero timeout", MatchIntake{PlayerA: "p1", PlayerB: "p2"}},
		{"negative fee", MatchIntake{PlayerA: "p1", PlayerB: "p2", TurnTimeoutSeconds: 30, EntryFee: -1}},
		{"foreign turn owner", MatchIntake{PlayerA: "p1", PlayerB: "p2", TurnTimeoutSeconds: 30, FirstTurnOwner: "p3"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := intake.Accept(tc.in)
			assert.Error(t, err)
		})
	}
}

func TestIntakeRejectsDuplicateMatchID(t *testing.T) {
	e := newTestEngine(t)
	intake := NewIntakeService(e.db, e.policy)

	in := MatchIntake{ID: "fixed-id", PlayerA: "p1", PlayerB: "p2", TurnTimeoutSeconds: 30}
	_, err := intake.Accept(in)
	require.NoError(t, err)

	_, err = intake.Accept(in)
	assert.Error(t, err)
}
