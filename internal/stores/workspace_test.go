package stores

import (
	"context"
	"testing"

	"healthbridge-server/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRegistry(t *testing.T) (*notify.Recorder, *Registry) {
	rec := &notify.Recorder{}
	reg := NewRegistry(RegistryConfig{
		Notifier: rec,
		Timing:   Timing{Emergency: longTiming},
		Options:  testOptions(newFakeClock(testNow)),
	})
	t.Cleanup(func() { _ = reg.Close() })
	return rec, reg
}

func TestRegistry_ForIsolatesUsers(t *testing.T) {
	_, reg := setupRegistry(t)

	alice, err := reg.For("alice")
	require.NoError(t, err)
	again, err := reg.For("alice")
	require.NoError(t, err)
	assert.Same(t, alice, again)

	bob, err := reg.For("bob")
	require.NoError(t, err)
	assert.NotSame(t, alice, bob)

	require.NoError(t, alice.Medications.DeleteMedication("1"))
	assert.Len(t, alice.Medications.Medications(), 1)
	assert.Len(t, bob.Medications.Medications(), 2)

	var seen []string
	reg.Each(func(ws *Workspace) { seen = append(seen, ws.UserID) })
	assert.ElementsMatch(t, []string{"alice", "bob"}, seen)
}

func TestRegistry_DefaultSeed(t *testing.T) {
	_, reg := setupRegistry(t)

	ws, err := reg.For("u1")
	require.NoError(t, err)
	assert.Len(t, ws.Appointments.Past(), 1)
	assert.Empty(t, ws.Appointments.Upcoming())
	assert.Len(t, ws.Emergency.Contacts(), 2)
	assert.Len(t, ws.Medications.Pharmacies(), 2)
	assert.Equal(t, "en-US", ws.Voice.Settings().Language)
	assert.Len(t, reg.Doctors().Search("", ""), 5)
}

func TestRegistry_RelaysThroughNotifier(t *testing.T) {
	rec, reg := setupRegistry(t)

	ws, err := reg.For("u1")
	require.NoError(t, err)
	_, err = ws.Voice.Speak(context.Background(), "hello")
	require.NoError(t, err)

	sent := rec.Sent()
	require.NotEmpty(t, sent)
	assert.Equal(t, "u1", sent[len(sent)-1].UserID)
	assert.Equal(t, notify.KindSpeechSpeak, sent[len(sent)-1].Kind)
}

func TestRegistry_Close(t *testing.T) {
	_, reg := setupRegistry(t)

	_, err := reg.For("")
	require.Error(t, err)

	_, err = reg.For("u1")
	require.NoError(t, err)
	require.NoError(t, reg.Close())
	require.NoError(t, reg.Close())

	_, err = reg.For("u1")
	require.ErrorIs(t, err, ErrRegistryClosed)
}
