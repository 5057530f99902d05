package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"healthbridge-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakePublisher struct {
	mu  sync.Mutex
	msg []published
	err error
}

func (f *fakePublisher) Publish(topic string, qos byte, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msg = append(f.msg, published{topic, qos, retained, payload})
	return nil
}

type failingNotifier struct{ err error }

func (f failingNotifier) Notify(context.Context, Notification) error { return f.err }

func TestMQTTNotifier_Notify(t *testing.T) {
	pub := &fakePublisher{}
	n := NewMQTTNotifier(pub, "healthbridge", zap.NewNop())

	err := n.Notify(context.Background(), Notification{
		UserID: "u1",
		Kind:   KindMedicationReminder,
		Title:  "Time for Metformin",
		TTL:    30 * time.Minute,
	})
	require.NoError(t, err)

	require.Len(t, pub.msg, 1)
	assert.Equal(t, "healthbridge/u1/medication.reminder", pub.msg[0].topic)
	assert.Equal(t, byte(1), pub.msg[0].qos)
	assert.False(t, pub.msg[0].retained)

	var got Notification
	require.NoError(t, json.Unmarshal(pub.msg[0].payload, &got))
	assert.Equal(t, "Time for Metformin", got.Title)
	assert.Equal(t, 30*time.Minute, got.TTL)
	assert.False(t, got.SentAt.IsZero())
}

func TestMQTTNotifier_Errors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	n := NewMQTTNotifier(pub, "hb", zap.NewNop())

	err := n.Notify(context.Background(), Notification{UserID: "u1", Kind: KindRefillAlert})
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = n.Notify(ctx, Notification{UserID: "u1", Kind: KindRefillAlert})
	require.ErrorIs(t, err, context.Canceled)
}

func TestMulti_JoinsErrors(t *testing.T) {
	rec := &Recorder{}
	m := Multi{rec, failingNotifier{errors.New("a")}, failingNotifier{errors.New("b")}}

	err := m.Notify(context.Background(), Notification{Kind: KindEmergencyActivated})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a")
	assert.Contains(t, err.Error(), "b")
	assert.Equal(t, 1, rec.Count(KindEmergencyActivated))

	assert.NoError(t, Multi{rec, LogNotifier{Log: zap.NewNop()}}.Notify(context.Background(), Notification{}))
}

func TestSpeechRelay(t *testing.T) {
	rec := &Recorder{}
	relay := SpeechRelay{UserID: "u1", Notifier: rec}

	require.NoError(t, relay.Speak(context.Background(), models.Utterance{ID: "x", Text: "hello", Rate: 1.25, Language: "en-GB"}))
	require.NoError(t, relay.Cancel(context.Background()))

	sent := rec.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "hello", sent[0].Body)
	assert.Equal(t, map[string]string{"utteranceId": "x", "language": "en-GB", "rate": "1.25"}, sent[0].Data)
	assert.Equal(t, []string{KindSpeechSpeak, KindSpeechCancel}, rec.Kinds())
}

func TestRecognitionRelay(t *testing.T) {
	rec := &Recorder{}
	relay := RecognitionRelay{UserID: "u1", Notifier: rec}

	require.NoError(t, relay.Start(context.Background(), "fr-FR"))
	require.NoError(t, relay.Stop(context.Background()))

	assert.Equal(t, []string{KindRecognitionStart, KindRecognitionStop}, rec.Kinds())
	assert.Equal(t, "fr-FR", rec.Sent()[0].Data["language"])
}
