package notify

import (
	"context"
	"strconv"

	"healthbridge-server/internal/models"
)

// SpeechRelay sends utterances to the user's device, which owns the speech
// synthesizer. The device answers with start/end/error events.
type SpeechRelay struct {
	UserID   string
	Notifier Notifier
}

// Speak asks the device to say u.
func (s SpeechRelay) Speak(ctx context.Context, u models.Utterance) error {
	return s.Notifier.Notify(ctx, Notification{
		UserID: s.UserID,
		Kind:   KindSpeechSpeak,
		Body:   u.Text,
		Data: map[string]string{
			"utteranceId": u.ID,
			"language":    u.Language,
			"rate":        strconv.FormatFloat(u.Rate, 'f', -1, 64),
		},
	})
}

// Cancel asks the device to stop speaking.
func (s SpeechRelay) Cancel(ctx context.Context) error {
	return s.Notifier.Notify(ctx, Notification{
		UserID: s.UserID,
		Kind:   KindSpeechCancel,
	})
}

// Recognition kinds ask the device to start or stop listening.
const (
	KindRecognitionStart = "recognition.start"
	KindRecognitionStop  = "recognition.stop"
)

// RecognitionRelay drives the device speech recognizer.
type RecognitionRelay struct {
	UserID   string
	Notifier Notifier
}

// Start asks the device to listen in lang.
func (r RecognitionRelay) Start(ctx context.Context, lang string) error {
	return r.Notifier.Notify(ctx, Notification{
		UserID: r.UserID,
		Kind:   KindRecognitionStart,
		Data: map[string]string{
			"language":       lang,
			"continuous":     "false",
			"interimResults": "true",
		},
	})
}

// Stop asks the device to stop listening.
func (r RecognitionRelay) Stop(ctx context.Context) error {
	return r.Notifier.Notify(ctx, Notification{UserID: r.UserID, Kind: KindRecognitionStop})
}
