package alert

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cse408-project/secureherai-api/internal/errs"
	"github.com/cse408-project/secureherai-api/internal/models"
	"github.com/cse408-project/secureherai-api/internal/notification"
	"github.com/cse408-project/secureherai-api/internal/transcribe"
)

type fakeTranscriber struct {
	result transcribe.Result
	err    error
}

func (f *fakeTranscriber) Transcribe(context.Context, []byte, string) (transcribe.Result, error) {
	return f.result, f.err
}

func (f *fakeTranscriber) TranscribeURL(context.Context, string, string) (transcribe.Result, error) {
	return f.result, f.err
}

type triggerFixture struct {
	*serviceFixture
	triggers    *TriggerService
	users       *fakeUserRepo
	transcriber *fakeTranscriber
	dispatcher  *fakeDispatcher
}

func newTriggerFixture(t *testing.T) *triggerFixture {
	t.Helper()
	base := newServiceFixture(t, ServiceConfig{})
	users := newFakeUserRepo()
	transcriber := &fakeTranscriber{}
	dispatcher := &fakeDispatcher{result: notification.DispatchResult{Recipients: 2, Notified: 2}}
	triggers := NewTriggerService(base.service, users, transcriber, dispatcher, "help", zerolog.Nop())
	return &triggerFixture{
		serviceFixture: base,
		triggers:       triggers,
		users:          users,
		transcriber:    transcriber,
		dispatcher:     dispatcher,
	}
}

func TestTriggerManualCreatesAndDispatches(t *testing.T) {
	fx := newTriggerFixture(t)

	result, err := fx.triggers.TriggerManual(context.Background(), "user-1", mustLocation(t), "need help now")
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.False(t, result.Reused)
	require.NotNil(t, result.Alert)
	assert.Equal(t, models.TriggerManual, result.Alert.TriggerMethod)
	assert.Equal(t, models.AlertStatusActive, result.Alert.Status)
	require.NotNil(t, result.Dispatch)
	assert.Equal(t, 2, result.Dispatch.Notified)
	assert.Len(t, fx.dispatcher.calls, 1)
}

func TestTriggerTextMatchesConfiguredKeyword(t *testing.T) {
	fx := newTriggerFixture(t)
	fx.users.users["user-1"] = models.User{ID: "user-1", SOSKeyword: "safeword", Verified: true}

	result, err := fx.triggers.TriggerText(context.Background(), "user-1", "message body", "SafeWord", mustLocation(t))
	require.NoError(t, err)
	assert.True(t, result.Created)
	require.NotNil(t, result.Alert)
	assert.Equal(t, models.TriggerText, result.Alert.TriggerMethod)
}

func TestTriggerTextMismatchIsNoop(t *testing.T) {
	fx := newTriggerFixture(t)
	fx.users.users["user-1"] = models.User{ID: "user-1", SOSKeyword: "safeword"}

	result, err := fx.triggers.TriggerText(context.Background(), "user-1", "message body", "help", mustLocation(t))
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.False(t, result.Reused)
	assert.Nil(t, result.Alert)
	assert.NotEmpty(t, result.Reason)
	assert.Empty(t, fx.dispatcher.calls)

	alerts, err := fx.alerts.ListByUser(context.Background(), "user-1", 10)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestTriggerTextFallsBackToDefaultKeyword(t *testing.T) {
	fx := newTriggerFixture(t)
	// User record absent entirely.
	result, err := fx.triggers.TriggerText(context.Background(), "user-2", "msg", "help", mustLocation(t))
	require.NoError(t, err)
	assert.True(t, result.Created)
}

func TestTriggerVoiceKeywordInTranscript(t *testing.T) {
	fx := newTriggerFixture(t)
	fx.transcriber.result = transcribe.Result{Text: "Someone please HELP, I am near the station", Confidence: 0.91}

	result, err := fx.triggers.TriggerVoice(context.Background(), "user-1", []byte("audio"), "s3://rec/1.ogg", "en-US", mustLocation(t))
	require.NoError(t, err)
	assert.True(t, result.Created)
	require.NotNil(t, result.Alert)
	assert.Equal(t, models.TriggerVoice, result.Alert.TriggerMethod)
	assert.Equal(t, "s3://rec/1.ogg", result.Alert.AudioRecording)
	assert.Contains(t, result.Alert.Message, "HELP")
}

func TestTriggerVoiceKeywordOnlyMatchesWholeWords(t *testing.T) {
	fx := newTriggerFixture(t)
	fx.transcriber.result = transcribe.Result{Text: "the helpers were helpful"}

	result, err := fx.triggers.TriggerVoice(context.Background(), "user-1", []byte("audio"), "", "en-US", mustLocation(t))
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.NotEmpty(t, result.Reason)
}

func TestTriggerVoiceTranscriptionFailureIsNoop(t *testing.T) {
	fx := newTriggerFixture(t)
	fx.transcriber.err = errs.Dependencyf("transcription service unreachable")

	result, err := fx.triggers.TriggerVoice(context.Background(), "user-1", []byte("audio"), "", "en-US", mustLocation(t))
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Nil(t, result.Alert)
	assert.NotEmpty(t, result.Reason)
	assert.Empty(t, fx.dispatcher.calls)
}

func TestTriggerVoiceURLUsesURLAsRecordingRef(t *testing.T) {
	fx := newTriggerFixture(t)
	fx.transcriber.result = transcribe.Result{Text: "help me"}

	result, err := fx.triggers.TriggerVoiceURL(context.Background(), "user-1", "https://cdn.example.com/rec.ogg", "en-US", mustLocation(t))
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, "https://cdn.example.com/rec.ogg", result.Alert.AudioRecording)
}

func TestTriggerReusedAlertSkipsDispatch(t *testing.T) {
	fx := newTriggerFixture(t)
	ctx := context.Background()

	first, err := fx.triggers.TriggerManual(ctx, "user-1", mustLocation(t), "")
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := fx.triggers.TriggerManual(ctx, "user-1", mustLocation(t), "")
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.True(t, second.Reused)
	assert.Equal(t, first.Alert.ID, second.Alert.ID)
	assert.Nil(t, second.Dispatch)
	assert.Len(t, fx.dispatcher.calls, 1)
}
