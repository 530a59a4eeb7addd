package alert

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cse408-project/secureherai-api/internal/errs"
	"github.com/cse408-project/secureherai-api/internal/models"
	"github.com/cse408-project/secureherai-api/internal/notification"
	"github.com/cse408-project/secureherai-api/internal/repository"
	"github.com/cse408-project/secureherai-api/internal/transcribe"
)

// Dispatcher is the slice of the notification dispatcher trigger processing
// needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert models.Alert) (notification.DispatchResult, error)
}

// TriggerResult distinguishes "alert created", "existing alert reused", and
// the deliberate no-op of a non-matching keyword or failed transcription.
// Only the no-op carries a Reason.
type TriggerResult struct {
	Created  bool                         `json:"created"`
	Reused   bool                         `json:"reused"`
	Alert    *models.Alert                `json:"alert,omitempty"`
	Reason   string                       `json:"reason,omitempty"`
	Dispatch *notification.DispatchResult `json:"dispatch,omitempty"`
}

// TriggerService normalizes the three SOS entry points (manual button,
// text keyword, voice) into alert creation plus dispatch.
type TriggerService struct {
	service        *Service
	users          repository.UserRepository
	transcriber    transcribe.Client
	dispatcher     Dispatcher
	defaultKeyword string
	logger         zerolog.Logger
}

func NewTriggerService(
	service *Service,
	users repository.UserRepository,
	transcriber transcribe.Client,
	dispatcher Dispatcher,
	defaultKeyword string,
	logger zerolog.Logger,
) *TriggerService {
	if defaultKeyword == "" {
		defaultKeyword = "help"
	}
	return &TriggerService{
		service:        service,
		users:          users,
		transcriber:    transcriber,
		dispatcher:     dispatcher,
		defaultKeyword: defaultKeyword,
		logger:         logger.With().Str("component", "trigger").Logger(),
	}
}

// TriggerManual raises an alert directly, with no keyword gate. This is the
// SOS button path.
func (t *TriggerService) TriggerManual(ctx context.Context, userID string, loc models.Location, message string) (TriggerResult, error) {
	return t.raise(ctx, CreateParams{
		UserID:        userID,
		Location:      loc,
		TriggerMethod: models.TriggerManual,
		Message:       message,
	})
}

// TriggerText raises an alert only when the supplied keyword matches the
// caller's configured SOS keyword (case-insensitive). A non-match is a
// deliberate no-op result, not an error.
func (t *TriggerService) TriggerText(ctx context.Context, userID, message, keyword string, loc models.Location) (TriggerResult, error) {
	configured := t.keywordFor(ctx, userID)
	if !strings.EqualFold(strings.TrimSpace(keyword), configured) {
		t.logger.Info().Str("user_id", userID).Msg("text trigger keyword mismatch; no alert created")
		return TriggerResult{Reason: "keyword does not match configured SOS keyword"}, nil
	}
	return t.raise(ctx, CreateParams{
		UserID:        userID,
		Location:      loc,
		TriggerMethod: models.TriggerText,
		Message:       message,
	})
}

// TriggerVoice transcribes uploaded audio and raises an alert when the
// transcript contains the caller's SOS keyword. Transcription failures are
// reported as a no-op result, never propagated as a crash.
func (t *TriggerService) TriggerVoice(ctx context.Context, userID string, audio []byte, audioRef, languageCode string, loc models.Location) (TriggerResult, error) {
	result, err := t.transcriber.Transcribe(ctx, audio, languageCode)
	if err != nil {
		return t.transcriptionFailed(userID, err)
	}
	return t.raiseFromTranscript(ctx, userID, result.Text, audioRef, loc)
}

// TriggerVoiceURL is the voice path for audio already stored elsewhere; the
// URL doubles as the alert's audio-recording reference.
func (t *TriggerService) TriggerVoiceURL(ctx context.Context, userID, audioURL, languageCode string, loc models.Location) (TriggerResult, error) {
	result, err := t.transcriber.TranscribeURL(ctx, audioURL, languageCode)
	if err != nil {
		return t.transcriptionFailed(userID, err)
	}
	return t.raiseFromTranscript(ctx, userID, result.Text, audioURL, loc)
}

func (t *TriggerService) raiseFromTranscript(ctx context.Context, userID, transcript, audioRef string, loc models.Location) (TriggerResult, error) {
	configured := t.keywordFor(ctx, userID)
	if !containsKeyword(transcript, configured) {
		t.logger.Info().Str("user_id", userID).Msg("voice transcript has no SOS keyword; no alert created")
		return TriggerResult{Reason: "transcript does not contain the SOS keyword"}, nil
	}
	return t.raise(ctx, CreateParams{
		UserID:         userID,
		Location:       loc,
		TriggerMethod:  models.TriggerVoice,
		Message:        transcript,
		AudioRecording: audioRef,
	})
}

func (t *TriggerService) raise(ctx context.Context, params CreateParams) (TriggerResult, error) {
	alert, created, err := t.service.Create(ctx, params)
	if err != nil {
		return TriggerResult{}, err
	}

	result := TriggerResult{Created: created, Reused: !created, Alert: &alert}
	if !created {
		// Dedup reuse: the original dispatch already ran.
		return result, nil
	}

	dispatch, err := t.dispatcher.Dispatch(ctx, alert)
	if err != nil {
		// The alert exists either way; surface the dispatch problem in
		// the result rather than failing the trigger.
		t.logger.Error().Err(err).Str("alert_id", alert.ID).Msg("dispatch failed after alert creation")
		return result, nil
	}
	result.Dispatch = &dispatch
	return result, nil
}

func (t *TriggerService) transcriptionFailed(userID string, err error) (TriggerResult, error) {
	if !errs.IsKind(err, errs.KindDependency) {
		return TriggerResult{}, err
	}
	t.logger.Warn().Err(err).Str("user_id", userID).Msg("transcription failed; no alert created")
	return TriggerResult{Reason: "transcription failed: " + err.Error()}, nil
}

func (t *TriggerService) keywordFor(ctx context.Context, userID string) string {
	user, err := t.users.Get(ctx, userID)
	if err != nil || strings.TrimSpace(user.SOSKeyword) == "" {
		return t.defaultKeyword
	}
	return strings.TrimSpace(user.SOSKeyword)
}

// containsKeyword reports whether the keyword appears as a word in the
// text, case-insensitively.
func containsKeyword(text, keyword string) bool {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return false
	}
	for _, field := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		if field == keyword {
			return true
		}
	}
	return false
}
