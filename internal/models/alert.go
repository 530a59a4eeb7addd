package models

import (
	"fmt"
	"strings"
	"time"
)

type AlertStatus string

const (
	AlertStatusActive   AlertStatus = "active"
	AlertStatusCritical AlertStatus = "critical"
	AlertStatusCanceled AlertStatus = "canceled"
	AlertStatusResolved AlertStatus = "resolved"
	AlertStatusExpired  AlertStatus = "expired"
)

// alertStatusAliases maps legacy spellings still produced by older mobile
// clients onto the canonical values.
var alertStatusAliases = map[string]AlertStatus{
	"active":    AlertStatusActive,
	"critical":  AlertStatusCritical,
	"canceled":  AlertStatusCanceled,
	"cancelled": AlertStatusCanceled,
	"resolved":  AlertStatusResolved,
	"expired":   AlertStatusExpired,
}

// ParseAlertStatus normalizes a wire value into a canonical AlertStatus.
func ParseAlertStatus(raw string) (AlertStatus, error) {
	status, ok := alertStatusAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", fmt.Errorf("unknown alert status %q", raw)
	}
	return status, nil
}

// IsTerminal reports whether no further user- or responder-initiated
// transition is allowed from this status.
func (s AlertStatus) IsTerminal() bool {
	switch s {
	case AlertStatusCanceled, AlertStatusResolved, AlertStatusExpired:
		return true
	}
	return false
}

// IsOpen reports whether the alert still represents a live incident.
func (s AlertStatus) IsOpen() bool {
	return s == AlertStatusActive || s == AlertStatusCritical
}

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

type TriggerMethod string

const (
	TriggerManual TriggerMethod = "manual"
	TriggerText   TriggerMethod = "text"
	TriggerVoice  TriggerMethod = "voice"
)

func ParseTriggerMethod(raw string) (TriggerMethod, error) {
	switch TriggerMethod(strings.ToLower(strings.TrimSpace(raw))) {
	case TriggerManual:
		return TriggerManual, nil
	case TriggerText:
		return TriggerText, nil
	case TriggerVoice:
		return TriggerVoice, nil
	}
	return "", fmt.Errorf("unknown trigger method %q", raw)
}

// Alert is the permanent record of a single SOS incident. Rows are never
// deleted; terminal transitions only stamp status and the matching timestamp.
type Alert struct {
	ID                 string             `json:"id" db:"id"`
	UserID             string             `json:"user_id" db:"user_id"`
	Location           Location           `json:"location"`
	TriggerMethod      TriggerMethod      `json:"trigger_method" db:"trigger_method"`
	Message            string             `json:"alert_message,omitempty" db:"alert_message"`
	AudioRecording     string             `json:"audio_recording,omitempty" db:"audio_recording"`
	TriggeredAt        time.Time          `json:"triggered_at" db:"triggered_at"`
	Status             AlertStatus        `json:"status" db:"status"`
	VerificationStatus VerificationStatus `json:"verification_status" db:"verification_status"`
	CanceledAt         *time.Time         `json:"canceled_at,omitempty" db:"canceled_at"`
	ResolvedAt         *time.Time         `json:"resolved_at,omitempty" db:"resolved_at"`
}
