package models

import (
	"fmt"
	"strings"
	"time"
)

type RecipientType string

const (
	RecipientTrustedContact   RecipientType = "trusted_contact"
	RecipientEmergencyService RecipientType = "emergency_service"
	RecipientResponder        RecipientType = "responder"
)

type DeliveryStatus string

const (
	DeliveryPending  DeliveryStatus = "pending"
	DeliveryNotified DeliveryStatus = "notified"
	DeliveryFailed   DeliveryStatus = "failed"
)

type ResponderStatus string

const (
	ResponderPending   ResponderStatus = "PENDING"
	ResponderAccepted  ResponderStatus = "ACCEPTED"
	ResponderRejected  ResponderStatus = "REJECTED"
	ResponderForwarded ResponderStatus = "FORWARDED"
	ResponderEnRoute   ResponderStatus = "EN_ROUTE"
	ResponderArrived   ResponderStatus = "ARRIVED"
	ResponderResolved  ResponderStatus = "RESOLVED"
)

var responderStatusAliases = map[string]ResponderStatus{
	"PENDING":   ResponderPending,
	"ACCEPTED":  ResponderAccepted,
	"REJECTED":  ResponderRejected,
	"FORWARDED": ResponderForwarded,
	"EN_ROUTE":  ResponderEnRoute,
	"ENROUTE":   ResponderEnRoute,
	"EN-ROUTE":  ResponderEnRoute,
	"ARRIVED":   ResponderArrived,
	"RESOLVED":  ResponderResolved,
}

// ParseResponderStatus normalizes a wire value, tolerating the ENROUTE and
// EN-ROUTE spellings used by older clients.
func ParseResponderStatus(raw string) (ResponderStatus, error) {
	status, ok := responderStatusAliases[strings.ToUpper(strings.TrimSpace(raw))]
	if !ok {
		return "", fmt.Errorf("unknown responder status %q", raw)
	}
	return status, nil
}

// Holding reports whether this status holds the single active assignment
// slot on an alert.
func (s ResponderStatus) Holding() bool {
	switch s {
	case ResponderAccepted, ResponderEnRoute, ResponderArrived:
		return true
	}
	return false
}

// AlertNotification is one delivery attempt to one recipient of one alert.
// Retries append new rows rather than mutating old ones, so the table doubles
// as the notification audit trail. For responder recipients the row also
// carries the responder's per-alert assignment status.
type AlertNotification struct {
	ID              string           `json:"id" db:"id"`
	AlertID         string           `json:"alert_id" db:"alert_id"`
	ContactID       *string          `json:"contact_id,omitempty" db:"contact_id"`
	ResponderID     *string          `json:"responder_id,omitempty" db:"responder_id"`
	RecipientType   RecipientType    `json:"recipient_type" db:"recipient_type"`
	RecipientName   string           `json:"recipient_name" db:"recipient_name"`
	DeliveryStatus  DeliveryStatus   `json:"delivery_status" db:"delivery_status"`
	ResponderStatus *ResponderStatus `json:"responder_status,omitempty" db:"responder_status"`
	NotifiedAt      time.Time        `json:"notified_at" db:"notified_at"`
}
