package models

import (
	"fmt"
	"strings"
)

type ResponderType string

const (
	ResponderTypePolice   ResponderType = "POLICE"
	ResponderTypeMedical  ResponderType = "MEDICAL"
	ResponderTypeFire     ResponderType = "FIRE"
	ResponderTypeSecurity ResponderType = "SECURITY"
	ResponderTypeOther    ResponderType = "OTHER"
)

func ParseResponderType(raw string) (ResponderType, error) {
	switch ResponderType(strings.ToUpper(strings.TrimSpace(raw))) {
	case ResponderTypePolice:
		return ResponderTypePolice, nil
	case ResponderTypeMedical:
		return ResponderTypeMedical, nil
	case ResponderTypeFire:
		return ResponderTypeFire, nil
	case ResponderTypeSecurity:
		return ResponderTypeSecurity, nil
	case ResponderTypeOther:
		return ResponderTypeOther, nil
	}
	return "", fmt.Errorf("unknown responder type %q", raw)
}

type AvailabilityStatus string

const (
	AvailabilityAvailable AvailabilityStatus = "AVAILABLE"
	AvailabilityBusy      AvailabilityStatus = "BUSY"
	AvailabilityOffDuty   AvailabilityStatus = "OFF_DUTY"
)

// Responder is a registered emergency responder account. ID is the
// responder's user ID.
type Responder struct {
	ID        string             `json:"id" db:"user_id"`
	Name      string             `json:"name" db:"name"`
	Type      ResponderType      `json:"responder_type" db:"responder_type"`
	Status    AvailabilityStatus `json:"status" db:"status"`
	Location  *Location          `json:"location,omitempty"`
	PushToken string             `json:"-" db:"push_token"`
	Active    bool               `json:"active" db:"active"`
}

// TrustedContact is owned by the contact-management subsystem; the alert core
// only reads the share-location subset at dispatch time.
type TrustedContact struct {
	ID            string `json:"id" db:"id"`
	UserID        string `json:"user_id" db:"user_id"`
	Name          string `json:"name" db:"name"`
	Phone         string `json:"phone" db:"phone"`
	Email         string `json:"email" db:"email"`
	Relationship  string `json:"relationship" db:"relationship"`
	ShareLocation bool   `json:"share_location" db:"share_location"`
}
