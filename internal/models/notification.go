package models

import "time"

// NotificationEventType names a state transition that notifies students.
type NotificationEventType string

const (
	EventJobPosted          NotificationEventType = "job_posted"
	EventShortlistPublished NotificationEventType = "shortlist_published"
	EventRoundRecorded      NotificationEventType = "round_recorded"
	EventOfferFinalised     NotificationEventType = "offer_finalised"
)

// NotificationOutcome selects the template variant within an event type.
type NotificationOutcome string

const (
	OutcomeEligible NotificationOutcome = "eligible"
	OutcomeSelected NotificationOutcome = "selected"
	OutcomeRejected NotificationOutcome = "rejected"
)

// NotificationChannel is an outbound delivery adapter.
type NotificationChannel string

const (
	ChannelEmail    NotificationChannel = "email"
	ChannelWhatsApp NotificationChannel = "whatsapp"
)

// Recipient is one student affected by an event.
type Recipient struct {
	StudentID string              `json:"studentId"`
	Outcome   NotificationOutcome `json:"outcome"`
	Comment   string              `json:"comment,omitempty"`
}

// NotificationEvent is handed to the dispatcher after a successful write.
type NotificationEvent struct {
	ID         string                `json:"id"`
	Type       NotificationEventType `json:"type"`
	JobID      string                `json:"jobId"`
	Company    string                `json:"company"`
	Role       string                `json:"jobRole"`
	RoundLabel string                `json:"roundLabel,omitempty"`
	DeadLine   time.Time             `json:"deadLine,omitempty"`
	Recipients []Recipient           `json:"recipients"`
	OccurredAt time.Time             `json:"occurredAt"`
}

// Delivery is the unit of work queued per (event, student).
type Delivery struct {
	EventID    string                `json:"eventId"`
	Type       NotificationEventType `json:"type"`
	JobID      string                `json:"jobId"`
	Company    string                `json:"company"`
	Role       string                `json:"jobRole"`
	RoundLabel string                `json:"roundLabel,omitempty"`
	DeadLine   time.Time             `json:"deadLine,omitempty"`
	Recipient  Recipient             `json:"recipient"`
}
