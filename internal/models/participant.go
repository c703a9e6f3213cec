package models

// ParticipantStatus is the verification state of a ticket.
type ParticipantStatus string

const (
	StatusPending  ParticipantStatus = "pending"
	StatusVerified ParticipantStatus = "verified"
)

// Participant is a registration (ticket) of a user for an event.
type Participant struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	EventID   string            `json:"event_id"`
	Name      string            `json:"name,omitempty"`
	Email     string            `json:"email,omitempty"`
	Phone     string            `json:"phone,omitempty"`
	Status    ParticipantStatus `json:"status"`
	CreatedAt string            `json:"created_at"`
	// Event is only filled by a participants→events join.
	Event *Event `json:"events,omitempty"`
}
