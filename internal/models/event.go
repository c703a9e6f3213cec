package models

// Event is a ticketed event owned by a teacher profile.
type Event struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Date        string        `json:"date"`
	Time        string        `json:"time,omitempty"`
	Location    string        `json:"location"`
	Price       float64       `json:"price"`
	Category    string        `json:"category"`
	PosterURL   string        `json:"poster_url,omitempty"`
	Rating      float64       `json:"rating,omitempty"`
	Capacity    int           `json:"capacity"`
	UserID      string        `json:"user_id"`
	CreatedAt   string        `json:"created_at"`
	// Participants is only filled by an events→participants join.
	Participants []Participant `json:"participants,omitempty"`
}
