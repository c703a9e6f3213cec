package models

// WishlistEntry marks an event a user wants to keep an eye on.
type WishlistEntry struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	EventID   string `json:"event_id"`
	CreatedAt string `json:"created_at"`
}
