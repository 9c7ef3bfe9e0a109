package domain

import "time"

// User is the collaborator-read shape of an account. The core never writes
// account data beyond the moderation block flag; everything else belongs to
// the account CRUD surface.
type User struct {
	ID             string    `json:"_id"`
	Username       string    `json:"username"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	ChatBlocked    bool      `json:"isChatBlocked"`
	CreatedAt      time.Time `json:"createdAt"`
}
