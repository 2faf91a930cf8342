package models

type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RoleModerator UserRole = "moderator"
	RoleOrganizer UserRole = "organizer"
	RolePlayer    UserRole = "player"
)

// User is the read-only slice of the host's player directory this service
// needs. Accounts are created and edited elsewhere.
type User struct {
	ID                  int      `json:"id"`
	Nickname            string   `json:"nickname"`
	Role                UserRole `json:"role"`
	LogoKey             *string  `json:"-"`
	LogoURL             *string  `json:"logo_url,omitempty"`
	RatingHistoryPublic bool     `json:"rating_history_public"`
}
