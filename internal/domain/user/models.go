package user

import (
	"time"
)

// User is the single credential-store record for one end user. A record may
// carry a local password, any number of linked provider identities, or both.
type User struct {
	ID             int64   `json:"id"`
	Email          *string `json:"email,omitempty"` // nullable: LinkedIn signups carry no email
	Name           string  `json:"name"`
	ProfilePicture *string `json:"profilePicture,omitempty"`
	PasswordHash   *string `json:"-"`

	GoogleID           *string    `json:"-"`
	GoogleAccessToken  *string    `json:"-"`
	GoogleRefreshToken *string    `json:"-"`
	GoogleTokenExpiry  *time.Time `json:"-"`

	FacebookID           *string `json:"-"`
	FacebookAccessToken  *string `json:"-"`
	FacebookRefreshToken *string `json:"-"`

	TwitterID          *string `json:"-"`
	TwitterAccessToken *string `json:"-"`
	TwitterTokenSecret *string `json:"-"`

	LinkedInID           *string `json:"-"`
	LinkedInAccessToken  *string `json:"-"`
	LinkedInRefreshToken *string `json:"-"`

	ResetToken   *string    `json:"-"`
	ResetExpires *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Snapshot is the client-facing view of a user: identity fields plus
// provider-connection flags, never hashes or stored tokens.
type Snapshot struct {
	ID                int64  `json:"id"`
	Email             string `json:"email,omitempty"`
	Name              string `json:"name"`
	ProfilePicture    string `json:"profilePicture,omitempty"`
	GoogleConnected   bool   `json:"googleConnected"`
	FacebookConnected bool   `json:"facebookConnected"`
	TwitterConnected  bool   `json:"twitterConnected"`
	LinkedInConnected bool   `json:"linkedinConnected"`
}

// Snapshot builds the client-facing view of the record.
func (u *User) Snapshot() Snapshot {
	s := Snapshot{
		ID:                u.ID,
		Name:              u.Name,
		GoogleConnected:   u.GoogleID != nil,
		FacebookConnected: u.FacebookID != nil,
		TwitterConnected:  u.TwitterID != nil,
		LinkedInConnected: u.LinkedInID != nil,
	}
	if u.Email != nil {
		s.Email = *u.Email
	}
	if u.ProfilePicture != nil {
		s.ProfilePicture = *u.ProfilePicture
	}
	return s
}

// CreateUserParams describes a new record. Provider is empty for local
// registrations; for provider signups the token fields are routed to that
// provider's columns by the store.
type CreateUserParams struct {
	Email          *string
	Name           string
	ProfilePicture *string
	PasswordHash   *string

	Provider     string
	ProviderID   *string
	AccessToken  *string
	RefreshToken *string
	TokenSecret  *string
	TokenExpiry  *time.Time
}

// ProviderTokenParams describes a token refresh for one provider's fields
// on an existing record. Nil pointer fields are left untouched.
type ProviderTokenParams struct {
	Provider     string
	ProviderID   string // attached only if the record has none yet
	AccessToken  string
	RefreshToken *string
	TokenSecret  *string
	TokenExpiry  *time.Time
}
