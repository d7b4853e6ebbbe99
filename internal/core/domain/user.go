package domain

import "time"

type Role string

const (
	RoleAdmin           Role = "ADMIN"
	RoleResident        Role = "RESIDENT"
	RoleUnauthenticated Role = ""
)

// Identity is the authenticated caller as carried by a verified session token.
type Identity struct {
	UID     string `json:"uid"`
	Email   string `json:"email"`
	Role    Role   `json:"role"`
	TokenID string `json:"-"`
}

// Authenticated reports whether the identity came from a verified token.
func (i *Identity) Authenticated() bool {
	return i != nil && i.UID != ""
}

// Credentials is the stored login of a resident.
type Credentials struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is returned by a successful sign-in.
type Session struct {
	Token     string    `json:"token"`
	Identity  Identity  `json:"identity"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Challenge is an issued CAPTCHA.
type Challenge struct {
	ID   string `json:"captcha_id"`
	Text string `json:"captcha"`
}
