package domain

// Account represents a registered user of the time tracker.
type Account struct {
	ID             int64  `json:"id" db:"id"`
	Name           string `json:"name" db:"name"`
	PasswordDigest string `json:"-" db:"password_digest"`
}
