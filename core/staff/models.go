package staff

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Staff is an admin/training-staff account. Its display name (rank + name)
// is what gets stamped onto ledger entries as the issuer.
type Staff struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Rank         string    `json:"rank"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	IsActive     bool      `json:"is_active"`
	IsAdmin      bool      `json:"is_admin"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

// DisplayName returns the issuer attribution string, eg. "SSgt Santos, Juan".
func (s Staff) DisplayName() string {
	if s.Rank == "" {
		return s.Name
	}
	return strings.TrimSpace(s.Rank + " " + s.Name)
}

func (s *Staff) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.PasswordHash = hash
	return nil
}

func (s *Staff) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(s.PasswordHash, []byte(pwd))
}

type NewStaff struct {
	Name     string `json:"name" validate:"required"`
	Rank     string `json:"rank"`
	Username string `json:"username" validate:"required,alphanum_"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	IsAdmin  bool   `json:"is_admin"`
}
