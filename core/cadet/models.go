package cadet

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
)

type Cadet struct {
	ID            string    `json:"id"`
	StudentNumber string    `json:"student_number"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	Company       string    `json:"company"`
	Platoon       string    `json:"platoon"`
	Course        string    `json:"course"`
	IsArchived    bool      `json:"is_archived"`
	ArchivedAt    null.Time `json:"archived_at"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

// FullName returns the cadet's display name as "First Last".
func (c Cadet) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// NameOrderings returns the cadet name in the orderings produced by the
// various ROTCMIS export formats. Used for fuzzy roster matching.
func (c Cadet) NameOrderings() []string {
	first, last := strings.TrimSpace(c.FirstName), strings.TrimSpace(c.LastName)
	return []string{
		first + " " + last,
		last + " " + first,
		last + ", " + first,
		first + ", " + last,
	}
}

type NewCadet struct {
	StudentNumber string `json:"student_number" validate:"required,alphanum_"`
	FirstName     string `json:"first_name" validate:"required"`
	LastName      string `json:"last_name" validate:"required"`
	Email         string `json:"email" validate:"omitempty,email"`
	Username      string `json:"username" validate:"omitempty,alphanum_"`
	Company       string `json:"company"`
	Platoon       string `json:"platoon"`
	Course        string `json:"course"`
}

type UpdateCadet struct {
	StudentNumber string `json:"student_number" validate:"omitempty,alphanum_"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email" validate:"omitempty,email"`
	Username      string `json:"username" validate:"omitempty,alphanum_"`
	Company       string `json:"company"`
	Platoon       string `json:"platoon"`
	Course        string `json:"course"`
}

// QueryFilter applies AND on available fields.
// Search does a case-insensitive match on one of StudentNumber, FirstName or LastName.
type QueryFilter struct {
	Search          string `query:"search"`
	Company         string `query:"company"`
	Platoon         string `query:"platoon"`
	Course          string `query:"course"`
	IncludeArchived bool   `query:"include_archived"`
}
