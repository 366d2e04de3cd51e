package domain

import (
	"strings"
	"time"
)

type PersonType string

const (
	TypeStudent  PersonType = "student"
	TypeEmployee PersonType = "employee"
	TypeGuest    PersonType = "guest"
)

var validPersonTypes = map[PersonType]bool{
	TypeStudent:  true,
	TypeEmployee: true,
	TypeGuest:    true,
}

func (t PersonType) Valid() bool { return validPersonTypes[t] }

// Person generalizes students, employees and guests. Identifier is the index
// number for students, the work email for employees and a free-form id for
// guests. Guests carry a guarantor (a sponsoring person) and a university;
// their identifier is unique only within that university.
type Person struct {
	ID          int64      `json:"id"`
	Identifier  string     `json:"identifier"`
	Type        PersonType `json:"type"`
	Fname       string     `json:"fname"`
	Lname       string     `json:"lname"`
	Department  *string    `json:"department,omitempty"`
	University  *string    `json:"university,omitempty"`
	GuarantorID *int64     `json:"guarantor_id,omitempty"`
	Banned      bool       `json:"banned"`
	CreatedAt   time.Time  `json:"created_at"`
}

// PersonStatus is a person together with their derived presence. Building is
// the building of the latest event of the winning kind; nil when the person
// has never entered.
type PersonStatus struct {
	Person
	State    PresenceState `json:"state"`
	Building *string       `json:"building,omitempty"`
}

type CreatePersonRequest struct {
	Identifier  string     `json:"identifier"`
	Type        PersonType `json:"type"`
	Fname       string     `json:"fname"`
	Lname       string     `json:"lname"`
	Department  *string    `json:"department,omitempty"`
	University  *string    `json:"university,omitempty"`
	GuarantorID *int64     `json:"guarantor_id,omitempty"`
	Building    string     `json:"building"`
}

func (r *CreatePersonRequest) Normalize() {
	r.Identifier = strings.TrimSpace(r.Identifier)
	r.Fname = strings.TrimSpace(r.Fname)
	r.Lname = strings.TrimSpace(r.Lname)
	if r.Department != nil {
		d := strings.TrimSpace(*r.Department)
		if d == "" {
			r.Department = nil
		} else {
			r.Department = &d
		}
	}
	if r.University != nil {
		u := strings.TrimSpace(*r.University)
		if u == "" {
			r.University = nil
		} else {
			r.University = &u
		}
	}
}

func (r *CreatePersonRequest) Validate() error {
	if r.Identifier == "" {
		return Validationf("identifier is required")
	}
	if !r.Type.Valid() {
		return Validationf("invalid person type: %q", r.Type)
	}
	if r.Fname == "" {
		return Validationf("first name is required")
	}
	if r.Lname == "" {
		return Validationf("last name is required")
	}
	if r.Building == "" {
		return Validationf("building is required")
	}
	if r.Type == TypeGuest {
		if r.GuarantorID == nil {
			return Validationf("guests require a guarantor")
		}
		if r.University == nil {
			return Validationf("guests require a university")
		}
	}
	return nil
}

// Occupancy is one row of the per-building, per-type inside count.
type Occupancy struct {
	Building    string     `json:"building"`
	Type        PersonType `json:"type"`
	InsideCount int        `json:"inside_count"`
}

type Building struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Department struct {
	Name         string    `json:"name"`
	ContactEmail string    `json:"contact_email"`
	CreatedAt    time.Time `json:"created_at"`
}

type University struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
