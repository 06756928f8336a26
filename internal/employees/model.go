package employees

import "strings"

type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "OTHER"
)

type Address struct {
	Street  string `json:"street" validate:"required"`
	Number  string `json:"number" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	ZipCode string `json:"zip_code" validate:"required"`
}

type EmergencyContact struct {
	Name         string `json:"name" validate:"required"`
	Relationship string `json:"relationship" validate:"required"`
	Phone        string `json:"phone" validate:"required"`
}

// Employee is the record the credential pipeline reads. RUT is the national
// ID printed and encoded on the card.
type Employee struct {
	ID               string           `json:"id"`
	RUT              string           `json:"rut" validate:"required"`
	FirstName        string           `json:"first_name" validate:"required"`
	LastName         string           `json:"last_name" validate:"required"`
	Email            string           `json:"email" validate:"required,email"`
	Phone            string           `json:"phone" validate:"required"`
	BirthDate        string           `json:"birth_date" validate:"required"`
	Gender           Gender           `json:"gender" validate:"required,oneof=M F OTHER"`
	Address          Address          `json:"address"`
	Department       string           `json:"department" validate:"required"`
	Position         string           `json:"position" validate:"required"`
	StartDate        string           `json:"start_date" validate:"required"`
	IsActive         bool             `json:"is_active"`
	ProfileImage     string           `json:"profile_image,omitempty"`
	EmergencyContact EmergencyContact `json:"emergency_contact"`
}

func (e Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// Initials returns the first rune of the first and last name, as shown in
// the photo placeholder.
func (e Employee) Initials() string {
	return firstRune(e.FirstName) + firstRune(e.LastName)
}

func firstRune(s string) string {
	for _, r := range strings.TrimSpace(s) {
		return string(r)
	}
	return ""
}
