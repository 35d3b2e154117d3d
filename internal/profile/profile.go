// Package profile defines the user profile a life story is generated from,
// plus the validation rules the form and API layers apply before a profile
// enters a generation session.
package profile

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Gender is a closed enum; only GenderMale and GenderFemale validate.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Profile is the structured input for one story-generation session.
// Attribute scores are integers from 1 to 10. A profile is treated as
// immutable once handed to the generator.
type Profile struct {
	Name         string `json:"name"`
	Gender       Gender `json:"gender"`
	Intelligence int    `json:"intelligence"`
	Wealth       int    `json:"wealth"`
	Appearance   int    `json:"appearance"`
	Health       int    `json:"health"`
	Description  string `json:"description"`
}

const (
	minNameLen        = 2
	maxNameLen        = 20
	minDescriptionLen = 10
	maxDescriptionLen = 200
)

// FieldError reports one invalid profile field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Validate checks every field and returns one FieldError per violation.
// A nil result means the profile is acceptable.
func (p Profile) Validate() []FieldError {
	var errs []FieldError

	name := strings.TrimSpace(p.Name)
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		errs = append(errs, FieldError{"name", "name is required"})
	case n < minNameLen:
		errs = append(errs, FieldError{"name", fmt.Sprintf("name must be at least %d characters", minNameLen)})
	case n > maxNameLen:
		errs = append(errs, FieldError{"name", fmt.Sprintf("name must be at most %d characters", maxNameLen)})
	}

	if p.Gender != GenderMale && p.Gender != GenderFemale {
		errs = append(errs, FieldError{"gender", "gender must be male or female"})
	}

	desc := strings.TrimSpace(p.Description)
	switch n := utf8.RuneCountInString(desc); {
	case n == 0:
		errs = append(errs, FieldError{"description", "description is required"})
	case n < minDescriptionLen:
		errs = append(errs, FieldError{"description", fmt.Sprintf("description must be at least %d characters", minDescriptionLen)})
	case n > maxDescriptionLen:
		errs = append(errs, FieldError{"description", fmt.Sprintf("description must be at most %d characters", maxDescriptionLen)})
	}

	for _, attr := range []struct {
		field string
		value int
	}{
		{"intelligence", p.Intelligence},
		{"wealth", p.Wealth},
		{"appearance", p.Appearance},
		{"health", p.Health},
	} {
		if attr.value < 1 || attr.value > 10 {
			errs = append(errs, FieldError{attr.field, "must be between 1 and 10"})
		}
	}

	return errs
}

// Valid reports whether the profile passes Validate.
func (p Profile) Valid() bool {
	return len(p.Validate()) == 0
}
