package employees

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError names one failing field using its JSON path, e.g.
// "address.street".
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid employee: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the full employee form: every field except the photo is
// required, the email must parse and gender must be M, F or OTHER.
func Validate(e Employee) error {
	err := validate.Struct(e)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate employee: %w", err)
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		field := fieldPath(fe.Namespace())
		out.Fields = append(out.Fields, FieldError{Field: field, Message: message(field, fe.Tag(), fe.Param())})
	}
	return out
}

// CheckCredentialFields is the narrower check applied before rendering a
// credential: only the fields printed or encoded on the card are required.
func CheckCredentialFields(e Employee) error {
	var out ValidationError
	required := []struct {
		field string
		value string
	}{
		{"id", e.ID},
		{"rut", e.RUT},
		{"first_name", e.FirstName},
		{"last_name", e.LastName},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			out.Fields = append(out.Fields, FieldError{Field: r.field, Message: message(r.field, "required", "")})
		}
	}
	if len(out.Fields) > 0 {
		return &out
	}
	return nil
}

// fieldPath drops the root struct name: "Employee.address.city" -> "address.city".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(field, tag, param string) string {
	label := strings.NewReplacer("_", " ", ".", " ").Replace(field)
	switch tag {
	case "required":
		return label + " is required"
	case "email":
		return "invalid email"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", label, strings.ReplaceAll(param, " ", ", "))
	default:
		return fmt.Sprintf("%s failed %s", label, tag)
	}
}
