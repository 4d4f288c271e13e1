package controller

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SendForm is a submitted compose form.
type SendForm struct {
	Recipient    string `json:"recipient" form:"recipient" validate:"required,min=1,max=64"`
	Subject      string `json:"subject" form:"subject" validate:"required,min=1,max=128"`
	Message      string `json:"message" form:"message" validate:"required,min=1,max=16384"`
	// RemoveOnRead is bound from JSON only; form posts carry a checkbox,
	// see Checked.
	RemoveOnRead bool `json:"remove_on_read" form:"-"`
}

// Checked reports whether a posted checkbox value is set. Browsers send
// "on" for a checked box without a value attribute and omit it otherwise.
func Checked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "1", "true", "yes", "checked":
		return true
	}
	return false
}

// PinForm is a submitted PIN prompt.
type PinForm struct {
	Pin string `json:"pin" form:"pin" validate:"required,numeric,min=4,max=12"`
}

// ChangePinForm replaces the PIN sealing the user's private key.
type ChangePinForm struct {
	OldPin     string `json:"old_pin" form:"old_pin" validate:"required,numeric,min=4,max=12"`
	NewPin     string `json:"new_pin" form:"new_pin" validate:"required,numeric,min=4,max=12"`
	ConfirmPin string `json:"confirm_pin" form:"confirm_pin" validate:"required,eqfield=NewPin"`
}

var fieldMessages = map[string]string{
	"required": "is required",
	"min":      "is too short",
	"max":      "is too long",
	"numeric":  "must contain digits only",
	"eqfield":  "does not match",
}

// fieldErrors maps the json name of each invalid field to a message.
func fieldErrors(v *validator.Validate, form any) map[string]string {
	err := v.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"form": "is invalid"}
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.Tag()]
		if !ok {
			msg = "is invalid"
		}
		out[fe.Field()] = msg
	}
	return out
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
