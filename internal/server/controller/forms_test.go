package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecked(t *testing.T) {
	for _, v := range []string{"on", "ON", " true ", "1", "yes", "checked"} {
		assert.True(t, Checked(v), v)
	}
	for _, v := range []string{"", "off", "false", "0", "no", "maybe"} {
		assert.False(t, Checked(v), v)
	}
}

func TestFieldErrors_SendForm(t *testing.T) {
	errs := fieldErrors(newValidator(), &SendForm{Recipient: "bob", RemoveOnRead: true})
	assert.Equal(t, map[string]string{"subject": "is required", "message": "is required"}, errs)
}
