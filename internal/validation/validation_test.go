package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registerBody struct {
	Teacher  string   `json:"teacher" validate:"required,classroom_email"`
	Students []string `json:"students" validate:"required,min=1,dive,required,classroom_email"`
}

func TestEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"student@example.com", true},
		{" Student.One+tag@mail.example.org ", true},
		{"student@example", false},
		{"student.example.com", false},
		{"@example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			err := Email(tt.email)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestStruct_Messages(t *testing.T) {
	tests := []struct {
		name    string
		body    registerBody
		message string
	}{
		{
			name:    "missing fields",
			body:    registerBody{},
			message: "Validation error: teacher is required, students is required",
		},
		{
			name:    "empty students",
			body:    registerBody{Teacher: "t@x.com", Students: []string{}},
			message: "Validation error: students must contain at least 1 item",
		},
		{
			name:    "invalid emails",
			body:    registerBody{Teacher: "nope", Students: []string{"a@x.com", "bad"}},
			message: "Validation error: teacher must be a valid email, students[1] must be a valid email",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.body)
			require.Error(t, err)
			assert.Equal(t, tt.message, Message(err))
		})
	}

	assert.NoError(t, Struct(registerBody{Teacher: "t@x.com", Students: []string{"a@x.com"}}))
}

func TestStruct_NonEmptyText(t *testing.T) {
	type body struct {
		Notification *string `json:"notification" validate:"required,min=1"`
	}

	err := Struct(body{})
	require.Error(t, err)
	assert.Equal(t, "Validation error: notification is required", Message(err))

	empty := ""
	err = Struct(body{Notification: &empty})
	require.Error(t, err)
	assert.Equal(t, "Validation error: notification is not allowed to be empty", Message(err))

	text := "hello"
	assert.NoError(t, Struct(body{Notification: &text}))
}
