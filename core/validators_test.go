package core

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testInput struct {
	Name     string `json:"name" validate:"required"`
	Username string `json:"username" validate:"omitempty,alphanum_"`
	Content  string `json:"content" validate:"notblank"`
	Secret   string `json:"-" validate:"omitempty,min=3"`
}

func TestValidator_Check(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name       string
		in         testInput
		wantFields []FieldError
	}{
		{name: "valid", in: testInput{Name: "a", Username: "a_1", Content: "x"}},
		{
			name: "invalid",
			in:   testInput{Username: "a-1", Content: " \t"},
			wantFields: []FieldError{
				{Field: "name", Error: requiredText},
				{Field: "username", Error: alphaNumUnderText},
				{Field: "content", Error: notBlankText},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Check(tt.in)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.wantFields, vErr.Fields)
		})
	}
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Hello", CleanString("  Hello\n"))
	assert.Equal(t, "hello", CleanString(" Hello ", true))
}
