package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Name  string `validate:"required"`
	Email string `validate:"required"`
	Phone string
}

func TestValidateListsFailingFields(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(&signup{Name: "Ann", Email: "ann@example.com"}))

	err := v.Validate(&signup{Phone: "555"})
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, []string{"Name", "Email"}, fe.Fields)
	assert.Contains(t, err.Error(), "Name, Email")
}
