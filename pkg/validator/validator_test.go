package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type signupPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestValidateStructPasses(t *testing.T) {
	err := ValidateStruct(&signupPayload{
		Email:    "person@example.com",
		Password: "longenough",
	})
	require.NoError(t, err)
}

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	err := ValidateStruct(&signupPayload{Email: "not-an-email", Password: "short"})
	require.Error(t, err)

	failures, ok := err.(ValidationErrors)
	require.True(t, ok)
	require.Len(t, failures, 2)
	require.Equal(t, "email", failures[0].Field)
	require.Equal(t, "password", failures[1].Field)
	require.Contains(t, err.Error(), "min=8")
}
