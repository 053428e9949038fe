package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppErrorMessage(t *testing.T) {
	err := New("TEST", "something failed", http.StatusTeapot)
	require.Equal(t, "something failed", err.Error())

	wrapped := err.WithInternal(errors.New("root cause"))
	require.Equal(t, "something failed: root cause", wrapped.Error())
	require.Equal(t, http.StatusTeapot, wrapped.StatusCode)
}

func TestFromErrorPassesThroughAppErrors(t *testing.T) {
	require.Nil(t, FromError(nil))

	require.Same(t, ErrEmailTaken, FromError(ErrEmailTaken))

	generic := FromError(errors.New("boom"))
	require.Equal(t, ErrInternalServer.Code, generic.Code)
	require.EqualError(t, generic.Internal, "boom")
}

func TestUnwrapExposesInternal(t *testing.T) {
	cause := errors.New("db down")
	err := Wrap(cause, "lookup failed")

	require.True(t, errors.Is(err, cause))
	require.Equal(t, http.StatusInternalServerError, err.StatusCode)
}
