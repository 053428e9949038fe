package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	appErrors "github.com/mkarlsen/signupd/pkg/errors"
)

func TestSuccessEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	Success(c, http.StatusCreated, gin.H{"id": "abc"})

	require.Equal(t, http.StatusCreated, rec.Code)

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.Nil(t, body.Error)
}

func TestErrorEnvelopeFromAppError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	Error(c, appErrors.ErrEmailTaken)

	require.Equal(t, http.StatusConflict, rec.Code)

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.Success)
	require.Equal(t, appErrors.ErrEmailTaken.Code, body.Error.Code)
}

func TestErrorEnvelopeFromGenericError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	Error(c, errors.New("boom"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
