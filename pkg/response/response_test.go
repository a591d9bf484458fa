package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	appErrors "github.com/chirp-social/chirp/pkg/errors"
)

func performJSON(t *testing.T, handler gin.HandlerFunc) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	handler(c)

	var body Response
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return rec, body
}

func TestSuccessWithMessage(t *testing.T) {
	rec, body := performJSON(t, func(c *gin.Context) {
		SuccessWithMessage(c, http.StatusOK, "Login success", gin.H{"access_token": "abc"})
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if !body.Success {
		t.Fatal("expected success flag")
	}
	if body.Message != "Login success" {
		t.Fatalf("unexpected message: %s", body.Message)
	}
}

func TestErrorRendersAppError(t *testing.T) {
	rec, body := performJSON(t, func(c *gin.Context) {
		Error(c, appErrors.ErrUsedRefreshTokenOrNotExist)
	})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if body.Success {
		t.Fatal("expected failure flag")
	}
	if body.Error == nil || body.Error.Code != "USED_REFRESH_TOKEN_OR_NOT_EXIST" {
		t.Fatalf("unexpected error info: %+v", body.Error)
	}
}

func TestErrorDefaultsToInternal(t *testing.T) {
	rec, body := performJSON(t, func(c *gin.Context) {
		Error(c, nil)
	})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if body.Error == nil || body.Error.Code != appErrors.ErrInternalServer.Code {
		t.Fatalf("unexpected error info: %+v", body.Error)
	}
}
