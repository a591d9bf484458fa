package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestErrorIncludesInternal(t *testing.T) {
	internal := stdErrors.New("boom")
	err := Wrap(internal, "failed")

	if err.Error() != "failed: boom" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestWithInternalCopies(t *testing.T) {
	base := New("TEST", "test", 400)
	with := base.WithInternal(stdErrors.New("oops"))

	if with == base {
		t.Fatal("expected WithInternal to return a copy")
	}

	if base.Internal != nil {
		t.Fatal("expected original error to remain unchanged")
	}

	if with.Internal == nil {
		t.Fatal("expected internal error to be set")
	}
}

func TestIsMatchesByCode(t *testing.T) {
	with := ErrUsedRefreshTokenOrNotExist.WithInternal(stdErrors.New("row gone"))

	if !stdErrors.Is(with, ErrUsedRefreshTokenOrNotExist) {
		t.Fatal("expected copy with internal error to match its sentinel")
	}

	if stdErrors.Is(with, ErrRefreshTokenInvalid) {
		t.Fatal("expected different codes not to match")
	}
}

func TestFromError(t *testing.T) {
	appErr := ErrUsedRefreshTokenOrNotExist
	if out := FromError(appErr); out != appErr {
		t.Fatal("expected FromError to return the same AppError instance")
	}

	raw := stdErrors.New("raw")
	out := FromError(raw)
	if out.Code != ErrInternalServer.Code {
		t.Fatalf("expected internal server code, got %s", out.Code)
	}
	if out.Internal == nil {
		t.Fatal("expected internal error to be attached")
	}
}

func TestAuthErrorStatusCodes(t *testing.T) {
	cases := map[*AppError]int{
		ErrEmailOrPasswordIncorrect:   http.StatusUnauthorized,
		ErrUsedRefreshTokenOrNotExist: http.StatusUnauthorized,
		ErrTokenExpired:               http.StatusUnauthorized,
		ErrEmailAlreadyExists:         http.StatusConflict,
		ErrGoogleEmailNotVerified:     http.StatusForbidden,
		ErrUserNotVerified:            http.StatusForbidden,
		ErrOAuthExchangeFailed:        http.StatusBadGateway,
	}

	for err, want := range cases {
		if err.StatusCode != want {
			t.Fatalf("%s: expected status %d, got %d", err.Code, want, err.StatusCode)
		}
	}
}

func TestNewBadRequest(t *testing.T) {
	err := NewBadRequest("invalid payload")
	if err.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}
	if err.Message != "invalid payload" {
		t.Fatalf("unexpected message: %s", err.Message)
	}
}
