package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/chirp-social/chirp/internal/auth"
	"github.com/chirp-social/chirp/internal/models"
	"github.com/chirp-social/chirp/pkg/errors"
)

type stubVerifier struct {
	claims map[string]*auth.Claims
	err    error
}

func (s *stubVerifier) VerifyAccess(token string) (*auth.Claims, error) {
	if s.err != nil {
		return nil, s.err
	}
	claims, ok := s.claims[token]
	if !ok {
		return nil, errors.ErrAccessTokenInvalid
	}
	return claims, nil
}

func newAuthTestRouter(verifier TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	protected := r.Group("/", Auth(verifier))
	protected.GET("/me", func(c *gin.Context) {
		claims, _ := ClaimsFrom(c)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID})
	})
	protected.GET("/verified", RequireVerified(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	return r
}

func doAuthRequest(r *gin.Engine, path, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestAuthAcceptsValidBearerToken(t *testing.T) {
	verifier := &stubVerifier{claims: map[string]*auth.Claims{
		"good-token": {UserID: "user-1", Kind: auth.TokenKindAccess, Verify: models.VerifyVerified},
	}}
	r := newAuthTestRouter(verifier)

	rec := doAuthRequest(r, "/me", "Bearer good-token")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "user-1")
}

func TestAuthRejectsMissingOrMalformedHeader(t *testing.T) {
	r := newAuthTestRouter(&stubVerifier{})

	for _, header := range []string{"", "Bearer", "Bearer   ", "Basic abc123", "good-token"} {
		rec := doAuthRequest(r, "/me", header)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
		require.Equal(t, "UNAUTHORIZED", errorCode(t, rec))
	}
}

func TestAuthSurfacesVerifierErrorCodes(t *testing.T) {
	r := newAuthTestRouter(&stubVerifier{err: errors.ErrTokenExpired})

	rec := doAuthRequest(r, "/me", "Bearer stale-token")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "TOKEN_EXPIRED", errorCode(t, rec))
	require.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	r = newAuthTestRouter(&stubVerifier{})
	rec = doAuthRequest(r, "/me", "Bearer forged-token")
	require.Equal(t, "ACCESS_TOKEN_INVALID", errorCode(t, rec))
}

func TestRequireVerifiedBlocksUnverifiedUsers(t *testing.T) {
	verifier := &stubVerifier{claims: map[string]*auth.Claims{
		"verified":   {UserID: "user-1", Kind: auth.TokenKindAccess, Verify: models.VerifyVerified},
		"unverified": {UserID: "user-2", Kind: auth.TokenKindAccess, Verify: models.VerifyUnverified},
	}}
	r := newAuthTestRouter(verifier)

	rec := doAuthRequest(r, "/verified", "Bearer verified")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doAuthRequest(r, "/verified", "Bearer unverified")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "USER_NOT_VERIFIED", errorCode(t, rec))
}

func TestBearerTokenExtraction(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer  abc ", "abc", true},
		{"", "", false},
		{"Bearer ", "", false},
		{"Token abc", "", false},
	}

	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			c.Request.Header.Set("Authorization", tc.header)
		}

		token, ok := BearerToken(c)
		require.Equal(t, tc.ok, ok, "header %q", tc.header)
		require.Equal(t, tc.token, token, "header %q", tc.header)
	}
}
