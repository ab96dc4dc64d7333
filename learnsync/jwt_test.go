// Copyright 2025 shann2345
// SPDX-License-Identifier: Apache-2.0

package learnsync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shann2345/go-learnsync/internal/auth"
)

func TestGenerateAndValidateToken(t *testing.T) {
	j := NewJWTAuth("test-secret")

	token, err := j.GenerateToken("student@school.edu", "device-1", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := j.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "student@school.edu", claims.Subject)
	require.Equal(t, "device-1", claims.DeviceID)
	require.Equal(t, "go-learnsync", claims.Issuer)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTAuth("secret-a").GenerateToken("student@school.edu", "device-1", time.Hour)
	require.NoError(t, err)

	_, err = NewJWTAuth("secret-b").ValidateToken(token)
	require.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	j := NewJWTAuth("test-secret")
	token, err := j.GenerateToken("student@school.edu", "device-1", -time.Minute)
	require.NoError(t, err)

	_, err = j.ValidateToken(token)
	require.Error(t, err)
}

func TestTokenFuncMintsValidTokens(t *testing.T) {
	j := NewJWTAuth("test-secret")
	tok := j.TokenFunc("student@school.edu", "device-1", time.Hour)

	token, err := tok(context.Background())
	require.NoError(t, err)

	claims, err := j.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "student@school.edu", claims.Subject)
}

func TestGetUserEmailAndDeviceIDFromRequest(t *testing.T) {
	j := NewJWTAuth("test-secret")
	token, err := j.GenerateToken("student@school.edu", "device-1", time.Hour)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/server-time", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	email, err := j.GetUserEmail(r)
	require.NoError(t, err)
	require.Equal(t, "student@school.edu", email)

	deviceID, err := j.GetDeviceID(r)
	require.NoError(t, err)
	require.Equal(t, "device-1", deviceID)

	// Missing and malformed headers
	r = httptest.NewRequest(http.MethodGet, "/server-time", nil)
	_, err = j.GetUserEmail(r)
	require.Error(t, err)

	r.Header.Set("Authorization", token) // no Bearer prefix
	_, err = j.GetUserEmail(r)
	require.Error(t, err)
}

func TestMiddlewareSetsAuthContext(t *testing.T) {
	j := NewJWTAuth("test-secret")
	token, err := j.GenerateToken("student@school.edu", "device-1", time.Hour)
	require.NoError(t, err)

	var gotEmail, gotDevice string
	handler := j.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEmail, _ = auth.GetUserEmail(r.Context())
		gotDevice, _ = auth.GetDeviceID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "student@school.edu", gotEmail)
	require.Equal(t, "device-1", gotDevice)
}

func TestMiddlewareRejectsBadTokens(t *testing.T) {
	j := NewJWTAuth("test-secret")
	handler := j.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	// No header
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Malformed header
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Token abc")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Signed with a different secret
	other, err := NewJWTAuth("other-secret").GenerateToken("student@school.edu", "device-1", time.Hour)
	require.NoError(t, err)
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+other)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
