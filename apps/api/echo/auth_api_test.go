package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/tests"
)

func Test_authApi_signUp(t *testing.T) {
	srv, env := newTestServer(t)
	env.CreateUser(t, "taken@test.test", "Taken", user.RoleStudent, true)

	signUp := func(body map[string]interface{}) *TokenResponse {
		req, rec := newRequest(http.MethodPost, "/v1/auth/signup", marshalObj(t, body))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var resp TokenResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return &resp
	}

	t.Run("Student", func(t *testing.T) {
		resp := signUp(map[string]interface{}{
			"email": " New@Test.test ", "password": testutil.Password,
			"role": "STUDENT", "displayName": "New", "registrationNumber": "S-1",
		})
		assert.NotEmpty(t, resp.Token)
		require.NotNil(t, resp.User)
		assert.Equal(t, "new@test.test", resp.User.Email)
		assert.Equal(t, user.RoleStudent, resp.User.Role())
		assert.True(t, resp.User.IsActive)

		stored, found, err := env.Profiles.Get(context.Background(), resp.User.UID)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "New", stored.DisplayName)
		assert.Equal(t, "S-1", stored.Details.(user.StudentDetails).RegistrationNumber)
	})

	runHTTPTests(t, srv, []httpTest{
		{
			name: "Email in use", method: http.MethodPost, path: "/v1/auth/signup",
			body: marshalObj(t, map[string]interface{}{
				"email": "taken@test.test", "password": testutil.Password, "role": "faculty", "displayName": "X",
			}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"email": "Email is already in use"}),
		},
		{
			name: "Weak password", method: http.MethodPost, path: "/v1/auth/signup",
			body: marshalObj(t, map[string]interface{}{
				"email": "weak@test.test", "password": "password", "role": "faculty", "displayName": "X",
			}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"password": "Password is too weak"}),
		},
		{
			name: "Missing fields", method: http.MethodPost, path: "/v1/auth/signup",
			body:     marshalObj(t, map[string]interface{}{"role": "student", "displayName": "X"}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"email": "this field is required", "password": "this field is required"}),
		},
		{
			name: "Unknown role", method: http.MethodPost, path: "/v1/auth/signup",
			body: marshalObj(t, map[string]interface{}{
				"email": "role@test.test", "password": testutil.Password, "role": "janitor", "displayName": "X",
			}),
			wantCode: http.StatusBadRequest,
		},
	})
}

func Test_authApi_signIn(t *testing.T) {
	srv, env := newTestServer(t)
	fac := env.CreateUser(t, "fac@test.test", "Fac", user.RoleFaculty, true)

	creds := func(email, pwd string) []byte {
		return marshalObj(t, map[string]string{"email": email, "password": pwd})
	}
	invalid := marshalObj(t, httpErr{Error: "Invalid email or password"})

	runHTTPTests(t, srv, []httpTest{
		{name: "Unknown email", method: http.MethodPost, path: "/v1/auth/signin", body: creds("nope@test.test", testutil.Password), wantCode: http.StatusBadRequest, wantData: invalid},
		{name: "Wrong password", method: http.MethodPost, path: "/v1/auth/signin", body: creds("fac@test.test", "Wr0ng!Pass"), wantCode: http.StatusBadRequest, wantData: invalid},
		{
			name: "Invalid email", method: http.MethodPost, path: "/v1/auth/signin", body: creds("fac", testutil.Password),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
	})

	req, rec := newRequest(http.MethodPost, "/v1/auth/signin", creds("FAC@test.test", testutil.Password))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.User)
	assert.Equal(t, fac.UID, resp.User.UID)
	assert.Equal(t, user.RoleFaculty, resp.User.Role())
	assert.False(t, resp.User.LastLogin.Before(resp.User.JoinedAt))

	// the token authenticates the user
	req, rec = newAuthRequest(http.MethodGet, "/v1/me", resp.Token)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var me user.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, fac.UID, me.UID)
}

func Test_authApi_me(t *testing.T) {
	srv, env := newTestServer(t)
	active := env.CreateUser(t, "active@test.test", "Active", user.RoleStudent, true)
	inactive := env.CreateUser(t, "inactive@test.test", "Inactive", user.RoleStudent, false)
	ghost := active
	ghost.UID = "ghost"

	runHTTPTests(t, srv, []httpTest{
		{name: "Auth required", path: "/v1/me", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "Bad token", path: "/v1/me", token: "lol", wantCode: http.StatusUnauthorized},
		{name: "Deactivated", path: "/v1/me", token: getToken(t, srv, inactive), wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "account deactivated"})},
		{name: "No profile", path: "/v1/me", token: getToken(t, srv, ghost), wantCode: http.StatusUnauthorized},
		{name: "OK", path: "/v1/me", token: getToken(t, srv, active), wantCode: http.StatusOK, wantData: marshalObj(t, active)},
	})
}

func Test_authApi_passwordReset(t *testing.T) {
	srv, env := newTestServer(t)
	prof := env.CreateUser(t, "reset@test.test", "Reset", user.RoleStudent, true)

	success := marshalObj(t, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
	runHTTPTests(t, srv, []httpTest{
		{
			name: "Invalid email", method: http.MethodPost, path: "/v1/auth/password-reset",
			body:     marshalObj(t, map[string]string{"email": "reset"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "Unknown email", method: http.MethodPost, path: "/v1/auth/password-reset",
			body:     marshalObj(t, map[string]string{"email": "unknown@test.test"}),
			wantCode: http.StatusOK, wantData: success,
		},
		{
			name: "Known email", method: http.MethodPost, path: "/v1/auth/password-reset",
			body:     marshalObj(t, map[string]string{"email": "Reset@Test.test"}),
			wantCode: http.StatusOK, wantData: success,
		},
	})

	sent := env.Mailer.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "reset@test.test", sent[0].To[0].Address)

	// extract the uid & token from the reset link
	m := regexp.MustCompile(`uid=([^&\s]+)&token=(\S+)`).FindStringSubmatch(sent[0].TextContent)
	require.Len(t, m, 3, sent[0].TextContent)
	uid, token := m[1], m[2]

	newPwd := "N3w!Secret"
	confirm := func(uid, token, pwd string) []byte {
		return marshalObj(t, map[string]string{"uid": uid, "token": token, "password": pwd})
	}
	runHTTPTests(t, srv, []httpTest{
		{
			name: "Missing fields", method: http.MethodPost, path: "/v1/auth/password-reset-confirm",
			body: marshalObj(t, map[string]string{}), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{
				"uid": "this field is required", "token": "this field is required", "password": "this field is required",
			}),
		},
		{
			name: "Tampered token", method: http.MethodPost, path: "/v1/auth/password-reset-confirm",
			body: confirm(uid, token+"x", newPwd), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "invalid or expired password reset link"}),
		},
		{
			name: "Weak password", method: http.MethodPost, path: "/v1/auth/password-reset-confirm",
			body: confirm(uid, token, "123"), wantCode: http.StatusBadRequest,
		},
		{
			name: "OK", method: http.MethodPost, path: "/v1/auth/password-reset-confirm",
			body: confirm(uid, token, newPwd), wantCode: http.StatusOK,
			wantData: marshalObj(t, SuccessResponse{Success: "Password has been reset with the new password."}),
		},
	})

	_, err := env.Directory.Authenticate(context.Background(), prof.Email, newPwd)
	assert.NoError(t, err)
}

func Test_authApi_refreshToken(t *testing.T) {
	srv, env := newTestServer(t)
	prof := env.CreateUser(t, "refresh@test.test", "Refresh", user.RoleAdmin, true)

	runHTTPTests(t, srv, []httpTest{
		{name: "Auth required", method: http.MethodPost, path: "/v1/auth/token-refresh", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
	})

	req, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", getToken(t, srv, prof))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
}

func Test_authApi_rateLimit(t *testing.T) {
	srv, _ := newTestServer(t, func(conf *core.Config) {
		conf.Server.AuthRateLimit = 0.001
		conf.Server.AuthRateBurst = 2
	})

	body := marshalObj(t, map[string]string{"email": "nobody@test.test"})
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req, rec := newRequest(http.MethodPost, "/v1/auth/password-reset", body)
		srv.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// other endpoints are not throttled
	req, rec := newRequest(http.MethodGet, "/v1/me")
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
