package local

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestMakeVerifyToken(t *testing.T) {
	gen := tokenGenerator{secretKey: []byte("secret"), timeout: 3 * 24 * time.Hour}

	now := time.Now()
	hash, _ := bcrypt.GenerateFromPassword([]byte("pwd"), bcrypt.MinCost)
	acc := Account{
		UID:          "5b0e8a4c-3c1e-4b8e-9f59-8c1f0e1a2b3c",
		Email:        "t@test.test",
		DisplayName:  "T",
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastLogin:    now,
	}

	validToken, _ := gen.MakeToken(acc)

	// generate an expired token
	dayLate := gen.timeout + (24 * time.Hour)
	NowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, _ := gen.MakeToken(acc)
	NowFunc = time.Now // reset

	relogged := acc
	relogged.LastLogin = now.Add(time.Minute)

	otherKey := tokenGenerator{secretKey: []byte("other"), timeout: gen.timeout}
	forged, _ := otherKey.MakeToken(acc)

	tests := []struct {
		name    string
		acc     Account
		token   string
		wantErr error
	}{
		{name: "no token", acc: acc, wantErr: errInvalidToken},
		{name: "invalid parts len", acc: acc, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", acc: acc, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", acc: acc, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", acc: acc, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "other secret", acc: acc, token: forged, wantErr: errInvalidToken},
		{name: "logged in since", acc: relogged, token: validToken, wantErr: errInvalidToken},
		{name: "expired token", acc: acc, token: expiredToken, wantErr: errTokenExpired},
		{name: "valid token", acc: acc, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := gen.verifyToken(tt.acc, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	uid := "5b0e8a4c-3c1e-4b8e-9f59-8c1f0e1a2b3c"
	got, err := decodeUID(EncodeUID(uid))
	if err != nil || got != uid {
		t.Errorf("decodeUID(EncodeUID()) = %q, %v, want %q", got, err, uid)
	}
	if _, err := decodeUID("!!"); err == nil {
		t.Errorf("decodeUID() error = nil, want error")
	}
}
