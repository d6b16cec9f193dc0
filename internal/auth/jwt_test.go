package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = strings.Repeat("s", 32)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestAccessTokenRoundTrip(t *testing.T) {
	mgr := NewJWTManager(testSecret, 24*time.Hour)

	token, expires, err := mgr.GenerateAccessToken(Identity{ResidentID: 7, Name: "Ann"}, []string{"RESIDENT"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if time.Until(expires) < 23*time.Hour {
		t.Fatalf("unexpected expiry %s", expires)
	}

	claims, identity, err := mgr.ParseAndValidate(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if identity.ResidentID != 7 || identity.Name != "Ann" {
		t.Fatalf("unexpected identity %+v", identity)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "RESIDENT" {
		t.Fatalf("unexpected roles %v", claims.Roles)
	}
	if claims.ID == "" {
		t.Fatal("expected jti")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	mgr := NewJWTManager(testSecret, time.Hour).WithClock(fixedClock(issued))

	token, _, err := mgr.GenerateAccessToken(Identity{ResidentID: 1}, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	later := mgr.WithClock(fixedClock(issued.Add(time.Hour + time.Second)))
	if _, _, err := later.ParseAndValidate(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	atExpiry := mgr.WithClock(fixedClock(issued.Add(time.Hour)))
	if _, _, err := atExpiry.ParseAndValidate(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired at exact expiry, got %v", err)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, _, err := NewJWTManager(testSecret, time.Hour).GenerateAccessToken(Identity{ResidentID: 1}, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	other := NewJWTManager(strings.Repeat("x", 32), time.Hour)
	if _, _, err := other.ParseAndValidate(token); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("expected ErrTokenSignature, got %v", err)
	}
}

func TestParseRejectsOtherAlgorithms(t *testing.T) {
	claims := jwt.MapClaims{"sub": "1", "exp": time.Now().Add(time.Hour).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	mgr := NewJWTManager(testSecret, time.Hour)
	if _, _, err := mgr.ParseAndValidate(token); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("expected ErrTokenSignature, got %v", err)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	mgr := NewJWTManager(testSecret, time.Hour)

	for _, raw := range []string{"", "abc", "a.b.c"} {
		if _, _, err := mgr.ParseAndValidate(raw); !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("%q: expected ErrTokenMalformed, got %v", raw, err)
		}
	}
}

func TestParseRequiresExpiry(t *testing.T) {
	token := signMap(t, jwt.MapClaims{"sub": "3"})

	mgr := NewJWTManager(testSecret, time.Hour)
	if _, _, err := mgr.ParseAndValidate(token); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestParseNormalisesSubjectShapes(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name   string
		claims jwt.MapClaims
		id     int64
		who    string
	}{
		{"integer", jwt.MapClaims{"sub": 42, "exp": exp}, 42, ""},
		{"string", jwt.MapClaims{"sub": "42", "exp": exp, "name": "Ann"}, 42, "Ann"},
		{"object", jwt.MapClaims{"sub": map[string]any{"id": 42, "name": "Ann"}, "exp": exp}, 42, "Ann"},
		{"object with string id", jwt.MapClaims{"sub": map[string]any{"id": "42"}, "exp": exp}, 42, ""},
		{"legacy id claim", jwt.MapClaims{"id": 42, "exp": exp}, 42, ""},
	}

	mgr := NewJWTManager(testSecret, time.Hour)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, identity, err := mgr.ParseAndValidate(signMap(t, tc.claims))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if identity.ResidentID != tc.id || identity.Name != tc.who {
				t.Fatalf("unexpected identity %+v", identity)
			}
		})
	}
}

func TestParseRejectsBadSubjects(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	mgr := NewJWTManager(testSecret, time.Hour)

	for _, claims := range []jwt.MapClaims{
		{"exp": exp},
		{"sub": "abc", "exp": exp},
		{"sub": -5, "exp": exp},
		{"sub": map[string]any{"name": "Ann"}, "exp": exp},
		{"sub": []int{1}, "exp": exp},
	} {
		if _, _, err := mgr.ParseAndValidate(signMap(t, claims)); !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("%v: expected ErrTokenMalformed, got %v", claims, err)
		}
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("pw")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if strings.Contains(hash, "pw$") {
		t.Fatal("hash should not embed the password")
	}

	ok, err := VerifyPassword("pw", hash)
	if err != nil || !ok {
		t.Fatalf("expected match, got ok=%v err=%v", ok, err)
	}
	ok, err = VerifyPassword("nope", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch, got ok=%v err=%v", ok, err)
	}
}

func signMap(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}
