package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	m := NewManager("super-secret", 0)

	tok, err := m.Issue("user-123")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	got, err := m.Verify(tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if got != "user-123" {
		t.Fatalf("subject mismatch: got %q want %q", got, "user-123")
	}
}

func TestIssue_NoExpiryByDefault(t *testing.T) {
	t.Parallel()

	m := NewManager("secret", 0)

	tok, err := m.Issue("u1")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	claims, err := m.ParseAndValidate(tok)
	if err != nil {
		t.Fatalf("ParseAndValidate error: %v", err)
	}
	if claims.ExpiresAt != nil {
		t.Fatalf("expected no exp claim, got %v", claims.ExpiresAt)
	}
	if claims.IssuedAt == nil {
		t.Fatalf("expected iat claim")
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	m := NewManager("secret", time.Minute)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	tok, err := m.Issue("u1")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	m.now = time.Now
	if _, err := m.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewManager("right-secret", 0).Issue("u2")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, err := NewManager("wrong-secret", 0).Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for bad signature, got %v", err)
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	m := NewManager("secret", 0)
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:  "u3",
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign HS512: %v", err)
	}
	if _, err := m.Verify(hs512); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected HS512 token to be rejected, got %v", err)
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := m.Verify(none); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected alg=none token to be rejected, got %v", err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	m := NewManager("k", 0)

	for _, raw := range []string{"", "not.a.jwt", strings.Repeat("a", 40)} {
		if _, err := m.Verify(raw); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", raw, err)
		}
	}
}

func TestVerify_MissingSubject(t *testing.T) {
	t.Parallel()

	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(time.Now())}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := NewManager("k", 0).Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for token without subject, got %v", err)
	}
}

func TestIssue_EmptySubject(t *testing.T) {
	t.Parallel()

	if _, err := NewManager("k", 0).Issue(""); err == nil {
		t.Fatalf("expected error for empty subject")
	}
}
