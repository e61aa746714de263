package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func newTestManager(t *testing.T, clock *fixedClock) *Manager {
	t.Helper()
	cfg := Config{Secret: testSecret}
	if clock != nil {
		cfg.Now = clock.Now
	}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestNewManagerRequiresSecret(t *testing.T) {
	if _, err := NewManager(Config{}); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}

func TestNewManagerCopiesSecret(t *testing.T) {
	secret := append([]byte(nil), testSecret...)
	m, err := NewManager(Config{Secret: secret})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	now := time.Now()
	token, err := m.Issue(NewClaims("alice", now.Add(time.Hour).Unix(), now.Unix()))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	secret[0] ^= 0xff
	if _, err := m.Decode(token); err != nil {
		t.Fatalf("expected decode to survive caller mutating its secret slice: %v", err)
	}
}

func TestIssueDecodeRoundTrip(t *testing.T) {
	m := newTestManager(t, nil)
	now := time.Now()

	cases := []Claims{
		NewClaims("admin", now.Add(time.Hour).Unix(), now.Unix()),
		NewClaims("user-with-unicode-ü", now.Add(time.Minute).Unix(), now.Add(-time.Minute).Unix()),
		NewClaims("42", now.Add(24*time.Hour).Unix(), now.Unix()).WithID("fixed-id"),
	}

	for _, in := range cases {
		token, err := m.Issue(in)
		if err != nil {
			t.Fatalf("issue %q: %v", in.Subject(), err)
		}
		out, err := m.Decode(token)
		if err != nil {
			t.Fatalf("decode %q: %v", in.Subject(), err)
		}
		if out.Subject() != in.Subject() || out.ExpiresAt() != in.ExpiresAt() || out.IssuedAt() != in.IssuedAt() {
			t.Fatalf("round trip mismatch: in=%+v out=%+v", in, out)
		}
		if in.ID() != "" && out.ID() != in.ID() {
			t.Fatalf("expected token id %q, got %q", in.ID(), out.ID())
		}
		if out.ID() == "" {
			t.Fatal("expected issued token to carry an id")
		}
		if again, _ := m.Decode(token); again != out {
			t.Fatalf("decode is not deterministic: %+v vs %+v", again, out)
		}
	}
}

func TestIssueAssignsDistinctIDs(t *testing.T) {
	m := newTestManager(t, nil)
	now := time.Now()
	c := NewClaims("alice", now.Add(time.Hour).Unix(), now.Unix())

	a, err := m.Issue(c)
	if err != nil {
		t.Fatalf("issue a: %v", err)
	}
	b, err := m.Issue(c)
	if err != nil {
		t.Fatalf("issue b: %v", err)
	}
	if a == b {
		t.Fatal("expected two tokens for the same claims to differ")
	}
}

func TestDecodeTamperedTokenNeverAccepted(t *testing.T) {
	m := newTestManager(t, nil)
	now := time.Now()
	token, err := m.Issue(NewClaims("admin", now.Add(time.Hour).Unix(), now.Unix()))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	for i := 0; i < len(token); i++ {
		replacement := byte('A')
		if token[i] == 'A' {
			replacement = 'B'
		}
		tampered := token[:i] + string(replacement) + token[i+1:]

		want := ErrSignatureInvalid
		if token[i] == '.' {
			want = ErrMalformedToken
		}
		claims, err := m.Decode(tampered)
		if err == nil {
			t.Fatalf("tampered token at byte %d accepted with subject %q", i, claims.Subject())
		}
		if !errors.Is(err, want) {
			t.Fatalf("tampered token at byte %d: expected %v, got %v", i, want, err)
		}
	}
}

func TestDecodeSignatureTamperIsSignatureInvalid(t *testing.T) {
	m := newTestManager(t, nil)
	now := time.Now()
	token, err := m.Issue(NewClaims("admin", now.Add(time.Hour).Unix(), now.Unix()))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Change the first signature character; every bit of it is significant.
	sigStart := strings.LastIndexByte(token, '.') + 1
	replacement := byte('A')
	if token[sigStart] == 'A' {
		replacement = 'B'
	}
	tampered := token[:sigStart] + string(replacement) + token[sigStart+1:]

	if _, err := m.Decode(tampered); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestDecodeWrongSecret(t *testing.T) {
	m := newTestManager(t, nil)
	other, err := NewManager(Config{Secret: []byte("another-secret-another-secret-!!")})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	now := time.Now()
	token, err := other.Issue(NewClaims("admin", now.Add(time.Hour).Unix(), now.Unix()))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := m.Decode(token); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	m := newTestManager(t, nil)

	inputs := []string{
		"",
		"garbage",
		"only.two",
		"a.b.c.d",
		"..",
		"eyJhbGciOiJIUzI1NiJ9..c2ln",
		"eyJhbGciOiJIUzI1NiJ9.bm90LWpzb24.",
	}
	for _, in := range inputs {
		if _, err := m.Decode(in); !errors.Is(err, ErrMalformedToken) {
			t.Fatalf("input %q: expected ErrMalformedToken, got %v", in, err)
		}
	}
}

func TestDecodeUnsignedSegmentsAreSignatureInvalid(t *testing.T) {
	m := newTestManager(t, nil)

	inputs := []string{
		"eyJhbGciOiJIUzI1NiJ9.!!!.sig",
		"eyJhbGciOiJIUzI1NiJ9.bm90LWpzb24.c2ln",
		"x.y.z",
		"eyJhbGciOiJIUzI1NiJ9.e30.***",
	}
	for _, in := range inputs {
		if _, err := m.Decode(in); !errors.Is(err, ErrSignatureInvalid) {
			t.Fatalf("input %q: expected ErrSignatureInvalid, got %v", in, err)
		}
	}
}

func TestDecodeRejectsWrongAlgorithm(t *testing.T) {
	m := newTestManager(t, nil)
	now := time.Now()

	claims := gjwt.RegisteredClaims{
		Subject:   "admin",
		IssuedAt:  gjwt.NewNumericDate(now),
		ExpiresAt: gjwt.NewNumericDate(now.Add(time.Hour)),
	}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS512, claims)
	token, err := tok.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.Decode(token); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected wrong algorithm to be rejected as ErrSignatureInvalid, got %v", err)
	}
}

func TestDecodeRequiresExpiry(t *testing.T) {
	m := newTestManager(t, nil)
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, gjwt.RegisteredClaims{
		Subject:  "admin",
		IssuedAt: gjwt.NewNumericDate(time.Now()),
	})
	token, err := tok.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.Decode(token); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("expected ErrMalformedToken for missing exp, got %v", err)
	}
}

func TestDecodeReportsLibraryExpiry(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	clock := &fixedClock{now: t0}
	m := newTestManager(t, clock)

	token, err := m.Issue(NewClaims("admin", t0.Add(time.Hour).Unix(), t0.Unix()))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock.now = t0.Add(time.Hour - time.Second)
	if _, err := m.Decode(token); err != nil {
		t.Fatalf("expected token to decode one second before expiry: %v", err)
	}

	clock.now = t0.Add(time.Hour)
	if _, err := m.Decode(token); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired at expiry, got %v", err)
	}
}

func TestDecodeIssuer(t *testing.T) {
	issuing, err := NewManager(Config{Secret: testSecret, Issuer: "other"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	verifying, err := NewManager(Config{Secret: testSecret, Issuer: "sessiongate"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	now := time.Now()
	token, err := issuing.Issue(NewClaims("admin", now.Add(time.Hour).Unix(), now.Unix()))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := verifying.Decode(token); !errors.Is(err, ErrInvalidClaims) {
		t.Fatalf("expected ErrInvalidClaims for issuer mismatch, got %v", err)
	}
	if _, err := issuing.Decode(token); err != nil {
		t.Fatalf("expected matching issuer to decode: %v", err)
	}
}

func TestClaimsExpiredAt(t *testing.T) {
	c := NewClaims("a", 100, 50)
	if c.ExpiredAt(time.Unix(99, 999_000_000)) {
		t.Fatal("expected claims to be live just before expiry")
	}
	if !c.ExpiredAt(time.Unix(100, 0)) {
		t.Fatal("expected claims to be expired at expiry")
	}
	if !c.ExpiresTime().Equal(time.Unix(100, 0)) {
		t.Fatalf("unexpected ExpiresTime %v", c.ExpiresTime())
	}
}
