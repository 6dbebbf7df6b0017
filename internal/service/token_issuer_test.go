package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"therapist-booking/internal/domain"
	"therapist-booking/internal/repository"
)

func newTestIssuer(tokens repository.TokenRepository, clock *fakeClock) *TokenIssuer {
	issuer := NewTokenIssuer(tokens, map[domain.Purpose]time.Duration{
		domain.PurposePasswordReset: 45 * time.Minute,
	})
	issuer.now = clock.Now
	return issuer
}

func TestTokenIssuer_CreatesTokenWithTTL(t *testing.T) {
	clock := newFakeClock()
	tokens := repository.NewMemoryTokenRepository()
	issuer := newTestIssuer(tokens, clock)

	token, err := issuer.Issue(context.Background(), domain.PurposeEmailVerification, "a@x.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !token.Expires.Equal(clock.Now().Add(30 * time.Minute)) {
		t.Fatalf("expected expires now+30m, got %v", token.Expires)
	}
	if !isValidCode(token.Token) {
		t.Fatalf("expected 6 digit code, got %q", token.Token)
	}
	if token.ID == "" || token.Email != "a@x.com" || token.Purpose != domain.PurposeEmailVerification {
		t.Fatalf("unexpected token %+v", token)
	}
	if n := tokens.Count(domain.PurposeEmailVerification, "a@x.com"); n != 1 {
		t.Fatalf("expected 1 stored token, got %d", n)
	}
}

func TestTokenIssuer_TTLPerPurpose(t *testing.T) {
	clock := newFakeClock()
	issuer := newTestIssuer(repository.NewMemoryTokenRepository(), clock)

	token, err := issuer.Issue(context.Background(), domain.PurposePasswordReset, "a@x.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !token.Expires.Equal(clock.Now().Add(45 * time.Minute)) {
		t.Fatalf("expected configured ttl, got %v", token.Expires.Sub(clock.Now()))
	}
	if issuer.TTL(domain.PurposeDoctorRegistration) != 30*time.Minute {
		t.Fatalf("expected default ttl")
	}
}

func TestTokenIssuer_SecondIssueSupersedesFirst(t *testing.T) {
	clock := newFakeClock()
	tokens := repository.NewMemoryTokenRepository()
	issuer := newTestIssuer(tokens, clock)
	issuer.code = fixedCodes("111111", "222222")
	ctx := context.Background()

	if _, err := issuer.Issue(ctx, domain.PurposeEmailVerification, "a@x.com"); err != nil {
		t.Fatalf("first issue: %v", err)
	}
	clock.Advance(time.Minute)
	second, err := issuer.Issue(ctx, domain.PurposeEmailVerification, "a@x.com")
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}
	if n := tokens.Count(domain.PurposeEmailVerification, "a@x.com"); n != 1 {
		t.Fatalf("expected 1 outstanding token, got %d", n)
	}
	got, err := tokens.GetByEmail(ctx, domain.PurposeEmailVerification, "a@x.com")
	if err != nil || got.Token != second.Token {
		t.Fatalf("expected second token outstanding, got %+v,%v", got, err)
	}
}

func TestTokenIssuer_PurposesDoNotInterfere(t *testing.T) {
	clock := newFakeClock()
	tokens := repository.NewMemoryTokenRepository()
	issuer := newTestIssuer(tokens, clock)
	ctx := context.Background()

	if _, err := issuer.Issue(ctx, domain.PurposeEmailVerification, "a@x.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := issuer.Issue(ctx, domain.PurposePasswordReset, "a@x.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens.Count(domain.PurposeEmailVerification, "a@x.com") != 1 || tokens.Count(domain.PurposePasswordReset, "a@x.com") != 1 {
		t.Fatalf("expected one token per purpose")
	}
}

func TestTokenIssuer_Validation(t *testing.T) {
	issuer := newTestIssuer(repository.NewMemoryTokenRepository(), newFakeClock())
	if _, err := issuer.Issue(context.Background(), domain.PurposeEmailVerification, "  "); !errors.Is(err, ErrInvalidFields) {
		t.Fatalf("expected ErrInvalidFields, got %v", err)
	}
	if _, err := issuer.Issue(context.Background(), domain.Purpose("other"), "a@x.com"); !errors.Is(err, ErrInvalidFields) {
		t.Fatalf("expected ErrInvalidFields, got %v", err)
	}
}

func TestTokenIssuer_StoreFailure(t *testing.T) {
	issuer := newTestIssuer(failingTokenRepo{err: errStoreDown}, newFakeClock())
	_, err := issuer.Issue(context.Background(), domain.PurposeEmailVerification, "a@x.com")
	if !errors.Is(err, ErrStoreUnavailable) || !errors.Is(err, errStoreDown) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if KindOf(err) != KindDependency {
		t.Fatalf("expected dependency kind, got %v", KindOf(err))
	}
}

func TestGenerateCode_Range(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := generateCode()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !isValidCode(code) {
			t.Fatalf("code out of range: %q", code)
		}
	}
}

func TestIsValidCode(t *testing.T) {
	cases := map[string]bool{
		"100000":  true,
		"999999":  true,
		"012345":  false,
		"12345":   false,
		"1234567": false,
		"12a456":  false,
		"":        false,
	}
	for code, want := range cases {
		if got := isValidCode(code); got != want {
			t.Fatalf("isValidCode(%q) = %v, want %v", code, got, want)
		}
	}
}

func TestTokenIssuer_RestoresSingleTokenAfterRace(t *testing.T) {
	clock := newFakeClock()
	tokens := repository.NewMemoryTokenRepository()
	issuer := newTestIssuer(tokens, clock)
	ctx := context.Background()

	// dos emisiones concurrentes pueden dejar dos tokens pendientes
	for _, tok := range []domain.Token{
		{ID: "old-1", Purpose: domain.PurposeEmailVerification, Email: "a@x.com", Token: "111111", Expires: clock.Now().Add(20 * time.Minute)},
		{ID: "old-2", Purpose: domain.PurposeEmailVerification, Email: "a@x.com", Token: "222222", Expires: clock.Now().Add(30 * time.Minute)},
	} {
		if err := tokens.Create(ctx, tok); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	token, err := issuer.Issue(ctx, domain.PurposeEmailVerification, "a@x.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := tokens.Count(domain.PurposeEmailVerification, "a@x.com"); n != 1 {
		t.Fatalf("expected 1 outstanding token, got %d", n)
	}
	for _, old := range []string{"111111", "222222"} {
		if old == token.Token {
			continue
		}
		if _, err := tokens.GetByToken(ctx, domain.PurposeEmailVerification, old); err == nil {
			t.Fatalf("expected old token %s removed", old)
		}
	}
}
