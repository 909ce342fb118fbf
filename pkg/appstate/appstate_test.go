package appstate_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/goliatone/go-boarding/pkg/appstate"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func signed(t *testing.T, key []byte, subject string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, appstate.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	out, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return out
}

func TestSignInAndOut(t *testing.T) {
	key := []byte("secret")
	ctx := appstate.New(appstate.WithVerifyKey(key), appstate.WithClock(func() time.Time { return now }))
	ctx.Init("default", "/theme/default.css")

	if _, err := ctx.Token(); !errors.Is(err, appstate.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	token := signed(t, key, "operator", now.Add(time.Hour))
	if err := ctx.SignIn(token); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	snap := ctx.Snapshot()
	if !snap.Authenticated || snap.Subject != "operator" || snap.Theme != "default" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if got, _ := ctx.Token(); got != token {
		t.Fatalf("expected token back")
	}

	ctx.SignOut()
	snap = ctx.Snapshot()
	if snap.Authenticated || snap.Token != "" || snap.Theme != "default" {
		t.Fatalf("sign out must clear the session only, got %+v", snap)
	}
}

func TestSignIn_RejectsBadSignatureAndExpired(t *testing.T) {
	ctx := appstate.New(appstate.WithVerifyKey([]byte("secret")), appstate.WithClock(func() time.Time { return now }))

	if err := ctx.SignIn(signed(t, []byte("other"), "x", now.Add(time.Hour))); err == nil {
		t.Fatalf("expected signature error")
	}
	if err := ctx.SignIn(signed(t, []byte("secret"), "x", now.Add(-time.Minute))); err == nil {
		t.Fatalf("expected expiry error")
	}
	if ctx.Snapshot().Authenticated {
		t.Fatalf("failed sign in must not authenticate")
	}
}

func TestConcurrentWritersKeepOtherFields(t *testing.T) {
	key := []byte("secret")
	ctx := appstate.New(appstate.WithVerifyKey(key), appstate.WithClock(func() time.Time { return now }))
	token := signed(t, key, "operator", now.Add(time.Hour))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			ctx.SetTheme("gold", "/theme/gold.css")
		}
	}()
	go func() {
		defer wg.Done()
		_ = ctx.SignIn(token)
	}()
	wg.Wait()

	snap := ctx.Snapshot()
	if snap.Theme != "gold" || !snap.Authenticated {
		t.Fatalf("expected both writes to land, got %+v", snap)
	}
}
