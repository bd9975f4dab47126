package soundwave

import (
	"context"
	"errors"
	"testing"
)

func TestCheckSessionPass(t *testing.T) {
	env := newTestEnv(t, nil)
	sid := env.login(t, "u1")

	if err := env.engine.CheckSession(context.Background(), "u1", sid); err != nil {
		t.Fatalf("expected pass, got %v", err)
	}
	if env.accounts.Calls() != 1 {
		t.Fatalf("expected one account lookup, got %d", env.accounts.Calls())
	}
	if len(env.bc.Calls()) != 0 {
		t.Fatalf("pass must not broadcast")
	}
}

func TestCheckSessionMissingCredentials(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	for _, tc := range []struct{ user, sid string }{{"", "s1"}, {"u1", ""}, {"", ""}} {
		err := env.engine.CheckSession(ctx, tc.user, tc.sid)
		if !errors.Is(err, ErrMissingCredentials) {
			t.Fatalf("(%q,%q): expected ErrMissingCredentials, got %v", tc.user, tc.sid, err)
		}
		if Code(err) != "MISSING_CREDENTIALS" || HTTPStatus(err) != 401 {
			t.Fatalf("unexpected mapping %s %d", Code(err), HTTPStatus(err))
		}
	}
	if env.accounts.Calls() != 0 {
		t.Fatalf("missing credentials must not reach the account store")
	}
}

func TestCheckSessionInvalidSkipsAccountLookup(t *testing.T) {
	env := newTestEnv(t, nil)

	err := env.engine.CheckSession(context.Background(), "u1", "missing-session")
	if !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
	if Code(err) != "INVALID_SESSION" || HTTPStatus(err) != 401 {
		t.Fatalf("unexpected mapping %s %d", Code(err), HTTPStatus(err))
	}
	if env.accounts.Calls() != 0 {
		t.Fatalf("invalid session must not trigger an account lookup")
	}
}

func TestCheckSessionDeactivatedBroadcastsOnce(t *testing.T) {
	env := newTestEnv(t, nil)
	sid := env.login(t, "u1")
	env.accounts.setActive("u1", false)

	err := env.engine.CheckSession(context.Background(), "u1", sid)
	if !errors.Is(err, ErrAccountDeactivated) {
		t.Fatalf("expected ErrAccountDeactivated, got %v", err)
	}
	if Code(err) != "ACCOUNT_DEACTIVATED" || HTTPStatus(err) != 403 {
		t.Fatalf("unexpected mapping %s %d", Code(err), HTTPStatus(err))
	}

	calls := env.bc.Calls()
	if len(calls) != 1 || calls[0].Event != EventForceLogout || calls[0].UserID != "u1" {
		t.Fatalf("expected exactly one force-logout broadcast, got %+v", calls)
	}
}

func TestCheckSessionUnknownAccountIsInvalid(t *testing.T) {
	env := newTestEnv(t, nil)
	sid, err := env.engine.CreateSession(context.Background(), User{ID: "deleted"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := env.engine.CheckSession(context.Background(), "deleted", sid); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
	if len(env.bc.Calls()) != 0 {
		t.Fatalf("unknown account must not broadcast")
	}
}

func TestCheckSessionBackendFailures(t *testing.T) {
	env := newTestEnv(t, nil)
	sid := env.login(t, "u1")

	lookupErr := errors.New("db down")
	env.accounts.err = lookupErr
	err := env.engine.CheckSession(context.Background(), "u1", sid)
	if !errors.Is(err, lookupErr) || HTTPStatus(err) != 500 {
		t.Fatalf("expected account lookup error as 500, got %v", err)
	}

	env.accounts.err = nil
	env.mr.Close()
	err = env.engine.CheckSession(context.Background(), "u1", sid)
	if !errors.Is(err, ErrStoreUnavailable) || HTTPStatus(err) != 500 {
		t.Fatalf("expected store error as 500, got %v", err)
	}
}
