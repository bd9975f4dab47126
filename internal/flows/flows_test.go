package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/soundwave/session"
)

var errBackend = errors.New("backend down")

type fakeSessions struct {
	put      map[string]session.Record
	present  bool
	replaced bool
	err      error
	removed  []string
	cleared  []string
}

func (f *fakeSessions) Put(_ context.Context, userID, sessionID string, rec session.Record) error {
	if f.err != nil {
		return f.err
	}
	if f.put == nil {
		f.put = map[string]session.Record{}
	}
	f.put[userID+"/"+sessionID] = rec
	return nil
}

func (f *fakeSessions) TouchIfPresent(context.Context, string, string) (bool, error) {
	return f.present, f.err
}

func (f *fakeSessions) Replace(context.Context, string, string, session.Record) (bool, error) {
	return f.replaced, f.err
}

func (f *fakeSessions) Remove(_ context.Context, _, sessionID string) error {
	f.removed = append(f.removed, sessionID)
	return f.err
}

func (f *fakeSessions) Clear(_ context.Context, userID string) error {
	if f.err != nil {
		return f.err
	}
	f.cleared = append(f.cleared, userID)
	return nil
}

func fixedNow() time.Time {
	return time.Date(2026, 4, 1, 9, 30, 0, 0, time.FixedZone("X", 3600))
}

func TestRunCreateSessionStampsBaseRole(t *testing.T) {
	store := &fakeSessions{}
	res := RunCreateSession(context.Background(), "u1", session.ProfileArtist, CreateDeps{
		Sessions:     store,
		NewSessionID: func() (string, error) { return "sid-1", nil },
		Now:          fixedNow,
	})
	if res.Err != nil {
		t.Fatalf("create: %v", res.Err)
	}
	if res.SessionID != "sid-1" {
		t.Fatalf("unexpected sid %q", res.SessionID)
	}
	rec := store.put["u1/sid-1"]
	if rec.Role != session.RoleUser || rec.CurrentProfile != session.ProfileArtist {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.CreatedAt.Location() != time.UTC || !rec.CreatedAt.Equal(fixedNow()) {
		t.Fatalf("expected UTC createdAt, got %v", rec.CreatedAt)
	}
}

func TestRunCreateSessionPropagatesErrors(t *testing.T) {
	res := RunCreateSession(context.Background(), "u1", session.ProfileUser, CreateDeps{
		Sessions:     &fakeSessions{},
		NewSessionID: func() (string, error) { return "", errBackend },
		Now:          fixedNow,
	})
	if !errors.Is(res.Err, errBackend) {
		t.Fatalf("expected id error, got %v", res.Err)
	}

	res = RunCreateSession(context.Background(), "u1", session.ProfileUser, CreateDeps{
		Sessions:     &fakeSessions{err: errBackend},
		NewSessionID: func() (string, error) { return "sid", nil },
		Now:          fixedNow,
	})
	if !errors.Is(res.Err, errBackend) || res.SessionID != "" {
		t.Fatalf("expected store error and no sid, got %+v", res)
	}
}

func TestRunValidateSession(t *testing.T) {
	ctx := context.Background()
	observed := 0
	deps := ValidateDeps{Now: time.Now, Observe: func(time.Duration) { observed++ }}

	deps.Sessions = &fakeSessions{present: true}
	if ok, err := RunValidateSession(ctx, "u1", "s1", deps); !ok || err != nil {
		t.Fatalf("expected valid, got %v %v", ok, err)
	}

	deps.Sessions = &fakeSessions{present: false}
	if ok, err := RunValidateSession(ctx, "u1", "s1", deps); ok || err != nil {
		t.Fatalf("expected invalid without error, got %v %v", ok, err)
	}

	if ok, err := RunValidateSession(ctx, "", "s1", deps); ok || err != nil {
		t.Fatalf("empty user must be invalid, got %v %v", ok, err)
	}
	if ok, err := RunValidateSession(ctx, "u1", "", deps); ok || err != nil {
		t.Fatalf("empty session must be invalid, got %v %v", ok, err)
	}

	deps.Sessions = &fakeSessions{present: true, err: errBackend}
	if ok, err := RunValidateSession(ctx, "u1", "s1", deps); ok || !errors.Is(err, errBackend) {
		t.Fatalf("store failure must surface, got %v %v", ok, err)
	}

	if observed != 3 {
		t.Fatalf("expected 3 latency observations, got %d", observed)
	}
}

func TestRunUpdateProfile(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name    string
		user    string
		sid     string
		profile string
		store   *fakeSessions
		want    ProfileFailureKind
	}{
		{"ok", "u1", "s1", session.ProfileArtist, &fakeSessions{replaced: true}, ProfileFailureNone},
		{"missing user", "", "s1", session.ProfileArtist, &fakeSessions{replaced: true}, ProfileFailureInvalidInput},
		{"bad profile", "u1", "s1", "ADMIN", &fakeSessions{replaced: true}, ProfileFailureInvalidProfile},
		{"gone", "u1", "s1", session.ProfileUser, &fakeSessions{replaced: false}, ProfileFailureNotFound},
		{"backend", "u1", "s1", session.ProfileUser, &fakeSessions{err: errBackend}, ProfileFailureBackend},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := RunUpdateProfile(ctx, tc.user, tc.sid, tc.profile, ProfileDeps{Sessions: tc.store, Now: fixedNow})
			if res.Failure != tc.want {
				t.Fatalf("expected failure %d, got %d (%v)", tc.want, res.Failure, res.Err)
			}
			if tc.want == ProfileFailureNone && (res.Record.Role != session.RoleUser || res.Record.CurrentProfile != tc.profile) {
				t.Fatalf("unexpected record %+v", res.Record)
			}
		})
	}
}

func TestRunSessionCheckOrder(t *testing.T) {
	ctx := context.Background()

	type calls struct {
		validate, lookup, deactivated int
	}
	run := func(user, sid string, valid bool, validateErr error, state AccountState, lookupErr error) (CheckResult, calls) {
		var c calls
		res := RunSessionCheck(ctx, user, sid, CheckDeps{
			Validate: func(context.Context, string, string) (bool, error) {
				c.validate++
				return valid, validateErr
			},
			LookupAccount: func(context.Context, string) (AccountState, error) {
				c.lookup++
				return state, lookupErr
			},
			OnDeactivated: func(context.Context, string) { c.deactivated++ },
		})
		return res, c
	}

	active := AccountState{Found: true, Active: true}

	res, c := run("", "s1", true, nil, active, nil)
	if res.Failure != CheckFailureMissingCredentials || c.validate != 0 {
		t.Fatalf("missing identity: %+v %+v", res, c)
	}
	res, c = run("u1", "", true, nil, active, nil)
	if res.Failure != CheckFailureMissingCredentials || c.validate != 0 {
		t.Fatalf("missing session: %+v %+v", res, c)
	}

	res, c = run("u1", "s1", false, nil, active, nil)
	if res.Failure != CheckFailureInvalidSession || c.lookup != 0 {
		t.Fatalf("invalid session must skip account lookup: %+v %+v", res, c)
	}

	res, c = run("u1", "s1", false, errBackend, active, nil)
	if res.Failure != CheckFailureSessionBackend || !errors.Is(res.Err, errBackend) || c.lookup != 0 {
		t.Fatalf("session backend: %+v %+v", res, c)
	}

	res, c = run("u1", "s1", true, nil, AccountState{Found: true, Active: false}, nil)
	if res.Failure != CheckFailureAccountDeactivated || c.deactivated != 1 {
		t.Fatalf("deactivated: %+v %+v", res, c)
	}

	res, c = run("u1", "s1", true, nil, AccountState{}, nil)
	if res.Failure != CheckFailureUnknownAccount || c.deactivated != 0 {
		t.Fatalf("unknown account: %+v %+v", res, c)
	}

	res, c = run("u1", "s1", true, nil, AccountState{}, errBackend)
	if res.Failure != CheckFailureAccountBackend || c.deactivated != 0 {
		t.Fatalf("account backend: %+v %+v", res, c)
	}

	res, c = run("u1", "s1", true, nil, active, nil)
	if res.Failure != CheckFailureNone || c.validate != 1 || c.lookup != 1 || c.deactivated != 0 {
		t.Fatalf("pass: %+v %+v", res, c)
	}
}

func TestRunDeactivation(t *testing.T) {
	ctx := context.Background()
	store := &fakeSessions{}
	var order []string

	deps := DeactivationDeps{
		Broadcast: func(context.Context, string) { order = append(order, "broadcast") },
		ClearSessions: func(ctx context.Context, userID string) error {
			order = append(order, "clear")
			return store.Clear(ctx, userID)
		},
	}
	if err := RunDeactivation(ctx, "u1", deps); err != nil {
		t.Fatalf("deactivation: %v", err)
	}
	if len(order) != 1 || order[0] != "broadcast" {
		t.Fatalf("expected broadcast only without revoke, got %v", order)
	}

	order = nil
	deps.Revoke = true
	if err := RunDeactivation(ctx, "u1", deps); err != nil {
		t.Fatalf("deactivation with revoke: %v", err)
	}
	if len(order) != 2 || order[0] != "broadcast" || order[1] != "clear" {
		t.Fatalf("expected broadcast then clear, got %v", order)
	}

	store.err = errBackend
	if err := RunDeactivation(ctx, "u1", deps); !errors.Is(err, errBackend) {
		t.Fatalf("expected clear error, got %v", err)
	}
}

func TestRunLogoutAllNotifiesAfterClear(t *testing.T) {
	ctx := context.Background()
	store := &fakeSessions{}
	notified := 0
	deps := LogoutDeps{Sessions: store, Notify: func(context.Context, string) { notified++ }}

	if err := RunLogout(ctx, "u1", "s1", deps); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(store.removed) != 1 || notified != 0 {
		t.Fatalf("single logout must not notify: %+v %d", store, notified)
	}

	if err := RunLogoutAll(ctx, "u1", deps); err != nil {
		t.Fatalf("logout all: %v", err)
	}
	if notified != 1 || len(store.cleared) != 1 {
		t.Fatalf("expected one clear and one notify, got %d %d", len(store.cleared), notified)
	}

	store.err = errBackend
	if err := RunLogoutAll(ctx, "u1", deps); !errors.Is(err, errBackend) || notified != 1 {
		t.Fatalf("failed clear must not notify: %v %d", err, notified)
	}
}
