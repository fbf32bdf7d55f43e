package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain/scan"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/pkg/auth"
)

type fakeGateway struct {
	pair       *domain.TokenPair
	loginErr   error
	refreshed  *domain.TokenPair
	refreshErr error
	gotRefresh string
	account    *domain.Account
}

func (g *fakeGateway) Login(context.Context, string, string) (*domain.TokenPair, error) {
	return g.pair, g.loginErr
}

func (g *fakeGateway) Refresh(_ context.Context, token string) (*domain.TokenPair, error) {
	g.gotRefresh = token
	return g.refreshed, g.refreshErr
}

func (g *fakeGateway) Signup(context.Context, *domain.SignupCommand) (*domain.Account, error) {
	return g.account, nil
}

func signedToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("server-only-key"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func newSession(t *testing.T, gw *fakeGateway, store *memStore) *SessionService {
	t.Helper()
	activity, _ := testActivity(t)
	return NewSessionService(gw, store, auth.DefaultChain(store, zap.NewNop()), activity, zap.NewNop())
}

func TestLoginStoresTokensAndProfile(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	access := signedToken(t, "doc@example.com", exp)
	gw := &fakeGateway{pair: &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: "r1",
		TokenType:    "bearer",
		User:         &domain.Account{Username: "drdoe", FullName: "Dr Doe", Email: "doc@example.com"},
	}}
	store := newMemStore()
	svc := newSession(t, gw, store)

	st, err := svc.Login(context.Background(), &LoginCommand{Email: " Doc@Example.com ", Password: "pw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !st.SignedIn || st.Subject != "doc@example.com" || st.Username != "drdoe" || st.Expired {
		t.Errorf("unexpected status %+v", st)
	}
	if store.values[auth.KeyAccessToken] != access || store.values[auth.KeyRefreshToken] != "r1" {
		t.Errorf("tokens not stored: %v", store.values)
	}

	var profile domain.Profile
	if err := json.Unmarshal([]byte(store.values[auth.KeyProfile]), &profile); err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.AccessToken != access || !profile.ExpiresAt.Equal(exp) {
		t.Errorf("unexpected profile %+v", profile)
	}

	// The legacy blob alone is enough for the resolver.
	delete(store.values, auth.KeyAccessToken)
	status, _ := svc.Status(context.Background())
	if !status.SignedIn || status.FullName != "Dr Doe" {
		t.Errorf("legacy fallback failed: %+v", status)
	}
}

func TestLoginMapsRejectionToInvalidCredentials(t *testing.T) {
	gw := &fakeGateway{loginErr: &domain.StatusError{Operation: "login", StatusCode: 401}}
	store := newMemStore()
	svc := newSession(t, gw, store)

	_, err := svc.Login(context.Background(), &LoginCommand{Email: "doc@example.com", Password: "bad"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("got %v, want ErrInvalidCredentials", err)
	}
	if len(store.values) != 0 {
		t.Errorf("nothing may be stored on failure: %v", store.values)
	}

	_, err = svc.Login(context.Background(), &LoginCommand{Email: "not-an-email", Password: "x"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("got %v, want ValidationError", err)
	}
}

func TestRefreshKeepsRefreshToken(t *testing.T) {
	newAccess := signedToken(t, "doc@example.com", time.Now().Add(2*time.Hour))
	gw := &fakeGateway{refreshed: &domain.TokenPair{AccessToken: newAccess, TokenType: "bearer"}}
	store := newMemStore()
	store.values[auth.KeyAccessToken] = "old"
	store.values[auth.KeyRefreshToken] = "r1"
	store.values[auth.KeyProfile] = `{"sub":"doc@example.com","username":"drdoe","access_token":"old"}`
	svc := newSession(t, gw, store)

	st, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if gw.gotRefresh != "r1" {
		t.Errorf("sent refresh token %q", gw.gotRefresh)
	}
	if store.values[auth.KeyAccessToken] != newAccess || store.values[auth.KeyRefreshToken] != "r1" {
		t.Errorf("unexpected store %v", store.values)
	}
	if st.Username != "drdoe" {
		t.Errorf("cached profile fields lost: %+v", st)
	}
}

func TestRefreshWithoutTokenIsUnauthenticated(t *testing.T) {
	svc := newSession(t, &fakeGateway{}, newMemStore())
	if _, err := svc.Refresh(context.Background()); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("got %v, want ErrUnauthenticated", err)
	}
}

func TestLogoutKeepsNotes(t *testing.T) {
	store := newMemStore()
	store.values[auth.KeyAccessToken] = "a"
	store.values[auth.KeyRefreshToken] = "r"
	store.values[auth.KeyProfile] = "{}"
	store.values[NotesKey] = "keep me"
	svc := newSession(t, &fakeGateway{}, store)

	if err := svc.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(store.values) != 1 || store.values[NotesKey] != "keep me" {
		t.Errorf("unexpected store %v", store.values)
	}
	st, _ := svc.Status(context.Background())
	if st.SignedIn {
		t.Error("still signed in after logout")
	}
}

func TestSignupValidates(t *testing.T) {
	svc := newSession(t, &fakeGateway{account: &domain.Account{ID: "9"}}, newMemStore())

	_, err := svc.Signup(context.Background(), &domain.SignupCommand{Username: "x", Email: "bad"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("got %v, want ValidationError", err)
	}

	acct, err := svc.Signup(context.Background(), &domain.SignupCommand{
		Username: "drdoe", Email: "doc@example.com", FullName: "Dr Doe", Position: "Radiologist", Password: "longenough",
	})
	if err != nil || acct.ID != "9" {
		t.Errorf("got %+v, %v", acct, err)
	}
}

func TestNotesSaveAndClear(t *testing.T) {
	store := newMemStore()
	store.values[NotesKey] = "earlier"
	activity, repo := testActivity(t)
	svc := NewNotesService(store, activity, testMetrics(), zap.NewNop())

	view := NewHistoryView()
	view.Replace(&Aggregate{Scans: []scan.Record{{ScanID: "1", DoctorNotes: "scan note", Patient: &scan.PatientRef{Name: "A"}}}})
	before := view.Snapshot()

	text, err := svc.Mount(context.Background())
	if err != nil || text != "earlier" || svc.Text() != "earlier" {
		t.Fatalf("mount: %q %v", text, err)
	}

	notice, err := svc.Save(context.Background(), "new thoughts")
	if err != nil || notice.Message == "" {
		t.Fatalf("save: %+v %v", notice, err)
	}
	if store.values[NotesKey] != "new thoughts" || svc.Text() != "new thoughts" {
		t.Errorf("save not applied: %v", store.values)
	}

	if _, err := svc.Clear(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := store.values[NotesKey]; ok || svc.Text() != "" {
		t.Error("clear must remove the key and reset the text")
	}

	after := view.Snapshot()
	if after.Filtered[0].DoctorNotes != before.Filtered[0].DoctorNotes {
		t.Error("notes writes must not touch scan records")
	}

	activity.Shutdown()
	if n := len(repo.Entries()); n != 2 {
		t.Errorf("journaled %d entries, want 2", n)
	}
}

func TestNotesMountMissingKeyIsEmpty(t *testing.T) {
	activity, _ := testActivity(t)
	svc := NewNotesService(newMemStore(), activity, testMetrics(), zap.NewNop())
	text, err := svc.Mount(context.Background())
	if err != nil || text != "" {
		t.Errorf("got %q, %v", text, err)
	}
}

func TestNotesStoreErrorsSurface(t *testing.T) {
	store := newMemStore()
	store.err = errBoom
	activity, _ := testActivity(t)
	svc := NewNotesService(store, activity, testMetrics(), zap.NewNop())

	if _, err := svc.Save(context.Background(), "x"); !errors.Is(err, errBoom) {
		t.Errorf("got %v, want store error", err)
	}
	if _, err := svc.Mount(context.Background()); !errors.Is(err, errBoom) {
		t.Errorf("got %v, want store error", err)
	}
}

func TestNotesMountReadsStoreOnce(t *testing.T) {
	store := newMemStore()
	store.values[NotesKey] = "first"
	activity, _ := testActivity(t)
	svc := NewNotesService(store, activity, testMetrics(), zap.NewNop())
	ctx := context.Background()

	if text, err := svc.Mount(ctx); err != nil || text != "first" {
		t.Fatalf("mount: %q, %v", text, err)
	}
	store.mu.Lock()
	store.values[NotesKey] = "changed underneath"
	store.mu.Unlock()

	if text, err := svc.Mount(ctx); err != nil || text != "first" {
		t.Errorf("second mount: %q, %v", text, err)
	}
	if got := store.Gets(); got != 1 {
		t.Errorf("store read %d times, want 1", got)
	}
}

func TestNotesMountRetriesAfterFailedRead(t *testing.T) {
	store := newMemStore()
	store.values[NotesKey] = "saved"
	store.err = errBoom
	activity, _ := testActivity(t)
	svc := NewNotesService(store, activity, testMetrics(), zap.NewNop())
	ctx := context.Background()

	if _, err := svc.Mount(ctx); !errors.Is(err, errBoom) {
		t.Fatalf("got %v, want store error", err)
	}
	store.mu.Lock()
	store.err = nil
	store.mu.Unlock()

	if text, err := svc.Mount(ctx); err != nil || text != "saved" {
		t.Errorf("retry: %q, %v", text, err)
	}
}
