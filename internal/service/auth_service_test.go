package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/veletic/gatehouse/internal/domain"
	"github.com/veletic/gatehouse/pkg/config"
	"github.com/veletic/gatehouse/pkg/events"
)

// ---------- Mocks ----------

type mockUserRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*domain.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{nextID: 1, byID: make(map[int64]*domain.User)}
}

func (m *mockUserRepo) Create(_ context.Context, username, passwordHash string, start, end domain.TimeOfDay) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Username == username {
			return nil, fmt.Errorf("%w: username already taken", domain.ErrConflict)
		}
	}
	u := &domain.User{
		ID:            m.nextID,
		Username:      username,
		PasswordHash:  passwordHash,
		ScheduleStart: start,
		ScheduleEnd:   end,
		CreatedAt:     time.Now(),
	}
	m.nextID++
	m.byID[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockUserRepo) List(_ context.Context, limit, offset int) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.byID {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *mockUserRepo) SetDisabled(_ context.Context, id int64, disabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Disabled = disabled
	return nil
}

func (m *mockUserRepo) UpdateSchedule(_ context.Context, id int64, start, end domain.TimeOfDay) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.ScheduleStart, u.ScheduleEnd = start, end
	return nil
}

type mockSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	admin    map[string]*domain.AdminSession
	now      func() time.Time
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{
		sessions: make(map[string]*domain.Session),
		admin:    make(map[string]*domain.AdminSession),
		now:      time.Now,
	}
}

func (m *mockSessionRepo) Create(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *mockSessionRepo) FindByID(_ context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockSessionRepo) UpdateExpiry(_ context.Context, id string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.ExpiresAt = expiresAt
	return nil
}

func (m *mockSessionRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionRepo) DeleteForUser(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *mockSessionRepo) EvictExcess(_ context.Context, userID int64, keep int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var live []*domain.Session
	for _, s := range m.sessions {
		if s.UserID == userID && s.ExpiresAt.After(m.now()) {
			live = append(live, s)
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].CreatedAt.After(live[j].CreatedAt) })
	var evicted int64
	for i, s := range live {
		if i >= keep {
			delete(m.sessions, s.ID)
			evicted++
		}
	}
	return evicted, nil
}

func (m *mockSessionRepo) DeleteExpired(_ context.Context) (int64, error) { return 0, nil }

func (m *mockSessionRepo) CreateAdmin(_ context.Context, s *domain.AdminSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.admin[s.ID] = &cp
	return nil
}

func (m *mockSessionRepo) FindAdminByID(_ context.Context, id string) (*domain.AdminSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.admin[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockSessionRepo) UpdateAdminExpiry(_ context.Context, id string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.admin[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.ExpiresAt = expiresAt
	return nil
}

func (m *mockSessionRepo) DeleteAdmin(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.admin, id)
	return nil
}

func (m *mockSessionRepo) countForUser(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

type fakeHasher struct{}

func (fakeHasher) Hash(plaintext string) (string, error) { return "h:" + plaintext, nil }
func (fakeHasher) Verify(hash, plaintext string) (bool, error) {
	return hash == "h:"+plaintext, nil
}

type fakeBreach struct {
	breached bool
	err      error
}

func (f *fakeBreach) IsBreached(context.Context, string) (bool, error) {
	return f.breached, f.err
}

type fakeLimiter struct {
	allowed bool
	err     error
	resets  int
}

func (f *fakeLimiter) Allow(context.Context, string) (bool, error) { return f.allowed, f.err }
func (f *fakeLimiter) Reset(context.Context, string) error {
	f.resets++
	return nil
}

// ---------- Fixtures ----------

type authFixture struct {
	svc      *authService
	users    *mockUserRepo
	sessions *mockSessionRepo
	breach   *fakeBreach
	limiter  *fakeLimiter
	bus      *recordingPublisher
	clock    *time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	users := newMockUserRepo()
	sessions := newMockSessionRepo()
	breach := &fakeBreach{}
	limiter := &fakeLimiter{allowed: true}
	cfg := config.AuthConfig{
		AdminSecret:       "admin-secret",
		SessionTTL:        30 * 24 * time.Hour,
		AdminSessionTTL:   12 * time.Hour,
		MaxActiveSessions: 3,
	}

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	bus := &recordingPublisher{}
	svc := NewAuthService(users, sessions, fakeHasher{}, breach, limiter, bus, cfg).(*authService)
	svc.now = func() time.Time { return now }
	sessions.now = svc.now

	return &authFixture{svc: svc, users: users, sessions: sessions, breach: breach, limiter: limiter, bus: bus, clock: &now}
}

func (f *authFixture) addUser(t *testing.T, username, pw string) *domain.User {
	t.Helper()
	u, err := f.users.Create(context.Background(), username, "h:"+pw, 0, 0)
	if err != nil {
		t.Fatalf("addUser: %v", err)
	}
	return u
}

func loginReq(username, pw string) *domain.LoginRequest {
	return &domain.LoginRequest{Username: username, Password: pw, Building: "Main"}
}

// ---------- Tests ----------

func TestLoginAndValidateRoundTrip(t *testing.T) {
	f := newAuthFixture(t)
	u := f.addUser(t, "porter", "hunter2-hunter2")

	token, session, user, err := f.svc.Login(context.Background(), loginReq("porter", "hunter2-hunter2"), "10.0.0.1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.ID != u.ID {
		t.Errorf("login returned user %d, want %d", user.ID, u.ID)
	}
	if session.Building != "Main" {
		t.Errorf("session building = %q, want Main", session.Building)
	}
	if token == "" {
		t.Fatal("expected a raw token")
	}
	if f.limiter.resets != 1 {
		t.Errorf("expected limiter reset after success, got %d", f.limiter.resets)
	}

	gotSession, gotUser, err := f.svc.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if gotSession == nil || gotUser == nil {
		t.Fatal("expected session and user from fresh token")
	}
	if gotSession.ID != session.ID {
		t.Errorf("validated session %q, want %q", gotSession.ID, session.ID)
	}
	if gotUser.ID != u.ID {
		t.Errorf("validated user %d, want %d", gotUser.ID, u.ID)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newAuthFixture(t)
	u := f.addUser(t, "porter", "hunter2-hunter2")

	cases := []struct {
		name string
		prep func()
		req  *domain.LoginRequest
	}{
		{"unknown user", func() {}, loginReq("nobody", "hunter2-hunter2")},
		{"wrong password", func() {}, loginReq("porter", "wrong")},
		{"disabled user", func() {
			f.users.SetDisabled(context.Background(), u.ID, true)
		}, loginReq("porter", "hunter2-hunter2")},
		{"rate limited", func() {
			f.users.SetDisabled(context.Background(), u.ID, false)
			f.limiter.allowed = false
		}, loginReq("porter", "hunter2-hunter2")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.prep()
			_, _, _, err := f.svc.Login(context.Background(), tc.req, "10.0.0.1")
			if !errors.Is(err, domain.ErrInvalidCredentials) {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestLoginOutsideScheduleWindow(t *testing.T) {
	f := newAuthFixture(t)
	u := f.addUser(t, "porter", "hunter2-hunter2")
	f.users.UpdateSchedule(context.Background(), u.ID, 8*60, 10*60)

	// Fixture clock is 12:00, outside 08:00-10:00.
	_, _, _, err := f.svc.Login(context.Background(), loginReq("porter", "hunter2-hunter2"), "10.0.0.1")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials outside schedule, got %v", err)
	}
}

func TestLoginFailsWhenLimiterFails(t *testing.T) {
	f := newAuthFixture(t)
	f.addUser(t, "porter", "hunter2-hunter2")
	f.limiter.err = errors.New("redis down")

	_, _, _, err := f.svc.Login(context.Background(), loginReq("porter", "hunter2-hunter2"), "10.0.0.1")
	if err == nil {
		t.Fatal("expected login to fail when the limiter errors")
	}
	if errors.Is(err, domain.ErrInvalidCredentials) {
		t.Error("limiter failure should surface as an internal error, not a credential failure")
	}
}

func TestSessionCapEvictsOldest(t *testing.T) {
	f := newAuthFixture(t)
	u := f.addUser(t, "porter", "hunter2-hunter2")

	var tokens []string
	for i := 0; i < 5; i++ {
		*f.clock = f.clock.Add(time.Minute)
		token, _, _, err := f.svc.Login(context.Background(), loginReq("porter", "hunter2-hunter2"), "10.0.0.1")
		if err != nil {
			t.Fatalf("login %d: %v", i, err)
		}
		tokens = append(tokens, token)
	}

	if got := f.sessions.countForUser(u.ID); got != 3 {
		t.Fatalf("expected 3 live sessions after 5 logins, got %d", got)
	}

	// The two oldest are gone, the three newest still validate.
	for i, token := range tokens {
		session, _, err := f.svc.ValidateToken(context.Background(), token)
		if err != nil {
			t.Fatalf("validate %d: %v", i, err)
		}
		if i < 2 && session != nil {
			t.Errorf("token %d should have been evicted", i)
		}
		if i >= 2 && session == nil {
			t.Errorf("token %d should still be valid", i)
		}
	}
}

type evictFailSessionRepo struct {
	*mockSessionRepo
}

func (r *evictFailSessionRepo) EvictExcess(context.Context, int64, int) (int64, error) {
	return 0, errors.New("eviction query failed")
}

// A login that cannot enforce the session cap must not succeed, and must not
// leave its own session behind.
func TestLoginFailsWhenEvictionFails(t *testing.T) {
	f := newAuthFixture(t)
	u := f.addUser(t, "porter", "hunter2-hunter2")
	f.svc.sessionRepo = &evictFailSessionRepo{f.sessions}

	for i := 0; i < 5; i++ {
		*f.clock = f.clock.Add(time.Minute)
		_, _, _, err := f.svc.Login(context.Background(), loginReq("porter", "hunter2-hunter2"), "10.0.0.1")
		if err == nil {
			t.Fatalf("login %d: expected an error when eviction fails", i)
		}
		if errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("login %d: eviction failure must not look like a credential failure", i)
		}
	}

	if got := f.sessions.countForUser(u.ID); got != 0 {
		t.Errorf("failed logins left %d sessions behind, want 0", got)
	}
}

func TestValidateTokenRenewsInsideWindow(t *testing.T) {
	f := newAuthFixture(t)
	f.addUser(t, "porter", "hunter2-hunter2")

	token, session, _, err := f.svc.Login(context.Background(), loginReq("porter", "hunter2-hunter2"), "10.0.0.1")
	if err != nil {
		t.Fatal(err)
	}
	originalExpiry := session.ExpiresAt

	// 20 days in: less than half the 30-day TTL remains.
	*f.clock = f.clock.Add(20 * 24 * time.Hour)

	renewed, _, err := f.svc.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatal(err)
	}
	if renewed == nil {
		t.Fatal("expected session to validate")
	}
	if !renewed.ExpiresAt.After(originalExpiry) {
		t.Errorf("expected expiry extended past %v, got %v", originalExpiry, renewed.ExpiresAt)
	}
}

func TestValidateTokenNotRenewedEarly(t *testing.T) {
	f := newAuthFixture(t)
	f.addUser(t, "porter", "hunter2-hunter2")

	token, session, _, err := f.svc.Login(context.Background(), loginReq("porter", "hunter2-hunter2"), "10.0.0.1")
	if err != nil {
		t.Fatal(err)
	}

	// 5 days in: more than half the TTL remains, no renewal.
	*f.clock = f.clock.Add(5 * 24 * time.Hour)

	validated, _, err := f.svc.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatal(err)
	}
	if !validated.ExpiresAt.Equal(session.ExpiresAt) {
		t.Errorf("expiry changed from %v to %v without entering the renewal window", session.ExpiresAt, validated.ExpiresAt)
	}
}

func TestValidateTokenExpiredDeletesSession(t *testing.T) {
	f := newAuthFixture(t)
	u := f.addUser(t, "porter", "hunter2-hunter2")

	token, _, _, err := f.svc.Login(context.Background(), loginReq("porter", "hunter2-hunter2"), "10.0.0.1")
	if err != nil {
		t.Fatal(err)
	}

	*f.clock = f.clock.Add(31 * 24 * time.Hour)

	session, user, err := f.svc.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatal(err)
	}
	if session != nil || user != nil {
		t.Error("expected nil session and user for expired token")
	}
	if got := f.sessions.countForUser(u.ID); got != 0 {
		t.Errorf("expected expired session to be deleted, %d remain", got)
	}
}

func TestValidateTokenUnknown(t *testing.T) {
	f := newAuthFixture(t)

	session, user, err := f.svc.ValidateToken(context.Background(), "no-such-token")
	if err != nil {
		t.Fatal(err)
	}
	if session != nil || user != nil {
		t.Error("expected nil session and user for unknown token")
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	f := newAuthFixture(t)
	f.addUser(t, "porter", "hunter2-hunter2")

	token, _, _, err := f.svc.Login(context.Background(), loginReq("porter", "hunter2-hunter2"), "10.0.0.1")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Logout(context.Background(), token); err != nil {
		t.Fatal(err)
	}

	session, _, err := f.svc.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatal(err)
	}
	if session != nil {
		t.Error("expected logged-out token to be invalid")
	}

	want := []string{events.SessionCreated, events.SessionRevoked}
	if len(f.bus.subjects) != len(want) || f.bus.subjects[1] != events.SessionRevoked {
		t.Errorf("published subjects = %v, want %v", f.bus.subjects, want)
	}
}

func TestRegisterUserRejectsBreachedPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.breach.breached = true

	_, err := f.svc.RegisterUser(context.Background(), &domain.RegisterUserRequest{
		Username: "porter",
		Password: "password123",
	})
	if !domain.IsValidation(err) {
		t.Errorf("expected validation error for breached password, got %v", err)
	}
}

func TestRegisterUserPropagatesBreachFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.breach.err = fmt.Errorf("%w: service down", domain.ErrUpstream)

	_, err := f.svc.RegisterUser(context.Background(), &domain.RegisterUserRequest{
		Username: "porter",
		Password: "a-perfectly-fine-password",
	})
	if !errors.Is(err, domain.ErrUpstream) {
		t.Errorf("expected upstream failure to propagate, got %v", err)
	}
}

func TestRegisterUserSuccess(t *testing.T) {
	f := newAuthFixture(t)

	u, err := f.svc.RegisterUser(context.Background(), &domain.RegisterUserRequest{
		Username:      "Porter",
		Password:      "a-perfectly-fine-password",
		ScheduleStart: "08:00",
		ScheduleEnd:   "16:00",
	})
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if u.Username != "porter" {
		t.Errorf("expected normalized username, got %q", u.Username)
	}
	if u.ScheduleStart.String() != "08:00" || u.ScheduleEnd.String() != "16:00" {
		t.Errorf("schedule not stored: %s-%s", u.ScheduleStart, u.ScheduleEnd)
	}
}

func TestAdminLogin(t *testing.T) {
	f := newAuthFixture(t)

	if _, _, err := f.svc.AdminLogin(context.Background(), "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for wrong secret, got %v", err)
	}

	token, _, err := f.svc.AdminLogin(context.Background(), "admin-secret")
	if err != nil {
		t.Fatalf("AdminLogin: %v", err)
	}

	session, err := f.svc.ValidateAdminToken(context.Background(), token)
	if err != nil {
		t.Fatal(err)
	}
	if session == nil {
		t.Fatal("expected admin session to validate")
	}

	*f.clock = f.clock.Add(13 * time.Hour)
	session, err = f.svc.ValidateAdminToken(context.Background(), token)
	if err != nil {
		t.Fatal(err)
	}
	if session != nil {
		t.Error("expected admin session to expire after its TTL")
	}
}

func TestDisablingUserRevokesSessions(t *testing.T) {
	f := newAuthFixture(t)
	u := f.addUser(t, "porter", "hunter2-hunter2")

	token, _, _, err := f.svc.Login(context.Background(), loginReq("porter", "hunter2-hunter2"), "10.0.0.1")
	if err != nil {
		t.Fatal(err)
	}

	if err := f.svc.SetUserDisabled(context.Background(), u.ID, true); err != nil {
		t.Fatal(err)
	}

	session, _, err := f.svc.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatal(err)
	}
	if session != nil {
		t.Error("expected sessions revoked when user disabled")
	}
	if got := f.sessions.countForUser(u.ID); got != 0 {
		t.Errorf("expected 0 sessions, got %d", got)
	}

	want := []string{events.SessionCreated, events.SessionRevoked, events.UserDisabled}
	if len(f.bus.subjects) != len(want) {
		t.Fatalf("published subjects = %v, want %v", f.bus.subjects, want)
	}
	for i := range want {
		if f.bus.subjects[i] != want[i] {
			t.Errorf("subject[%d] = %q, want %q", i, f.bus.subjects[i], want[i])
		}
	}
}
