package authgate

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/calder-io/authgate/jwt"
	"github.com/calder-io/authgate/password"
	"github.com/calder-io/authgate/session"
)

type mockUserProvider struct {
	mu      sync.Mutex
	users   map[string]UserRecord
	byEmail map[string]string

	lookupErr error
	createErr error

	getByEmailCalls int
	createCalls     int
}

func newMockUserProvider() *mockUserProvider {
	return &mockUserProvider{
		users:   map[string]UserRecord{},
		byEmail: map[string]string{},
	}
}

func (m *mockUserProvider) put(u UserRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.UserID] = u
	m.byEmail[u.Email] = u.UserID
}

func (m *mockUserProvider) GetUserByEmail(_ context.Context, email string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.getByEmailCalls++
	if m.lookupErr != nil {
		return UserRecord{}, m.lookupErr
	}

	id, ok := m.byEmail[email]
	if !ok {
		return UserRecord{}, ErrProviderUserNotFound
	}
	return m.users[id], nil
}

func (m *mockUserProvider) CreateUser(_ context.Context, input CreateUserInput) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.createCalls++
	if m.createErr != nil {
		return UserRecord{}, m.createErr
	}
	if _, exists := m.byEmail[input.Email]; exists {
		return UserRecord{}, ErrProviderDuplicateEmail
	}

	u := UserRecord{
		UserID:       fmt.Sprintf("u%d", len(m.users)+1),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		CreatedAt:    time.Now(),
	}
	m.users[u.UserID] = u
	m.byEmail[u.Email] = u.UserID
	return u, nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]session.Session

	saveErr error
	getErr  error

	saveCalls   int
	getCalls    int
	deleteCalls int
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]session.Session{}}
}

func (f *fakeSessionStore) Save(_ context.Context, s *session.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.saveCalls++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.sessions[s.SessionID] = *s
	return nil
}

func (f *fakeSessionStore) Get(_ context.Context, sessionID string) (*session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, session.ErrNotFound
	}
	copied := s
	return &copied, nil
}

func (f *fakeSessionStore) Delete(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleteCalls++
	delete(f.sessions, sessionID)
	return nil
}

func (f *fakeSessionStore) ActiveCount(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, s := range f.sessions {
		if s.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeSessionStore) stored(t *testing.T, sessionID string) session.Session {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[sessionID]
	if !ok {
		t.Fatalf("session %s not in store", sessionID)
	}
	return s
}

type fakeVerificationStore struct {
	mu      sync.Mutex
	records map[string]VerificationRecord

	saveErr error

	saveCalls    int
	consumeCalls int
}

func newFakeVerificationStore() *fakeVerificationStore {
	return &fakeVerificationStore{records: map[string]VerificationRecord{}}
}

func (f *fakeVerificationStore) Save(_ context.Context, id string, rec *VerificationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.saveCalls++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.records[id] = *rec
	return nil
}

func (f *fakeVerificationStore) Consume(_ context.Context, id string) (*VerificationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.consumeCalls++
	rec, ok := f.records[id]
	if !ok {
		return nil, errVerificationNotFound
	}
	delete(f.records, id)
	return &rec, nil
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.AccessKey = []byte("test-access-secret")
	cfg.JWT.RefreshKey = []byte("test-refresh-secret")
	// Cheap hashing parameters keep the credential tests fast.
	cfg.Password = PasswordConfig{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
	cfg.Metrics.Enabled = true
	return cfg
}

func testHasher(t *testing.T, cfg Config) *password.Argon2 {
	t.Helper()

	h, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	return h
}

func testJWTManager(t *testing.T, cfg Config) *jwt.Manager {
	t.Helper()

	m, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		Access:        jwt.KeyConfig{PrivateKey: cfg.JWT.AccessKey},
		Refresh:       jwt.KeyConfig{PrivateKey: cfg.JWT.RefreshKey},
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		t.Fatalf("jwt.NewManager failed: %v", err)
	}
	return m
}

// newTestEngine wires an Engine against in-memory fakes with a fixed clock
// so expiry arithmetic is deterministic. Tests reassign engine.clock to
// move time.
func newTestEngine(t *testing.T, up UserProvider) (*Engine, *fakeSessionStore, *fakeVerificationStore) {
	t.Helper()

	cfg := testConfig()
	sessions := newFakeSessionStore()
	verification := newFakeVerificationStore()

	now := time.Now()
	engine := &Engine{
		config:       cfg,
		userProvider: up,
		sessions:     sessions,
		verification: verification,
		jwtManager:   testJWTManager(t, cfg),
		passwordHash: testHasher(t, cfg),
		metrics:      NewMetrics(cfg.Metrics),
		clock:        func() time.Time { return now },
	}
	return engine, sessions, verification
}

func seedUser(t *testing.T, engine *Engine, up *mockUserProvider, email, pass string, enable2FA bool) UserRecord {
	t.Helper()

	hash, err := engine.passwordHash.Hash(pass)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	u := UserRecord{
		UserID:       fmt.Sprintf("u%d", len(up.users)+1),
		Name:         "Test User",
		Email:        email,
		PasswordHash: hash,
		Enable2FA:    enable2FA,
		CreatedAt:    time.Now(),
	}
	up.put(u)
	return u
}
