package storeguard

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/storeguard/password"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

// testConfig returns a config with fresh ed25519 keys and the cheapest
// argon2id parameters Validate accepts, so tests stay fast.
func testConfig(t *testing.T) Config {
	t.Helper()

	cfg := DefaultConfig()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub

	cfg.Password = PasswordConfig{
		Memory:         8 * 1024,
		Time:           1,
		Parallelism:    1,
		SaltLength:     16,
		KeyLength:      16,
		UpgradeOnLogin: true,
	}

	return cfg
}

func newTestHasher(t *testing.T, cfg PasswordConfig) *password.Hasher {
	t.Helper()

	h, err := password.NewHasher(password.Config{
		Memory:      cfg.Memory,
		Time:        cfg.Time,
		Parallelism: cfg.Parallelism,
		SaltLength:  cfg.SaltLength,
		KeyLength:   cfg.KeyLength,
	})
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	return h
}

func buildTestEngine(t *testing.T, cfg Config, sink AuditSink, up UserProvider) (*Engine, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	builder := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(up).
		WithMetricsEnabled(true)
	if sink != nil {
		builder = builder.WithAuditSink(sink)
	}

	engine, err := builder.Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	return engine, mr, func() {
		engine.Close()
		mr.Close()
	}
}

// seedUser hashes the given password and registers the user directly with
// the provider, bypassing CreateAccount.
func seedUser(t *testing.T, cfg Config, up *memProvider, userID, email, plaintext string) UserRecord {
	t.Helper()

	hash, err := newTestHasher(t, cfg.Password).Hash(plaintext)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := UserRecord{
		UserID:       userID,
		Email:        email,
		PasswordHash: hash,
		Status:       AccountActive,
	}
	up.putUser(u)
	return u
}

// enableTOTP runs the full enrollment flow and returns the shared secret.
func enableTOTP(t *testing.T, engine *Engine, userID string) string {
	t.Helper()

	setup, err := engine.BeginTOTPEnrollment(context.Background(), userID)
	if err != nil {
		t.Fatalf("BeginTOTPEnrollment: %v", err)
	}

	counter := time.Now().Unix() / int64(engine.config.TOTP.Period)
	code := codeFor(t, engine.totp, setup.SecretBase32, counter)
	if err := engine.ConfirmTOTPEnrollment(context.Background(), setup.SecretID, code); err != nil {
		t.Fatalf("ConfirmTOTPEnrollment: %v", err)
	}
	return setup.SecretBase32
}

// memProvider is the in-memory UserProvider used across engine tests.
type memProvider struct {
	mu          sync.RWMutex
	byID        map[string]UserRecord
	byEmail     map[string]string
	mfaByID     map[string]MFASecretRecord
	mfaByUserID map[string]string
}

func newMemProvider() *memProvider {
	return &memProvider{
		byID:        make(map[string]UserRecord),
		byEmail:     make(map[string]string),
		mfaByID:     make(map[string]MFASecretRecord),
		mfaByUserID: make(map[string]string),
	}
}

func (p *memProvider) putUser(u UserRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byID[u.UserID] = u
	p.byEmail[u.Email] = u.UserID
}

func (p *memProvider) user(userID string) (UserRecord, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	u, ok := p.byID[userID]
	return u, ok
}

func (p *memProvider) GetUserByEmail(_ context.Context, email string) (UserRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	id, ok := p.byEmail[email]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return p.byID[id], nil
}

func (p *memProvider) GetUserByID(_ context.Context, userID string) (UserRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	u, ok := p.byID[userID]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return u, nil
}

func (p *memProvider) CreateUser(_ context.Context, input CreateUserInput) (UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.byEmail[input.Email]; ok {
		return UserRecord{}, ErrAccountExists
	}

	u := UserRecord{
		UserID:       input.UserID,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Status:       input.Status,
	}
	p.byID[u.UserID] = u
	p.byEmail[u.Email] = u.UserID
	return u, nil
}

func (p *memProvider) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = newHash
	p.byID[userID] = u
	return nil
}

func (p *memProvider) UpdateAccountStatus(_ context.Context, userID string, status AccountStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.Status = status
	p.byID[userID] = u
	return nil
}

func (p *memProvider) TouchLastLogin(_ context.Context, userID string, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.LastLoginAt = at.Unix()
	p.byID[userID] = u
	return nil
}

func (p *memProvider) GetActiveMFASecret(_ context.Context, userID string) (*MFASecretRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	id, ok := p.mfaByUserID[userID]
	if !ok {
		return nil, nil
	}
	rec := p.mfaByID[id]
	return &rec, nil
}

func (p *memProvider) GetMFASecretByID(_ context.Context, secretID string) (*MFASecretRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rec, ok := p.mfaByID[secretID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (p *memProvider) CreateMFASecret(_ context.Context, record MFASecretRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, rec := range p.mfaByID {
		if rec.UserID == record.UserID && !rec.Verified {
			delete(p.mfaByID, id)
		}
	}
	p.mfaByID[record.ID] = record
	return nil
}

func (p *memProvider) ActivateMFASecret(_ context.Context, secretID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.mfaByID[secretID]
	if !ok {
		return ErrTOTPNotConfigured
	}
	rec.Verified = true
	p.mfaByID[secretID] = rec
	p.mfaByUserID[rec.UserID] = secretID
	return nil
}

func (p *memProvider) DisableMFA(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if id, ok := p.mfaByUserID[userID]; ok {
		delete(p.mfaByID, id)
		delete(p.mfaByUserID, userID)
	}
	return nil
}

func (p *memProvider) UpdateMFALastUsedCounter(_ context.Context, secretID string, counter int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.mfaByID[secretID]
	if !ok {
		return ErrTOTPNotConfigured
	}
	rec.LastUsedCounter = counter
	p.mfaByID[secretID] = rec
	return nil
}
