package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	pqotp "github.com/pquerna/otp"
	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/gotp/internal/account/entity"
	"github.com/shandysiswandi/gotp/internal/account/outbound/memory"
	"github.com/shandysiswandi/gotp/internal/pkg/goerror"
	"github.com/shandysiswandi/gotp/internal/pkg/hash"
	"github.com/shandysiswandi/gotp/internal/pkg/instrument"
	"github.com/shandysiswandi/gotp/internal/pkg/jwt"
	"github.com/shandysiswandi/gotp/internal/pkg/otp"
	"github.com/shandysiswandi/gotp/internal/pkg/secret"
	"github.com/shandysiswandi/gotp/internal/pkg/validator"
)

const (
	testIdentifier = "alice@example.com"
	testAdminKey   = "operator-key"
)

var t0 = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type seqID struct {
	mu sync.Mutex
	n  int64
}

func (s *seqID) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.n
}

type fixedUUID string

func (f fixedUUID) Generate() string { return string(f) }

type fakeMail struct {
	mu     sync.Mutex
	err    error
	codes  []string
	tokens []string
}

func (m *fakeMail) SendCode(_ context.Context, _, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.codes = append(m.codes, code)
	return nil
}

func (m *fakeMail) SendRecoveryToken(_ context.Context, _, token string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = append(m.tokens, token)
	return m.err
}

func (m *fakeMail) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tokens) == 0 {
		t.Fatal("no recovery token sent")
	}
	return m.tokens[len(m.tokens)-1]
}

type fakeMQ struct {
	mu         sync.Mutex
	err        error
	registered []entity.RegisteredEvent
	requested  []entity.ResetRequestedEvent
	rotated    []entity.SecretRotatedEvent
}

func (f *fakeMQ) PublishAccountRegistered(_ context.Context, ev entity.RegisteredEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, ev)
	return f.err
}

func (f *fakeMQ) PublishAccountResetRequested(_ context.Context, ev entity.ResetRequestedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, ev)
	return f.err
}

func (f *fakeMQ) PublishAccountSecretRotated(_ context.Context, ev entity.SecretRotatedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rotated = append(f.rotated, ev)
	return f.err
}

type fakeCache struct {
	mu      sync.Mutex
	claimed map[string]bool
	err     error
}

func (f *fakeCache) ClaimOTPStep(_ context.Context, identifier, generation string, step uint64, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	key := fmt.Sprintf("%s/%s/%d", identifier, generation, step)
	if f.claimed[key] {
		return false, nil
	}
	f.claimed[key] = true
	return true, nil
}

type failingStore struct {
	*memory.Store
	getErr error
}

func (f *failingStore) GetAccount(ctx context.Context, identifier string) (*entity.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.Store.GetAccount(ctx, identifier)
}

func withStoreError(err error) func(*Dependency) {
	return func(d *Dependency) {
		d.RepoDB = &failingStore{Store: memory.NewStore(d.Clock), getErr: err}
	}
}

type fixture struct {
	uc    *Usecase
	store *memory.Store
	clock *fakeClock
	mail  *fakeMail
	mq    *fakeMQ
	cache *fakeCache
	totp  *otp.TOTP
	jwt   *jwt.Symmetric
}

func newFixture(t *testing.T, opts ...func(*Dependency)) *fixture {
	t.Helper()

	clk := &fakeClock{now: t0}
	store := memory.NewStore(clk)

	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("NewV10Validator() error = %v", err)
	}

	bc := hash.NewBcrypt(4, "")
	adminHash, err := bc.Hash(testAdminKey)
	if err != nil {
		t.Fatalf("bcrypt hash error = %v", err)
	}

	totp := otp.NewTOTP("gotp", 30, 1, pqotp.DigitsSix)
	signer, err := jwt.NewHS512(jwt.Config{
		Secret: []byte("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"),
		Issuer: "gotp",
		TTL:    time.Hour,
		Clock:  clk,
		UUID:   fixedUUID("jti-1"),
	})
	if err != nil {
		t.Fatalf("NewHS512() error = %v", err)
	}

	f := &fixture{
		store: store,
		clock: clk,
		mail:  &fakeMail{},
		mq:    &fakeMQ{},
		cache: &fakeCache{claimed: map[string]bool{}},
		totp:  totp,
		jwt:   signer,
	}

	dep := Dependency{
		Config: Config{
			ResetTTL:     time.Hour,
			AdminKeyHash: string(adminHash),
			ReplayGuard:  true,
			ReplayTTL:    90 * time.Second,
			QRSize:       128,
		},
		RepoDB:        store,
		RepoCache:     f.cache,
		RepoMail:      f.mail,
		RepoMessaging: f.mq,
		Validator:     v,
		HMAC:          hash.NewHMACSHA256("hmac-secret"),
		Credential:    hash.NewCredential(bc, hash.NewArgon2id("")),
		Sealer:        secret.NewAESGCM(secret.StaticKey(make([]byte, 32))),
		Totp:          totp,
		JWT:           signer,
		UID:           &seqID{},
		Clock:         clk,
		Instrument:    instrument.NewNoop(),
	}
	for _, opt := range opts {
		opt(&dep)
	}

	f.uc = New(dep)
	f.uc.backoff = func() retry.Backoff { return retry.WithMaxRetries(3, retry.NewConstant(time.Millisecond)) }
	return f
}

func (f *fixture) register(t *testing.T) *RegisterOutput {
	t.Helper()

	out, err := f.uc.Register(context.Background(), RegisterInput{Identifier: testIdentifier})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return out
}

func (f *fixture) code(t *testing.T, seed string, at time.Time) string {
	t.Helper()

	code, err := f.totp.GenerateCode(seed, at)
	if err != nil {
		t.Fatalf("GenerateCode() error = %v", err)
	}
	return code
}

func assertCode(t *testing.T, err error, want goerror.Code, sentinel error) {
	t.Helper()

	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("error = %v, want *goerror.Error", err)
	}
	if gerr.Code() != want {
		t.Fatalf("code = %v, want %v (error %v)", gerr.Code(), want, err)
	}
	if sentinel != nil && !errors.Is(err, sentinel) {
		t.Fatalf("error = %v, want errors.Is %v", err, sentinel)
	}
}
