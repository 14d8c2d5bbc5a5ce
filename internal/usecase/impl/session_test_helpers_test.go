package impl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"referral/internal/domain/entity"
	"referral/internal/domain/repository"
	"referral/internal/domain/service"
	"referral/internal/infra/auth"
	"referral/internal/infra/cache"
	"referral/internal/infra/metrics"
	"referral/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const (
	testAccessSecret  = "test_access_secret_key_very_long_for_testing"
	testPortalSecret  = "test_portal_secret_key_very_long_for_testing"
	testStatelessKey  = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	testPepper        = "pepper"
	testAccessTTL     = 15 * time.Minute
	testRefreshTTL    = 30 * 24 * time.Hour
	testSessionTTL    = 90 * 24 * time.Hour
	testStatelessTTL  = 7 * 24 * time.Hour
	testApplicantID   = "A1"
	testApplicantPass = "S1"
	testReferrerID    = "R1"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testClock is safe for concurrent reads.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memorySessionStore applies the conditional update under one lock, which is
// the same guarantee the SQL UPDATE ... WHERE gives.
type memorySessionStore struct {
	mu          sync.Mutex
	rows        map[uuid.UUID]entity.Session
	unavailable atomic.Bool
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{rows: make(map[uuid.UUID]entity.Session)}
}

func (s *memorySessionStore) down() error {
	if s.unavailable.Load() {
		return errors.Wrap(repository.ErrStoreUnavailable, "connection refused")
	}

	return nil
}

func (s *memorySessionStore) Create(_ context.Context, session *entity.Session) error {
	if err := s.down(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[session.ID] = *session

	return nil
}

func (s *memorySessionStore) FindByID(_ context.Context, id uuid.UUID) (*entity.Session, error) {
	if err := s.down(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, nil
	}

	return &row, nil
}

func (s *memorySessionStore) ConditionalUpdate(_ context.Context, id uuid.UUID, expectedHash string, fields entity.RotationFields, now time.Time) (int64, error) {
	if err := s.down(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok || row.RefreshTokenHash != expectedHash || !row.IsUsableAt(now) {
		return 0, nil
	}
	row.RefreshTokenHash = fields.RefreshTokenHash
	row.RefreshTokenExpiresAt = fields.RefreshTokenExpiresAt
	lastUsed := fields.LastUsedAt
	row.LastUsedAt = &lastUsed
	row.UserAgent = fields.UserAgent
	s.rows[id] = row

	return 1, nil
}

func (s *memorySessionStore) RevokeByID(_ context.Context, id uuid.UUID, now time.Time) error {
	if err := s.down(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[id]; ok && row.RevokedAt == nil {
		row.RevokedAt = &now
		s.rows[id] = row
	}

	return nil
}

func (s *memorySessionStore) RevokeAllForPrincipal(_ context.Context, principalType entity.PrincipalType, principalID string, now time.Time) (int64, error) {
	if err := s.down(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for id, row := range s.rows {
		if row.PrincipalType != principalType || row.PrincipalID != principalID || row.RevokedAt != nil {
			continue
		}
		row.RevokedAt = &now
		s.rows[id] = row
		count++
	}

	return count, nil
}

// get returns a copy of the stored row.
func (s *memorySessionStore) get(t *testing.T, id uuid.UUID) *entity.Session {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	require.True(t, ok, "session %s not stored", id)

	return &row
}

func (s *memorySessionStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.rows)
}

// memoryPrincipals stands in for the external record store.
type memoryPrincipals struct {
	principalType entity.PrincipalType
	mu            sync.Mutex
	rows          map[string]entity.Principal
	err           error
}

func newMemoryPrincipals(principalType entity.PrincipalType, principals ...entity.Principal) *memoryPrincipals {
	p := &memoryPrincipals{principalType: principalType, rows: make(map[string]entity.Principal)}
	for _, principal := range principals {
		principal.Type = principalType
		p.rows[principal.ID] = principal
	}

	return p
}

func (p *memoryPrincipals) Type() entity.PrincipalType {
	return p.principalType
}

func (p *memoryPrincipals) FindByID(_ context.Context, id string) (*entity.Principal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	row, ok := p.rows[id]
	if !ok {
		return nil, repository.ErrPrincipalNotFound
	}

	return &row, nil
}

func (p *memoryPrincipals) update(id string, fn func(*entity.Principal)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	row := p.rows[id]
	fn(&row)
	p.rows[id] = row
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []service.SessionEvent
}

func (p *recordingPublisher) PublishSessionEvent(_ context.Context, event *service.SessionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *event)

	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.Type)
	}

	return types
}

type testHarness struct {
	clock      *testClock
	store      *memorySessionStore
	applicants *memoryPrincipals
	referrers  *memoryPrincipals
	events     *recordingPublisher
	metrics    *metrics.Metrics
	tokens     service.TokenService
	hasher     service.SecretHasher
	deps       SessionManagerDeps
	applicant  usecase.SessionManager
	referrer   usecase.SessionManager
	auth       usecase.MobileAuthUsecase
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	h := &testHarness{
		clock:   newTestClock(),
		store:   newMemorySessionStore(),
		events:  &recordingPublisher{},
		metrics: metrics.New(),
		hasher:  auth.NewSecretHasherWithPepper(testPepper),
	}

	tokens, err := auth.NewJWTService(auth.TokenConfig{
		AccessSecret:   testAccessSecret,
		Issuer:         "referral-test",
		AccessTokenTTL: testAccessTTL,
		Now:            h.clock.Now,
	})
	require.NoError(t, err)
	h.tokens = tokens

	stateless, err := auth.NewStatelessRefreshCodec(auth.StatelessConfig{
		KeyHex: testStatelessKey,
		Issuer: "referral-test",
		TTL:    testStatelessTTL,
		Now:    h.clock.Now,
	})
	require.NoError(t, err)

	portal, err := auth.NewPortalTokenVerifierWithClock(testPortalSecret, 0, h.clock.Now)
	require.NoError(t, err)

	h.applicants = newMemoryPrincipals(entity.PrincipalTypeApplicant, entity.Principal{
		ID:          testApplicantID,
		DisplayName: "Applicant One",
		SecretHash:  h.hasher.Hash(testApplicantPass),
	})
	h.referrers = newMemoryPrincipals(entity.PrincipalTypeReferrer, entity.Principal{
		ID:          testReferrerID,
		DisplayName: "Referrer One",
		TokenEpoch:  2,
	})

	h.deps = SessionManagerDeps{
		Sessions:  h.store,
		Tokens:    tokens,
		Stateless: stateless,
		Hasher:    h.hasher,
		Events:    h.events,
		Metrics:   h.metrics,
		Timings:   SessionTimings{RefreshTokenTTL: testRefreshTTL, SessionTTL: testSessionTTL},
		Logger:    newDiscardLogger(),
	}
	h.applicant = NewSessionManager(h.deps, h.applicants, h.clock.Now)
	h.referrer = NewSessionManager(h.deps, h.referrers, h.clock.Now)
	h.auth = NewAuthService(AuthServiceParams{
		Applicants:        h.applicants,
		Referrers:         h.referrers,
		ApplicantSessions: h.applicant,
		ReferrerSessions:  h.referrer,
		Hasher:            h.hasher,
		PortalTokens:      portal,
		ReplayGuard:       cache.NewMemoryReplayGuard(h.clock.Now),
		Logger:            newDiscardLogger(),
	})

	return h
}

func (h *testHarness) portalToken(t *testing.T, referrerID string, epoch int64) string {
	t.Helper()
	token, err := auth.SignPortalToken(testPortalSecret, referrerID, uuid.NewString(), epoch, h.clock.Now().Add(time.Hour))
	require.NoError(t, err)

	return token
}

func (h *testHarness) exchangeApplicant(t *testing.T) *usecase.ExchangeResult {
	t.Helper()
	result, err := h.auth.ExchangeApplicant(context.Background(), usecase.ApplicantCredentials{
		ApplicantID: testApplicantID,
		Secret:      testApplicantPass,
	}, entity.DeviceInfo{UserAgent: "referral-ios/1.0"})
	require.NoError(t, err)

	return result
}

func (h *testHarness) exchangeReferrer(t *testing.T) *usecase.ExchangeResult {
	t.Helper()
	result, err := h.auth.ExchangeReferrer(context.Background(), usecase.ReferrerCredentials{
		PortalToken: h.portalToken(t, testReferrerID, 2),
	}, entity.DeviceInfo{UserAgent: "referral-android/1.0"})
	require.NoError(t, err)

	return result
}
