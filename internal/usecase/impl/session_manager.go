// Package impl contains the application-specific business rules implementations.
package impl

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"referral/config"
	deliverycontext "referral/internal/delivery/context"
	"referral/internal/domain/entity"
	domainerrors "referral/internal/domain/errors"
	"referral/internal/domain/repository"
	"referral/internal/domain/service"
	"referral/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// SessionTimings is the lifetime table shared by both principal types.
type SessionTimings struct {
	RefreshTokenTTL time.Duration
	SessionTTL      time.Duration
}

// NewSessionTimings reads the lifetime table from configuration.
func NewSessionTimings(cfg *config.Config) SessionTimings {
	return SessionTimings{
		RefreshTokenTTL: cfg.Session.RefreshTokenTTL,
		SessionTTL:      cfg.Session.SessionTTL,
	}
}

// SessionManagerDeps are the collaborators shared by every session manager.
type SessionManagerDeps struct {
	fx.In

	Sessions  repository.SessionRepository
	Tokens    service.TokenService
	Stateless service.StatelessRefreshCodec
	Hasher    service.SecretHasher
	Events    service.EventPublisher
	Metrics   service.SessionMetrics
	Timings   SessionTimings
	Logger    *slog.Logger
}

// ApplicantSessionManagerParams selects the applicant principal adapter.
type ApplicantSessionManagerParams struct {
	fx.In

	Deps       SessionManagerDeps
	Principals repository.PrincipalRepository `name:"applicants"`
}

// ReferrerSessionManagerParams selects the referrer principal adapter.
type ReferrerSessionManagerParams struct {
	fx.In

	Deps       SessionManagerDeps
	Principals repository.PrincipalRepository `name:"referrers"`
}

// NewApplicantSessionManager builds the applicant session manager.
func NewApplicantSessionManager(params ApplicantSessionManagerParams) usecase.SessionManager {
	return NewSessionManager(params.Deps, params.Principals, time.Now)
}

// NewReferrerSessionManager builds the referrer session manager.
func NewReferrerSessionManager(params ReferrerSessionManagerParams) usecase.SessionManager {
	return NewSessionManager(params.Deps, params.Principals, time.Now)
}

// sessionManager implements usecase.SessionManager over one principal adapter.
type sessionManager struct {
	principalType entity.PrincipalType
	principals    repository.PrincipalRepository
	sessions      repository.SessionRepository
	tokens        service.TokenService
	stateless     service.StatelessRefreshCodec
	hasher        service.SecretHasher
	events        service.EventPublisher
	metrics       service.SessionMetrics
	timings       SessionTimings
	now           func() time.Time
	logger        *slog.Logger
}

// NewSessionManager is the constructor for sessionManager.
func NewSessionManager(deps SessionManagerDeps, principals repository.PrincipalRepository, now func() time.Time) usecase.SessionManager {
	if now == nil {
		now = time.Now
	}

	return &sessionManager{
		principalType: principals.Type(),
		principals:    principals,
		sessions:      deps.Sessions,
		tokens:        deps.Tokens,
		stateless:     deps.Stateless,
		hasher:        deps.Hasher,
		events:        deps.Events,
		metrics:       deps.Metrics,
		timings:       deps.Timings,
		now:           now,
		logger:        deps.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *sessionManager) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger).With(slog.String("principal_type", srv.principalType.String()))
}

func (srv *sessionManager) PrincipalType() entity.PrincipalType {
	return srv.principalType
}

// Issue guards on principal state, then creates a stateful session. A store
// outage degrades to a stateless refresh token.
func (srv *sessionManager) Issue(ctx context.Context, input usecase.IssueInput) (*entity.TokenPair, error) {
	principal := input.Principal
	if principal == nil || principal.Type != srv.principalType {
		return nil, errors.Wrap(domainerrors.ErrInternal, "principal type mismatch")
	}
	if err := srv.guard(ctx, principal, input.ExpectedEpoch); err != nil {
		return nil, err
	}

	return srv.issue(ctx, principal, input.Device)
}

func (srv *sessionManager) issue(ctx context.Context, principal *entity.Principal, device entity.DeviceInfo) (*entity.TokenPair, error) {
	now := srv.now()

	accessToken, accessExpiresAt, err := srv.tokens.IssueAccessToken(principal)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue access token")
	}

	secret, err := entity.NewRefreshSecret()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	sessionExpiresAt := now.Add(srv.timings.SessionTTL)
	session := &entity.Session{
		ID:                    uuid.New(),
		PrincipalID:           principal.ID,
		PrincipalType:         srv.principalType,
		RefreshTokenHash:      srv.hasher.Hash(secret),
		TokenEpoch:            principal.TokenEpoch,
		SessionExpiresAt:      sessionExpiresAt,
		RefreshTokenExpiresAt: earliest(now.Add(srv.timings.RefreshTokenTTL), sessionExpiresAt),
		UserAgent:             device.UserAgent,
		LastUsedAt:            &now,
		CreatedAt:             now,
	}

	if err := srv.sessions.Create(ctx, session); err != nil {
		if errors.Is(err, repository.ErrStoreUnavailable) {
			return srv.issueStateless(ctx, principal, accessToken, accessExpiresAt, now, err)
		}

		return nil, errors.Wrap(err, "failed to create session")
	}

	srv.metrics.SessionIssued(srv.principalType.String(), string(entity.SessionModeStateful))
	srv.log(ctx).Info("Session issued",
		slog.String("principal_id", principal.ID),
		slog.String("session_id", session.ID.String()),
	)

	sessionID := session.ID

	return &entity.TokenPair{
		AccessToken:           accessToken,
		AccessTokenExpiresIn:  secondsUntil(now, accessExpiresAt),
		RefreshToken:          entity.FormatRefreshToken(session.ID, secret),
		RefreshTokenExpiresIn: secondsUntil(now, session.RefreshTokenExpiresAt),
		Mode:                  entity.SessionModeStateful,
		SessionID:             &sessionID,
	}, nil
}

func (srv *sessionManager) issueStateless(
	ctx context.Context,
	principal *entity.Principal,
	accessToken string,
	accessExpiresAt, now time.Time,
	cause error,
) (*entity.TokenPair, error) {
	refreshToken, refreshExpiresAt, err := srv.stateless.Issue(principal)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue stateless refresh token")
	}

	srv.metrics.StoreFallback(srv.principalType.String(), "issue")
	srv.metrics.SessionIssued(srv.principalType.String(), string(entity.SessionModeStateless))
	srv.log(ctx).Warn("Session store unavailable, issued stateless refresh token",
		slog.String("principal_id", principal.ID),
		slog.Any("error", cause),
	)
	srv.publish(ctx, &service.SessionEvent{
		Type:        service.EventStatelessIssued,
		PrincipalID: principal.ID,
	})

	return &entity.TokenPair{
		AccessToken:           accessToken,
		AccessTokenExpiresIn:  secondsUntil(now, accessExpiresAt),
		RefreshToken:          refreshToken,
		RefreshTokenExpiresIn: secondsUntil(now, refreshExpiresAt),
		Mode:                  entity.SessionModeStateless,
	}, nil
}

// Refresh tries the stateless form first since it needs no I/O.
func (srv *sessionManager) Refresh(ctx context.Context, refreshToken string, device entity.DeviceInfo) (*entity.TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, errors.Wrap(domainerrors.ErrInvalidOrExpiredSession, "empty refresh token")
	}

	var (
		pair    *entity.TokenPair
		outcome string
		err     error
	)
	if srv.stateless.IsStateless(refreshToken) {
		pair, err = srv.refreshStateless(ctx, refreshToken, device)
		outcome = service.RefreshOutcomeUpgraded
		if pair != nil && pair.Mode == entity.SessionModeStateless {
			outcome = service.RefreshOutcomeStateless
		}
	} else {
		pair, err = srv.refreshStateful(ctx, refreshToken, device)
		outcome = service.RefreshOutcomeRotated
	}

	if err != nil {
		outcome = refreshFailureOutcome(err)
	}
	srv.metrics.RefreshOutcome(srv.principalType.String(), outcome)

	return pair, err
}

func (srv *sessionManager) refreshStateful(ctx context.Context, refreshToken string, device entity.DeviceInfo) (*entity.TokenPair, error) {
	sessionID, secret, ok := entity.ParseRefreshToken(refreshToken)
	if !ok {
		return nil, errors.Wrap(domainerrors.ErrInvalidOrExpiredSession, "malformed refresh token")
	}

	session, err := srv.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, srv.storeFailure(ctx, err, "find session")
	}
	if session == nil || session.PrincipalType != srv.principalType {
		return nil, errors.Wrap(domainerrors.ErrInvalidOrExpiredSession, "session not found")
	}

	if !srv.hasher.ConstantTimeEquals(srv.hasher.Hash(secret), session.RefreshTokenHash) {
		return nil, errors.Wrap(domainerrors.ErrInvalidOrExpiredSession, "refresh secret mismatch")
	}

	now := srv.now()
	if !session.IsUsableAt(now) {
		return nil, srv.unusableSession(ctx, session)
	}

	principal, err := srv.lookup(ctx, session.PrincipalID)
	if err != nil {
		return nil, err
	}
	if principal.Archived {
		srv.revokeArchivedSession(ctx, session.ID, now)

		return nil, srv.archived(ctx, principal, session.ID.String())
	}
	if principal.TokenEpoch != session.TokenEpoch {
		return nil, errors.Wrap(domainerrors.ErrInvalidOrExpiredSession, "token epoch changed")
	}

	newSecret, err := entity.NewRefreshSecret()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	fields := entity.RotationFields{
		RefreshTokenHash:      srv.hasher.Hash(newSecret),
		RefreshTokenExpiresAt: earliest(now.Add(srv.timings.RefreshTokenTTL), session.SessionExpiresAt),
		LastUsedAt:            now,
		UserAgent:             device.UserAgent,
	}

	rows, err := srv.sessions.ConditionalUpdate(ctx, session.ID, session.RefreshTokenHash, fields, now)
	if err != nil {
		return nil, srv.storeFailure(ctx, err, "rotate session")
	}
	if rows == 0 {
		srv.log(ctx).Info("Refresh token rotation lost", slog.String("session_id", session.ID.String()))

		return nil, errors.Wrap(domainerrors.ErrInvalidOrExpiredSession, "session changed concurrently")
	}

	accessToken, accessExpiresAt, err := srv.tokens.IssueAccessToken(principal)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue access token")
	}

	srv.log(ctx).Debug("Session rotated", slog.String("session_id", session.ID.String()))

	return &entity.TokenPair{
		AccessToken:           accessToken,
		AccessTokenExpiresIn:  secondsUntil(now, accessExpiresAt),
		RefreshToken:          entity.FormatRefreshToken(session.ID, newSecret),
		RefreshTokenExpiresIn: secondsUntil(now, fields.RefreshTokenExpiresAt),
		Mode:                  entity.SessionModeStateful,
		SessionID:             &session.ID,
	}, nil
}

// refreshStateless checks the live epoch and re-issues. A recovered store
// upgrades the client back to a stateful session.
func (srv *sessionManager) refreshStateless(ctx context.Context, refreshToken string, device entity.DeviceInfo) (*entity.TokenPair, error) {
	claims := srv.stateless.Validate(refreshToken, srv.principalType)
	if claims == nil {
		return nil, errors.Wrap(domainerrors.ErrInvalidOrExpiredSession, "invalid stateless refresh token")
	}

	principal, err := srv.lookup(ctx, claims.PrincipalID)
	if err != nil {
		return nil, err
	}
	if principal.Archived {
		return nil, srv.archived(ctx, principal, "")
	}
	if principal.TokenEpoch != claims.Epoch {
		return nil, errors.Wrap(domainerrors.ErrInvalidOrExpiredSession, "token epoch changed")
	}

	return srv.issue(ctx, principal, device)
}

// Revoke requires the full refresh token so a leaked session id alone cannot
// sign a device out.
func (srv *sessionManager) Revoke(ctx context.Context, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if srv.stateless.IsStateless(refreshToken) {
		srv.log(ctx).Debug("Stateless refresh token cannot be revoked individually")

		return nil
	}

	sessionID, secret, ok := entity.ParseRefreshToken(refreshToken)
	if !ok {
		return errors.Wrap(domainerrors.ErrInvalidOrExpiredSession, "malformed refresh token")
	}

	session, err := srv.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return srv.storeFailure(ctx, err, "find session")
	}
	if session == nil || session.PrincipalType != srv.principalType ||
		!srv.hasher.ConstantTimeEquals(srv.hasher.Hash(secret), session.RefreshTokenHash) {
		return errors.Wrap(domainerrors.ErrInvalidOrExpiredSession, "session not found")
	}
	if session.IsRevoked() {
		return nil
	}

	if err := srv.sessions.RevokeByID(ctx, session.ID, srv.now()); err != nil {
		return srv.storeFailure(ctx, err, "revoke session")
	}

	srv.log(ctx).Info("Session revoked", slog.String("session_id", session.ID.String()))

	return nil
}

func (srv *sessionManager) RevokeAll(ctx context.Context, principalID string) (int64, error) {
	count, err := srv.sessions.RevokeAllForPrincipal(ctx, srv.principalType, principalID, srv.now())
	if err != nil {
		return 0, srv.storeFailure(ctx, err, "revoke all sessions")
	}

	srv.log(ctx).Info("Revoked all sessions",
		slog.String("principal_id", principalID),
		slog.Int64("count", count),
	)
	srv.publish(ctx, &service.SessionEvent{
		Type:        service.EventSessionsRevokedAll,
		PrincipalID: principalID,
		Count:       count,
	})

	return count, nil
}

func (srv *sessionManager) Authenticate(ctx context.Context, accessToken string) (*entity.Principal, error) {
	claims, err := srv.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrInvalidOrExpiredSession, err.Error())
	}
	if claims.PrincipalType != srv.principalType {
		return nil, errors.Wrap(domainerrors.ErrInvalidOrExpiredSession, "principal type mismatch")
	}

	principal, err := srv.lookup(ctx, claims.PrincipalID())
	if err != nil {
		return nil, err
	}
	if err := srv.guard(ctx, principal, &claims.Epoch); err != nil {
		return nil, err
	}

	return principal, nil
}

// guard rejects archived principals and stale epochs.
func (srv *sessionManager) guard(ctx context.Context, principal *entity.Principal, expectedEpoch *int64) error {
	if principal.Archived {
		return srv.archived(ctx, principal, "")
	}
	if expectedEpoch != nil && *expectedEpoch != principal.TokenEpoch {
		return errors.Wrap(domainerrors.ErrInvalidOrExpiredSession, "token epoch changed")
	}

	return nil
}

// lookup maps a missing principal to an invalid session; a session whose
// principal disappeared is not usable.
func (srv *sessionManager) lookup(ctx context.Context, principalID string) (*entity.Principal, error) {
	principal, err := srv.principals.FindByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, repository.ErrPrincipalNotFound) {
			return nil, errors.Wrap(domainerrors.ErrInvalidOrExpiredSession, "principal not found")
		}
		srv.log(ctx).Error("Failed to look up principal", slog.String("principal_id", principalID), slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrInternal, err.Error())
	}

	return principal, nil
}

func (srv *sessionManager) archived(ctx context.Context, principal *entity.Principal, sessionID string) error {
	srv.log(ctx).Info("Archived principal blocked", slog.String("principal_id", principal.ID))
	srv.publish(ctx, &service.SessionEvent{
		Type:        service.EventArchivedBlocked,
		PrincipalID: principal.ID,
		SessionID:   sessionID,
	})

	return domainerrors.NewPrincipalArchived(principal.ID)
}

// unusableSession keeps reporting an archived principal after its sessions
// were revoked, so every device of that principal sees the same refusal.
func (srv *sessionManager) unusableSession(ctx context.Context, session *entity.Session) error {
	principal, err := srv.principals.FindByID(ctx, session.PrincipalID)
	if err == nil && principal.Archived {
		return srv.archived(ctx, principal, session.ID.String())
	}

	return errors.Wrap(domainerrors.ErrInvalidOrExpiredSession, "session revoked or expired")
}

func (srv *sessionManager) revokeArchivedSession(ctx context.Context, sessionID uuid.UUID, now time.Time) {
	if err := srv.sessions.RevokeByID(ctx, sessionID, now); err != nil {
		srv.log(ctx).Warn("Failed to revoke session of archived principal",
			slog.String("session_id", sessionID.String()),
			slog.Any("error", err),
		)
	}
}

// storeFailure converts persistence errors on paths that cannot fall back.
// Clients see a generic 500 and retry instead of signing out.
func (srv *sessionManager) storeFailure(ctx context.Context, err error, op string) error {
	if errors.Is(err, repository.ErrStoreUnavailable) {
		srv.metrics.StoreFallback(srv.principalType.String(), op)
		srv.log(ctx).Warn("Session store unavailable", slog.String("operation", op), slog.Any("error", err))
	} else {
		srv.log(ctx).Error("Session store failed", slog.String("operation", op), slog.Any("error", err))
	}

	return errors.Wrap(domainerrors.ErrInternal, op+": "+err.Error())
}

func (srv *sessionManager) publish(ctx context.Context, event *service.SessionEvent) {
	event.RequestID = deliverycontext.GetRequestIDFromContext(ctx)
	event.PrincipalType = srv.principalType.String()
	event.OccurredAt = srv.now().UTC()

	if err := srv.events.PublishSessionEvent(ctx, event); err != nil {
		srv.log(ctx).Warn("Failed to publish session event",
			slog.String("type", event.Type),
			slog.Any("error", err),
		)
	}
}

func refreshFailureOutcome(err error) string {
	switch {
	case errors.Is(err, domainerrors.ErrPrincipalArchived):
		return service.RefreshOutcomeArchived
	case errors.Is(err, domainerrors.ErrInvalidOrExpiredSession):
		return service.RefreshOutcomeRejected
	default:
		return service.RefreshOutcomeError
	}
}

func earliest(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}

	return b
}

func secondsUntil(now, t time.Time) int64 {
	return max(int64(t.Sub(now)/time.Second), 0)
}
