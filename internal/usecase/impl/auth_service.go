package impl

import (
	"context"
	"log/slog"
	"strings"

	deliverycontext "referral/internal/delivery/context"
	"referral/internal/domain/entity"
	domainerrors "referral/internal/domain/errors"
	"referral/internal/domain/repository"
	"referral/internal/domain/service"
	"referral/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// AuthServiceParams holds dependencies for the mobile auth service, injected by Fx.
type AuthServiceParams struct {
	fx.In

	Applicants        repository.PrincipalRepository `name:"applicants"`
	Referrers         repository.PrincipalRepository `name:"referrers"`
	ApplicantSessions usecase.SessionManager         `name:"applicantSessions"`
	ReferrerSessions  usecase.SessionManager         `name:"referrerSessions"`
	Hasher            service.SecretHasher
	PortalTokens      service.PortalTokenVerifier
	ReplayGuard       service.ReplayGuard
	Logger            *slog.Logger
}

// authService implements the MobileAuthUsecase interface.
type authService struct {
	applicants   repository.PrincipalRepository
	referrers    repository.PrincipalRepository
	managers     map[entity.PrincipalType]usecase.SessionManager
	hasher       service.SecretHasher
	portalTokens service.PortalTokenVerifier
	replayGuard  service.ReplayGuard
	logger       *slog.Logger
}

// NewAuthService is the constructor for authService.
func NewAuthService(params AuthServiceParams) usecase.MobileAuthUsecase {
	return &authService{
		applicants: params.Applicants,
		referrers:  params.Referrers,
		managers: map[entity.PrincipalType]usecase.SessionManager{
			entity.PrincipalTypeApplicant: params.ApplicantSessions,
			entity.PrincipalTypeReferrer:  params.ReferrerSessions,
		},
		hasher:       params.Hasher,
		portalTokens: params.PortalTokens,
		replayGuard:  params.ReplayGuard,
		logger:       params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// ExchangeApplicant verifies the applicant's shared secret before revealing
// anything about the account state.
func (srv *authService) ExchangeApplicant(ctx context.Context, creds usecase.ApplicantCredentials, device entity.DeviceInfo) (*usecase.ExchangeResult, error) {
	applicantID := strings.TrimSpace(creds.ApplicantID)
	if applicantID == "" || creds.Secret == "" {
		return nil, errors.Wrap(domainerrors.ErrInvalidRequest, "applicantId and secret are required")
	}

	principal, err := srv.findPrincipal(ctx, srv.applicants, applicantID)
	if err != nil {
		return nil, err
	}

	if principal.SecretHash == "" || !srv.hasher.Matches(creds.Secret, principal.SecretHash) {
		srv.log(ctx).Info("Applicant secret rejected", slog.String("applicant_id", applicantID))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "secret mismatch")
	}

	return srv.issue(ctx, principal, nil, device)
}

// ExchangeReferrer accepts a portal link token once. The token's version must
// match the referrer's current token epoch.
func (srv *authService) ExchangeReferrer(ctx context.Context, creds usecase.ReferrerCredentials, device entity.DeviceInfo) (*usecase.ExchangeResult, error) {
	if strings.TrimSpace(creds.PortalToken) == "" {
		return nil, errors.Wrap(domainerrors.ErrInvalidRequest, "portalToken is required")
	}

	claims, err := srv.portalTokens.Verify(creds.PortalToken)
	if err != nil {
		srv.log(ctx).Info("Portal token rejected", slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "portal token invalid")
	}

	principal, err := srv.findPrincipal(ctx, srv.referrers, claims.ReferrerID)
	if err != nil {
		return nil, err
	}
	if principal.Archived {
		return nil, domainerrors.NewPrincipalArchived(principal.ID)
	}
	if principal.TokenEpoch != claims.Epoch {
		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "portal token version is stale")
	}

	fresh, err := srv.replayGuard.Consume(ctx, claims.TokenID, claims.AcceptedUntil)
	switch {
	case err != nil:
		srv.log(ctx).Warn("Replay guard unavailable, accepting portal token",
			slog.String("referrer_id", principal.ID),
			slog.Any("error", err),
		)
	case !fresh:
		srv.log(ctx).Warn("Portal token replayed", slog.String("referrer_id", principal.ID))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "portal token already used")
	}

	return srv.issue(ctx, principal, &claims.Epoch, device)
}

func (srv *authService) issue(ctx context.Context, principal *entity.Principal, epoch *int64, device entity.DeviceInfo) (*usecase.ExchangeResult, error) {
	manager, err := srv.manager(principal.Type)
	if err != nil {
		return nil, err
	}

	pair, err := manager.Issue(ctx, usecase.IssueInput{
		Principal:     principal,
		ExpectedEpoch: epoch,
		Device:        device,
	})
	if err != nil {
		return nil, err
	}

	return &usecase.ExchangeResult{Tokens: pair, Principal: principal.Summary()}, nil
}

func (srv *authService) Refresh(ctx context.Context, principalType entity.PrincipalType, refreshToken string, device entity.DeviceInfo) (*entity.TokenPair, error) {
	manager, err := srv.manager(principalType)
	if err != nil {
		return nil, err
	}

	pair, err := manager.Refresh(ctx, refreshToken, device)
	if err == nil {
		return pair, nil
	}

	var archived *domainerrors.PrincipalArchivedError
	if errors.As(err, &archived) {
		if _, revokeErr := manager.RevokeAll(ctx, archived.PrincipalID); revokeErr != nil {
			srv.log(ctx).Warn("Failed to revoke sessions of archived principal",
				slog.String("principal_id", archived.PrincipalID),
				slog.Any("error", revokeErr),
			)
		}
	}

	return nil, err
}

func (srv *authService) Logout(ctx context.Context, principalType entity.PrincipalType, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return errors.Wrap(domainerrors.ErrInvalidRequest, "refreshToken is required")
	}

	manager, err := srv.manager(principalType)
	if err != nil {
		return err
	}

	return manager.Revoke(ctx, refreshToken)
}

func (srv *authService) LogoutAll(ctx context.Context, principalType entity.PrincipalType, principalID string) (int64, error) {
	manager, err := srv.manager(principalType)
	if err != nil {
		return 0, err
	}

	return manager.RevokeAll(ctx, principalID)
}

func (srv *authService) Authenticate(ctx context.Context, principalType entity.PrincipalType, accessToken string) (*entity.Principal, error) {
	manager, err := srv.manager(principalType)
	if err != nil {
		return nil, err
	}

	return manager.Authenticate(ctx, accessToken)
}

func (srv *authService) manager(principalType entity.PrincipalType) (usecase.SessionManager, error) {
	manager, ok := srv.managers[principalType]
	if !ok || manager == nil {
		return nil, errors.Wrapf(domainerrors.ErrInvalidRequest, "unknown principal type %q", principalType)
	}

	return manager, nil
}

// findPrincipal maps lookups to the exchange taxonomy. Store failures cannot
// fall back here and surface as internal errors.
func (srv *authService) findPrincipal(ctx context.Context, repo repository.PrincipalRepository, id string) (*entity.Principal, error) {
	principal, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPrincipalNotFound) {
			return nil, errors.Wrapf(domainerrors.ErrPrincipalNotFound, "%s %s", repo.Type(), id)
		}
		srv.log(ctx).Error("Failed to look up principal",
			slog.String("principal_type", repo.Type().String()),
			slog.String("principal_id", id),
			slog.Any("error", err),
		)

		return nil, errors.Wrap(domainerrors.ErrInternal, err.Error())
	}

	return principal, nil
}
