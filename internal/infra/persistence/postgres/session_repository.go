// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"referral/config"
	"referral/internal/domain/entity"
	"referral/internal/domain/repository"
	"referral/internal/infra/persistence/model"
)

// sessionRepository implements repository.SessionRepository. Every call is
// bounded by timeout and exceeding it is reported as ErrStoreUnavailable.
type sessionRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewSessionRepository is the constructor for sessionRepository.
func NewSessionRepository(db *gorm.DB, cfg *config.Config) repository.SessionRepository {
	return NewSessionRepositoryWithTimeout(db, cfg.Session.StoreTimeout)
}

// NewSessionRepositoryWithTimeout builds the repository with an explicit store timeout.
func NewSessionRepositoryWithTimeout(db *gorm.DB, timeout time.Duration) repository.SessionRepository {
	return &sessionRepository{db: db, timeout: timeout}
}

func (repo *sessionRepository) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return boundedContext(ctx, repo.timeout)
}

// Create persists a new session row.
func (repo *sessionRepository) Create(ctx context.Context, session *entity.Session) error {
	ctx, cancel := repo.bound(ctx)
	defer cancel()

	sessionM := fromSessionDomain(session)
	if err := repo.db.WithContext(ctx).Create(sessionM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return errors.Wrap(err, "session id collision")
		}

		return classify(ctx, err, "create session")
	}

	session.CreatedAt = sessionM.CreatedAt

	return nil
}

// FindByID returns nil, nil when the session does not exist.
func (repo *sessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	ctx, cancel := repo.bound(ctx)
	defer cancel()

	var sessionM model.SessionModel
	err := repo.db.WithContext(ctx).Where("id = ?", id).Take(&sessionM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil //nolint:nilnil // not found is a valid outcome for session lookups
		}

		return nil, classify(ctx, err, "find session")
	}

	return toSessionDomain(&sessionM), nil
}

// ConditionalUpdate is the rotation primitive. The WHERE clause carries every
// precondition so concurrent rotations of one session serialize in the store
// and at most one of them sees a row updated.
func (repo *sessionRepository) ConditionalUpdate(
	ctx context.Context,
	id uuid.UUID,
	expectedHash string,
	fields entity.RotationFields,
	now time.Time,
) (int64, error) {
	ctx, cancel := repo.bound(ctx)
	defer cancel()

	now = now.UTC()
	result := repo.db.WithContext(ctx).
		Model(&model.SessionModel{}).
		Where("id = ?", id).
		Where("refresh_token_hash = ?", expectedHash).
		Where("revoked_at IS NULL").
		Where("session_expires_at > ?", now).
		Where("refresh_token_expires_at > ?", now).
		Updates(map[string]any{
			"refresh_token_hash":       fields.RefreshTokenHash,
			"refresh_token_expires_at": fields.RefreshTokenExpiresAt.UTC(),
			"last_used_at":             fields.LastUsedAt.UTC(),
			"user_agent":               truncateUserAgent(fields.UserAgent),
		})
	if result.Error != nil {
		return 0, classify(ctx, result.Error, "rotate session")
	}

	return result.RowsAffected, nil
}

// RevokeByID marks the session revoked. Missing or already revoked rows are a no-op.
func (repo *sessionRepository) RevokeByID(ctx context.Context, id uuid.UUID, now time.Time) error {
	ctx, cancel := repo.bound(ctx)
	defer cancel()

	err := repo.db.WithContext(ctx).
		Model(&model.SessionModel{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", now.UTC()).Error

	return classify(ctx, err, "revoke session")
}

// RevokeAllForPrincipal revokes every unrevoked session of the principal.
func (repo *sessionRepository) RevokeAllForPrincipal(
	ctx context.Context,
	principalType entity.PrincipalType,
	principalID string,
	now time.Time,
) (int64, error) {
	ctx, cancel := repo.bound(ctx)
	defer cancel()

	result := repo.db.WithContext(ctx).
		Model(&model.SessionModel{}).
		Where("principal_type = ? AND principal_id = ? AND revoked_at IS NULL", principalType.String(), principalID).
		Update("revoked_at", now.UTC())
	if result.Error != nil {
		return 0, classify(ctx, result.Error, "revoke principal sessions")
	}

	return result.RowsAffected, nil
}

const maxUserAgentLength = 512

func truncateUserAgent(ua string) string {
	return entity.TruncateUserAgent(ua, maxUserAgentLength)
}

func fromSessionDomain(s *entity.Session) *model.SessionModel {
	return &model.SessionModel{
		ID:                    s.ID,
		PrincipalID:           s.PrincipalID,
		PrincipalType:         s.PrincipalType.String(),
		RefreshTokenHash:      s.RefreshTokenHash,
		TokenEpoch:            s.TokenEpoch,
		SessionExpiresAt:      s.SessionExpiresAt.UTC(),
		RefreshTokenExpiresAt: s.RefreshTokenExpiresAt.UTC(),
		RevokedAt:             utcPtr(s.RevokedAt),
		UserAgent:             truncateUserAgent(s.UserAgent),
		LastUsedAt:            utcPtr(s.LastUsedAt),
		CreatedAt:             s.CreatedAt.UTC(),
	}
}

func toSessionDomain(m *model.SessionModel) *entity.Session {
	return &entity.Session{
		ID:                    m.ID,
		PrincipalID:           m.PrincipalID,
		PrincipalType:         entity.PrincipalType(m.PrincipalType),
		RefreshTokenHash:      m.RefreshTokenHash,
		TokenEpoch:            m.TokenEpoch,
		SessionExpiresAt:      m.SessionExpiresAt,
		RefreshTokenExpiresAt: m.RefreshTokenExpiresAt,
		RevokedAt:             m.RevokedAt,
		UserAgent:             m.UserAgent,
		LastUsedAt:            m.LastUsedAt,
		CreatedAt:             m.CreatedAt,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()

	return &utc
}
