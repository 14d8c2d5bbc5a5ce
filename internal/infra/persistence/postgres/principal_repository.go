package postgres

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"referral/config"
	"referral/internal/domain/entity"
	"referral/internal/domain/repository"
	"referral/internal/infra/persistence/model"
)

// applicantRepository reads the applicants projection.
type applicantRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewApplicantRepository is the constructor for applicantRepository.
func NewApplicantRepository(db *gorm.DB, cfg *config.Config) repository.PrincipalRepository {
	return &applicantRepository{db: db, timeout: cfg.Session.StoreTimeout}
}

func (repo *applicantRepository) Type() entity.PrincipalType {
	return entity.PrincipalTypeApplicant
}

func (repo *applicantRepository) FindByID(ctx context.Context, id string) (*entity.Principal, error) {
	ctx, cancel := boundedContext(ctx, repo.timeout)
	defer cancel()

	var applicantM model.ApplicantModel
	if err := repo.db.WithContext(ctx).Where("id = ?", id).Take(&applicantM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrPrincipalNotFound
		}

		return nil, classify(ctx, err, "find applicant")
	}

	return &entity.Principal{
		ID:          applicantM.ID,
		Type:        entity.PrincipalTypeApplicant,
		DisplayName: applicantM.DisplayName,
		Archived:    applicantM.Archived,
		TokenEpoch:  applicantM.TokenEpoch,
		SecretHash:  applicantM.SecretHash,
	}, nil
}

// referrerRepository reads the referrers projection. The token epoch is the
// portal token version column.
type referrerRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewReferrerRepository is the constructor for referrerRepository.
func NewReferrerRepository(db *gorm.DB, cfg *config.Config) repository.PrincipalRepository {
	return &referrerRepository{db: db, timeout: cfg.Session.StoreTimeout}
}

func (repo *referrerRepository) Type() entity.PrincipalType {
	return entity.PrincipalTypeReferrer
}

func (repo *referrerRepository) FindByID(ctx context.Context, id string) (*entity.Principal, error) {
	ctx, cancel := boundedContext(ctx, repo.timeout)
	defer cancel()

	var referrerM model.ReferrerModel
	if err := repo.db.WithContext(ctx).Where("id = ?", id).Take(&referrerM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrPrincipalNotFound
		}

		return nil, classify(ctx, err, "find referrer")
	}

	return &entity.Principal{
		ID:          referrerM.ID,
		Type:        entity.PrincipalTypeReferrer,
		DisplayName: referrerM.DisplayName,
		Archived:    referrerM.Archived,
		TokenEpoch:  referrerM.PortalTokenVersion,
	}, nil
}

func boundedContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, timeout)
}
