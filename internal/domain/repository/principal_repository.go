package repository

import (
	"context"

	"referral/internal/domain/entity"

	"github.com/pkg/errors"
)

// ErrPrincipalNotFound is returned when no applicant or referrer has the requested id.
var ErrPrincipalNotFound = errors.New("principal not found")

// PrincipalRepository reads applicant or referrer records. This core never writes them.
type PrincipalRepository interface {
	// Type reports which principal kind this repository serves.
	Type() entity.PrincipalType

	// FindByID returns the principal or ErrPrincipalNotFound.
	FindByID(ctx context.Context, id string) (*entity.Principal, error)
}
