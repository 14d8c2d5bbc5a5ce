// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

// PrincipalType identifies which kind of principal a session belongs to.
type PrincipalType string

const (
	// PrincipalTypeApplicant is a candidate authenticated by a shared secret.
	PrincipalTypeApplicant PrincipalType = "applicant"
	// PrincipalTypeReferrer is a referrer authenticated by a one-time portal link token.
	PrincipalTypeReferrer PrincipalType = "referrer"
)

// String returns the string representation of the PrincipalType.
func (p PrincipalType) String() string {
	return string(p)
}

// IsValid checks if the PrincipalType is a valid value.
func (p PrincipalType) IsValid() bool {
	switch p {
	case PrincipalTypeApplicant, PrincipalTypeReferrer:
		return true
	default:
		return false
	}
}

// Principal is the read-only view of an applicant or referrer record owned by
// the external record store.
type Principal struct {
	ID          string        // Stable public id, e.g. "A1" or "R1".
	Type        PrincipalType // Applicant or referrer.
	DisplayName string        // Shown back to the client in the principal summary.
	Archived    bool          // Archived principals can no longer sign in or refresh.
	TokenEpoch  int64         // Portal token version. Bumping it invalidates every issued token.
	SecretHash  string        // Applicant shared secret digest. Empty for referrers.
}

// Summary returns the client-facing projection of the principal.
func (p *Principal) Summary() PrincipalSummary {
	return PrincipalSummary{
		ID:          p.ID,
		Type:        p.Type,
		DisplayName: p.DisplayName,
	}
}

// PrincipalSummary is the subset of principal data returned by exchange.
type PrincipalSummary struct {
	ID          string        `json:"id"`
	Type        PrincipalType `json:"type"`
	DisplayName string        `json:"displayName,omitempty"`
}
