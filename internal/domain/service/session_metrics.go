package service

// Refresh outcomes reported to SessionMetrics.
const (
	RefreshOutcomeRotated   = "rotated"
	RefreshOutcomeUpgraded  = "upgraded"
	RefreshOutcomeStateless = "stateless"
	RefreshOutcomeRejected  = "rejected"
	RefreshOutcomeArchived  = "archived"
	RefreshOutcomeError     = "error"
)

// SessionMetrics receives counters from the session lifecycle.
type SessionMetrics interface {
	SessionIssued(principalType, mode string)
	RefreshOutcome(principalType, outcome string)
	StoreFallback(principalType, operation string)
	RateLimited(policy string)
}
