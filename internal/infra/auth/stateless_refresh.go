package auth

import (
	"strings"
	"time"

	paseto "aidanwoods.dev/go-paseto"
	"github.com/pkg/errors"

	"referral/config"
	"referral/internal/domain/entity"
	"referral/internal/domain/service"
)

// StatelessPrefix marks refresh tokens that are not backed by a stored session.
const StatelessPrefix = "slr1."

const (
	claimPrincipalID   = "pid"
	claimPrincipalType = "ptyp"
	claimEpoch         = "ver"
	statelessPurpose   = "refresh"
)

// StatelessConfig is the key material and TTL for fallback refresh tokens.
type StatelessConfig struct {
	KeyHex    string
	Issuer    string
	TTL       time.Duration
	ClockSkew time.Duration
	Now       func() time.Time
}

// NewStatelessConfig builds a StatelessConfig from application config.
func NewStatelessConfig(cfg *config.Config) StatelessConfig {
	return StatelessConfig{
		KeyHex:    cfg.SecretKey.Stateless,
		Issuer:    cfg.Session.Issuer,
		TTL:       cfg.Session.StatelessRefreshTTL,
		ClockSkew: cfg.Session.ClockSkew,
		Now:       time.Now,
	}
}

// pasetoStatelessCodec seals refresh claims in PASETO v4.local tokens so they
// are both confidential and tamper evident without any storage.
type pasetoStatelessCodec struct {
	key       paseto.V4SymmetricKey
	issuer    string
	ttl       time.Duration
	clockSkew time.Duration
	now       func() time.Time
}

// NewStatelessRefreshCodec is the constructor for the PASETO backed codec.
func NewStatelessRefreshCodec(cfg StatelessConfig) (service.StatelessRefreshCodec, error) {
	key, err := paseto.V4SymmetricKeyFromHex(strings.TrimSpace(cfg.KeyHex))
	if err != nil {
		return nil, errors.Wrap(err, "stateless refresh key must be 32 bytes of hex")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("stateless refresh ttl must be positive")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &pasetoStatelessCodec{
		key:       key,
		issuer:    cfg.Issuer,
		ttl:       cfg.TTL,
		clockSkew: cfg.ClockSkew,
		now:       now,
	}, nil
}

func (c *pasetoStatelessCodec) Issue(principal *entity.Principal) (string, time.Time, error) {
	issuedAt := c.now()
	expiresAt := issuedAt.Add(c.ttl)

	tok := paseto.NewToken()
	tok.SetIssuer(c.issuer)
	tok.SetIssuedAt(issuedAt)
	tok.SetNotBefore(issuedAt)
	tok.SetExpiration(expiresAt)
	tok.SetString("purpose", statelessPurpose)
	tok.SetString(claimPrincipalID, principal.ID)
	tok.SetString(claimPrincipalType, principal.Type.String())
	if err := tok.Set(claimEpoch, principal.TokenEpoch); err != nil {
		return "", time.Time{}, errors.Wrap(err, "set epoch claim")
	}

	return StatelessPrefix + tok.V4Encrypt(c.key, nil), expiresAt, nil
}

// Validate never touches storage. Any decode, integrity, expiry or type
// failure yields nil.
func (c *pasetoStatelessCodec) Validate(token string, principalType entity.PrincipalType) *service.StatelessClaims {
	if !c.IsStateless(token) {
		return nil
	}

	// Skew is added so that nbf tolerates small clock drift between nodes.
	validAt := c.now().Add(c.clockSkew)

	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ValidAt(validAt))
	if c.issuer != "" {
		parser.AddRule(paseto.IssuedBy(c.issuer))
	}

	parsed, err := parser.ParseV4Local(c.key, strings.TrimPrefix(token, StatelessPrefix), nil)
	if err != nil {
		return nil
	}

	purpose, err := parsed.GetString("purpose")
	if err != nil || purpose != statelessPurpose {
		return nil
	}
	pid, err := parsed.GetString(claimPrincipalID)
	if err != nil || pid == "" {
		return nil
	}
	ptype, err := parsed.GetString(claimPrincipalType)
	if err != nil || entity.PrincipalType(ptype) != principalType {
		return nil
	}
	var epoch int64
	if err := parsed.Get(claimEpoch, &epoch); err != nil {
		return nil
	}
	exp, err := parsed.GetExpiration()
	if err != nil {
		return nil
	}

	return &service.StatelessClaims{
		PrincipalID:   pid,
		PrincipalType: principalType,
		Epoch:         epoch,
		ExpiresAt:     exp,
	}
}

func (c *pasetoStatelessCodec) IsStateless(token string) bool {
	return strings.HasPrefix(token, StatelessPrefix)
}
