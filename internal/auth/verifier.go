package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var (
	// ErrNoToken is returned when the request carries no bearer token.
	ErrNoToken = errors.New("auth: token missing")
	// ErrInvalidToken wraps every verification failure.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// VerifierConfig selects how identity tokens are verified. Exactly one of
// Secret (HS256) or JWKSURL (RS256 keys published by the identity provider)
// must be set.
type VerifierConfig struct {
	Secret    string
	JWKSURL   string
	Issuer    string
	Audience  string
	ClockSkew time.Duration
}

// Verifier resolves a Caller from a signed identity token.
type Verifier struct {
	validator TokenValidator
	secret    []byte
	keySet    jwk.Set
	now       func() time.Time
}

// NewVerifier constructs a verifier. When a JWKS URL is configured the key set
// is fetched once up front and refreshed in the background by the jwk cache
// for as long as ctx lives.
func NewVerifier(ctx context.Context, cfg VerifierConfig) (*Verifier, error) {
	secret := strings.TrimSpace(cfg.Secret)
	jwksURL := strings.TrimSpace(cfg.JWKSURL)
	if secret == "" && jwksURL == "" {
		return nil, errors.New("auth: either a token secret or a JWKS URL is required")
	}
	if secret != "" && jwksURL != "" {
		return nil, errors.New("auth: token secret and JWKS URL are mutually exclusive")
	}

	v := &Verifier{
		validator: TokenValidator{
			Issuer:    cfg.Issuer,
			Audience:  cfg.Audience,
			ClockSkew: cfg.ClockSkew,
		},
		now: time.Now,
	}
	if secret != "" {
		v.secret = []byte(secret)
		v.validator.Algorithm = jwa.HS256
		return v, nil
	}

	cache := jwk.NewCache(ctx)
	if err := cache.Register(jwksURL, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
		return nil, fmt.Errorf("auth: register jwks: %w", err)
	}
	if _, err := cache.Refresh(ctx, jwksURL); err != nil {
		return nil, fmt.Errorf("auth: fetch jwks: %w", err)
	}
	v.keySet = jwk.NewCachedSet(cache, jwksURL)
	v.validator.Algorithm = jwa.RS256
	return v, nil
}

// WithNow overrides the clock used for expiry checks.
func (v *Verifier) WithNow(now func() time.Time) {
	if now != nil {
		v.now = now
	}
}

// Ready reports whether signing keys are available. Secret-based verifiers
// are always ready.
func (v *Verifier) Ready(context.Context) error {
	if v.keySet == nil {
		return nil
	}
	if v.keySet.Len() == 0 {
		return errors.New("auth: jwks has no signing keys")
	}
	return nil
}

// Verify checks the token signature and claims and returns the caller named by
// its subject.
func (v *Verifier) Verify(_ context.Context, token string) (Caller, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Caller{}, ErrNoToken
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return Caller{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if v.validator.Algorithm != "" && algorithm != v.validator.Algorithm {
		return Caller{}, fmt.Errorf("%w: unexpected token algorithm %s", ErrInvalidToken, algorithm)
	}

	var keyOpt jwt.ParseOption
	if v.keySet != nil {
		keyOpt = jwt.WithKeySet(v.keySet, jws.WithInferAlgorithmFromKey(true))
	} else {
		keyOpt = jwt.WithKey(algorithm, v.secret)
	}
	parsed, err := jwt.ParseString(trimmed, keyOpt, jwt.WithValidate(false))
	if err != nil {
		return Caller{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if err := v.validator.Validate(parsed, algorithm, v.now()); err != nil {
		return Caller{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	caller := Caller{ID: strings.TrimSpace(parsed.Subject())}
	if !caller.Authenticated() {
		return Caller{}, fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	return caller, nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("token missing protected headers")
		}
		alg := headers.Algorithm()
		switch {
		case alg == "":
			return "", errors.New("token missing algorithm")
		case alg == jwa.NoSignature:
			return "", errors.New("token uses none algorithm")
		case algorithm == "":
			algorithm = alg
		case algorithm != alg:
			return "", errors.New("mixed token algorithms detected")
		}
	}
	return algorithm, nil
}
