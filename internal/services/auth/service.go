package auth

import (
	"crypto/subtle"
	"errors"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tento/internal/common"
	"github.com/ternarybob/tento/internal/interfaces"
)

// ErrUnauthorized is returned for a missing or unrecognized token. The
// HTTP layer maps it to 401.
var ErrUnauthorized = errors.New("invalid or missing token")

// Service validates bearer tokens against the configured list. Token
// comparison is constant-time so timing does not leak prefix matches.
type Service struct {
	enabled bool
	tokens  []string
	logger  arbor.ILogger
}

func NewService(config *common.AuthConfig, logger arbor.ILogger) interfaces.AuthService {
	if config.Enabled && len(config.Tokens) == 0 {
		logger.Warn().Msg("Auth enabled with no configured tokens; all requests will be rejected")
	}
	return &Service{
		enabled: config.Enabled,
		tokens:  config.Tokens,
		logger:  logger,
	}
}

func (s *Service) Enabled() bool {
	return s.enabled
}

// Authorize admits every caller when disabled; otherwise the token
// must match one of the configured values.
func (s *Service) Authorize(token string) error {
	if !s.enabled {
		return nil
	}
	if token == "" {
		return ErrUnauthorized
	}

	matched := false
	for _, candidate := range s.tokens {
		if subtle.ConstantTimeCompare([]byte(token), []byte(candidate)) == 1 {
			matched = true
		}
	}
	if !matched {
		return ErrUnauthorized
	}
	return nil
}
