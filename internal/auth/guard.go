package auth

import (
	"errors"

	"go.uber.org/zap"

	"tokenswap/internal/model"
)

var (
	ErrUnauthorized  = errors.New("unauthorized: capability does not match the required identity")
	ErrMissingSigner = errors.New("missing signer capability")
)

// Guard checks presented capabilities against the identity an action requires.
type Guard struct {
	logger *zap.Logger
}

func NewGuard(logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{logger: logger}
}

// RequireRole fails with ErrUnauthorized unless presented was issued for expected.
func (g *Guard) RequireRole(expected model.AccountID, presented Capability) error {
	if err := g.RequireSigner(presented); err != nil {
		return err
	}
	if presented.Identity() != expected {
		g.logger.Warn("capability rejected",
			zap.Stringer("expected", expected),
			zap.Stringer("presented", presented),
		)
		return ErrUnauthorized
	}
	return nil
}

// RequireSigner only checks that a capability was presented.
func (g *Guard) RequireSigner(presented Capability) error {
	if presented.IsEmpty() {
		g.logger.Warn("missing signer capability")
		return ErrMissingSigner
	}
	return nil
}
