package tracking

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// CodeLength is the number of characters in a tracking code.
	CodeLength = 12
	// MaxAttempts bounds the checked candidates before the unchecked fallback.
	MaxAttempts = 10
)

// Checker reports whether a tracking code is already taken.
type Checker interface {
	ExistsByTrackingCode(ctx context.Context, code string) (bool, error)
}

// Generator produces public tracking codes for new complaints.
type Generator struct {
	checker Checker
	logger  *zap.Logger
	source  func() string
}

// NewGenerator builds a generator that checks candidates against checker.
func NewGenerator(checker Checker, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{checker: checker, logger: logger, source: randomCode}
}

// Generate returns the first candidate not present in the store. After
// MaxAttempts collisions it returns one more candidate without checking it.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		code := g.source()
		exists, err := g.checker.ExistsByTrackingCode(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
		g.logger.Debug("tracking code collision", zap.Int("attempt", attempt))
	}

	code := g.source()
	g.logger.Warn("tracking code attempts exhausted, using unchecked candidate",
		zap.Int("attempts", MaxAttempts),
		zap.String("tracking_code", code),
	)
	return code, nil
}

// randomCode takes the first CodeLength hex digits of a random uuid.
func randomCode() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(hex[:CodeLength])
}
