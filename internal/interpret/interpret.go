// Package interpret turns glove/gesture payloads into natural-language
// interpretations. Two strategies exist: a canned simulation catalog and an
// external chat-completions model.
package interpret

import (
	"context"
	"fmt"

	"glove-backend/internal/models"
	"glove-backend/pkg/config"
)

// Strategy names, used for logging and metrics labels.
const (
	StrategySimulation = "simulation"
	StrategyExternal   = "external"
)

// Interpreter is one interpretation strategy.
type Interpreter interface {
	Interpret(ctx context.Context, req *models.InterpretationRequest) (*models.InterpretationResult, error)
}

// InterpretationFailure is returned when a strategy cannot produce a result.
type InterpretationFailure struct {
	Cause error
}

func (e *InterpretationFailure) Error() string {
	return fmt.Sprintf("Failed to interpret gesture: %v", e.Cause)
}

func (e *InterpretationFailure) Unwrap() error { return e.Cause }

// Service selects a strategy per request.
type Service struct {
	simulation Interpreter
	external   Interpreter
}

// NewService wires both strategies. external may be nil when the server runs
// in simulation-only mode; such requests then fail with a configuration cause.
func NewService(simulation, external Interpreter) *Service {
	return &Service{simulation: simulation, external: external}
}

// StrategyFor names the strategy a request will use.
func StrategyFor(req *models.InterpretationRequest) string {
	if req.UseSimulation {
		return StrategySimulation
	}
	return StrategyExternal
}

func (s *Service) Interpret(ctx context.Context, req *models.InterpretationRequest) (*models.InterpretationResult, error) {
	if req.UseSimulation {
		return s.simulation.Interpret(ctx, req)
	}
	if s.external == nil {
		return nil, &InterpretationFailure{Cause: &config.ConfigurationError{Key: "OPENAI_API_KEY"}}
	}
	return s.external.Interpret(ctx, req)
}
