package extractor

import (
	"fmt"
	"log/slog"

	"NewsIngestor/internal/domain"
)

// Registry keeps a mapping from stage names to their implementations.
type Registry struct {
	stages map[domain.ExtractorKind]Strategy
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{stages: map[domain.ExtractorKind]Strategy{}}
}

// NewDefaultRegistry registers the three built-in stages.
func NewDefaultRegistry(minParagraphLength int) *Registry {
	r := NewRegistry()
	r.Register(NewStructuredExtractor())
	r.Register(NewReadabilityExtractor())
	r.Register(NewHeuristicExtractor(minParagraphLength))
	return r
}

// DefaultOrder is the priority order of the built-in stages.
func DefaultOrder() []string {
	return []string{
		string(domain.ExtractorStructured),
		string(domain.ExtractorReadability),
		string(domain.ExtractorHeuristic),
	}
}

// Register adds or replaces a stage implementation.
func (r *Registry) Register(stage Strategy) {
	if r.stages == nil {
		r.stages = map[domain.ExtractorKind]Strategy{}
	}
	r.stages[stage.Kind()] = stage
}

// Resolve returns a stage by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Strategy, error) {
	if stage, ok := r.stages[domain.ExtractorKind(name)]; ok {
		return stage, nil
	}
	return nil, fmt.Errorf("extractor stage %q is not registered", name)
}

// Chain builds a chain running the named stages in the given order.
func (r *Registry) Chain(names []string, minContentLength int, logger *slog.Logger) (*Chain, error) {
	if len(names) == 0 {
		names = DefaultOrder()
	}
	seen := make(map[string]bool, len(names))
	stages := make([]Strategy, 0, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("extractor stage %q listed twice", name)
		}
		seen[name] = true

		stage, err := r.Resolve(name)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}
	return NewChain(minContentLength, logger, stages...), nil
}
