package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsIngestor/internal/domain"
)

func TestRegistryBuildsChainInOrder(t *testing.T) {
	t.Parallel()

	r := NewDefaultRegistry(50)

	chain, err := r.Chain(nil, 200, nil)
	require.NoError(t, err)
	assert.Equal(t, []domain.ExtractorKind{domain.ExtractorStructured, domain.ExtractorReadability, domain.ExtractorHeuristic}, chain.Stages())

	chain, err = r.Chain([]string{"heuristic", "structured"}, 200, nil)
	require.NoError(t, err)
	assert.Equal(t, []domain.ExtractorKind{domain.ExtractorHeuristic, domain.ExtractorStructured}, chain.Stages())
}

func TestRegistryRejectsUnknownAndRepeatedStages(t *testing.T) {
	t.Parallel()

	r := NewDefaultRegistry(50)

	_, err := r.Chain([]string{"structured", "boilerpipe"}, 200, nil)
	require.ErrorContains(t, err, "boilerpipe")

	_, err = r.Chain([]string{"heuristic", "heuristic"}, 200, nil)
	require.ErrorContains(t, err, "twice")
}

func TestRegistryReplacesStage(t *testing.T) {
	t.Parallel()

	r := NewDefaultRegistry(50)
	r.Register(&stubStrategy{kind: domain.ExtractorHeuristic})

	stage, err := r.Resolve("heuristic")
	require.NoError(t, err)
	assert.IsType(t, &stubStrategy{}, stage)
}
