package schema

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewMultiSource(t *testing.T) {
	t.Run("requires at least one source", func(t *testing.T) {
		_, err := NewMultiSource()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one source")
	})

	t.Run("rejects nil sources", func(t *testing.T) {
		_, err := NewMultiSource(&stubSource{}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "source 1 is nil")
	})
}

func TestMultiSource_EarlierSourceWins(t *testing.T) {
	override := testProgram("wage-subsidy")
	override.FiscalYear = "2025-2026"
	catalog := testProgram("wage-subsidy")
	catalog.FiscalYear = "2023-2024"

	src, err := NewMultiSource(
		&stubSource{schemas: []*ProgramSchema{override}},
		&stubSource{schemas: []*ProgramSchema{catalog, testProgram("disability-benefit")}},
	)
	require.NoError(t, err)

	schemas, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, schemas, 2)
	assert.Equal(t, "wage-subsidy", schemas[0].ID)
	assert.Equal(t, "2025-2026", schemas[0].FiscalYear)
	assert.Equal(t, "disability-benefit", schemas[1].ID)
}

func TestMultiSource_SameSourceDuplicatesSurface(t *testing.T) {
	src, err := NewMultiSource(
		&stubSource{schemas: []*ProgramSchema{testProgram("dup"), testProgram("dup")}},
	)
	require.NoError(t, err)

	// MultiSource passes both through; the registry rejects the load.
	schemas, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, schemas, 2)

	reg, err := NewRegistry(src, zap.NewNop())
	require.NoError(t, err)
	err = reg.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate program id")
}

func TestMultiSource_SourceErrorFailsLoad(t *testing.T) {
	src, err := NewMultiSource(
		&stubSource{schemas: []*ProgramSchema{testProgram("ok")}},
		&stubSource{err: errors.New("catalog unreachable")},
	)
	require.NoError(t, err)

	_, err = src.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog unreachable")
}
