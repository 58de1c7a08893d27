package core_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mealmind/memtier/pkg/core"
)

func TestMemoryErrorFormat(t *testing.T) {
	err := &core.MemoryError{
		Op:  "ContextForTurn",
		Err: core.ErrEmbeddingFailed,
	}
	assert.Equal(t, "memtier: ContextForTurn: embedding generation failed", err.Error())
}

func TestMemoryErrorUnwrap(t *testing.T) {
	err := core.NewMemoryError("SaveProfile", core.ErrInvalidInput)

	assert.ErrorIs(t, err, core.ErrInvalidInput)

	var memErr *core.MemoryError
	assert.ErrorAs(t, err, &memErr)
	assert.Equal(t, "SaveProfile", memErr.Op)
}

func TestNewMemoryErrorNil(t *testing.T) {
	assert.NoError(t, core.NewMemoryError("SaveProfile", nil))
}

func TestMemoryErrorWrapsChain(t *testing.T) {
	inner := fmt.Errorf("open db: %w", core.ErrConnectionFailed)
	err := core.NewMemoryError("NewClient", inner)

	assert.True(t, errors.Is(err, core.ErrConnectionFailed))
}
