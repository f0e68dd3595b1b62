package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type retryableErr struct{}

func (retryableErr) Error() string { return "upstream busy" }
func (retryableErr) Is(target error) bool { return errors.Is(ErrExternalRetryable, target) }

func TestAsDomainError(t *testing.T) {
	de, ok := AsDomainError(fmt.Errorf("load: %w", NewValidationError("bad %s", "input")))
	require.True(t, ok)
	assert.Equal(t, CodeValidation, de.Code)
	assert.Equal(t, "bad input", de.Message)

	de, ok = AsDomainError(fmt.Errorf("dispatch: %w", retryableErr{}))
	require.True(t, ok)
	assert.Equal(t, CodeExternalRetryable, de.Code)
	assert.Equal(t, "dispatch: upstream busy", de.Message)

	_, ok = AsDomainError(errors.New("boom"))
	assert.False(t, ok)
}
