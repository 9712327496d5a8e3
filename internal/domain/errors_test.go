package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuplicateErrorMessages(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "duplicate of abc", (&DuplicateError{ExistingID: "abc"}).Error())
	assert.Equal(t, "duplicate article", (&DuplicateError{}).Error())

	err := fmt.Errorf("insert: %w", &DuplicateError{LookupErr: errors.New("timeout")})
	dup, ok := AsDuplicate(err)
	require.True(t, ok)
	assert.EqualError(t, dup.LookupErr, "timeout")
	assert.Contains(t, err.Error(), "lookup failed: timeout")
}
