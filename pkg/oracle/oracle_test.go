package oracle_test

import (
	"testing"

	"github.com/dukex/docflow/pkg/oracle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	got, err := oracle.ExtractJSON("결과입니다:\n```json\n{\"a\": {\"b\": 1}}\n```")
	require.NoError(t, err)
	assert.Equal(t, `{"a": {"b": 1}}`, got)

	_, err = oracle.ExtractJSON("no braces here")
	assert.ErrorIs(t, err, oracle.ErrNoJSON)

	_, err = oracle.ExtractJSON("} reversed {")
	assert.ErrorIs(t, err, oracle.ErrNoJSON)
}
