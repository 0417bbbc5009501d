package display

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "json", map[string]int{"a": 1}))
	assert.JSONEq(t, `{"a":1}`, buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, "yaml", map[string]int{"a": 1}))
	assert.Equal(t, "a: 1\n", buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, "toml", map[string]int{"a": 1}))
	assert.Equal(t, "a = 1\n", buf.String())

	assert.Error(t, Write(&buf, "xml", nil))
}
