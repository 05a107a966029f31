package singer

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_SkipsBlankLines(t *testing.T) {
	r := NewReader(strings.NewReader("{\"a\":1}\n\n   \n{\"b\":2}\n"))

	line, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(line))
	assert.Equal(t, 1, r.Line())

	line, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"b":2}`, string(line))
	assert.Equal(t, 4, r.Line())

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestReader_EmptyInput(t *testing.T) {
	r := NewReader(strings.NewReader(""))
	_, err := r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestReader_CopiesScannerBuffer(t *testing.T) {
	r := NewReader(strings.NewReader("{\"first\":1}\n{\"second\":2}\n"))

	first, err := r.Next()
	require.NoError(t, err)
	second, err := r.Next()
	require.NoError(t, err)

	assert.Equal(t, `{"first":1}`, string(first))
	assert.Equal(t, `{"second":2}`, string(second))
}

func TestReader_TrailingLineWithoutNewline(t *testing.T) {
	r := NewReader(strings.NewReader(`{"a":1}`))

	line, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(line))

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}
