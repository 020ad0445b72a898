package zstdcompress_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/israelwong/zen-sub001/pkg/zstdcompress"
)

func TestRoundTrip(t *testing.T) {
	src := []byte(strings.Repeat(`{"collection":"plans","newRank":3}`, 64))
	compressed := zstdcompress.Compress(src)
	assert.Less(t, len(compressed), len(src))

	out, err := zstdcompress.Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestStreaming(t *testing.T) {
	src := []byte(strings.Repeat("pipeline_stages ", 100))

	var buf bytes.Buffer
	c := zstdcompress.NewZstdCompressor()
	c.Reset(&buf)
	_, err := c.Write(src)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	d := zstdcompress.NewZstdDecompressor()
	require.NoError(t, d.Reset(&buf))
	out, err := io.ReadAll(d)
	require.NoError(t, err)
	require.NoError(t, d.Close())
	assert.Equal(t, src, out)
}
