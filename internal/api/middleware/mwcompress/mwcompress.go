//nolint:revive // exported
package mwcompress

import (
	"connectrpc.com/connect"

	"github.com/israelwong/zen-sub001/pkg/zstdcompress"
)

func NewCompress() connect.Compressor {
	return zstdcompress.NewZstdCompressor()
}

func NewDecompress() connect.Decompressor {
	return zstdcompress.NewZstdDecompressor()
}

// WithCompression offers zstd next to Connect's built-in gzip.
func WithCompression() connect.HandlerOption {
	return connect.WithCompression(zstdcompress.Name, NewDecompress, NewCompress)
}
