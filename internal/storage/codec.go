package storage

import (
	"fmt"
	"path"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// CompressionThreshold is the size above which content is compressed when
// compression is enabled.
const CompressionThreshold = 1024

// codec wraps a shared zstd encoder/decoder pair. EncodeAll and DecodeAll are
// safe for concurrent use.
type codec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newCodec() (*codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("init zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("init zstd decoder: %w", err)
	}
	return &codec{enc: enc, dec: dec}, nil
}

func (c *codec) compress(raw []byte) []byte {
	return c.enc.EncodeAll(raw, make([]byte, 0, len(raw)/2))
}

func (c *codec) decompress(raw []byte) ([]byte, error) {
	return c.dec.DecodeAll(raw, nil)
}

func (c *codec) close() {
	_ = c.enc.Close()
	c.dec.Close()
}

var contentTypes = map[string]string{
	".md":   "text/markdown",
	".json": "application/json",
	".yaml": "text/yaml",
	".yml":  "text/yaml",
	".sql":  "text/plain",
	".ts":   "text/plain",
}

// ContentType maps a filename to the content type used at blob upload.
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return "text/plain"
}
