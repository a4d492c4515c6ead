// Package compress wraps zstd with process-wide encoder/decoder instances.
// EncodeAll/DecodeAll on a shared zstd.Encoder/Decoder are safe for
// concurrent use, so one pair serves every cache instance.
package compress

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// MaxDecodedSize bounds decompression output to protect against bombs.
const MaxDecodedSize = 256 << 20

var ErrDecompress = errors.New("cachekit: decompress failed")

var (
	once    sync.Once
	enc     *zstd.Encoder
	dec     *zstd.Decoder
	initErr error
)

func setup() {
	once.Do(func() {
		enc, initErr = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			zstd.WithEncoderConcurrency(1),
		)
		if initErr != nil {
			return
		}
		dec, initErr = zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(0),
			zstd.WithDecoderMaxMemory(MaxDecodedSize),
		)
	})
}

// Compress returns a zstd frame for b.
func Compress(b []byte) ([]byte, error) {
	setup()
	if initErr != nil {
		return nil, fmt.Errorf("zstd init: %w", initErr)
	}
	return enc.EncodeAll(b, make([]byte, 0, len(b)/2+16)), nil
}

// Decompress reverses Compress.
func Decompress(b []byte) ([]byte, error) {
	setup()
	if initErr != nil {
		return nil, fmt.Errorf("zstd init: %w", initErr)
	}
	out, err := dec.DecodeAll(b, nil)
	if err != nil {
		return nil, errors.Join(ErrDecompress, err)
	}
	return out, nil
}
