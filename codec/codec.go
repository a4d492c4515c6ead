// Package codec turns cache values into bytes and back.
//
// Every codec wraps its failures so callers can tell serialization problems
// apart from storage problems:
//
//	if errors.Is(err, codec.ErrEncode) { ... }
package codec

import "errors"

var (
	ErrEncode = errors.New("codec: encode failed")
	ErrDecode = errors.New("codec: decode failed")
)

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

func encodeErr(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrEncode, err)
}

func decodeErr(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrDecode, err)
}
