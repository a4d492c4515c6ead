package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"time"
)

const (
	version byte = 1

	flagCompressed byte = 1 << 0

	hdrLen = 4 + 1 + 1 + 8 + 8 + 4
)

var (
	ErrCorrupt  = errors.New("cachekit: corrupt entry")
	ErrTooLarge = errors.New("cachekit: entry payload exceeds 4 GiB")
	magic4      = [...]byte{'C', 'K', 'I', 'T'}

	// vlen is a u32
	maxPayload uint64 = math.MaxUint32
)

// Entry is the unit handed to a provider. ExpiresAt zero means no expiry.
type Entry struct {
	Compressed bool
	StoredAt   time.Time
	ExpiresAt  time.Time
	Payload    []byte
}

// Expired reports whether the entry is inert at now.
func (e Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Encode frames e as:
//
//	magic(4) | ver(1) | flags(1) | storedAt(i64 be, unix nano) | expiresAt(i64 be, 0=never) | vlen(u32 be) | payload(vlen)
func Encode(e Entry) ([]byte, error) {
	if uint64(len(e.Payload)) > maxPayload {
		return nil, ErrTooLarge
	}
	var buf bytes.Buffer
	buf.Grow(hdrLen + len(e.Payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)

	var flags byte
	if e.Compressed {
		flags |= flagCompressed
	}
	buf.WriteByte(flags)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], uint64(unixNano(e.StoredAt)))
	buf.Write(u8[:])
	binary.BigEndian.PutUint64(u8[:], uint64(unixNano(e.ExpiresAt)))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(e.Payload)))
	buf.Write(u4[:])

	buf.Write(e.Payload)
	return buf.Bytes(), nil
}

// Decode parses a frame produced by Encode. The returned payload aliases b.
// Trailing bytes, unknown flags and short buffers are rejected.
func Decode(b []byte) (Entry, error) {
	if len(b) < hdrLen || !hasMagic(b) || b[4] != version {
		return Entry{}, ErrCorrupt
	}
	flags := b[5]
	if flags&^flagCompressed != 0 {
		return Entry{}, ErrCorrupt
	}

	off := 6
	stored := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	expires := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off {
		return Entry{}, ErrCorrupt
	}

	return Entry{
		Compressed: flags&flagCompressed != 0,
		StoredAt:   fromUnixNano(stored),
		ExpiresAt:  fromUnixNano(expires),
		Payload:    b[off : off+vlen],
	}, nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
