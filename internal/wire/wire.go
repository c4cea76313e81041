// Package wire frames shared-cache entries so a reader can check what it got
// before trusting it: which key the entry belongs to and which generation of
// that key it was written under.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	// MaxKeyLen is the longest key an entry frame can carry.
	MaxKeyLen = 0xFFFF

	version byte = 1
	hdrLen       = 4 + 1 + 8 + 2 // magic | ver | gen | keyLen
)

var (
	ErrCorrupt = errors.New("playstate: corrupt cache entry")
	magic4     = [...]byte{'P', 'S', 'T', 'E'}
)

// Entry layout:
//
//	magic(4) | ver(1) | gen(u64 be) | keyLen(u16 be) | key(keyLen) | vlen(u32 be) | payload(vlen)
//
// Keys longer than MaxKeyLen are truncated in the frame; the caller compares
// the decoded key against the full key, so such entries never validate.
// Callers should not cache them at all.
func EncodeEntry(gen uint64, key string, payload []byte) []byte {
	if len(key) > MaxKeyLen {
		key = key[:MaxKeyLen]
	}
	var buf bytes.Buffer
	buf.Grow(hdrLen + len(key) + 4 + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)

	var u8 [8]byte
	var u4 [4]byte
	var u2 [2]byte

	binary.BigEndian.PutUint64(u8[:], gen)
	buf.Write(u8[:])

	binary.BigEndian.PutUint16(u2[:], uint16(len(key)))
	buf.Write(u2[:])
	buf.WriteString(key)

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// DecodeEntry validates the frame and returns its parts. The payload aliases b.
// Trailing bytes are rejected.
func DecodeEntry(b []byte) (gen uint64, key string, payload []byte, err error) {
	if len(b) < hdrLen || !bytes.Equal(b[:4], magic4[:]) || b[4] != version {
		return 0, "", nil, ErrCorrupt
	}
	off := 5

	gen = binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	klen := int(binary.BigEndian.Uint16(b[off : off+2]))
	off += 2
	if klen == 0 || klen > len(b)-off {
		return 0, "", nil, ErrCorrupt
	}
	key = string(b[off : off+klen])
	off += klen

	if off+4 > len(b) {
		return 0, "", nil, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen != len(b)-off {
		return 0, "", nil, ErrCorrupt
	}
	return gen, key, b[off:], nil
}
