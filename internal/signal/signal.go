// Package signal packs and unpacks typed application signals into and out
// of I-PDU byte buffers.
package signal

import (
	"encoding/binary"
	"fmt"

	"github.com/ecucore/gocom/internal/bitcodec"
)

// Kind identifies the scalar type (or bulk-byte nature) of a signal.
type Kind uint8

const (
	S8 Kind = iota
	U8
	S16
	U16
	S32
	U32
	UInt8N
	GroupSignal
)

func (k Kind) String() string {
	switch k {
	case S8:
		return "S8"
	case U8:
		return "U8"
	case S16:
		return "S16"
	case U16:
		return "U16"
	case S32:
		return "S32"
	case U32:
		return "U32"
	case UInt8N:
		return "UINT8N"
	case GroupSignal:
		return "GROUP_SIGNAL"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Endianness selects which bit codec a scalar signal uses. Opaque bypasses
// the codec entirely and byte-copies the field verbatim.
type Endianness uint8

const (
	Big Endianness = iota
	Little
	Opaque
)

// NoUpdateBit means "this signal has no update bit".
const NoUpdateBit = -1

// Config is the immutable, build-time description of one signal. Buffer is
// a shared view into the owning I-PDU's bytes; a Config never owns it.
type Config struct {
	Name          string
	HandleID      int
	Kind          Kind
	Endianness    Endianness
	BitPosition   int
	BitSize       int
	Buffer        []byte
	Init          []byte
	UpdateBit     int
	IsGroupSignal bool
}

// Pack writes src into the signal's field inside its owning PDU buffer.
// src must be a pointer to the matching native type for scalar kinds, or a
// []byte of at least BitSize/8 bytes for UINT8N and OPAQUE signals.
func (s *Config) Pack(src any) bool {
	if s.Kind == UInt8N || s.Endianness == Opaque {
		data, ok := src.([]byte)
		n := s.BitSize / 8
		if !ok || len(data) < n {
			return false
		}
		off := s.BitPosition / 8
		copy(s.Buffer[off:off+n], data[:n])
	} else {
		v, ok := loadScalar(s.Kind, src)
		if !ok {
			return false
		}
		switch s.Endianness {
		case Big:
			bitcodec.SetBigEndian(s.Buffer, s.BitPosition, s.BitSize, v)
		case Little:
			bitcodec.SetLittleEndian(s.Buffer, s.BitPosition, s.BitSize, v)
		default:
			return false
		}
	}

	if s.UpdateBit != NoUpdateBit {
		bitcodec.BitSet(s.Buffer, s.UpdateBit)
	}
	return true
}

// Unpack reads the signal's field into dst, which follows the same shape
// rules as Pack's src. If an update bit is configured and clear, it
// returns false without reading.
func (s *Config) Unpack(dst any) bool {
	if s.UpdateBit != NoUpdateBit {
		if !bitcodec.BitGet(s.Buffer, s.UpdateBit) {
			return false
		}
		bitcodec.BitClear(s.Buffer, s.UpdateBit)
	}

	if s.Kind == UInt8N || s.Endianness == Opaque {
		data, ok := dst.([]byte)
		n := s.BitSize / 8
		if !ok || len(data) < n {
			return false
		}
		off := s.BitPosition / 8
		copy(data[:n], s.Buffer[off:off+n])
		return true
	}

	var v uint32
	switch s.Endianness {
	case Big:
		v = bitcodec.GetBigEndian(s.Buffer, s.BitPosition, s.BitSize)
	case Little:
		v = bitcodec.GetLittleEndian(s.Buffer, s.BitPosition, s.BitSize)
	default:
		return false
	}

	v = signExtend(s.Kind, s.BitSize, v)
	return storeScalar(s.Kind, v, dst)
}

// For signed kinds, if the field's top bit is set, OR in the one's
// complement of the field mask so the unused upper bits read back
// sign-extended.
func signExtend(kind Kind, bitSize int, v uint32) uint32 {
	switch kind {
	case S8, S16, S32:
		mask := bitcodec.Mask(bitSize)
		signMask := ^(mask >> 1)
		v &= mask
		if v&signMask != 0 {
			v |= signMask
		}
		return v
	default:
		return v
	}
}

// PackInit writes the signal's Init bytes into its PDU buffer at
// group-start. Init is the native little-endian encoding of Kind for
// scalar signals, or copied verbatim for UINT8N/OPAQUE.
func (s *Config) PackInit() bool {
	if s.Kind == UInt8N || s.Endianness == Opaque {
		return s.Pack(s.Init)
	}
	switch s.Kind {
	case S8:
		v := int8(s.Init[0])
		return s.Pack(&v)
	case U8:
		v := uint8(s.Init[0])
		return s.Pack(&v)
	case S16:
		v := int16(binary.LittleEndian.Uint16(s.Init))
		return s.Pack(&v)
	case U16:
		v := binary.LittleEndian.Uint16(s.Init)
		return s.Pack(&v)
	case S32:
		v := int32(binary.LittleEndian.Uint32(s.Init))
		return s.Pack(&v)
	case U32:
		v := binary.LittleEndian.Uint32(s.Init)
		return s.Pack(&v)
	default:
		return false
	}
}

// SendGroup bulk-copies this group signal's Init (shadow) region into its
// PDU buffer. Only UINT8N group signals are supported.
func (s *Config) SendGroup() bool {
	if s.Kind != UInt8N {
		return false
	}
	n := s.BitSize / 8
	off := s.BitPosition / 8
	copy(s.Buffer[off:off+n], s.Init[:n])
	return true
}

// ReceiveGroup is the inverse of SendGroup.
func (s *Config) ReceiveGroup() bool {
	if s.Kind != UInt8N {
		return false
	}
	n := s.BitSize / 8
	off := s.BitPosition / 8
	copy(s.Init[:n], s.Buffer[off:off+n])
	return true
}

func loadScalar(kind Kind, src any) (uint32, bool) {
	switch kind {
	case S8:
		p, ok := src.(*int8)
		if !ok {
			return 0, false
		}
		return uint32(uint8(*p)), true
	case U8:
		p, ok := src.(*uint8)
		if !ok {
			return 0, false
		}
		return uint32(*p), true
	case S16:
		p, ok := src.(*int16)
		if !ok {
			return 0, false
		}
		return uint32(uint16(*p)), true
	case U16:
		p, ok := src.(*uint16)
		if !ok {
			return 0, false
		}
		return uint32(*p), true
	case S32:
		p, ok := src.(*int32)
		if !ok {
			return 0, false
		}
		return uint32(*p), true
	case U32:
		p, ok := src.(*uint32)
		if !ok {
			return 0, false
		}
		return *p, true
	default:
		return 0, false
	}
}

func storeScalar(kind Kind, v uint32, dst any) bool {
	switch kind {
	case S8:
		p, ok := dst.(*int8)
		if !ok {
			return false
		}
		*p = int8(v)
	case U8:
		p, ok := dst.(*uint8)
		if !ok {
			return false
		}
		*p = uint8(v)
	case S16:
		p, ok := dst.(*int16)
		if !ok {
			return false
		}
		*p = int16(v)
	case U16:
		p, ok := dst.(*uint16)
		if !ok {
			return false
		}
		*p = uint16(v)
	case S32:
		p, ok := dst.(*int32)
		if !ok {
			return false
		}
		*p = int32(v)
	case U32:
		p, ok := dst.(*uint32)
		if !ok {
			return false
		}
		*p = v
	default:
		return false
	}
	return true
}
