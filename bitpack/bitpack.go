// Package bitpack reads and writes integer fields of arbitrary bit width
// at arbitrary bit offsets inside a byte buffer.
//
// Data is encoded little-endian, LSB-first: a field at bit offset o
// occupies bits [o, o+width) of the buffer, counting from bit 0 of byte 0.
// Fields may cross byte boundaries; a 64-bit field misaligned by up to 7
// bits spans 9 bytes.
//
// All functions are bounds-safe. A fast path loads a full 8-byte word when
// the buffer allows it; near the end of the buffer a slow path assembles
// the word from the remaining bytes. Archive resources still carry an
// 8-byte trailing pad on storage so that views over the raw bytes hit the
// fast path for every element.
package bitpack

import "encoding/binary"

// PaddingBytes is the trailing pad appended to every serialized resource.
// It guarantees that an unaligned 64-bit read of the last record stays
// inside the allocation.
const PaddingBytes = 8

// MaxWidth is the widest supported field.
const MaxWidth = 64

// mask returns a bit mask covering the low width bits.
func mask(width uint) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}

func checkWidth(width uint) {
	if width == 0 || width > MaxWidth {
		panic("bitpack: field width must be in [1, 64]")
	}
}

// load64 reads an 8-byte little-endian word starting at byteOff.
// Bytes beyond the end of the buffer read as zero.
func load64(buf []byte, byteOff uint) uint64 {
	if byteOff+8 <= uint(len(buf)) {
		return binary.LittleEndian.Uint64(buf[byteOff:])
	}
	var w uint64
	for i := uint(0); byteOff+i < uint(len(buf)); i++ {
		w |= uint64(buf[byteOff+i]) << (8 * i)
	}
	return w
}

// store64 writes an 8-byte little-endian word starting at byteOff,
// truncated to the bytes that exist.
func store64(buf []byte, byteOff uint, w uint64) {
	if byteOff+8 <= uint(len(buf)) {
		binary.LittleEndian.PutUint64(buf[byteOff:], w)
		return
	}
	for i := uint(0); byteOff+i < uint(len(buf)); i++ {
		buf[byteOff+i] = byte(w >> (8 * i))
	}
}

// Uint reads an unsigned field of the given width at bitOffset.
func Uint(buf []byte, bitOffset, width uint) uint64 {
	checkWidth(width)

	byteOff := bitOffset >> 3
	shift := bitOffset & 7

	if width == 1 {
		return uint64(buf[byteOff]>>shift) & 1
	}

	v := load64(buf, byteOff) >> shift
	if shift+width > 64 {
		// The field spills into a ninth byte.
		v |= uint64(buf[byteOff+8]) << (64 - shift)
	}
	return v & mask(width)
}

// Int reads a signed field of the given width at bitOffset,
// sign-extending from the field's most significant bit.
func Int(buf []byte, bitOffset, width uint) int64 {
	v := Uint(buf, bitOffset, width)
	if width < 64 && v&(uint64(1)<<(width-1)) != 0 {
		v |= ^mask(width)
	}
	return int64(v)
}

// PutUint writes the low width bits of v at bitOffset. Bits outside
// [bitOffset, bitOffset+width) are preserved.
func PutUint(buf []byte, bitOffset, width uint, v uint64) {
	checkWidth(width)

	byteOff := bitOffset >> 3
	shift := bitOffset & 7
	m := mask(width)
	v &= m

	if width == 1 {
		if v != 0 {
			buf[byteOff] |= 1 << shift
		} else {
			buf[byteOff] &^= 1 << shift
		}
		return
	}

	w := load64(buf, byteOff)
	w = w&^(m<<shift) | v<<shift
	store64(buf, byteOff, w)

	if shift+width > 64 {
		rem := shift + width - 64 // bits landing in the ninth byte
		b := buf[byteOff+8]
		b = b&^byte(mask(rem)) | byte(v>>(64-shift))
		buf[byteOff+8] = b
	}
}

// PutInt writes the low width bits of v's two's complement
// representation at bitOffset.
func PutInt(buf []byte, bitOffset, width uint, v int64) {
	PutUint(buf, bitOffset, width, uint64(v))
}
