// Package codec implements the archive's two wire-level encodings: the
// variable-width packed integer and the LZSS variant used to compress
// archive chunks.
package codec

import (
	"fmt"
	"log"
)

// negBias and addBase are the four base offsets and matching negative
// biases the packed-int format selects by encoded byte width.
var (
	negBias = [4]int32{0, -1, -1025, -263169}
	addBase = [4]int32{0, 0x80, 0x480, 0x40480}
)

// ByteReader is the minimal interface the decoder needs; *bufio.Reader
// and *bytes.Reader both satisfy it.
type ByteReader interface {
	ReadByte() (byte, error)
}

// DecodePackedInt decodes one variable-length signed integer from r.
//
// The first byte's top bit selects extended encoding. When clear, the
// remaining seven bits are the value. When set, bit 5 selects between a
// short form (bits 0-4 are the byte count) and an extended form (bits
// 2-3 plus one give a byte count of 1-4, with any count above 4 read as
// a skip tail). Bit 4 of the first byte, in the extended form, selects a
// negative-biased value instead of the positive base offset.
func DecodePackedInt(r ByteReader) (int32, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("codec: packed int: %w", err)
	}

	if b&0x80 == 0 {
		return int32(b), nil
	}

	var num, skip byte
	if b&0x20 == 0 {
		num = b & 0x1f
	} else {
		num = 1 + ((b >> 2) & 3)
	}

	if num > 4 {
		skip = num - 4
		num = 4
	}

	var val int32
	for i := byte(0); i < num; i++ {
		nb, err := r.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("codec: packed int: underflow reading byte %d of %d: %w", i, num, err)
		}
		val |= int32(nb) << (i * 8)
	}

	if skip > 0 {
		for i := byte(0); i < skip; i++ {
			if _, err := r.ReadByte(); err != nil {
				return 0, fmt.Errorf("codec: packed int: underflow skipping tail: %w", err)
			}
		}
		log.Printf("codec: readPackedInt skipped %d", skip)
	}

	if b&0x20 != 0 {
		val += int32(b&3) * (1 << ((uint(num) << 3) & 0x1f))
		if b&0x10 != 0 {
			val = negBias[num] - val
		} else {
			val += addBase[num]
		}
	}

	return val, nil
}
