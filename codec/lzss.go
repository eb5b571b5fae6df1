package codec

import "fmt"

// Decompress inflates an LZSS-compressed chunk body into a buffer of
// exactly decompressedSize bytes.
//
// The stream is a sequence of control bytes, each governing the eight
// tokens that follow it (LSB first): a 1 bit means "literal byte", a 0
// bit means a back-reference token of two bytes {distLow, (distHigh<<4)
// | (len-3)}, where distance counts already-decoded output bytes and
// length is 3..18.
func Decompress(src []byte, decompressedSize int) ([]byte, error) {
	out := make([]byte, decompressedSize)

	pos, outPos := 0, 0
	for pos < len(src) {
		if outPos >= len(out) {
			return out, nil
		}

		ctrl := src[pos]
		pos++

		for bitsLeft := 0; bitsLeft < 8; bitsLeft++ {
			if outPos >= len(out) {
				return out, nil
			}
			if pos >= len(src) {
				return nil, fmt.Errorf("codec: lzss: source truncated mid-token at input offset %d", pos)
			}

			if ctrl&1 != 0 {
				out[outPos] = src[pos]
				outPos++
				pos++
			} else {
				if pos+1 >= len(src) {
					return nil, fmt.Errorf("codec: lzss: source truncated mid-backreference at input offset %d", pos)
				}
				b1, b2 := src[pos], src[pos+1]
				pos += 2

				length := int(b2&0xF) + 3
				distance := int(b1) | (int(b2&0xF0) << 4)

				if distance == 0 || distance > outPos {
					return nil, fmt.Errorf("codec: lzss: back-reference distance %d exceeds decoded output %d", distance, outPos)
				}
				for i := 0; i < length && outPos < len(out); i++ {
					out[outPos] = out[outPos-distance]
					outPos++
				}
			}

			ctrl >>= 1
		}
	}

	return out, nil
}

// Compress produces an LZSS stream decodable by Decompress. It is a
// straightforward greedy encoder; within this module only the
// package's own tests call it. The reference tool
// this format was reverse-engineered from is not reimplemented here.
func Compress(src []byte) []byte {
	const (
		minMatch = 3
		maxMatch = 18
		maxDist  = 0xFFF
	)

	var out []byte
	var tokens []byte
	var ctrl byte
	var ctrlBits int
	flushed := 0

	flush := func() {
		if ctrlBits == 0 {
			return
		}
		out = append(out, ctrl)
		out = append(out, tokens...)
		tokens = tokens[:0]
		ctrl = 0
		ctrlBits = 0
	}

	pos := 0
	for pos < len(src) {
		bestLen, bestDist := 0, 0
		start := pos - maxDist
		if start < 0 {
			start = 0
		}
		for cand := start; cand < pos; cand++ {
			l := 0
			for l < maxMatch && pos+l < len(src) && src[cand+l] == src[pos+l] {
				l++
			}
			if l > bestLen {
				bestLen, bestDist = l, pos-cand
			}
		}

		if bestLen >= minMatch {
			ctrl |= 0 << uint(ctrlBits)
			distLow := byte(bestDist & 0xFF)
			distHigh := byte((bestDist >> 4) & 0xF0)
			tokens = append(tokens, distLow, distHigh|byte(bestLen-3))
			pos += bestLen
		} else {
			ctrl |= 1 << uint(ctrlBits)
			tokens = append(tokens, src[pos])
			pos++
		}

		ctrlBits++
		if ctrlBits == 8 {
			flush()
		}
		flushed++
	}
	flush()

	return out
}
