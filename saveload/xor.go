package saveload

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vsengine/vsengine/vmmem"
)

// KeySequences holds the three 0x7C-0x7E loader resources: two lists
// of VM-memory regions saved/restored verbatim (Regions[0],
// Regions[1], matching loadXorSeq's num/{len,pos} pairs), and a key
// byte sequence (Key) the save path XORs each persisted region
// against.
//
// The decompiled writeVMData/readVMData leave the actual scramble
// step as an empty comment ("//xor data in tmp / //..."); the third
// resource (0x7E) is parsed identically to the other two by the one
// visible loadXorSeq routine, so nothing in original_source says what
// supplies the XOR key. Treating resource 2 as a raw key byte string
// instead of a third region list is this port's resolution of that
// gap: it is the only one of the three resources left otherwise
// unused by the save path, and it gives writeVMData/readVMData a key
// to XOR with instead of silently no-op'ing a named feature.
type KeySequences struct {
	Regions [2][]vmmem.ScrambleRange
	Key     []byte
}

// Load decodes one 0x7C/0x7D/0x7E resource body into seq (seq 0 and 1
// as a {len,pos} region list, seq 2 as a raw key byte string).
func (k *KeySequences) Load(seq int, data []byte) error {
	if seq == 2 {
		k.Key = append([]byte(nil), data...)
		return nil
	}
	if seq != 0 && seq != 1 {
		return fmt.Errorf("saveload: LoadXorSeq: bad sequence id %d", seq)
	}
	regions, err := parseRegions(data)
	if err != nil {
		return fmt.Errorf("saveload: LoadXorSeq(%d): %w", seq, err)
	}
	k.Regions[seq] = regions
	return nil
}

// parseRegions decodes loadXorSeq's on-disk format: a uint32 count
// followed by that many {len, pos} uint32 pairs, in that field order.
func parseRegions(data []byte) ([]vmmem.ScrambleRange, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("xor sequence: want at least 4 bytes, got %d", len(data))
	}
	le := binary.LittleEndian
	num := le.Uint32(data)
	need := 4 + int(num)*8
	if len(data) < need {
		return nil, fmt.Errorf("xor sequence: want %d bytes for %d entries, got %d", need, num, len(data))
	}
	out := make([]vmmem.ScrambleRange, num)
	pos := 4
	for i := range out {
		out[i].Len = le.Uint32(data[pos:])
		out[i].Pos = le.Uint32(data[pos+4:])
		pos += 8
	}
	return out, nil
}

// xorBuf XORs key, repeated as needed, into buf in place. A no-op if
// key is empty, matching writeVMData/readVMData when no 0x7E resource
// was ever loaded.
func xorBuf(buf, key []byte) {
	if len(key) == 0 {
		return
	}
	for i := range buf {
		buf[i] ^= key[i%len(key)]
	}
}

// WriteVMData writes every region in seq out of mem and into w, each
// region XORed against key first (writeVMData).
func WriteVMData(w io.Writer, mem *vmmem.Memory, seq []vmmem.ScrambleRange, key []byte) error {
	for _, r := range seq {
		buf := mem.ReadMemBlocks(r.Pos, int(r.Len))
		xorBuf(buf, key)
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("saveload: WriteVMData: %w", err)
		}
	}
	return nil
}

// ReadVMData reads every region in seq from r and writes it into mem,
// each region XORed against key first (readVMData).
func ReadVMData(r io.Reader, mem *vmmem.Memory, seq []vmmem.ScrambleRange, key []byte) error {
	for _, rg := range seq {
		buf := make([]byte, rg.Len)
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("saveload: ReadVMData: %w", err)
		}
		xorBuf(buf, key)
		mem.WriteMemory(rg.Pos, buf)
	}
	return nil
}

// ZeroVMData clears every region in seq (zeroVMData), used on the
// run-read-data load path to blank the second region once its saved
// contents have been consumed for the initial dialogue state.
func ZeroVMData(mem *vmmem.Memory, seq []vmmem.ScrambleRange) {
	for _, r := range seq {
		mem.WriteMemory(r.Pos, make([]byte, r.Len))
	}
}
