package vmmem

import "testing"

func TestReadUnbackedIsZero(t *testing.T) {
	m := New()
	if got := m.ReadU8(0x1234); got != 0 {
		t.Fatalf("ReadU8 on unbacked address = %d, want 0", got)
	}
	if got := m.ReadU32(0x1234); got != 0 {
		t.Fatalf("ReadU32 on unbacked address = %d, want 0", got)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	m := New()
	m.WriteU32(0x1000, 0xdeadbeef)
	if got := m.ReadU32(0x1000); got != 0xdeadbeef {
		t.Fatalf("got %#x, want %#x", got, uint32(0xdeadbeef))
	}
}

// TestWriteReadAcrossPageBoundary exercises the invariant from spec §8.4:
// write(a, bytes); read(a, len(bytes)) == bytes, even when a+len spans two
// 256-byte pages.
func TestWriteReadAcrossPageBoundary(t *testing.T) {
	m := New()
	addr := uint32(0xFE) // two bytes before the 0x100 page boundary
	data := []byte{1, 2, 3, 4, 5, 6}
	m.WriteMemory(addr, data)

	got := m.ReadMemBlocks(addr, len(data))
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("byte %d: got %d, want %d", i, got[i], data[i])
		}
	}

	if got32 := m.ReadU32(addr + 1); got32 != 0x05040302 {
		t.Fatalf("cross-boundary ReadU32 = %#x, want %#x", got32, uint32(0x05040302))
	}
}

func TestXorRegionRoundTrip(t *testing.T) {
	m := New()
	m.WriteMemory(0x200, []byte("the quick brown fox"))
	key := []byte{0xAA, 0x55, 0x3C}
	rng := ScrambleRange{Pos: 0x200, Len: 19}

	if err := m.XorRegion(rng, key); err != nil {
		t.Fatalf("XorRegion: %v", err)
	}
	if string(m.ReadMemBlocks(0x200, 19)) == "the quick brown fox" {
		t.Fatalf("XorRegion did not scramble the bytes")
	}
	if err := m.XorRegion(rng, key); err != nil {
		t.Fatalf("XorRegion (restore): %v", err)
	}
	if got := string(m.ReadMemBlocks(0x200, 19)); got != "the quick brown fox" {
		t.Fatalf("got %q after double XOR, want original", got)
	}
}

func TestResetClearsPages(t *testing.T) {
	m := New()
	m.WriteU32(0x10, 1)
	m.Reset()
	if got := m.ReadU32(0x10); got != 0 {
		t.Fatalf("ReadU32 after Reset = %d, want 0", got)
	}
}
