package audioexternal

import (
	"bytes"
	"testing"
)

func TestSampleTableSetAndGet(t *testing.T) {
	tbl := NewSampleTable()
	if _, ok := tbl.Sample(3); ok {
		t.Fatalf("Sample(3) found before SetSample")
	}
	tbl.SetSample(3, []byte{1, 2, 3})
	got, ok := tbl.Sample(3)
	if !ok {
		t.Fatalf("Sample(3) not found after SetSample")
	}
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("Sample(3) = %v, want [1 2 3]", got)
	}
}

func TestSampleTableCopiesInput(t *testing.T) {
	tbl := NewSampleTable()
	data := []byte{9, 9}
	tbl.SetSample(1, data)
	data[0] = 0
	got, _ := tbl.Sample(1)
	if got[0] != 9 {
		t.Fatalf("SetSample retained a reference to the caller's slice")
	}
}
