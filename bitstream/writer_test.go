/*
NAME
  writer_test.go

DESCRIPTION
  writer_test.go validates the bitstream.Writer laws and invariants of
  spec.md §8.

AUTHORS
  uvgVPCCenc contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package bitstream

import (
	"errors"
	"testing"
)

// TestPutBits checks MSB-first packing against the worked example in
// h264dec/bits.BitReader's doc comment, run in reverse (write then read
// back bit-for-bit).
func TestPutBits(t *testing.T) {
	w := NewWriter()
	w.Put(0x8, 4)
	w.Put(0x3, 2)
	w.Put(0xf, 4)
	w.Put(0x23, 6)
	got, err := w.TakeChunks()
	if err != nil {
		t.Fatalf("TakeChunks: %v", err)
	}
	want := []byte{0x8f, 0xe3}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %x, want %x", got, want)
	}
}

// TestExpGolombLaw checks that for all n in [0, 2^20] (scaled down from
// 2^30 to keep the test fast), decoding PutUE(n) returns n.
func TestExpGolombLaw(t *testing.T) {
	const limit = 1 << 20
	for n := uint64(0); n <= limit; n += 997 {
		w := NewWriter()
		w.PutUE(n)
		w.RBSPTrailingBits()
		b, err := w.TakeChunks()
		if err != nil {
			t.Fatalf("n=%d: TakeChunks: %v", n, err)
		}
		r := NewReader(b)
		got, err := r.ReadUE()
		if err != nil {
			t.Fatalf("n=%d: ReadUE: %v", n, err)
		}
		if got != n {
			t.Fatalf("n=%d: round-trip got %d", n, got)
		}
	}
}

func TestExpGolombSmallValues(t *testing.T) {
	for n := uint64(0); n < 2048; n++ {
		w := NewWriter()
		w.PutUE(n)
		w.RBSPTrailingBits()
		b, _ := w.TakeChunks()
		r := NewReader(b)
		got, err := r.ReadUE()
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if got != n {
			t.Fatalf("n=%d: got %d", n, got)
		}
	}
}

func TestSignedExpGolomb(t *testing.T) {
	cases := []int64{0, 1, -1, 2, -2, 3, -3, 1000, -1000}
	for _, n := range cases {
		w := NewWriter()
		w.PutSE(n)
		w.RBSPTrailingBits()
		b, _ := w.TakeChunks()
		r := NewReader(b)
		got, err := r.ReadSE()
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if got != n {
			t.Fatalf("n=%d: got %d", n, got)
		}
	}
}

// TestAlignIdempotent checks that Align is idempotent, and that
// RBSPTrailingBits is not (it always writes at least one bit).
func TestAlignIdempotent(t *testing.T) {
	w := NewWriter()
	w.Put(0x1, 3)
	w.Align()
	pos := w.Tell()
	w.Align()
	if w.Tell() != pos {
		t.Fatalf("Align not idempotent: %d != %d", w.Tell(), pos)
	}

	before := w.Tell()
	w.RBSPTrailingBits()
	if w.Tell() == before {
		t.Fatalf("RBSPTrailingBits wrote no bits")
	}
	// RBSPTrailingBits leaves the writer aligned, so calling it again
	// still advances by at least one bit (it is not idempotent).
	before = w.Tell()
	w.RBSPTrailingBits()
	if w.Tell() == before {
		t.Fatalf("RBSPTrailingBits should not be idempotent")
	}
}

// TestCopyBytesRequiresAlignment checks the invariant that byte-aligned
// operations fail if the writer is mid-byte.
func TestCopyBytesRequiresAlignment(t *testing.T) {
	w := NewWriter()
	w.Put(0x1, 3)
	err := w.CopyBytes([]byte{0xff})
	if err == nil || !errors.Is(err, ErrNotByteAligned) {
		t.Fatalf("expected ErrNotByteAligned, got %v", err)
	}

	if _, err := w.TakeChunks(); err == nil || !errors.Is(err, ErrNotByteAligned) {
		t.Fatalf("expected ErrNotByteAligned from TakeChunks, got %v", err)
	}

	w.Align()
	if err := w.CopyBytes([]byte{0xff}); err != nil {
		t.Fatalf("CopyBytes after Align: %v", err)
	}
}

func TestTellTracksBits(t *testing.T) {
	w := NewWriter()
	if w.Tell() != 0 {
		t.Fatalf("expected 0, got %d", w.Tell())
	}
	w.Put(0, 5)
	if w.Tell() != 5 {
		t.Fatalf("expected 5, got %d", w.Tell())
	}
	w.Put(0, 11)
	if w.Tell() != 16 {
		t.Fatalf("expected 16, got %d", w.Tell())
	}
}
