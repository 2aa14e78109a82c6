/*
NAME
  writer.go

DESCRIPTION
  writer.go provides a bit-oriented writer used to build the V3C/atlas
  syntax: MSB-first bit packing, unsigned Exp-Golomb codes, byte alignment,
  and RBSP trailing bits. The backing buffer is a single growable byte
  slice rather than the reference encoder's linked list of 4 KiB chunks;
  per spec.md §9 the only observable contract is Tell (position in bits)
  and TakeChunks (move ownership of the buffer out).

AUTHORS
  uvgVPCCenc contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package bitstream provides the bit-level writer primitives used to build
// V3C/atlas syntax structures.
package bitstream

import "github.com/pkg/errors"

// ErrNotByteAligned is returned by operations that require byte alignment
// (CopyBytes, TakeChunks) when the writer is mid-byte.
var ErrNotByteAligned = errors.New("bitstream: writer is not byte-aligned")

// initialChunkSize is the starting capacity of the backing buffer.
const initialChunkSize = 4 << 10 // 4 KiB, matching the reference's chunk size.

// Writer is a bit-oriented, MSB-first writer.
type Writer struct {
	buf     []byte
	curByte byte // Partial byte accumulator.
	curBit  int  // Number of bits already placed in curByte, 0..7.
}

// NewWriter returns a new, empty Writer.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, initialChunkSize)}
}

// Put writes the low `bits` bits of data, MSB-first.
func (w *Writer) Put(data uint64, bits int) {
	for i := bits - 1; i >= 0; i-- {
		bit := byte((data >> uint(i)) & 1)
		w.curByte = w.curByte<<1 | bit
		w.curBit++
		if w.curBit == 8 {
			w.buf = append(w.buf, w.curByte)
			w.curByte = 0
			w.curBit = 0
		}
	}
}

// PutFlag writes a single bit: 1 if b is true, 0 otherwise.
func (w *Writer) PutFlag(b bool) {
	if b {
		w.Put(1, 1)
	} else {
		w.Put(0, 1)
	}
}

// PutUE writes the unsigned Exp-Golomb codeword of n: with
// k = floor(log2(n+1)), k zero bits followed by the (k+1)-bit binary of
// n+1.
func (w *Writer) PutUE(n uint64) {
	v := n + 1
	k := bitLength(v) - 1
	w.Put(0, k)
	w.Put(v, k+1)
}

// PutSE writes the signed Exp-Golomb codeword of n, using the standard
// ue(v)-based mapping: 0 -> 0, 1 -> 1, -1 -> 2, 2 -> 3, -2 -> 4, ...
func (w *Writer) PutSE(n int64) {
	var u uint64
	if n <= 0 {
		u = uint64(-n) * 2
	} else {
		u = uint64(n)*2 - 1
	}
	w.PutUE(u)
}

// bitLength returns floor(log2(v))+1 for v >= 1.
func bitLength(v uint64) int {
	n := 0
	for v > 0 {
		v >>= 1
		n++
	}
	return n
}

// Align pads with a single 1 bit then zeros until byte-aligned. It is a
// no-op if the writer is already aligned, making Align idempotent.
func (w *Writer) Align() {
	if w.curBit == 0 {
		return
	}
	w.Put(1, 1)
	for w.curBit != 0 {
		w.Put(0, 1)
	}
}

// RBSPTrailingBits unconditionally appends a 1 bit then zeros to byte
// alignment, even if already aligned; it therefore always writes at least
// one bit, unlike Align.
func (w *Writer) RBSPTrailingBits() {
	w.Put(1, 1)
	for w.curBit != 0 {
		w.Put(0, 1)
	}
}

// CopyBytes appends src verbatim. It returns ErrNotByteAligned if the
// writer is currently mid-byte.
func (w *Writer) CopyBytes(src []byte) error {
	if w.curBit != 0 {
		return errors.Wrap(ErrNotByteAligned, "CopyBytes")
	}
	w.buf = append(w.buf, src...)
	return nil
}

// Tell returns the writer's current position, in bits, from the start of
// the stream.
func (w *Writer) Tell() int64 {
	return int64(len(w.buf))*8 + int64(w.curBit)
}

// ByteAligned reports whether the writer is currently at a byte boundary.
func (w *Writer) ByteAligned() bool { return w.curBit == 0 }

// TakeChunks moves ownership of the accumulated bytes out of the writer
// and resets it to empty. It returns ErrNotByteAligned if the writer is
// mid-byte, since a partial trailing byte cannot be represented.
func (w *Writer) TakeChunks() ([]byte, error) {
	if w.curBit != 0 {
		return nil, errors.Wrap(ErrNotByteAligned, "TakeChunks")
	}
	out := w.buf
	w.buf = make([]byte, 0, initialChunkSize)
	return out, nil
}

// Bytes returns the accumulated bytes without resetting the writer or
// taking ownership; it panics if the writer is not byte-aligned, since the
// reference encoder treats this as an internal invariant violation rather
// than a recoverable error (spec.md §7).
func (w *Writer) Bytes() []byte {
	if w.curBit != 0 {
		panic("bitstream: Bytes called on unaligned writer")
	}
	return w.buf
}
