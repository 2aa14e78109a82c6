/*
NAME
  reader.go

DESCRIPTION
  reader.go provides a minimal bit reader used only by this package's own
  tests to check the Exp-Golomb law of spec.md §8 ("for all n in
  [0, 2^30], decoding put_ue(n) returns n"). It mirrors the read side of
  github.com/ausocean/av/codec/h264/h264dec/bits.BitReader.

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

import "io"

// Reader reads bits MSB-first from a byte slice.
type Reader struct {
	data []byte
	pos  int // Bit position from the start of data.
}

// NewReader returns a new Reader over data.
func NewReader(data []byte) *Reader { return &Reader{data: data} }

// ReadBits reads n bits and returns them in the least-significant part of
// a uint64.
func (r *Reader) ReadBits(n int) (uint64, error) {
	var v uint64
	for i := 0; i < n; i++ {
		byteIdx := r.pos / 8
		if byteIdx >= len(r.data) {
			return 0, io.ErrUnexpectedEOF
		}
		bitIdx := 7 - uint(r.pos%8)
		bit := (r.data[byteIdx] >> bitIdx) & 1
		v = v<<1 | uint64(bit)
		r.pos++
	}
	return v, nil
}

// ReadUE reads an unsigned Exp-Golomb codeword, the inverse of
// Writer.PutUE.
func (r *Reader) ReadUE() (uint64, error) {
	nZeros := 0
	for {
		b, err := r.ReadBits(1)
		if err != nil {
			return 0, err
		}
		if b != 0 {
			break
		}
		nZeros++
	}
	rem, err := r.ReadBits(nZeros)
	if err != nil {
		return 0, err
	}
	return (uint64(1)<<uint(nZeros) - 1) + rem, nil
}

// ReadSE reads a signed Exp-Golomb codeword, the inverse of Writer.PutSE.
func (r *Reader) ReadSE() (int64, error) {
	u, err := r.ReadUE()
	if err != nil {
		return 0, err
	}
	if u%2 == 0 {
		return -int64(u / 2), nil
	}
	return int64((u + 1) / 2), nil
}
