/*
NAME
  context.go

DESCRIPTION
  context.go implements the per-GOF atlas context: it aggregates an ASPS,
  an AFPS, and one atlas tile layer per frame, runs the size pre-pass of
  spec.md §4.5 to choose a NAL size precision, and emits the atlas NAL
  sample stream in both classical and low-delay interleaving modes.

AUTHORS
  uvgVPCCenc contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package atlas

import (
	"github.com/pkg/errors"

	"github.com/ausocean/uvgvpccenc/bitstream"
)

// ErrNotImplemented is returned where the reference encoder's source has
// an unimplemented path (ath_ref_atlas_frame_list_asps_flag == false);
// spec.md §9 directs that this be treated as a fatal configuration error
// rather than guessed at.
var ErrNotImplemented = errors.New("atlas: ath_ref_atlas_frame_list_asps_flag == false is not supported")

// nalHeader returns the one-byte NAL unit header used to prefix each
// atlas NAL's RBSP, carrying the NAL type in its upper bits.
func nalHeader(nalType int) byte {
	return byte(nalType) << 1
}

// Context aggregates the atlas sub-bitstream for one GOF.
type Context struct {
	ASPS *ASPS
	AFPS *AFPS
	Tiles []*TileLayer

	// RefAtlasFrameListASPSFlag must be true; spec.md §9's open question
	// resolves the false case as a fatal configuration error.
	RefAtlasFrameListASPSFlag bool

	// Precision is set by Size after a successful pre-pass.
	Precision int

	nalBytes [][]byte // One RBSP (header byte + payload) per NAL, ASPS/AFPS/tiles in order.
}

// NewContext builds a Context from an ASPS, AFPS and the ordered tile
// layers for a GOF's frames.
func NewContext(asps *ASPS, afps *AFPS, tiles []*TileLayer) *Context {
	return &Context{ASPS: asps, AFPS: afps, Tiles: tiles, RefAtlasFrameListASPSFlag: true}
}

// writeNAL wraps a header byte and RBSP payload together, the unit the size
// pre-pass measures and later emission re-uses verbatim.
func writeNAL(nalType int, writeRBSP func(w *bitstream.Writer)) []byte {
	w := bitstream.NewWriter()
	w.Put(uint64(nalHeader(nalType)), 8)
	writeRBSP(w)
	b := w.Bytes() // Writer is always byte-aligned after RBSPTrailingBits.
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Size runs the size pre-pass of spec.md §4.5: each NAL (ASPS, AFPS, one
// per tile layer, plus the end-of-bitstream NAL) is dry-run written to
// measure its byte size; from the maximum, a NAL size precision
// (1..8 bytes) is chosen such that all sizes fit. It returns the total
// atlas sub-bitstream length in bytes.
func (c *Context) Size() (int, error) {
	if !c.RefAtlasFrameListASPSFlag {
		return 0, ErrNotImplemented
	}

	c.nalBytes = c.nalBytes[:0]
	c.nalBytes = append(c.nalBytes, writeNAL(NALASPS, c.ASPS.Write))
	c.nalBytes = append(c.nalBytes, writeNAL(NALAFPS, c.AFPS.Write))
	for _, t := range c.Tiles {
		t := t
		c.nalBytes = append(c.nalBytes, writeNAL(NALATL, func(w *bitstream.Writer) { t.Write(w, c.ASPS) }))
	}
	eob := writeNAL(NALEOB, func(w *bitstream.Writer) {}) // 1-byte payload beyond the header byte.
	eob = append(eob, 0)

	maxSize := 0
	for _, n := range c.nalBytes {
		if len(n) > maxSize {
			maxSize = len(n)
		}
	}
	if len(eob) > maxSize {
		maxSize = len(eob)
	}
	c.Precision = precisionFor(maxSize)

	total := 1 // Sample-stream header byte.
	for _, n := range c.nalBytes {
		total += c.Precision + len(n)
	}
	total += c.Precision + len(eob)
	return total, nil
}

// precisionFor returns max(1, ceil(ceilLog2(maxSize+1)/8)), pinning to 1
// for maxSize of 0 or 1 (spec.md §8's boundary behavior).
func precisionFor(maxSize int) int {
	bits := ceilLog2(maxSize + 1)
	p := (bits + 7) / 8
	if p < 1 {
		p = 1
	}
	return p
}

// ceilLog2 returns ceil(log2(n)) for n >= 1.
func ceilLog2(n int) int {
	if n <= 1 {
		return 0
	}
	bits := 0
	v := n - 1
	for v > 0 {
		v >>= 1
		bits++
	}
	return bits
}

// sampleStreamHeaderByte returns the first byte of a NAL sample stream:
// (precision-1) << 5.
func sampleStreamHeaderByte(precision int) byte {
	return byte(precision-1) << 5
}

func putLengthPrefix(out []byte, size, precision int) []byte {
	prefix := make([]byte, precision)
	for i := 0; i < precision; i++ {
		shift := uint(8 * (precision - 1 - i))
		prefix[i] = byte(size >> shift)
	}
	return append(out, prefix...)
}

// EmitClassical emits the atlas NAL sample stream as a single contiguous
// buffer: one header byte, then for each NAL a precision-byte size prefix
// followed by the NAL, closed by an end-of-bitstream NAL (spec.md §4.5).
// If Size has not run yet (Precision is 0), it is called first.
func (c *Context) EmitClassical() ([]byte, error) {
	if c.Precision == 0 {
		if _, err := c.Size(); err != nil {
			return nil, err
		}
	}
	out := make([]byte, 0)
	out = append(out, sampleStreamHeaderByte(c.Precision))
	for _, n := range c.nalBytes {
		out = putLengthPrefix(out, len(n), c.Precision)
		out = append(out, n...)
	}
	eob := writeNAL(NALEOB, func(w *bitstream.Writer) {})
	eob = append(eob, 0)
	out = putLengthPrefix(out, len(eob), c.Precision)
	out = append(out, eob...)
	return out, nil
}

// EmitLowDelay emits the atlas sub-bitstream for one frame in low-delay
// mode (spec.md §4.5): on frameIdx == 0, the ASPS and AFPS NALs are
// attached ahead of the frame's own atlas tile NAL; every frame also gets
// its own EOB NAL closing its unit.
func (c *Context) EmitLowDelay(frameIdx int) ([]byte, error) {
	if c.Precision == 0 {
		if _, err := c.Size(); err != nil {
			return nil, err
		}
	}
	if frameIdx < 0 || frameIdx >= len(c.Tiles) {
		return nil, errors.Errorf("atlas: frame index %d out of range (%d tiles)", frameIdx, len(c.Tiles))
	}

	out := make([]byte, 0)
	out = append(out, sampleStreamHeaderByte(c.Precision))
	if frameIdx == 0 {
		out = putLengthPrefix(out, len(c.nalBytes[0]), c.Precision)
		out = append(out, c.nalBytes[0]...) // ASPS
		out = putLengthPrefix(out, len(c.nalBytes[1]), c.Precision)
		out = append(out, c.nalBytes[1]...) // AFPS
	}
	tileNAL := c.nalBytes[2+frameIdx]
	out = putLengthPrefix(out, len(tileNAL), c.Precision)
	out = append(out, tileNAL...)

	eob := writeNAL(NALEOB, func(w *bitstream.Writer) {})
	eob = append(eob, 0)
	out = putLengthPrefix(out, len(eob), c.Precision)
	out = append(out, eob...)
	return out, nil
}
