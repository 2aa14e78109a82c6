/*
NAME
  mux.go

DESCRIPTION
  mux.go implements the classical-mode GOF muxer of spec.md §4.7: it packs
  a GOF's VPS, atlas sub-bitstream, and three video sub-bitstreams into a
  single V3C chunk, in order VPS, AD, OVD, GVD, AVD. The Encoder-shaped
  struct mirrors github.com/ausocean/av/container/mts.Encoder, which
  similarly accumulates per-stream state (continuity counters there,
  precision tracking here) across successive Write calls.

AUTHORS
  uvgVPCCenc contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package v3c

import (
	"github.com/pkg/errors"

	"github.com/ausocean/utils/logging"
)

const unitHeaderSize = 4

// Muxer packs GOFs into V3C chunks. A single Muxer instance must be used
// for an entire output bitstream: it tracks a running sample-stream
// precision that never decreases across successive GOFs, and emits the
// single leading sample-stream header byte only once (spec.md §4.7, §6).
type Muxer struct {
	precision int  // Running max precision so far; 0 until the first Mux call.
	wroteHeader bool

	log logging.Logger
}

// NewMuxer returns a new Muxer.
func NewMuxer(log logging.Logger) *Muxer {
	return &Muxer{log: log}
}

// GOFInput bundles the five V3C sub-objects produced for one GOF by the
// upstream pipeline stages (§4.2), ready for muxing.
type GOFInput struct {
	GOFID             int
	VPSBytes          []byte
	AtlasSubBitstream []byte // Full atlas sub-bitstream, as produced by atlas.Context.EmitClassical.
	OVD, GVD, AVD     []byte // Encoder sample-stream buffers (already 4-byte-prefixed), copied verbatim.

	AtlasID                int
	MapCount               int // 2 if doubleLayer, else 1; not read by MuxClassical, which writes GVD/AVD with map_index 0.
	AttributeIndex         int
	AttributePartitionIndex int
}

// MuxClassical packs one GOF into a single chunk per spec.md §4.7.
func (m *Muxer) MuxClassical(in GOFInput) (*Chunk, error) {
	if in.VPSBytes == nil || in.AtlasSubBitstream == nil {
		return nil, errors.New("v3c: MuxClassical requires VPS and atlas sub-bitstream")
	}

	sizes := []int{len(in.VPSBytes), len(in.AtlasSubBitstream), len(in.OVD), len(in.GVD), len(in.AVD)}
	maxSize := 0
	for _, s := range sizes {
		if s+unitHeaderSize > maxSize {
			maxSize = s + unitHeaderSize
		}
	}
	p := precisionFor(maxSize)
	if p > m.precision {
		m.precision = p
	}
	precision := m.precision

	out := make([]byte, 0, maxSize*5)
	if !m.wroteHeader {
		out = append(out, byte(precision-1)<<5)
		m.wroteHeader = true
	}

	unitSizes := make([]int, 0, 5)

	writeUnit := func(h Header, payload []byte) {
		hb := h.Bytes()
		unitLen := unitHeaderSize + len(payload)
		out = appendLengthPrefix(out, unitLen, precision)
		out = append(out, hb[:]...)
		out = append(out, payload...)
		unitSizes = append(unitSizes, len(payload))
	}

	writeUnit(Header{Type: UnitVPS}, in.VPSBytes)
	writeUnit(Header{Type: UnitAD, V3CParameterSetID: gofParamSetID(in.GOFID), AtlasID: in.AtlasID}, in.AtlasSubBitstream)
	writeUnit(Header{Type: UnitOVD, V3CParameterSetID: gofParamSetID(in.GOFID), AtlasID: in.AtlasID}, in.OVD)
	writeUnit(Header{Type: UnitGVD, V3CParameterSetID: gofParamSetID(in.GOFID), AtlasID: in.AtlasID}, in.GVD)
	writeUnit(Header{
		Type:                   UnitAVD,
		V3CParameterSetID:      gofParamSetID(in.GOFID),
		AtlasID:                in.AtlasID,
		AttributeIndex:         in.AttributeIndex,
		AttributePartitionIndex: in.AttributePartitionIndex,
	}, in.AVD)

	if m.log != nil {
		m.log.Debug("muxed GOF", "gofID", in.GOFID, "precision", precision, "chunkLen", len(out))
	}

	return &Chunk{GOFID: in.GOFID, Data: out, UnitSizes: unitSizes}, nil
}

// gofParamSetID is gofId mod 16, the VPS invariant of spec.md §3.
func gofParamSetID(gofID int) int { return gofID % 16 }

func appendLengthPrefix(out []byte, size, precision int) []byte {
	prefix := make([]byte, precision)
	for i := 0; i < precision; i++ {
		shift := uint(8 * (precision - 1 - i))
		prefix[i] = byte(size >> shift)
	}
	return append(out, prefix...)
}
