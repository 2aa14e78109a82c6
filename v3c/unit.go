/*
NAME
  unit.go

DESCRIPTION
  unit.go builds the 4-byte V3C unit headers of spec.md §4.7, and the
  V3C sample-stream precision selection shared by both the classical and
  low-delay muxers.

AUTHORS
  uvgVPCCenc contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package v3c implements the GOF muxer: V3C unit headers, the classical
// and low-delay interleaving modes, and the output chunk queue.
package v3c

// V3C unit types, the 5-bit value at the top of every unit header.
const (
	UnitVPS = 0
	UnitAD  = 1
	UnitOVD = 2
	UnitGVD = 3
	UnitAVD = 4
)

// Header is the logical content of a 4-byte V3C unit header.
type Header struct {
	Type                   int
	V3CParameterSetID      int
	AtlasID                int
	MapIndex               int
	AuxVideoFlag           bool
	AttributeIndex         int
	AttributePartitionIndex int
}

// Bytes packs h into the 4-byte bitfield layout of spec.md §4.7.
func (h Header) Bytes() [4]byte {
	var b [4]byte
	switch h.Type {
	case UnitVPS:
		// 32 zero bits: nothing further to set, but still declare the
		// type in its 5-bit field for diagnostics; v3c_unit_type for VPS
		// is conventionally 0, so this is already the zero value.
	case UnitAD, UnitOVD:
		v := uint32(h.Type)<<27 | uint32(h.V3CParameterSetID)<<23 | uint32(h.AtlasID)<<17
		putU32(b[:], v)
	case UnitGVD:
		v := uint32(h.Type)<<27 | uint32(h.V3CParameterSetID)<<23 | uint32(h.AtlasID)<<17 |
			uint32(h.MapIndex)<<13 | boolBit(h.AuxVideoFlag)<<12
		putU32(b[:], v)
	case UnitAVD:
		v := uint32(h.Type)<<27 | uint32(h.V3CParameterSetID)<<23 | uint32(h.AtlasID)<<17 |
			uint32(h.AttributeIndex)<<10 | uint32(h.AttributePartitionIndex)<<5 |
			uint32(h.MapIndex)<<1 | boolBit(h.AuxVideoFlag)
		putU32(b[:], v)
	}
	return b
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

// precisionFor returns max(1, ceil(ceilLog2(maxSize+1)/8)), mirroring
// atlas.precisionFor but kept local to avoid an import cycle, since both
// packages independently need it for their own size pre-passes (spec.md
// §4.5 and §4.7 define the same rule).
func precisionFor(maxSize int) int {
	bits := ceilLog2(maxSize + 1)
	p := (bits + 7) / 8
	if p < 1 {
		p = 1
	}
	return p
}

func ceilLog2(n int) int {
	if n <= 1 {
		return 0
	}
	v := n - 1
	bits := 0
	for v > 0 {
		v >>= 1
		bits++
	}
	return bits
}
