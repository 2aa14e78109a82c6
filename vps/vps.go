/*
NAME
  vps.go

DESCRIPTION
  vps.go builds and writes the V3C parameter set (VPS), per spec.md §4.6.
  The accumulate-bits-as-you-go sizing approach mirrors
  github.com/ausocean/av/container/mts/psi.PSI's pattern of deriving a
  table's on-wire length from the fields written into it.

AUTHORS
  uvgVPCCenc contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package vps builds and serializes the V3C parameter set.
package vps

import "github.com/ausocean/uvgvpccenc/bitstream"

// Codec group identifiers, per spec.md §4.6.
const (
	CodecGroupHEVCMain10 = 1
	CodecGroupVVCMain10  = 3
)

// Fixed field values specified by spec.md §4.6.
const (
	profileToolsetIdcVPCCExtended = 1
	reconstructionIdc             = 1
	maxDecodesIdc                 = 15
	levelIdc                      = 30
)

// VPS is the V3C parameter set for one GOF.
type VPS struct {
	V3CParameterSetID int // gofId mod 16.

	FrameWidth, FrameHeight int // mapWidth, GOF's shared mapsHeight.

	MapCountMinus1 int // 1 if doubleLayer else 0.

	OccupancyPresent, GeometryPresent, AttributePresent bool // Always true.

	// One attribute of type Texture, dimension 3 (dim_minus1 = 2).
	AttributeDimMinus1 int

	CodecGroup int // CodecGroupHEVCMain10 or CodecGroupVVCMain10.

	// bitLen accumulates the number of bits contributed as fields are
	// populated via Build, so the VPS's serialized size in bytes can be
	// known before Write runs.
	bitLen int
}

// Build constructs a VPS from the GOF id, atlas/frame geometry and codec
// selection, per spec.md §4.6.
func Build(gofID, frameWidth, frameHeight int, doubleLayer bool, codecGroup int) *VPS {
	mapCount := 0
	if doubleLayer {
		mapCount = 1
	}
	v := &VPS{
		V3CParameterSetID:  gofID % 16,
		FrameWidth:         frameWidth,
		FrameHeight:        frameHeight,
		MapCountMinus1:     mapCount,
		OccupancyPresent:   true,
		GeometryPresent:    true,
		AttributePresent:   true,
		AttributeDimMinus1: 2,
		CodecGroup:         codecGroup,
	}
	v.bitLen = v.computeBitLen()
	return v
}

// computeBitLen mirrors the field layout of Write to predict its total
// bit length without running a dry-run write; it is kept next to Write so
// the two cannot silently diverge.
func (v *VPS) computeBitLen() int {
	bits := 0
	bits += 4 // v3c_parameter_set_id
	bits += ueBits(uint64(v.FrameWidth))
	bits += ueBits(uint64(v.FrameHeight))
	bits += 4 // map_count_minus1
	bits += 1 + 1 + 1 // occupancy/geometry/attribute present
	bits += 7         // attribute dimension minus1
	bits += 8         // codec group id
	bits += 8         // profile toolset idc
	bits += 8         // reconstruction idc
	bits += 8         // max decodes idc
	bits += 8         // level idc
	// Byte-align at the end.
	if bits%8 != 0 {
		bits += 8 - bits%8
	}
	return bits
}

// ueBits returns the number of bits PutUE(n) would write.
func ueBits(n uint64) int {
	v := n + 1
	k := 0
	for t := v; t > 1; t >>= 1 {
		k++
	}
	return 2*k + 1
}

// ByteLen returns the VPS's serialized size in bytes, ceil(bits/8),
// without running Write.
func (v *VPS) ByteLen() int {
	return (v.bitLen + 7) / 8
}

// Write emits the VPS syntax: fixed-width fields as specified, ue(v) for
// frame dimensions, byte-aligned at the end.
func (v *VPS) Write(w *bitstream.Writer) {
	w.Put(uint64(v.V3CParameterSetID), 4)
	w.PutUE(uint64(v.FrameWidth))
	w.PutUE(uint64(v.FrameHeight))
	w.Put(uint64(v.MapCountMinus1), 4)
	w.PutFlag(v.OccupancyPresent)
	w.PutFlag(v.GeometryPresent)
	w.PutFlag(v.AttributePresent)
	w.Put(uint64(v.AttributeDimMinus1), 7)
	w.Put(uint64(v.CodecGroup), 8)
	w.Put(profileToolsetIdcVPCCExtended, 8)
	w.Put(reconstructionIdc, 8)
	w.Put(maxDecodesIdc, 8)
	w.Put(levelIdc, 8)
	w.Align()
}

// Bytes runs Write into a fresh bitstream.Writer and returns the result.
func (v *VPS) Bytes() []byte {
	w := bitstream.NewWriter()
	v.Write(w)
	return w.Bytes()
}
