/*
NAME
  atl.go

DESCRIPTION
  atl.go builds and writes a per-frame atlas tile layer RBSP: the tile
  header, one patch_information_data per patch (mode I_INTRA, carrying a
  patch_data_unit), and a terminal I_END, per spec.md §4.5.

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
	"github.com/ausocean/uvgvpccenc/bitstream"
	"github.com/ausocean/uvgvpccenc/frame"
)

// Tile types, per spec.md §4.5.
const (
	TileTypeI = 0 // I_TILE.
)

// Patch information data modes.
const (
	PatchModeIntra = 0 // I_INTRA.
	PatchModeEnd   = 14 // I_END.
)

// PatchDataUnit carries the 2D/3D placement fields of a single patch, as
// written into an atlas tile layer (spec.md §4.5).
type PatchDataUnit struct {
	Pos2DX, Pos2DY         int // ue(v).
	SizeXMinus1, SizeYMinus1 int // ue(v).
	Offset3DU, Offset3DV   int // geometry_3d_bit_depth_minus1+1 bits each.
	Offset3DD              int // (geometry_3d_bit_depth_minus1+1-posMinDQuantizer) bits.
	Range3DD               int // min(2d_bd,3d_bd)+1-posDeltaMaxDQuantizer bits.
	ProjectionID           int // 3 bits.
	Orientation            int // 1 bit, or 3 if eight orientations enabled.
	EightOrientations      bool
}

// patchDataUnitFromPatch derives a PatchDataUnit from a frame.Patch and
// the quantizer parameters in effect for the current tile.
func patchDataUnitFromPatch(p *frame.Patch, posMinDQuantizer, posDeltaMaxDQuantizer, geo3DBitDepthMinus1, geo2DBitDepthMinus1 int, eightOrientations bool) PatchDataUnit {
	min2d3d := geo2DBitDepthMinus1
	if geo3DBitDepthMinus1 < min2d3d {
		min2d3d = geo3DBitDepthMinus1
	}
	return PatchDataUnit{
		Pos2DX:         p.OMDSPosX,
		Pos2DY:         p.OMDSPosY,
		SizeXMinus1:    p.WidthInPixel - 1,
		SizeYMinus1:    p.HeightInPixel - 1,
		Offset3DU:      p.PosU,
		Offset3DV:      p.PosV,
		Offset3DD:      p.PosD,
		Range3DD:       min2d3d + 1 - posDeltaMaxDQuantizer,
		ProjectionID:   p.PatchPpi,
		Orientation:    boolToOrientation(p.AxisSwap),
		EightOrientations: eightOrientations,
	}
}

func boolToOrientation(axisSwap bool) int {
	if axisSwap {
		return 1
	}
	return 0
}

// Write emits the patch_data_unit syntax of spec.md §4.5. posMinDQuantizer
// and posDeltaMaxDQuantizer, in effect from the owning tile's header,
// determine the bit widths of the 3D offset/range D fields; they are
// distinct from the field *values* themselves (Offset3DD/Range3DD).
// Range3DD's width additionally depends on geo2DBitDepthMinus1 (spec.md
// §4.5: min(2d_bd,3d_bd)+1-posDeltaMaxDQuantizer), not geo3DBitDepthMinus1
// alone, matching the value computed by patchDataUnitFromPatch.
func (u PatchDataUnit) Write(w *bitstream.Writer, geo3DBitDepthMinus1, geo2DBitDepthMinus1, posMinDQuantizer, posDeltaMaxDQuantizer int) {
	w.PutUE(uint64(u.Pos2DX))
	w.PutUE(uint64(u.Pos2DY))
	w.PutUE(uint64(u.SizeXMinus1))
	w.PutUE(uint64(u.SizeYMinus1))

	bd := geo3DBitDepthMinus1 + 1
	w.Put(uint64(u.Offset3DU), bd)
	w.Put(uint64(u.Offset3DV), bd)

	min2d3d := geo2DBitDepthMinus1
	if geo3DBitDepthMinus1 < min2d3d {
		min2d3d = geo3DBitDepthMinus1
	}

	offsetDBits := max1(bd - posMinDQuantizer)
	rangeDBits := max1(min2d3d + 1 - posDeltaMaxDQuantizer)
	w.Put(uint64(u.Offset3DD), offsetDBits)
	w.Put(uint64(u.Range3DD), rangeDBits)

	w.Put(uint64(u.ProjectionID), 3)
	if u.EightOrientations {
		w.Put(uint64(u.Orientation), 3)
	} else {
		w.Put(uint64(u.Orientation), 1)
	}
}

// max1 clamps n to be at least 1 bit wide, guarding against a
// zero/negative bit count reaching bitstream.Writer.Put, which would
// otherwise be an internal invariant violation (spec.md §7).
func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// TileHeader carries the per-frame fields of spec.md §4.5.
type TileHeader struct {
	FrameOrderCntLsb   int
	TileType           int // Always TileTypeI.
	PosMinDQuantizer   int // log2(minLevel).
	PosDeltaMaxDQuantizer int // log2(minLevel).
}

// TileLayer is one frame's atlas tile layer: a header plus the patch data
// units for every patch in the frame, terminated by I_END.
type TileLayer struct {
	Header  TileHeader
	Patches []PatchDataUnit
}

// NewTileLayer builds a TileLayer for f, quantizing with minLevel and
// ASPS-derived parameters, per spec.md §4.5.
func NewTileLayer(f *frame.Frame, asps *ASPS, frameIndex, minLevel int, eightOrientations bool) *TileLayer {
	q := log2Exact(minLevel)
	tl := &TileLayer{
		Header: TileHeader{
			FrameOrderCntLsb:      frameIndex % (1 << uint(asps.Log2MaxAtlasFrmOrderCntLsb())),
			TileType:              TileTypeI,
			PosMinDQuantizer:      q,
			PosDeltaMaxDQuantizer: q,
		},
	}
	for i := range f.PatchList {
		tl.Patches = append(tl.Patches, patchDataUnitFromPatch(&f.PatchList[i], q, q,
			asps.Geometry3DBitDepthMinus1, asps.Geometry2DBitDepthMinus1, eightOrientations))
	}
	return tl
}

// Write emits the atlas tile layer RBSP, per spec.md §4.5.
func (t *TileLayer) Write(w *bitstream.Writer, asps *ASPS) {
	lsbBits := asps.Log2MaxAtlasFrmOrderCntLsb()
	w.Put(uint64(t.Header.FrameOrderCntLsb), lsbBits)
	w.PutUE(uint64(t.Header.TileType))
	w.PutUE(uint64(t.Header.PosMinDQuantizer))
	w.PutUE(uint64(t.Header.PosDeltaMaxDQuantizer))

	for _, p := range t.Patches {
		w.PutUE(PatchModeIntra)
		p.Write(w, asps.Geometry3DBitDepthMinus1, asps.Geometry2DBitDepthMinus1, t.Header.PosMinDQuantizer, t.Header.PosDeltaMaxDQuantizer)
	}
	w.PutUE(PatchModeEnd)

	w.RBSPTrailingBits()
}
