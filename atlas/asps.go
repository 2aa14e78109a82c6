/*
NAME
  asps.go

DESCRIPTION
  asps.go builds and writes the atlas sequence parameter set, per
  spec.md §4.5. The struct-then-Write()-method shape is grounded on
  github.com/ausocean/av/container/mts/psi.PSI's table/descriptor
  assembly pattern.

AUTHORS
  uvgVPCCenc contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package atlas provides the atlas context: ASPS, AFPS and per-frame
// atlas tile layers, their size pre-pass, and NAL emission in classical
// and low-delay interleaving modes.
package atlas

import "github.com/ausocean/uvgvpccenc/bitstream"

// NAL unit types relevant to the atlas sub-bitstream.
const (
	NALASPS = 0
	NALAFPS = 1
	NALATL  = 2 // Coded tile group data unit (I_TILE), actually NAL_TRAIL_N-ish.
	NALEOB  = 16
)

// ASPS is the atlas sequence parameter set, built from Parameters and a
// GOF per spec.md §4.5.
type ASPS struct {
	ASPSID int

	FrameWidth, FrameHeight int

	Geometry3DBitDepthMinus1 int // GeoBitDepthInput.
	Geometry2DBitDepthMinus1 int // Fixed at 7.

	Log2MaxAtlasFrameOrderCntLsbMinus4 int // Fixed at 6.

	NumRefAtlasFrameListsInASPS int // Fixed at 1.
	RefListNumRefEntries        int // Fixed at 1.

	Log2PatchPackingBlockSize int // log2(occupancyMapDSResolution).

	MapCountMinus1 int // 1 if doubleLayer else 0.

	// V-PCC extension.
	VPCCExtensionPresent   bool // Always true.
	RemoveDuplicatePointEnabled bool // Always true.
}

// NewASPS builds an ASPS from the supplied parameters.
func NewASPS(aspsID, frameWidth, frameHeight, geoBitDepthInput int, dsResolution int, doubleLayer bool) *ASPS {
	mapCount := 0
	if doubleLayer {
		mapCount = 1
	}
	return &ASPS{
		ASPSID:                             aspsID,
		FrameWidth:                         frameWidth,
		FrameHeight:                        frameHeight,
		Geometry3DBitDepthMinus1:           geoBitDepthInput,
		Geometry2DBitDepthMinus1:           7,
		Log2MaxAtlasFrameOrderCntLsbMinus4: 6,
		NumRefAtlasFrameListsInASPS:        1,
		RefListNumRefEntries:               1,
		Log2PatchPackingBlockSize:          log2Exact(dsResolution),
		MapCountMinus1:                     mapCount,
		VPCCExtensionPresent:               true,
		RemoveDuplicatePointEnabled:        true,
	}
}

// Log2MaxAtlasFrmOrderCntLsb returns log2_max_atlas_frame_order_cnt_lsb, as
// used by the per-frame tile header to compute atlas_frm_order_cnt_lsb
// (spec.md §4.5).
func (a *ASPS) Log2MaxAtlasFrmOrderCntLsb() int {
	return a.Log2MaxAtlasFrameOrderCntLsbMinus4 + 4
}

// Write emits the ASPS RBSP syntax, per spec.md §4.5, ending with RBSP
// trailing bits.
func (a *ASPS) Write(w *bitstream.Writer) {
	w.PutUE(uint64(a.ASPSID))
	w.PutUE(uint64(a.FrameWidth))
	w.PutUE(uint64(a.FrameHeight))
	w.Put(uint64(a.Geometry3DBitDepthMinus1), 5)
	w.Put(uint64(a.Geometry2DBitDepthMinus1), 5)
	w.PutUE(uint64(a.Log2PatchPackingBlockSize))
	w.Put(uint64(a.Log2MaxAtlasFrameOrderCntLsbMinus4), 4)

	w.PutUE(uint64(a.NumRefAtlasFrameListsInASPS))
	for i := 0; i < a.NumRefAtlasFrameListsInASPS; i++ {
		w.PutUE(uint64(a.RefListNumRefEntries))
		for j := 0; j < a.RefListNumRefEntries; j++ {
			// Entries are delta AFOC values; a single zero-delta entry is
			// sufficient for the reference list shape required by the
			// scheduler/muxer (spec.md §3: "a single reference list with
			// one entry").
			w.PutUE(0)
		}
	}

	w.PutUE(uint64(a.MapCountMinus1))

	w.PutFlag(a.VPCCExtensionPresent)
	if a.VPCCExtensionPresent {
		w.PutFlag(a.RemoveDuplicatePointEnabled)
	}

	w.RBSPTrailingBits()
}

// log2Exact returns log2(n) for a power of two n. It panics for n <= 0 or
// n not a power of two, since this is always derived from a validated
// configuration value (spec.md §7: configuration invariants are checked
// before this point).
func log2Exact(n int) int {
	if n <= 0 || n&(n-1) != 0 {
		panic("atlas: log2Exact requires a positive power of two")
	}
	k := 0
	for n > 1 {
		n >>= 1
		k++
	}
	return k
}
