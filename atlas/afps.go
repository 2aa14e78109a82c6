/*
NAME
  afps.go

DESCRIPTION
  afps.go builds and writes the atlas frame parameter set, per spec.md
  §4.5.

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

import "github.com/ausocean/uvgvpccenc/bitstream"

// AFPS is the atlas frame parameter set. A single tile per atlas frame is
// assumed throughout, per spec.md §4.5.
type AFPS struct {
	AFPSID int
	ASPSID int

	LodModeEnabled                        bool // Always false.
	Raw3DOffsetBitCountExplicitModeFlag    bool // Always false.
}

// NewAFPS builds an AFPS referencing the given ASPS id.
func NewAFPS(afpsID, aspsID int) *AFPS {
	return &AFPS{AFPSID: afpsID, ASPSID: aspsID}
}

// Write emits the AFPS RBSP syntax.
func (f *AFPS) Write(w *bitstream.Writer) {
	w.PutUE(uint64(f.AFPSID))
	w.PutUE(uint64(f.ASPSID))

	// atlas_frame_tile_information: single tile, explicit signalling off.
	w.PutFlag(true) // single_tile_in_atlas_frame_flag: one tile, no further signalling needed.

	w.PutFlag(f.LodModeEnabled)
	w.PutFlag(f.Raw3DOffsetBitCountExplicitModeFlag)

	w.RBSPTrailingBits()
}
