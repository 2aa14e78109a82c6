/*
NAME
  alloc.go

DESCRIPTION
  alloc.go implements the AllocOM and IntraPack stages of spec.md §2/§4.2:
  AllocOM rounds each patch up to the occupancy downsample block size
  (maintaining frame.Patch's widthInOccBlk*dsResolution == widthInPixel
  invariant) and IntraPack places patches left-to-right in occupancy-block
  rows on the atlas, the simplest packing that satisfies
  frame.Patch.CheckInvariants without any real geometric optimisation
  (deliberately out of scope, spec.md §1).

AUTHORS
  uvgVPCCenc contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package patchpack

import (
	"fmt"

	"github.com/ausocean/uvgvpccenc/frame"
)

// Packer allocates occupancy-map space for a frame's patches and places
// them on the atlas (spec.md §2's AllocOM+IntraPack, and GofInterPack for
// RA mode).
type Packer interface {
	AllocOM(f *frame.Frame, dsResolution int) error
	IntraPack(f *frame.Frame, mapWidth int) error
	GofInterPack(g *frame.GOF, mapWidth, dsResolution int, iouThreshold float64) (unionPatches int, err error)
}

// NewPacker returns a reference Packer.
func NewPacker() Packer { return refPacker{} }

type refPacker struct{}

// AllocOM rounds each patch's pixel dimensions up to a multiple of
// dsResolution and derives its occupancy-block dimensions, per spec.md
// §3's patch invariant.
func (refPacker) AllocOM(f *frame.Frame, dsResolution int) error {
	if dsResolution <= 0 {
		return fmt.Errorf("patchpack: AllocOM: occupancyMapDSResolution must be positive, got %d", dsResolution)
	}
	for i := range f.PatchList {
		p := &f.PatchList[i]
		p.WidthInPixel = roundUp(p.WidthInPixel, dsResolution)
		p.HeightInPixel = roundUp(p.HeightInPixel, dsResolution)
		p.WidthInOccBlk = p.WidthInPixel / dsResolution
		p.HeightInOccBlk = p.HeightInPixel / dsResolution
		p.Occ = make([]bool, p.WidthInOccBlk*p.HeightInOccBlk)
		for j := range p.Occ {
			p.Occ[j] = true // Reference packer: every allocated block is occupied.
		}
	}
	return nil
}

// IntraPack places f's patches left-to-right along one occupancy-block
// row, wrapping to a new row when mapWidth (in blocks) would be
// exceeded.
func (refPacker) IntraPack(f *frame.Frame, mapWidth int) error {
	if len(f.PatchList) == 0 {
		return nil
	}
	mapWidthInBlk := mapWidth / dsResolutionOf(f)
	if mapWidthInBlk <= 0 {
		return fmt.Errorf("patchpack: IntraPack: invalid mapWidth %d for frame %d", mapWidth, f.ID)
	}

	x, y, rowHeight := 0, 0, 0
	for i := range f.PatchList {
		p := &f.PatchList[i]
		if x+p.WidthInOccBlk > mapWidthInBlk {
			x = 0
			y += rowHeight
			rowHeight = 0
		}
		p.OMDSPosX, p.OMDSPosY = x, y
		x += p.WidthInOccBlk
		if p.HeightInOccBlk > rowHeight {
			rowHeight = p.HeightInOccBlk
		}
	}

	maxY := 0
	for _, p := range f.PatchList {
		if b := p.OMDSPosY + p.HeightInOccBlk; b > maxY {
			maxY = b
		}
	}
	f.MapHeight = roundUp(maxY*dsResolutionOf(f), 8)
	return nil
}

// dsResolutionOf recovers the downsample resolution from an already
// AllocOM'd patch (widthInOccBlk*dsResolution == widthInPixel); frames
// with no patches have no recoverable resolution, so callers must AllocOM
// before IntraPack, per spec.md §4.2's job ordering.
func dsResolutionOf(f *frame.Frame) int {
	for _, p := range f.PatchList {
		if p.WidthInOccBlk > 0 {
			return p.WidthInPixel / p.WidthInOccBlk
		}
	}
	return 1
}

func roundUp(n, multiple int) int {
	if multiple <= 0 {
		return n
	}
	if n%multiple == 0 {
		return n
	}
	return n + (multiple - n%multiple)
}
