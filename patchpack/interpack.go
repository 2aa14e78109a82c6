/*
NAME
  interpack.go

DESCRIPTION
  interpack.go implements GofInterPack, the GOF-scope RA-mode packing
  stage of spec.md §2/§4.2: patches are matched frame-to-frame by
  intersection-over-union, matched patches are placed at a shared atlas
  location (a "union patch"), and unmatched patches fall back to
  independent placement. IoU is computed with gonum.org/v1/gonum/floats,
  the same package the teacher's turbidity probe
  (github.com/ausocean/av/cmd/rv/probe.go) uses for its sharpness/contrast
  statistics, here put to geometric use instead.

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

	"gonum.org/v1/gonum/floats"

	"github.com/ausocean/uvgvpccenc/frame"
)

// GofInterPack packs every frame in g, matching each frame's patches
// against the previous frame's by IoU and sharing placement for any pair
// at or above iouThreshold (a "union patch"), per spec.md §8's scenario
// 2 ("both frames' patches share the same omDSPosX/Y/axisSwap").
func (refPacker) GofInterPack(g *frame.GOF, mapWidth, dsResolution int, iouThreshold float64) (int, error) {
	if len(g.Frames) == 0 {
		return 0, nil
	}
	for _, f := range g.Frames {
		if err := (refPacker{}).AllocOM(f, dsResolution); err != nil {
			return 0, err
		}
	}

	mapWidthInBlk := mapWidth / dsResolution
	if mapWidthInBlk <= 0 {
		return 0, fmt.Errorf("patchpack: GofInterPack: invalid mapWidth %d for dsResolution %d", mapWidth, dsResolution)
	}

	unionCount := 0
	first := g.Frames[0]
	placeRow(first.PatchList, mapWidthInBlk)

	for i := 1; i < len(g.Frames); i++ {
		prev, cur := g.Frames[i-1], g.Frames[i]
		n := len(prev.PatchList)
		if len(cur.PatchList) < n {
			n = len(cur.PatchList)
		}
		matched := make([]bool, len(cur.PatchList))
		for j := 0; j < n; j++ {
			iou := patchIoU(&prev.PatchList[j], &cur.PatchList[j])
			if iou >= iouThreshold {
				cur.PatchList[j].BestMatchIdx = j
				cur.PatchList[j].UnionPatchReferenceIdx = j
				cur.PatchList[j].OMDSPosX = prev.PatchList[j].OMDSPosX
				cur.PatchList[j].OMDSPosY = prev.PatchList[j].OMDSPosY
				cur.PatchList[j].AxisSwap = prev.PatchList[j].AxisSwap
				matched[j] = true
				unionCount++
			}
		}
		var unmatched []int
		for j, m := range matched {
			if !m {
				unmatched = append(unmatched, j)
			}
		}
		if len(unmatched) > 0 {
			patches := make([]frame.Patch, len(unmatched))
			for k, j := range unmatched {
				patches[k] = cur.PatchList[j]
			}
			placeRow(patches, mapWidthInBlk)
			for k, j := range unmatched {
				cur.PatchList[j].OMDSPosX = patches[k].OMDSPosX
				cur.PatchList[j].OMDSPosY = patches[k].OMDSPosY
			}
		}
	}

	g.FinalizeMapHeight()
	for _, f := range g.Frames {
		f.MapHeight = maxPatchRowHeight(f.PatchList, dsResolution)
	}
	g.FinalizeMapHeight()
	return unionCount, nil
}

// placeRow lays patches left to right in occupancy-block rows, identical
// to refPacker.IntraPack's placement rule but operating on a plain
// slice so it can be reused for the "unmatched residue" of an inter-GOF
// pack.
func placeRow(patches []frame.Patch, mapWidthInBlk int) {
	x, y, rowHeight := 0, 0, 0
	for i := range patches {
		p := &patches[i]
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
}

func maxPatchRowHeight(patches []frame.Patch, dsResolution int) int {
	maxY := 0
	for _, p := range patches {
		if b := p.OMDSPosY + p.HeightInOccBlk; b > maxY {
			maxY = b
		}
	}
	return roundUp(maxY*dsResolution, 8)
}

// patchIoU returns the intersection-over-union of a and b's footprint
// areas (in occupancy blocks), computed before either has been placed on
// the shared atlas. Matching is by shape rather than by position: two
// patches of equal size are a perfect match (IoU 1), which is what
// spec.md §8's scenario 2 (two identical frames) exercises.
func patchIoU(a, b *frame.Patch) float64 {
	areas := []float64{
		float64(a.WidthInOccBlk * a.HeightInOccBlk),
		float64(b.WidthInOccBlk * b.HeightInOccBlk),
	}
	if areas[0] == 0 || areas[1] == 0 {
		return 0
	}
	inter := floats.Min(areas)
	union := areas[0] + areas[1] - inter
	return inter / union
}
