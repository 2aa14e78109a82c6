/*
NAME
  generator.go

DESCRIPTION
  generator.go defines the patch generator collaborator contract of
  spec.md §1/§2: "the patch generator (3D-to-2D segmentation)" is
  deliberately out of scope; only its interface and a minimal reference
  implementation live here, sufficient to produce a frame.Patch list the
  rest of the pipeline (allocation, packing, map generation, atlas
  emission) can run against. Grounded on the
  device.AVDevice/io.Reader-shaped collaborator interfaces in
  github.com/ausocean/av/device.

AUTHORS
  uvgVPCCenc contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package patchpack provides the patch generation, allocation, packing
// (intra and inter-GOF) and map generation collaborator contracts, plus
// minimal reference implementations sufficient to exercise the
// scheduler and muxer end to end.
package patchpack

import (
	"fmt"

	"github.com/ausocean/uvgvpccenc/frame"
)

// Generator projects a frame's 3D points onto one or more 2D patches
// (spec.md §2's PatchGen stage).
type Generator interface {
	Generate(f *frame.Frame) error
}

// NewGenerator returns a reference Generator. It projects every point
// onto projection plane 0 and emits a single bounding-box patch per
// frame: a structurally valid but non-optimal segmentation, since the
// real 3D-to-2D segmentation algorithm is out of scope (spec.md §1).
func NewGenerator() Generator { return refGenerator{} }

type refGenerator struct{}

func (refGenerator) Generate(f *frame.Frame) error {
	if len(f.Points) == 0 {
		f.PatchList = nil
		return nil
	}

	minU, minV, minD := f.Points[0].X, f.Points[0].Y, f.Points[0].Z
	maxU, maxV, maxD := minU, minV, minD
	for _, p := range f.Points[1:] {
		if p.X < minU {
			minU = p.X
		}
		if p.X > maxU {
			maxU = p.X
		}
		if p.Y < minV {
			minV = p.Y
		}
		if p.Y > maxV {
			maxV = p.Y
		}
		if p.Z < minD {
			minD = p.Z
		}
		if p.Z > maxD {
			maxD = p.Z
		}
	}

	widthPx := int(maxU-minU) + 1
	heightPx := int(maxV-minV) + 1
	if widthPx <= 0 || heightPx <= 0 {
		return fmt.Errorf("patchpack: degenerate bounding box for frame %d", f.ID)
	}

	f.PatchList = []frame.Patch{{
		PatchPpi:               0,
		PosU:                   int(minU),
		PosV:                   int(minV),
		PosD:                   int(minD),
		WidthInPixel:           widthPx,
		HeightInPixel:          heightPx,
		BestMatchIdx:           frame.InvalidPatchIndex,
		UnionPatchReferenceIdx: frame.InvalidPatchIndex,
	}}
	return nil
}
