/*
NAME
  frame.go

DESCRIPTION
  frame.go defines the data model shared by the encoding pipeline: the
  per-frame point cloud, the patches projected from it, and the group of
  frames (GOF) that owns a run of consecutive frames.

AUTHORS
  uvgVPCCenc contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package frame provides the Frame, Patch and GOF data model that flows
// through the encoding pipeline.
package frame

import "fmt"

// InvalidPatchIndex is the sentinel value for Patch.BestMatchIdx and
// Patch.UnionPatchReferenceIdx when a patch has no match/union reference.
const InvalidPatchIndex = -1

// Point is a single 3D point with an 8-bit RGB attribute.
type Point struct {
	X, Y, Z    uint32 // Geometry coordinates, valid up to 2^GeoBitDepth-1.
	R, G, B    uint8
}

// Patch is a rectangular 2D region projected from the point cloud onto one
// of six projection planes.
type Patch struct {
	PatchPpi int // Projection plane id, 0..5.

	// 3D origin of the patch within the point cloud's bounding box.
	PosU, PosV, PosD int

	// Size in pixels.
	WidthInPixel, HeightInPixel int

	// Size in occupancy-map-downsampled blocks.
	WidthInOccBlk, HeightInOccBlk int

	// Placement on the atlas, in occupancy-block units.
	OMDSPosX, OMDSPosY int

	AxisSwap bool

	// Occ is the patch's own binary occupancy bitmap, row-major,
	// WidthInOccBlk*HeightInOccBlk entries.
	Occ []bool

	// BestMatchIdx links this patch to a patch in the previous frame, or
	// InvalidPatchIndex if unmatched.
	BestMatchIdx int

	// UnionPatchReferenceIdx links this patch to a "union patch" computed
	// during inter-GOF packing, or InvalidPatchIndex if none.
	UnionPatchReferenceIdx int
}

// CheckInvariants validates the placement invariants of spec.md §3 against
// a map of the given downsample resolution and width (in occupancy
// blocks).
func (p *Patch) CheckInvariants(dsResolution, mapWidthInBlk, mapHeightInBlk int) error {
	if p.WidthInOccBlk*dsResolution != p.WidthInPixel {
		return fmt.Errorf("patch width invariant violated: %d*%d != %d", p.WidthInOccBlk, dsResolution, p.WidthInPixel)
	}
	if p.OMDSPosX+p.WidthInOccBlk > mapWidthInBlk {
		return fmt.Errorf("patch placement exceeds map width: %d+%d > %d", p.OMDSPosX, p.WidthInOccBlk, mapWidthInBlk)
	}
	if p.OMDSPosY+p.HeightInOccBlk > mapHeightInBlk {
		return fmt.Errorf("patch placement exceeds map height: %d+%d > %d", p.OMDSPosY, p.HeightInOccBlk, mapHeightInBlk)
	}
	return nil
}

// Maps holds the 2D maps generated for a frame. Layer2 fields are nil
// unless double-layer encoding is enabled.
type Maps struct {
	Occupancy []byte // Downsampled occupancy map, one byte per block (0 or 1).
	Geometry1 []byte
	Geometry2 []byte // nil unless double layer.
	Attribute1 []byte
	Attribute2 []byte // nil unless double layer.
}

// Frame represents one input point cloud, plus the fields filled in as it
// moves through the pipeline.
type Frame struct {
	ID               int // Position in ingest order.
	GeoBitDepthInput int // Bit depth of input geometry coordinates.

	Points []Point

	PatchList []Patch

	Maps Maps

	// MapHeight is the final per-frame map height: a multiple of 8 and of
	// the occupancy downsample block size.
	MapHeight int

	// MapWidth is the configured, GOF-wide atlas width.
	MapWidth int

	// gof is the GOF that owns this frame. Frame is owned by exactly one
	// GOF once assigned.
	gof *GOF
}

// setGOF assigns this frame to g. Only the owning GOF should call this.
func (f *Frame) setGOF(g *GOF) { f.gof = g }

// GOF returns the GOF that owns this frame, or nil if unassigned.
func (f *Frame) GOF() *GOF { return f.gof }

// DropOutOfRangeWithCallback drops points whose coordinates exceed
// 2^GeoBitDepthInput-1, invoking warn (if non-nil) once per dropped point
// with its index. This implements the "Input data error" behavior of
// spec.md §7: the frame proceeds with the offending points removed.
func (f *Frame) DropOutOfRangeWithCallback(warn func(idx int, p Point)) {
	limit := uint32(1)<<uint(f.GeoBitDepthInput) - 1
	kept := f.Points[:0]
	for i, p := range f.Points {
		if p.X > limit || p.Y > limit || p.Z > limit {
			if warn != nil {
				warn(i, p)
			}
			continue
		}
		kept = append(kept, p)
	}
	f.Points = kept
}

// GOF is a group of up to SizeGOF consecutive frames.
type GOF struct {
	ID int // Monotonically increasing GOF id.

	Frames []*Frame

	// MapHeight is the common map height selected after packing: the max
	// of any constituent frame's MapHeight.
	MapHeight int

	// VPSParameterSetID is gofId mod 16, per spec.md §3's VPS invariant.
	VPSParameterSetID int

	// The five V3C sub-objects, filled in as the pipeline progresses.
	VPS   interface{} // *vps.VPS, kept as interface{} to avoid an import cycle.
	Atlas interface{} // *atlas.Context

	// OVD, GVD, AVD are the encoded video sub-bitstreams, in 4-byte-prefix
	// sample-stream form (already transcoded from the 2D encoders' Annex-B
	// output), ready to hand to the muxer.
	OVD, GVD, AVD []byte
}

// NewGOF returns a new, empty GOF with the given id.
func NewGOF(id int) *GOF {
	return &GOF{ID: id, VPSParameterSetID: id % 16}
}

// AddFrame appends f to the GOF and assigns ownership.
func (g *GOF) AddFrame(f *Frame) {
	f.setGOF(g)
	g.Frames = append(g.Frames, f)
}

// Full reports whether the GOF has reached sizeGOF frames.
func (g *GOF) Full(sizeGOF int) bool { return len(g.Frames) >= sizeGOF }

// FinalizeMapHeight sets g.MapHeight to the max MapHeight of its frames,
// and propagates it back to each frame (spec.md §3: "the common mapHeight
// selected after packing (max of any constituent frame)").
func (g *GOF) FinalizeMapHeight() {
	max := 0
	for _, f := range g.Frames {
		if f.MapHeight > max {
			max = f.MapHeight
		}
	}
	g.MapHeight = max
	for _, f := range g.Frames {
		f.MapHeight = max
	}
}
