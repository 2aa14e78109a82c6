/*
NAME
  patchpack_test.go

DESCRIPTION
  patchpack_test.go exercises the Generator/Packer/MapGenerator reference
  implementations against spec.md §8's testable properties, in particular
  scenario 2: two identical frames in an RA-mode GOF must produce at least
  one union patch, with both frames' patches sharing the same placement.

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
	"testing"

	"github.com/ausocean/uvgvpccenc/frame"
)

func identicalFrame(id int) *frame.Frame {
	f := &frame.Frame{ID: id, GeoBitDepthInput: 10}
	for i := 0; i < 100; i++ {
		f.Points = append(f.Points, frame.Point{
			X: uint32(i % 10), Y: uint32(i / 10), Z: 0,
			R: 200, G: 100, B: 50,
		})
	}
	return f
}

func TestGofInterPackScenario2TwoIdenticalFrames(t *testing.T) {
	g := frame.NewGOF(0)
	g.AddFrame(identicalFrame(0))
	g.AddFrame(identicalFrame(1))

	gen := NewGenerator()
	for _, f := range g.Frames {
		if err := gen.Generate(f); err != nil {
			t.Fatalf("Generate: %v", err)
		}
	}

	pk := NewPacker()
	unionCount, err := pk.GofInterPack(g, 64, 4, 0.5)
	if err != nil {
		t.Fatalf("GofInterPack: %v", err)
	}
	if unionCount < 1 {
		t.Fatalf("want at least 1 union patch, got %d", unionCount)
	}

	p0, p1 := g.Frames[0].PatchList[0], g.Frames[1].PatchList[0]
	if p0.OMDSPosX != p1.OMDSPosX || p0.OMDSPosY != p1.OMDSPosY {
		t.Fatalf("union patches must share placement: frame0=(%d,%d) frame1=(%d,%d)",
			p0.OMDSPosX, p0.OMDSPosY, p1.OMDSPosX, p1.OMDSPosY)
	}
	if p0.AxisSwap != p1.AxisSwap {
		t.Fatal("union patches must share axisSwap")
	}
}

func TestAllocOMRoundsToOccupancyBlock(t *testing.T) {
	f := identicalFrame(0)
	if err := NewGenerator().Generate(f); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := NewPacker().AllocOM(f, 4); err != nil {
		t.Fatalf("AllocOM: %v", err)
	}
	p := f.PatchList[0]
	if p.WidthInOccBlk*4 != p.WidthInPixel {
		t.Fatalf("width invariant violated: %d*4 != %d", p.WidthInOccBlk, p.WidthInPixel)
	}
	if len(p.Occ) != p.WidthInOccBlk*p.HeightInOccBlk {
		t.Fatalf("occ bitmap size mismatch: got %d want %d", len(p.Occ), p.WidthInOccBlk*p.HeightInOccBlk)
	}
}

func TestIntraPackRespectsMapWidthAndInvariants(t *testing.T) {
	f := identicalFrame(0)
	if err := NewGenerator().Generate(f); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	pk := NewPacker()
	if err := pk.AllocOM(f, 4); err != nil {
		t.Fatalf("AllocOM: %v", err)
	}
	if err := pk.IntraPack(f, 64); err != nil {
		t.Fatalf("IntraPack: %v", err)
	}
	mapWidthInBlk := 64 / 4
	mapHeightInBlk := f.MapHeight / 4
	for i := range f.PatchList {
		if err := f.PatchList[i].CheckInvariants(4, mapWidthInBlk, mapHeightInBlk); err != nil {
			t.Fatalf("patch %d: %v", i, err)
		}
	}
}

func TestGenFrameMapsProducesSizedBuffers(t *testing.T) {
	f := identicalFrame(0)
	if err := NewGenerator().Generate(f); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	pk := NewPacker()
	if err := pk.AllocOM(f, 4); err != nil {
		t.Fatalf("AllocOM: %v", err)
	}
	if err := pk.IntraPack(f, 64); err != nil {
		t.Fatalf("IntraPack: %v", err)
	}

	mg := NewMapGenerator()
	g := frame.NewGOF(0)
	g.AddFrame(f)
	if err := mg.InitGOFMapGen(g, 64, 4, false); err != nil {
		t.Fatalf("InitGOFMapGen: %v", err)
	}
	if err := mg.GenFrameMaps(f); err != nil {
		t.Fatalf("GenFrameMaps: %v", err)
	}

	wantPixels := 64 * f.MapHeight
	if len(f.Maps.Geometry1) != wantPixels {
		t.Fatalf("geometry1 size = %d, want %d", len(f.Maps.Geometry1), wantPixels)
	}
	if len(f.Maps.Attribute1) != wantPixels {
		t.Fatalf("attribute1 size = %d, want %d", len(f.Maps.Attribute1), wantPixels)
	}
	if f.Maps.Geometry2 != nil || f.Maps.Attribute2 != nil {
		t.Fatal("single-layer frame must not populate layer-2 maps")
	}
	wantBlocks := (64 / 4) * (f.MapHeight / 4)
	if len(f.Maps.Occupancy) != wantBlocks {
		t.Fatalf("occupancy size = %d, want %d", len(f.Maps.Occupancy), wantBlocks)
	}
}

func TestGenFrameMapsDoubleLayerPopulatesLayer2(t *testing.T) {
	f := identicalFrame(0)
	if err := NewGenerator().Generate(f); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	pk := NewPacker()
	if err := pk.AllocOM(f, 4); err != nil {
		t.Fatalf("AllocOM: %v", err)
	}
	if err := pk.IntraPack(f, 64); err != nil {
		t.Fatalf("IntraPack: %v", err)
	}

	mg := NewMapGenerator()
	g := frame.NewGOF(0)
	g.AddFrame(f)
	if err := mg.InitGOFMapGen(g, 64, 4, true); err != nil {
		t.Fatalf("InitGOFMapGen: %v", err)
	}
	if err := mg.GenFrameMaps(f); err != nil {
		t.Fatalf("GenFrameMaps: %v", err)
	}
	if f.Maps.Geometry2 == nil || f.Maps.Attribute2 == nil {
		t.Fatal("double-layer frame must populate layer-2 maps")
	}
}
