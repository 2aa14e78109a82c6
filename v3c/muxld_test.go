/*
NAME
  muxld_test.go

DESCRIPTION
  muxld_test.go checks the low-delay GOF muxer: the running NAL index
  advances by one (or two, for a
  double-layer GVD/AVD) picture NAL per frame, and the resulting chunk
  satisfies the per-GOF size invariant, per spec.md §4.8 and §8.

AUTHORS
  uvgVPCCenc contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package v3c

import (
	"testing"

	"github.com/ausocean/uvgvpccenc/atlas"
	"github.com/ausocean/uvgvpccenc/frame"
)

func twoFrameContext(t *testing.T) *atlas.Context {
	t.Helper()
	asps := atlas.NewASPS(0, 256, 256, 10, 4, false)
	afps := atlas.NewAFPS(0, 0)
	var tiles []*atlas.TileLayer
	for i := 0; i < 2; i++ {
		f := &frame.Frame{ID: i}
		tiles = append(tiles, atlas.NewTileLayer(f, asps, i, 4, false))
	}
	return atlas.NewContext(asps, afps, tiles)
}

func TestMuxLowDelaySingleLayer(t *testing.T) {
	atlasCtx := twoFrameContext(t)

	in := LowDelayInput{
		GOFID:       0,
		VPSBytes:    []byte{0, 0, 0, 0},
		Atlas:       atlasCtx,
		NbFrames:    2,
		DoubleLayer: false,
		OVD:         prologAndPictures(t, 2),
		GVD:         prologAndPictures(t, 2),
		AVD:         prologAndPictures(t, 2),
	}

	m := NewMuxer(nil)
	c, err := m.MuxLowDelay(in)
	if err != nil {
		t.Fatalf("MuxLowDelay: %v", err)
	}

	// VPS + (AD, OVD, GVD, AVD) per frame.
	wantUnits := 1 + 4*2
	if len(c.UnitSizes) != wantUnits {
		t.Fatalf("got %d units, want %d", len(c.UnitSizes), wantUnits)
	}

	const headerByte = 1
	overhead := headerByte + wantUnits*(m.precision+unitHeaderSize)
	if err := c.CheckInvariant(overhead); err != nil {
		t.Fatal(err)
	}
}

func TestMuxLowDelayDoubleLayerConsumesTwoPicturesPerFrame(t *testing.T) {
	atlasCtx := twoFrameContext(t)

	in := LowDelayInput{
		GOFID:       0,
		VPSBytes:    []byte{0, 0, 0, 0},
		Atlas:       atlasCtx,
		NbFrames:    2,
		DoubleLayer: true,
		OVD:         prologAndPictures(t, 2),  // OVD never doubles.
		GVD:         prologAndPictures(t, 4),  // 2 frames * 2 maps.
		AVD:         prologAndPictures(t, 4),
	}

	m := NewMuxer(nil)
	c, err := m.MuxLowDelay(in)
	if err != nil {
		t.Fatalf("MuxLowDelay: %v", err)
	}
	if len(c.UnitSizes) != 1+4*2 {
		t.Fatalf("got %d units, want %d", len(c.UnitSizes), 1+4*2)
	}
}

func TestMuxLowDelayRunsOutOfPictureNALsIsAnError(t *testing.T) {
	atlasCtx := twoFrameContext(t)

	in := LowDelayInput{
		GOFID:    0,
		VPSBytes: []byte{0, 0, 0, 0},
		Atlas:    atlasCtx,
		NbFrames: 2,
		OVD:      prologAndPictures(t, 1), // Only one picture NAL for two frames.
		GVD:      prologAndPictures(t, 2),
		AVD:      prologAndPictures(t, 2),
	}

	m := NewMuxer(nil)
	if _, err := m.MuxLowDelay(in); err == nil {
		t.Fatal("expected an error when the encoder stream runs out of picture NALs")
	}
}

func TestMuxLowDelayRejectsMissingAtlas(t *testing.T) {
	m := NewMuxer(nil)
	_, err := m.MuxLowDelay(LowDelayInput{VPSBytes: []byte{0, 0, 0, 0}, NbFrames: 1})
	if err == nil {
		t.Fatal("expected error for missing atlas context")
	}
}
