/*
NAME
  context_test.go

DESCRIPTION
  context_test.go validates the atlas size pre-pass and NAL emission
  invariants of spec.md §8.

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
	"testing"

	"github.com/ausocean/uvgvpccenc/frame"
)

func newTestContext(t *testing.T, nFrames int) *Context {
	t.Helper()
	asps := NewASPS(0, 256, 256, 10, 4, false)
	afps := NewAFPS(0, 0)
	var tiles []*TileLayer
	for i := 0; i < nFrames; i++ {
		f := &frame.Frame{
			ID:               i,
			GeoBitDepthInput: 10,
			PatchList: []frame.Patch{
				{
					PatchPpi:      0,
					PosU:          1,
					PosV:          1,
					PosD:          1,
					WidthInPixel:  16,
					HeightInPixel: 16,
					OMDSPosX:      0,
					OMDSPosY:      0,
				},
			},
		}
		tiles = append(tiles, NewTileLayer(f, asps, i, 4, false))
	}
	return NewContext(asps, afps, tiles)
}

func TestSizePrePassMatchesEmission(t *testing.T) {
	c := newTestContext(t, 2)
	total, err := c.Size()
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	out, err := c.EmitClassical()
	if err != nil {
		t.Fatalf("EmitClassical: %v", err)
	}
	if len(out) != total {
		t.Fatalf("pre-pass total %d != emitted length %d", total, len(out))
	}
}

// TestNALLengthPrefixesAreAccurate checks spec.md §8: "For every emitted
// NAL in an atlas sub-bitstream, its declared length equals the number of
// bytes between its length prefix and the next prefix (or end)."
func TestNALLengthPrefixesAreAccurate(t *testing.T) {
	c := newTestContext(t, 2)
	out, err := c.EmitClassical()
	if err != nil {
		t.Fatalf("EmitClassical: %v", err)
	}
	precision := c.Precision
	i := 1 // Skip sample-stream header byte.
	for i < len(out) {
		if i+precision > len(out) {
			t.Fatalf("truncated length prefix at %d", i)
		}
		size := 0
		for j := 0; j < precision; j++ {
			size = size<<8 | int(out[i+j])
		}
		i += precision
		if i+size > len(out) {
			t.Fatalf("NAL at %d declares size %d, overruns buffer (len %d)", i, size, len(out))
		}
		i += size
	}
	if i != len(out) {
		t.Fatalf("trailing garbage: consumed %d of %d bytes", i, len(out))
	}
}

func TestPrecisionBoundary(t *testing.T) {
	if got := precisionFor(254); got != 1 {
		t.Fatalf("254: got precision %d, want 1", got)
	}
	if got := precisionFor(255); got != 1 {
		t.Fatalf("255: got precision %d, want 1", got)
	}
	if got := precisionFor(256); got != 2 {
		t.Fatalf("256: got precision %d, want 2", got)
	}
	if got := precisionFor(0); got != 1 {
		t.Fatalf("0: got precision %d, want 1", got)
	}
	if got := precisionFor(1); got != 1 {
		t.Fatalf("1: got precision %d, want 1", got)
	}
}

func TestLowDelayFirstFrameCarriesParamSets(t *testing.T) {
	c := newTestContext(t, 2)
	if _, err := c.Size(); err != nil {
		t.Fatalf("Size: %v", err)
	}
	first, err := c.EmitLowDelay(0)
	if err != nil {
		t.Fatalf("EmitLowDelay(0): %v", err)
	}
	second, err := c.EmitLowDelay(1)
	if err != nil {
		t.Fatalf("EmitLowDelay(1): %v", err)
	}
	if len(first) <= len(second) {
		t.Fatalf("expected first low-delay AD unit to be larger (carries ASPS+AFPS): %d vs %d", len(first), len(second))
	}
}

func TestRefAtlasFrameListASPSFlagFalseIsFatal(t *testing.T) {
	c := newTestContext(t, 1)
	c.RefAtlasFrameListASPSFlag = false
	if _, err := c.Size(); err != ErrNotImplemented {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
}
