/*
NAME
  mux_test.go

DESCRIPTION
  mux_test.go checks the classical-mode GOF muxer's chunk invariant and
  its non-decreasing precision across successive GOFs, per spec.md §4.7
  and §8.

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

	"github.com/google/go-cmp/cmp"

	"github.com/ausocean/uvgvpccenc/annexb"
	"github.com/ausocean/uvgvpccenc/atlas"
	"github.com/ausocean/uvgvpccenc/frame"
	"github.com/ausocean/uvgvpccenc/vps"
)

// fabricateEncoderStream builds an Annex-B byte stream from nalBodies and
// transcodes it into 4-byte-prefix sample-stream form, mimicking a 2D
// video encoder's output (spec.md §6).
func fabricateEncoderStream(t *testing.T, nalBodies [][]byte) []byte {
	t.Helper()
	var annexB []byte
	for _, body := range nalBodies {
		annexB = append(annexB, 0, 0, 0, 1)
		annexB = append(annexB, body...)
	}
	out, _, err := annexb.ToSampleStream(annexB, encoderPrecision, false)
	if err != nil {
		t.Fatalf("fabricateEncoderStream: %v", err)
	}
	return out
}

func prologAndPictures(t *testing.T, nbPictures int) []byte {
	t.Helper()
	nals := [][]byte{{0xA0}, {0xA1}, {0xA2}, {0xA3, 0x00}} // 3 parameter sets + 1 SEI.
	for i := 0; i < nbPictures; i++ {
		nals = append(nals, []byte{byte(0xB0 + i), byte(i), byte(i + 1)})
	}
	return fabricateEncoderStream(t, nals)
}

func oneFrameContext(t *testing.T) *atlas.Context {
	t.Helper()
	asps := atlas.NewASPS(0, 256, 256, 10, 4, false)
	afps := atlas.NewAFPS(0, 0)
	f := &frame.Frame{ID: 0}
	tile := atlas.NewTileLayer(f, asps, 0, 4, false)
	return atlas.NewContext(asps, afps, []*atlas.TileLayer{tile})
}

func TestMuxClassicalChunkInvariant(t *testing.T) {
	v := vps.Build(0, 256, 256, false, vps.CodecGroupHEVCMain10)
	atlasCtx := oneFrameContext(t)
	atlasBytes, err := atlasCtx.EmitClassical()
	if err != nil {
		t.Fatalf("EmitClassical: %v", err)
	}

	in := GOFInput{
		GOFID:             0,
		VPSBytes:          v.Bytes(),
		AtlasSubBitstream: atlasBytes,
		OVD:               prologAndPictures(t, 1),
		GVD:               prologAndPictures(t, 1),
		AVD:               prologAndPictures(t, 1),
		AtlasID:           0,
	}

	m := NewMuxer(nil)
	c, err := m.MuxClassical(in)
	if err != nil {
		t.Fatalf("MuxClassical: %v", err)
	}

	const headerByte = 1
	overhead := headerByte + 5*(m.precision+unitHeaderSize)
	if err := c.CheckInvariant(overhead); err != nil {
		t.Fatal(err)
	}

	want := []int{len(in.VPSBytes), len(in.AtlasSubBitstream), len(in.OVD), len(in.GVD), len(in.AVD)}
	if diff := cmp.Diff(want, c.UnitSizes); diff != "" {
		t.Fatalf("unit sizes mismatch (-want +got):\n%s", diff)
	}
}

func TestMuxClassicalPrecisionNeverDecreases(t *testing.T) {
	m := NewMuxer(nil)

	small := GOFInput{
		GOFID:             0,
		VPSBytes:          []byte{1, 2, 3, 4},
		AtlasSubBitstream: []byte{1, 2, 3, 4},
		OVD:               []byte{1, 2},
		GVD:               []byte{1, 2},
		AVD:               []byte{1, 2},
	}
	if _, err := m.MuxClassical(small); err != nil {
		t.Fatalf("MuxClassical(small): %v", err)
	}
	firstPrecision := m.precision

	large := GOFInput{
		GOFID:             1,
		VPSBytes:          []byte{1, 2, 3, 4},
		AtlasSubBitstream: make([]byte, 1<<20),
		OVD:               []byte{1, 2},
		GVD:               []byte{1, 2},
		AVD:               []byte{1, 2},
	}
	if _, err := m.MuxClassical(large); err != nil {
		t.Fatalf("MuxClassical(large): %v", err)
	}
	afterLarge := m.precision
	if afterLarge <= firstPrecision {
		t.Fatalf("precision did not grow: first=%d after-large=%d", firstPrecision, afterLarge)
	}

	if _, err := m.MuxClassical(small); err != nil {
		t.Fatalf("MuxClassical(small again): %v", err)
	}
	if m.precision != afterLarge {
		t.Fatalf("precision decreased after a small GOF: was %d, now %d", afterLarge, m.precision)
	}
}

func TestMuxClassicalRejectsMissingVPS(t *testing.T) {
	m := NewMuxer(nil)
	_, err := m.MuxClassical(GOFInput{AtlasSubBitstream: []byte{1}})
	if err == nil {
		t.Fatal("expected error for missing VPS")
	}
}
