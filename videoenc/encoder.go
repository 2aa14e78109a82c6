/*
NAME
  encoder.go

DESCRIPTION
  encoder.go defines the 2D video encoder collaborator contract of
  spec.md §1: "the 2D video encoder (treated as a black box producing
  Annex-B byte streams)". uvgVPCCenc drives three instances of this per
  GOF (occupancy, geometry, attribute); only the interface and a minimal
  reference implementation live here, grounded on the
  device.AVDevice/io.Reader collaborator shape in
  github.com/ausocean/av/device and the codec Name enum in
  github.com/ausocean/av/codec/codecutil.

AUTHORS
  uvgVPCCenc contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package videoenc defines the 2D video encoder collaborator contract
// and a minimal reference implementation sufficient to drive the muxer
// end to end in tests.
package videoenc

import "fmt"

// Name identifies a 2D video codec implementation.
type Name int

const (
	Kvazaar Name = iota // HEVC (codec group 1 in vps.VPS).
	Uvg266              // VVC (codec group 3 in vps.VPS).
)

func (n Name) String() string {
	switch n {
	case Kvazaar:
		return "kvazaar"
	case Uvg266:
		return "uvg266"
	default:
		return "unknown"
	}
}

// Params carries the per-plane encoding configuration resolved from a
// frozen Parameters block (spec.md §6): target QP, frame geometry and
// thread count. Planes requiring lossless coding (the occupancy map) set
// Lossless.
type Params struct {
	Codec  Name
	Width  int
	Height int
	QP     int
	Lossless bool

	// Preset is the resolved speed/quality knob from config.Parameters'
	// presetName (spec.md §4.9's "resolves the preset"), passed through
	// verbatim to the underlying encoder.
	Preset string

	// NumThreads is passed through to the underlying encoder, which may
	// spawn its own worker threads (spec.md §5: "treated as black boxes").
	NumThreads int
}

// Encoder encodes a sequence of raw per-frame planes into a single
// Annex-B byte stream covering the whole GOF. Frame planes are provided
// pre-packed by the caller (occupancy/geometry/attribute map generation
// is out of scope here).
type Encoder interface {
	Encode(frames [][]byte, p Params) ([]byte, error)
}

// NewEncoder returns a reference Encoder for name. It does not invoke a
// real codec; it synthesizes a minimal, structurally valid Annex-B
// stream (parameter sets, one SEI, one picture NAL per input frame) so
// that downstream annexb/v3c code can be exercised without a real 2D
// encoder present.
func NewEncoder(name Name) Encoder {
	return &referenceEncoder{name: name}
}

type referenceEncoder struct {
	name Name
}

// Encode synthesizes an Annex-B stream: VPS/SPS/PPS placeholder NALs,
// one SEI NAL, then one picture NAL per frame whose payload is the
// frame's plane bytes (the reference encoder performs no actual
// compression). Every NAL payload gets emulation-prevention bytes
// inserted, so a payload never contains a start code.
func (e *referenceEncoder) Encode(frames [][]byte, p Params) ([]byte, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("videoenc: Encode requires at least one frame")
	}

	var out []byte
	writeNAL := func(nalType byte, payload []byte) {
		out = append(out, 0, 0, 0, 1) // 4-byte start code.
		out = append(out, nalType)
		// Emulation-prevention bytes keep payload bytes from forming a
		// start code.
		zeros := 0
		for _, b := range payload {
			if zeros >= 2 && b <= 3 {
				out = append(out, 0x03)
				zeros = 0
			}
			out = append(out, b)
			if b == 0 {
				zeros++
			} else {
				zeros = 0
			}
		}
	}

	// Parameter sets: a single placeholder NAL each stands in for the
	// codec's real VPS/SPS/PPS; their exact content is opaque to the
	// muxer, which only counts and re-prefixes them (spec.md §4.8).
	writeNAL(0x40, []byte{byte(p.Width >> 8), byte(p.Width), byte(p.Height >> 8), byte(p.Height)})
	writeNAL(0x42, []byte{byte(p.QP)})
	writeNAL(0x44, nil)
	writeNAL(0x4E, nil) // SEI prefix.

	for _, f := range frames {
		writeNAL(0x02, f) // Coded slice picture NAL.
	}

	return out, nil
}
