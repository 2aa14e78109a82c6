/*
NAME
  muxld.go

DESCRIPTION
  muxld.go implements the low-delay-mode GOF muxer of spec.md §4.8: the
  same VPS unit as classical mode, followed by one AD/OVD/GVD/AVD unit
  per frame, so a decoder can start output before the whole GOF arrives.
  The running-index bookkeeping over the encoder's flat NAL list mirrors
  github.com/ausocean/av/codec/h264.Lex's frame-boundary walk over a
  single concatenated Annex-B buffer, generalised to in-memory slicing.

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
	"github.com/pkg/errors"

	"github.com/ausocean/uvgvpccenc/annexb"
	"github.com/ausocean/uvgvpccenc/atlas"
)

// encoderPrecision is the length-prefix width of the 2D video encoders'
// own sample-stream output, fixed at 4 bytes per spec.md §6.
const encoderPrecision = 4

// prologNALCount is the number of leading NALs (3 parameter sets, 1 SEI)
// an OVD/GVD/AVD encoder sample stream carries ahead of its picture NALs,
// attached once to frame 0's unit (spec.md §4.8).
const prologNALCount = 4

// LowDelayInput bundles one GOF's inputs for low-delay muxing.
type LowDelayInput struct {
	GOFID    int
	VPSBytes []byte
	Atlas    *atlas.Context
	NbFrames int

	DoubleLayer bool

	AtlasID                int
	AttributeIndex         int
	AttributePartitionIndex int

	// Encoder sample streams, 4-byte-prefix form (spec.md §6).
	OVD, GVD, AVD []byte
}

// nalWalker tracks a running position through a flat list of NAL
// descriptors parsed from a 4-byte-prefixed encoder sample stream, so
// successive frames consume one (or two) picture NALs in turn.
type nalWalker struct {
	data  []byte
	nals  []annexb.NAL
	next  int // Index of the next NAL not yet consumed, past the prolog.
}

func newNALWalker(data []byte) (*nalWalker, error) {
	if data == nil {
		return &nalWalker{}, nil
	}
	nals, err := annexb.Split(data, encoderPrecision)
	if err != nil {
		return nil, err
	}
	return &nalWalker{data: data, nals: nals, next: prologNALCount}, nil
}

// prolog returns the raw bytes of the leading prologNALCount NALs
// (length prefix plus body each), attached only to frame 0's unit.
func (w *nalWalker) prolog() []byte {
	if len(w.nals) < prologNALCount {
		return nil
	}
	start := w.nals[0].Offset
	end := w.nals[prologNALCount-1].Offset + encoderPrecision + w.nals[prologNALCount-1].Size
	return w.data[start:end]
}

// take consumes the next n picture NALs and returns each one's body
// (without its original length prefix, ready for 4-byte re-prefixing).
func (w *nalWalker) take(n int) ([][]byte, error) {
	bodies := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		if w.next >= len(w.nals) {
			return nil, errors.Errorf("v3c: low-delay mux: ran out of picture NALs at index %d", w.next)
		}
		nal := w.nals[w.next]
		bodyStart := nal.Offset + encoderPrecision
		bodies = append(bodies, w.data[bodyStart:bodyStart+nal.Size])
		w.next++
	}
	return bodies, nil
}

// packPictureUnit rewrites a video sub-bitstream's V3C unit payload: on
// frame 0 the prolog NALs are copied with their original 4-byte prefix
// intact, then each picture NAL taken is re-prefixed with a fresh 4-byte
// big-endian length (spec.md §4.8).
func packPictureUnit(w *nalWalker, frameIdx int, picturesPerFrame int) ([]byte, error) {
	var out []byte
	if frameIdx == 0 {
		out = append(out, w.prolog()...)
	}
	bodies, err := w.take(picturesPerFrame)
	if err != nil {
		return nil, err
	}
	for _, b := range bodies {
		prefix := annexb.PutFourByteLength(len(b))
		out = append(out, prefix[:]...)
		out = append(out, b...)
	}
	return out, nil
}

// MuxLowDelay packs one GOF into a sequence of per-frame V3C units per
// spec.md §4.8, returned as a single Chunk (VPS, then AD/OVD/GVD/AVD for
// each frame in turn). The Muxer's running precision is shared with
// MuxClassical and never decreases.
func (m *Muxer) MuxLowDelay(in LowDelayInput) (*Chunk, error) {
	if in.VPSBytes == nil || in.Atlas == nil {
		return nil, errors.New("v3c: MuxLowDelay requires VPS and an atlas context")
	}
	if in.NbFrames <= 0 {
		return nil, errors.New("v3c: MuxLowDelay requires at least one frame")
	}

	ovdWalker, err := newNALWalker(in.OVD)
	if err != nil {
		return nil, errors.Wrap(err, "v3c: OVD")
	}
	gvdWalker, err := newNALWalker(in.GVD)
	if err != nil {
		return nil, errors.Wrap(err, "v3c: GVD")
	}
	avdWalker, err := newNALWalker(in.AVD)
	if err != nil {
		return nil, errors.Wrap(err, "v3c: AVD")
	}

	videoMapCount := 1
	if in.DoubleLayer {
		videoMapCount = 2
	}

	type unit struct {
		h       Header
		payload []byte
	}
	units := make([]unit, 0, 1+4*in.NbFrames)

	for k := 0; k < in.NbFrames; k++ {
		adPayload, err := in.Atlas.EmitLowDelay(k)
		if err != nil {
			return nil, errors.Wrapf(err, "v3c: atlas frame %d", k)
		}
		units = append(units, unit{
			h:       Header{Type: UnitAD, V3CParameterSetID: gofParamSetID(in.GOFID), AtlasID: in.AtlasID},
			payload: adPayload,
		})

		ovdPayload, err := packPictureUnit(ovdWalker, k, 1)
		if err != nil {
			return nil, errors.Wrapf(err, "v3c: OVD frame %d", k)
		}
		units = append(units, unit{
			h:       Header{Type: UnitOVD, V3CParameterSetID: gofParamSetID(in.GOFID), AtlasID: in.AtlasID},
			payload: ovdPayload,
		})

		gvdPayload, err := packPictureUnit(gvdWalker, k, videoMapCount)
		if err != nil {
			return nil, errors.Wrapf(err, "v3c: GVD frame %d", k)
		}
		units = append(units, unit{
			h:       Header{Type: UnitGVD, V3CParameterSetID: gofParamSetID(in.GOFID), AtlasID: in.AtlasID, MapIndex: 0},
			payload: gvdPayload,
		})

		avdPayload, err := packPictureUnit(avdWalker, k, videoMapCount)
		if err != nil {
			return nil, errors.Wrapf(err, "v3c: AVD frame %d", k)
		}
		units = append(units, unit{
			h: Header{
				Type:                   UnitAVD,
				V3CParameterSetID:      gofParamSetID(in.GOFID),
				AtlasID:                in.AtlasID,
				AttributeIndex:         in.AttributeIndex,
				AttributePartitionIndex: in.AttributePartitionIndex,
			},
			payload: avdPayload,
		})
	}

	maxSize := len(in.VPSBytes) + unitHeaderSize
	for _, u := range units {
		if s := len(u.payload) + unitHeaderSize; s > maxSize {
			maxSize = s
		}
	}
	p := precisionFor(maxSize)
	if p > m.precision {
		m.precision = p
	}
	precision := m.precision

	out := make([]byte, 0, maxSize*len(units))
	if !m.wroteHeader {
		out = append(out, byte(precision-1)<<5)
		m.wroteHeader = true
	}

	unitSizes := make([]int, 0, 1+len(units))

	writeUnit := func(h Header, payload []byte) {
		hb := h.Bytes()
		unitLen := unitHeaderSize + len(payload)
		out = appendLengthPrefix(out, unitLen, precision)
		out = append(out, hb[:]...)
		out = append(out, payload...)
		unitSizes = append(unitSizes, len(payload))
	}

	writeUnit(Header{Type: UnitVPS}, in.VPSBytes)
	for _, u := range units {
		writeUnit(u.h, u.payload)
	}

	return &Chunk{GOFID: in.GOFID, Data: out, UnitSizes: unitSizes}, nil
}
