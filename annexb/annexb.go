/*
NAME
  annexb.go

DESCRIPTION
  annexb.go transcodes a concatenated Annex-B NAL byte-stream, as produced
  by a 2D video encoder, into a contiguous length-prefixed sample-stream
  buffer plus a list of NAL descriptors into it, per spec.md §4.4. The
  start-code scanning is grounded on the approach used by
  github.com/ausocean/av/codec/h264.Lex and
  github.com/ausocean/av/codec/h265.Extractor, generalised to run over an
  in-memory buffer instead of an io.Reader/io.Writer pair, since a 2D
  encoder's whole output for a GOF is available at once.

AUTHORS
  uvgVPCCenc contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package annexb converts Annex-B start-code-delimited NAL byte streams,
// as emitted by 2D video encoders, into length-prefixed V3C sample
// streams.
package annexb

import (
	"encoding/binary"
	"fmt"
)

// NAL describes one NAL unit's location within a transcoded sample stream
// buffer.
type NAL struct {
	Offset int // Byte offset of the length prefix.
	Size   int // Size of the NAL body, excluding the length prefix.
}

// scanStartCodes splits src into raw NAL bodies (without start codes),
// recognising both the 4-byte (00 00 00 01) and 3-byte (00 00 01) start
// code forms.
func scanStartCodes(src []byte) [][]byte {
	var starts []int
	for i := 0; i+2 < len(src); i++ {
		if src[i] == 0 && src[i+1] == 0 && src[i+2] == 1 {
			starts = append(starts, i+3)
			continue
		}
	}
	if len(starts) == 0 {
		return nil
	}
	// Recompute each NAL's true start, preferring the 4-byte form: if the
	// byte before a 3-byte start code's leading zero is also zero, that
	// leading zero belongs to the 4-byte form and is not itself a
	// separate NAL boundary. We only need end offsets here, so walk
	// starts and slice between them.
	nals := make([][]byte, 0, len(starts))
	for i, s := range starts {
		var end int
		if i+1 < len(starts) {
			end = startCodeBegin(src, starts[i+1])
		} else {
			end = len(src)
		}
		if end < s {
			end = s
		}
		nals = append(nals, src[s:end])
	}
	return nals
}

// startCodeBegin walks back from the byte immediately following a start
// code (i.e. the first byte of the NAL it introduces) to find where the
// start code itself began, so the previous NAL's body does not include
// it.
func startCodeBegin(src []byte, nalStart int) int {
	i := nalStart - 3
	if i > 0 && src[i-1] == 0 {
		i--
	}
	return i
}

// unescape removes emulation-prevention bytes from a NAL body: a 0x03
// byte is removed whenever it follows two zero bytes and is itself
// followed by a byte <= 3; a 0x03 that is the last byte of the NAL is kept.
func unescape(nal []byte) []byte {
	out := make([]byte, 0, len(nal))
	zeros := 0
	for i := 0; i < len(nal); i++ {
		b := nal[i]
		if zeros >= 2 && b == 0x03 {
			var next byte = 0xff
			if i+1 < len(nal) {
				next = nal[i+1]
			}
			if next <= 3 {
				zeros = 0
				continue
			}
		}
		out = append(out, b)
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return out
}

// escape re-inserts emulation-prevention bytes into a NAL body: a 0x03 is
// inserted whenever two preceding zero bytes would be followed by a
// byte <= 3 in the unescaped stream (spec.md §4.4).
func escape(nal []byte) []byte {
	out := make([]byte, 0, len(nal)+len(nal)/100+4)
	zeros := 0
	for _, b := range nal {
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
	return out
}

// ToSampleStream transcodes an Annex-B byte stream into a sample-stream
// buffer with `precision`-byte big-endian length prefixes, returning the
// buffer and a NAL descriptor for each unit found. If emulationPrevention
// is true, emulation-prevention bytes are re-inserted into each copied
// NAL body (spec.md §4.4); if false, NAL bodies are copied verbatim
// (already escaped, as most 2D encoders emit them).
func ToSampleStream(src []byte, precision int, emulationPrevention bool) ([]byte, []NAL, error) {
	if precision < 1 || precision > 8 {
		return nil, nil, fmt.Errorf("annexb: invalid precision %d", precision)
	}
	raw := scanStartCodes(src)
	out := make([]byte, 0, len(src)+len(raw)*precision)
	descs := make([]NAL, 0, len(raw))
	for _, nal := range raw {
		body := nal
		if emulationPrevention {
			body = escape(unescape(nal))
		}
		offset := len(out)
		out = append(out, make([]byte, precision)...)
		out = append(out, body...)
		putBigEndian(out[offset:offset+precision], uint64(len(body)))
		descs = append(descs, NAL{Offset: offset, Size: len(body)})
	}
	return out, descs, nil
}

// putBigEndian writes v into buf as a big-endian integer occupying all of
// buf (1 to 8 bytes).
func putBigEndian(buf []byte, v uint64) {
	n := len(buf)
	for i := 0; i < n; i++ {
		shift := uint(8 * (n - 1 - i))
		buf[i] = byte(v >> shift)
	}
}

// Split parses an already-transcoded sample stream (precision-byte
// length-prefixed NALs back to back, no header byte) back into NAL
// descriptors. It is the approximate inverse of ToSampleStream, used by
// the muxer to re-prefix NALs from a 2D encoder's own 4-byte-prefixed
// sample-stream output (spec.md §6: "OVD/GVD/AVD... a NAL sample stream
// in 4-byte-prefix form").
func Split(data []byte, precision int) ([]NAL, error) {
	if precision < 1 || precision > 8 {
		return nil, fmt.Errorf("annexb: invalid precision %d", precision)
	}
	var nals []NAL
	i := 0
	for i < len(data) {
		if i+precision > len(data) {
			return nil, fmt.Errorf("annexb: truncated length prefix at offset %d", i)
		}
		size := int(readBigEndian(data[i : i+precision]))
		bodyStart := i + precision
		if bodyStart+size > len(data) {
			return nil, fmt.Errorf("annexb: NAL at offset %d overruns buffer (size %d)", i, size)
		}
		nals = append(nals, NAL{Offset: i, Size: size})
		i = bodyStart + size
	}
	return nals, nil
}

func readBigEndian(buf []byte) uint64 {
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return v
}

// fourByteLength is used by the muxer for re-prefixing video NALs into a
// 4-byte-prefix form, independent of the atlas NAL precision.
const fourByteLength = 4

// PutFourByteLength writes size as a 4-byte big-endian length prefix.
func PutFourByteLength(size int) [fourByteLength]byte {
	var b [fourByteLength]byte
	binary.BigEndian.PutUint32(b[:], uint32(size))
	return b
}
