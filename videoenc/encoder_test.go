package videoenc

import (
	"testing"

	"github.com/ausocean/uvgvpccenc/annexb"
)

func TestReferenceEncoderProducesOnePictureNALPerFrame(t *testing.T) {
	enc := NewEncoder(Kvazaar)
	frames := [][]byte{{1, 2, 3}, {4, 5}, {6}}
	out, err := enc.Encode(frames, Params{Width: 256, Height: 256, QP: 32})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	sample, descs, err := annexb.ToSampleStream(out, 4, false)
	if err != nil {
		t.Fatalf("ToSampleStream: %v", err)
	}
	if len(descs) != 4+len(frames) {
		t.Fatalf("got %d NALs, want %d (4 prolog + %d pictures)", len(descs), 4+len(frames), len(frames))
	}
	if len(sample) == 0 {
		t.Fatal("empty sample stream")
	}
}

func TestEncodeRejectsEmptyFrameList(t *testing.T) {
	enc := NewEncoder(Uvg266)
	if _, err := enc.Encode(nil, Params{}); err == nil {
		t.Fatal("expected error for empty frame list")
	}
}
