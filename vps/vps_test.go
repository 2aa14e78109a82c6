/*
NAME
  vps_test.go

DESCRIPTION
  vps_test.go checks that VPS.ByteLen's bit-length pre-computation
  matches what Write actually emits.

AUTHORS
  uvgVPCCenc contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package vps

import "testing"

func TestByteLenMatchesWrite(t *testing.T) {
	cases := []struct {
		w, h        int
		doubleLayer bool
	}{
		{256, 256, false},
		{1024, 768, true},
		{4096, 4096, false},
	}
	for _, c := range cases {
		v := Build(5, c.w, c.h, c.doubleLayer, CodecGroupHEVCMain10)
		b := v.Bytes()
		if len(b) != v.ByteLen() {
			t.Fatalf("w=%d h=%d: ByteLen()=%d, Write produced %d bytes", c.w, c.h, v.ByteLen(), len(b))
		}
	}
}

func TestVPSParameterSetIDWrapsAt16(t *testing.T) {
	v := Build(17, 256, 256, false, CodecGroupHEVCMain10)
	if v.V3CParameterSetID != 1 {
		t.Fatalf("got %d, want 1", v.V3CParameterSetID)
	}
}
