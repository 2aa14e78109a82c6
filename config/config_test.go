/*
NAME
  config_test.go

DESCRIPTION
  config_test.go checks set_parameter/initialize_encoder's
  precondition-checking behaviour of spec.md §4.9/§7: unknown keys,
  duplicate keys, rate expansion, and the cross-field configuration
  errors (sizeGOF > maxConcurrentFrames, non-multiple-of-8 dimensions,
  YUV400 rejection).

AUTHORS
  uvgVPCCenc contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import "testing"

type nopLogger struct{}

func (nopLogger) SetLevel(int8)                               {}
func (nopLogger) Debug(string, ...interface{})                {}
func (nopLogger) Info(string, ...interface{})                 {}
func (nopLogger) Warning(string, ...interface{})              {}
func (nopLogger) Error(string, ...interface{})                {}
func (nopLogger) Fatal(string, ...interface{})                {}

func TestSetParameterRejectsUnknownKey(t *testing.T) {
	p := New(nopLogger{})
	if err := p.SetParameter("notAKey", "1"); err == nil {
		t.Fatal("expected error for unknown parameter")
	}
}

func TestSetParameterRejectsDuplicateKey(t *testing.T) {
	p := New(nopLogger{})
	if err := p.SetParameter(KeySizeGOF, "8"); err != nil {
		t.Fatalf("first SetParameter: %v", err)
	}
	if err := p.SetParameter(KeySizeGOF, "16"); err == nil {
		t.Fatal("expected error for duplicate parameter")
	}
}

func TestFreezeRequiresGeoBitDepthInput(t *testing.T) {
	p := New(nopLogger{})
	if err := p.Freeze(); err == nil {
		t.Fatal("expected error: geoBitDepthInput not set")
	}
}

func TestFreezeExpandsRate(t *testing.T) {
	p := New(nopLogger{})
	mustSet(t, p, KeyGeoBitDepthInput, "10")
	mustSet(t, p, KeyRate, "28-32-4")
	if err := p.Freeze(); err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	if p.GeometryQP != 28 || p.AttributeQP != 32 || p.OccupancyMapDSResolution != 4 {
		t.Fatalf("got geo=%d attr=%d occ=%d, want 28/32/4", p.GeometryQP, p.AttributeQP, p.OccupancyMapDSResolution)
	}
}

func TestFreezeRejectsSizeGOFExceedingMaxConcurrentFrames(t *testing.T) {
	p := New(nopLogger{})
	mustSet(t, p, KeyGeoBitDepthInput, "10")
	mustSet(t, p, KeySizeGOF, "64")
	mustSet(t, p, KeyMaxConcurrentFrames, "8")
	if err := p.Freeze(); err == nil {
		t.Fatal("expected error: sizeGOF exceeds maxConcurrentFrames")
	}
}

func TestFreezeRejectsNonMultipleOf8MapWidth(t *testing.T) {
	p := New(nopLogger{})
	mustSet(t, p, KeyGeoBitDepthInput, "10")
	mustSet(t, p, KeyMapWidth, "100")
	if err := p.Freeze(); err == nil {
		t.Fatal("expected error: mapWidth not a multiple of 8")
	}
}

func TestFreezeRejectsYUV400(t *testing.T) {
	p := New(nopLogger{})
	mustSet(t, p, KeyGeoBitDepthInput, "10")
	mustSet(t, p, KeyGeometryEncodingFormat, "yuv400")
	if err := p.Freeze(); err == nil {
		t.Fatal("expected error: YUV400 rejected")
	}
}

func TestFreezeTwiceIsAnError(t *testing.T) {
	p := New(nopLogger{})
	mustSet(t, p, KeyGeoBitDepthInput, "10")
	if err := p.Freeze(); err != nil {
		t.Fatalf("first Freeze: %v", err)
	}
	if err := p.Freeze(); err == nil {
		t.Fatal("expected error calling Freeze twice")
	}
}

func TestDefaultModeEnablesInterPatchPacking(t *testing.T) {
	p := New(nopLogger{})
	mustSet(t, p, KeyGeoBitDepthInput, "10")
	mustSet(t, p, KeySizeGOF, "2")
	mustSet(t, p, KeyMaxConcurrentFrames, "8")
	if err := p.Freeze(); err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	if !p.InterPackingEnabled() {
		t.Fatal("InterPackingEnabled() should default to true under mode RA, matching the distributed default preset/mode")
	}
}

func TestExplicitInterPatchPackingOverridesModeDefault(t *testing.T) {
	p := New(nopLogger{})
	mustSet(t, p, KeyGeoBitDepthInput, "10")
	mustSet(t, p, KeySizeGOF, "2")
	mustSet(t, p, KeyMaxConcurrentFrames, "8")
	mustSet(t, p, KeyInterPatchPacking, "false")
	if err := p.Freeze(); err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	if p.InterPackingEnabled() {
		t.Fatal("explicit interPatchPacking=false should override mode RA's default")
	}
}

func TestPresetResolvesEncoderPreset(t *testing.T) {
	p := New(nopLogger{})
	mustSet(t, p, KeyGeoBitDepthInput, "10")
	mustSet(t, p, KeyPresetName, "veryfast")
	if err := p.Freeze(); err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	if p.EncoderPreset != "veryfast" {
		t.Fatalf("EncoderPreset = %q, want %q", p.EncoderPreset, "veryfast")
	}
}

func TestUnknownPresetFallsBackToDefault(t *testing.T) {
	p := New(nopLogger{})
	mustSet(t, p, KeyGeoBitDepthInput, "10")
	mustSet(t, p, KeyPresetName, "not-a-real-preset")
	if err := p.Freeze(); err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	if p.PresetName != DefaultPresetName {
		t.Fatalf("PresetName = %q, want fallback to %q", p.PresetName, DefaultPresetName)
	}
	if p.EncoderPreset != presetTable[DefaultPresetName] {
		t.Fatalf("EncoderPreset = %q, want %q", p.EncoderPreset, presetTable[DefaultPresetName])
	}
}

func TestSizeGOF1DisablesInterPacking(t *testing.T) {
	p := New(nopLogger{})
	mustSet(t, p, KeyGeoBitDepthInput, "10")
	mustSet(t, p, KeySizeGOF, "1")
	mustSet(t, p, KeyMode, "RA")
	mustSet(t, p, KeyInterPatchPacking, "true")
	if err := p.Freeze(); err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	if p.InterPackingEnabled() {
		t.Fatal("InterPackingEnabled() should be false when sizeGOF == 1")
	}
}

func mustSet(t *testing.T, p *Parameters, name, value string) {
	t.Helper()
	if err := p.SetParameter(name, value); err != nil {
		t.Fatalf("SetParameter(%q, %q): %v", name, value, err)
	}
}
