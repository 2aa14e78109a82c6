/*
NAME
  presets.go

DESCRIPTION
  presets.go resolves Parameters.PresetName into EncoderPreset, the 2D
  video encoder speed/quality knob (spec.md §4.9's initialize_encoder
  step "resolves the preset"). Grounded on
  _examples/original_source/src/lib/uvgvpcc.cpp's setPreset(), which
  runs first among parseUvgvpccParameters' special-cased parameters and
  resolves presetName against a lookup table before anything else is
  applied; that table itself lives in preset.hpp/.cpp, which this
  retrieval pack does not include (see DESIGN.md). The names below are
  kvazaar/uvg266's own preset vocabulary (both HEVC/VVC encoders expose
  this exact knob on their CLI), since that is the one concrete
  black-box parameter a "preset" plausibly reaches in this tree.

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

// presetTable maps a presetName to the speed/quality knob handed to the
// 2D video encoders via videoenc.Params.Preset.
var presetTable = map[string]string{
	"ultrafast": "ultrafast",
	"superfast": "superfast",
	"veryfast":  "veryfast",
	"faster":    "faster",
	"fast":      "fast",
	"medium":    "medium",
	"slow":      "slow",
	"slower":    "slower",
	"veryslow":  "veryslow",
	"placebo":   "placebo",
}

// resolvePreset looks up p.PresetName in presetTable, logging and
// falling back to DefaultPresetName's knob on an unrecognized name.
func (p *Parameters) resolvePreset() {
	knob, ok := presetTable[p.PresetName]
	if !ok {
		if p.Logger != nil {
			p.Logger.Warning("unknown presetName, falling back to default", "presetName", p.PresetName, "default", DefaultPresetName)
		}
		p.PresetName = DefaultPresetName
		knob = presetTable[DefaultPresetName]
	}
	p.EncoderPreset = knob
}
