/*
NAME
  config.go

DESCRIPTION
  config.go defines Parameters, the frozen-after-initialize configuration
  block of spec.md §6/§9: a write-once struct mutated only during
  initialize_encoder and read-only thereafter (spec.md §5's "global
  parameter block"). The struct/Variables-table/Update/Validate shape is
  carried over from github.com/ausocean/av/revid/config.Config, adapted
  from revid's bulk map-based Update to uvgVPCCenc's one-key-at-a-time
  set_parameter contract.

AUTHORS
  uvgVPCCenc contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config holds uvgVPCCenc's Parameters block: the set_parameter
// surface of spec.md §6, its Variables table, and the validation run at
// initialize_encoder.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ausocean/utils/logging"
)

// Mode selects intra-only (AI) or random-access (RA, inter-packing
// enabled) encoding.
const (
	ModeRA = "RA"
	ModeAI = "AI"
)

// Default values, applied by New and by individual Validate funcs when a
// field is left unset or out of range (spec.md §6/§7).
const (
	DefaultPresetName                  = "fast"
	DefaultMode                        = ModeRA
	DefaultSizeGOF                     = 32
	DefaultSizeGOP2DEncoding           = 32
	DefaultMaxConcurrentFrames         = 32
	DefaultIntraFramePeriod            = 1
	DefaultMapWidth                    = 1024
	DefaultMinimumMapHeight            = 1024
	DefaultOccupancyMapDSResolution    = 4
	DefaultNbThreadPCPart              = 0 // 0 => hardware concurrency.
	DefaultMinLevel                    = 2
	DefaultGPATresholdIoU              = 0.3
	DefaultLog2QuantizerSize           = 4
	DefaultSurfaceThickness            = 4
)

// Parameters is uvgVPCCenc's full configuration surface. It is mutated
// only via SetParameter, up until Freeze (initialize_encoder) is called;
// thereafter it is read-only and requires no further locking (spec.md
// §5).
type Parameters struct {
	Logger logging.Logger

	// Required.
	GeoBitDepthInput int

	PresetName string

	// EncoderPreset is the 2D video encoder speed/quality knob PresetName
	// resolves to on Freeze (spec.md §4.9's "resolves the preset"). See
	// resolvePreset in presets.go.
	EncoderPreset string

	// Rate expands into the three fields below on Freeze.
	Rate                      string
	GeometryQP                int
	AttributeQP               int
	OccupancyMapDSResolution  int

	Mode string // ModeRA or ModeAI.

	SizeGOF             int
	SizeGOP2DEncoding   int
	MaxConcurrentFrames int
	IntraFramePeriod    int

	MapWidth         int
	MinimumMapHeight int

	NbThreadPCPart            int
	OccupancyEncodingNbThread int
	GeometryEncodingNbThread  int
	AttributeEncodingNbThread int

	OccupancyEncoderName string
	GeometryEncoderName  string
	AttributeEncoderName string

	OccupancyEncodingMode string
	GeometryEncodingMode  string
	AttributeEncodingMode string

	OccupancyEncodingFormat string
	GeometryEncodingFormat  string
	AttributeEncodingFormat string

	OccupancyEncodingQp int
	GeometryEncodingQp  int
	AttributeEncodingQp int

	OccupancyEncodingIsLossless bool
	GeometryEncodingIsLossless  bool
	AttributeEncodingIsLossless bool

	InterPatchPacking             bool
	DoubleLayer                   bool
	LowDelayBitstream              bool
	TimerLog                       bool
	LogLevel                       string
	ErrorsAreFatal                  bool
	ExportIntermediateFiles        bool
	IntermediateFilesDir           string
	IntermediateFilesDirTimeStamp  bool

	GPATresholdIoU      float64
	MinLevel            int
	Log2QuantizerSizeX  int
	Log2QuantizerSizeY  int
	SurfaceThickness    int
	SpacePatchPacking   bool

	frozen          bool
	seen            map[string]bool
	geoBitDepthSeen bool
}

// New returns a Parameters block with spec.md §6's defaults applied.
func New(logger logging.Logger) *Parameters {
	return &Parameters{
		Logger:                   logger,
		PresetName:               DefaultPresetName,
		Mode:                     DefaultMode,
		SizeGOF:                  DefaultSizeGOF,
		SizeGOP2DEncoding:        DefaultSizeGOP2DEncoding,
		MaxConcurrentFrames:      DefaultMaxConcurrentFrames,
		IntraFramePeriod:         DefaultIntraFramePeriod,
		MapWidth:                 DefaultMapWidth,
		MinimumMapHeight:         DefaultMinimumMapHeight,
		OccupancyMapDSResolution: DefaultOccupancyMapDSResolution,
		NbThreadPCPart:           DefaultNbThreadPCPart,
		MinLevel:                 DefaultMinLevel,
		GPATresholdIoU:           DefaultGPATresholdIoU,
		Log2QuantizerSizeX:       DefaultLog2QuantizerSize,
		Log2QuantizerSizeY:       DefaultLog2QuantizerSize,
		SurfaceThickness:         DefaultSurfaceThickness,
		seen:                     make(map[string]bool),
	}
}

// SetParameter implements the set_parameter entry point of spec.md §4.9:
// string/string, only legal before Freeze, and fatal-on-duplicate-or-
// unknown-key iff ErrorsAreFatal.
func (p *Parameters) SetParameter(name, value string) error {
	if p.frozen {
		return p.fail(fmt.Errorf("config: set_parameter(%q) called after initialize_encoder", name))
	}
	entry := lookup(name)
	if entry == nil {
		return p.fail(fmt.Errorf("config: unknown parameter %q", name))
	}
	if p.seen[name] {
		return p.fail(fmt.Errorf("config: duplicate parameter %q", name))
	}
	p.seen[name] = true
	entry.Update(p, value)
	if name == KeyGeoBitDepthInput {
		p.geoBitDepthSeen = true
	}
	return nil
}

// fail logs err and, if ErrorsAreFatal, additionally logs it at Fatal
// level (spec.md §7: "Fatal iff errorsAreFatal").
func (p *Parameters) fail(err error) error {
	if p.Logger != nil {
		p.Logger.Error(err.Error())
		if p.ErrorsAreFatal {
			p.Logger.Fatal(err.Error())
		}
	}
	return err
}

// Freeze validates and finalizes the configuration, implementing the
// "freezes parameters, resolves the preset... expands rate... validates"
// sequence of initialize_encoder (spec.md §4.9). It is idempotent-failing:
// calling it twice is itself a configuration error.
func (p *Parameters) Freeze() error {
	if p.frozen {
		return p.fail(fmt.Errorf("config: initialize_encoder called more than once"))
	}
	if !p.geoBitDepthSeen {
		return p.fail(fmt.Errorf("config: geoBitDepthInput is required"))
	}
	if p.PresetName == "" {
		p.PresetName = DefaultPresetName
	}
	p.resolvePreset()
	p.applyModeDefaults()
	if p.Rate != "" {
		if err := p.expandRate(); err != nil {
			return p.fail(err)
		}
	}
	if err := p.validate(); err != nil {
		return p.fail(err)
	}
	p.frozen = true
	return nil
}

// Frozen reports whether Freeze has already succeeded.
func (p *Parameters) Frozen() bool { return p.frozen }

// applyModeDefaults fills interPatchPacking and the per-plane encoding
// mode fields from Mode when the application never set them explicitly,
// mirroring uvgvpcc.cpp's setMode(): selecting a mode unconditionally
// drives these fields unless set_parameter later overrides them
// individually (spec.md §6's mode default is RA, which in turn defaults
// interPatchPacking on).
func (p *Parameters) applyModeDefaults() {
	if !p.seen[KeyOccupancyEncodingMode] {
		p.OccupancyEncodingMode = p.Mode
	}
	if !p.seen[KeyGeometryEncodingMode] {
		p.GeometryEncodingMode = p.Mode
	}
	if !p.seen[KeyAttributeEncodingMode] {
		p.AttributeEncodingMode = p.Mode
	}
	if !p.seen[KeyInterPatchPacking] {
		p.InterPatchPacking = p.Mode == ModeRA
	}
}

// InterPackingEnabled reports whether inter-GOF patch packing runs for
// this configuration: mode RA, sizeGOF > 1, and interPatchPacking not
// explicitly disabled (spec.md §8's sizeGOF=1 boundary behavior).
func (p *Parameters) InterPackingEnabled() bool {
	return p.Mode == ModeRA && p.SizeGOF > 1 && p.InterPatchPacking
}

// expandRate parses "G-A-O" into GeometryQP, AttributeQP and
// OccupancyMapDSResolution (spec.md §6).
func (p *Parameters) expandRate() error {
	parts := strings.Split(p.Rate, "-")
	if len(parts) != 3 {
		return fmt.Errorf("config: rate %q must have the form \"G-A-O\"", p.Rate)
	}
	geo, err := strconv.Atoi(parts[0])
	if err != nil {
		return fmt.Errorf("config: rate: invalid geometry QP %q", parts[0])
	}
	attr, err := strconv.Atoi(parts[1])
	if err != nil {
		return fmt.Errorf("config: rate: invalid attribute QP %q", parts[1])
	}
	occ, err := strconv.Atoi(parts[2])
	if err != nil {
		return fmt.Errorf("config: rate: invalid occupancy DS resolution %q", parts[2])
	}
	p.GeometryQP = geo
	p.AttributeQP = attr
	p.OccupancyMapDSResolution = occ
	return nil
}

// validate runs the Variables table's per-field Validate hooks, then the
// cross-field invariants of spec.md §7 that don't belong to a single
// field.
func (p *Parameters) validate() error {
	for _, v := range Variables {
		if v.Validate != nil {
			v.Validate(p)
		}
	}

	if p.SizeGOF > p.MaxConcurrentFrames {
		return fmt.Errorf("config: sizeGOF (%d) exceeds maxConcurrentFrames (%d)", p.SizeGOF, p.MaxConcurrentFrames)
	}
	if !isMultipleOf8AndBlock(p.MapWidth, p.OccupancyMapDSResolution) {
		return fmt.Errorf("config: mapWidth (%d) must be a multiple of 8 and of occupancyMapDSResolution (%d)", p.MapWidth, p.OccupancyMapDSResolution)
	}
	if !isMultipleOf8AndBlock(p.MinimumMapHeight, p.OccupancyMapDSResolution) {
		return fmt.Errorf("config: minimumMapHeight (%d) must be a multiple of 8 and of occupancyMapDSResolution (%d)", p.MinimumMapHeight, p.OccupancyMapDSResolution)
	}
	for _, f := range []struct{ name, format string }{
		{"occupancyEncodingFormat", p.OccupancyEncodingFormat},
		{"geometryEncodingFormat", p.GeometryEncodingFormat},
		{"attributeEncodingFormat", p.AttributeEncodingFormat},
	} {
		if strings.EqualFold(f.format, "YUV400") {
			return fmt.Errorf("config: %s: YUV400 is not supported", f.name)
		}
	}
	return nil
}

func isMultipleOf8AndBlock(n, block int) bool {
	if n <= 0 {
		return false
	}
	if n%8 != 0 {
		return false
	}
	if block > 0 && n%block != 0 {
		return false
	}
	return true
}

// LogInvalidField logs that a field was bad or unset and a default was
// substituted, mirroring github.com/ausocean/av/revid/config.Config's
// method of the same name.
func (p *Parameters) LogInvalidField(name string, def interface{}) {
	if p.Logger != nil {
		p.Logger.Info(name+" bad or unset, defaulting", name, def)
	}
}
