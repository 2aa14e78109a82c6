/*
NAME
  variables.go

DESCRIPTION
  variables.go provides the Variables table: one entry per recognized
  set_parameter key (spec.md §6), each with its Name, type tag, an Update
  function parsing a string into the Parameters field, and an optional
  Validate function. Grounded on
  github.com/ausocean/av/revid/config/variables.go's table shape.

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

import (
	"fmt"
	"strconv"
	"strings"
)

// Parameter key names, per spec.md §6's table.
const (
	KeyGeoBitDepthInput              = "geoBitDepthInput"
	KeyPresetName                    = "presetName"
	KeyRate                          = "rate"
	KeyMode                          = "mode"
	KeySizeGOF                       = "sizeGOF"
	KeySizeGOP2DEncoding             = "sizeGOP2DEncoding"
	KeyMaxConcurrentFrames           = "maxConcurrentFrames"
	KeyIntraFramePeriod              = "intraFramePeriod"
	KeyMapWidth                      = "mapWidth"
	KeyMinimumMapHeight              = "minimumMapHeight"
	KeyOccupancyMapDSResolution      = "occupancyMapDSResolution"
	KeyNbThreadPCPart                = "nbThreadPCPart"
	KeyOccupancyEncodingNbThread     = "occupancyEncodingNbThread"
	KeyGeometryEncodingNbThread      = "geometryEncodingNbThread"
	KeyAttributeEncodingNbThread     = "attributeEncodingNbThread"
	KeyOccupancyEncoderName          = "occupancyEncoderName"
	KeyGeometryEncoderName           = "geometryEncoderName"
	KeyAttributeEncoderName          = "attributeEncoderName"
	KeyOccupancyEncodingMode         = "occupancyEncodingMode"
	KeyGeometryEncodingMode          = "geometryEncodingMode"
	KeyAttributeEncodingMode         = "attributeEncodingMode"
	KeyOccupancyEncodingFormat       = "occupancyEncodingFormat"
	KeyGeometryEncodingFormat        = "geometryEncodingFormat"
	KeyAttributeEncodingFormat       = "attributeEncodingFormat"
	KeyOccupancyEncodingQp           = "occupancyEncodingQp"
	KeyGeometryEncodingQp            = "geometryEncodingQp"
	KeyAttributeEncodingQp           = "attributeEncodingQp"
	KeyOccupancyEncodingIsLossless   = "occupancyEncodingIsLossless"
	KeyGeometryEncodingIsLossless    = "geometryEncodingIsLossless"
	KeyAttributeEncodingIsLossless   = "attributeEncodingIsLossless"
	KeyInterPatchPacking             = "interPatchPacking"
	KeyDoubleLayer                   = "doubleLayer"
	KeyLowDelayBitstream             = "lowDelayBitstream"
	KeyTimerLog                      = "timerLog"
	KeyLogLevel                      = "logLevel"
	KeyErrorsAreFatal                = "errorsAreFatal"
	KeyExportIntermediateFiles       = "exportIntermediateFiles"
	KeyIntermediateFilesDir          = "intermediateFilesDir"
	KeyIntermediateFilesDirTimeStamp = "intermediateFilesDirTimeStamp"
	KeyGPATresholdIoU                = "gpaTresholdIoU"
	KeyMinLevel                      = "minLevel"
	KeyLog2QuantizerSizeX            = "log2QuantizerSizeX"
	KeyLog2QuantizerSizeY            = "log2QuantizerSizeY"
	KeySurfaceThickness              = "surfaceThickness"
	KeySpacePatchPacking             = "spacePatchPacking"
)

const (
	typeString = "string"
	typeInt    = "int"
	typeBool   = "bool"
	typeFloat  = "float"
)

// Variables is the full parameter table consulted by SetParameter and
// Freeze's validation pass.
var Variables = []struct {
	Name     string
	Type     string
	Update   func(*Parameters, string)
	Validate func(*Parameters)
}{
	{
		Name: KeyGeoBitDepthInput,
		Type: typeInt,
		Update: func(p *Parameters, v string) {
			p.GeoBitDepthInput = parseInt(KeyGeoBitDepthInput, v, p)
		},
		Validate: func(p *Parameters) {
			if p.GeoBitDepthInput <= 0 || p.GeoBitDepthInput > 16 {
				p.LogInvalidField(KeyGeoBitDepthInput, 10)
				p.GeoBitDepthInput = 10
			}
		},
	},
	{
		Name:   KeyPresetName,
		Type:   typeString,
		Update: func(p *Parameters, v string) { p.PresetName = v },
	},
	{
		Name:   KeyRate,
		Type:   typeString,
		Update: func(p *Parameters, v string) { p.Rate = v },
	},
	{
		Name: KeyMode,
		Type: "enum:RA,AI",
		Update: func(p *Parameters, v string) {
			switch strings.ToUpper(v) {
			case ModeRA, ModeAI:
				p.Mode = strings.ToUpper(v)
			default:
				p.Logger.Warning("invalid mode param", "value", v)
			}
		},
	},
	{
		Name:   KeySizeGOF,
		Type:   typeInt,
		Update: func(p *Parameters, v string) { p.SizeGOF = parseInt(KeySizeGOF, v, p) },
		Validate: func(p *Parameters) {
			if p.SizeGOF <= 0 {
				p.LogInvalidField(KeySizeGOF, DefaultSizeGOF)
				p.SizeGOF = DefaultSizeGOF
			}
		},
	},
	{
		Name:   KeySizeGOP2DEncoding,
		Type:   typeInt,
		Update: func(p *Parameters, v string) { p.SizeGOP2DEncoding = parseInt(KeySizeGOP2DEncoding, v, p) },
	},
	{
		Name:   KeyMaxConcurrentFrames,
		Type:   typeInt,
		Update: func(p *Parameters, v string) { p.MaxConcurrentFrames = parseInt(KeyMaxConcurrentFrames, v, p) },
		Validate: func(p *Parameters) {
			if p.MaxConcurrentFrames <= 0 {
				p.LogInvalidField(KeyMaxConcurrentFrames, DefaultMaxConcurrentFrames)
				p.MaxConcurrentFrames = DefaultMaxConcurrentFrames
			}
		},
	},
	{
		Name:   KeyIntraFramePeriod,
		Type:   typeInt,
		Update: func(p *Parameters, v string) { p.IntraFramePeriod = parseInt(KeyIntraFramePeriod, v, p) },
	},
	{
		Name:   KeyMapWidth,
		Type:   typeInt,
		Update: func(p *Parameters, v string) { p.MapWidth = parseInt(KeyMapWidth, v, p) },
	},
	{
		Name:   KeyMinimumMapHeight,
		Type:   typeInt,
		Update: func(p *Parameters, v string) { p.MinimumMapHeight = parseInt(KeyMinimumMapHeight, v, p) },
	},
	{
		Name:   KeyOccupancyMapDSResolution,
		Type:   typeInt,
		Update: func(p *Parameters, v string) { p.OccupancyMapDSResolution = parseInt(KeyOccupancyMapDSResolution, v, p) },
		Validate: func(p *Parameters) {
			n := p.OccupancyMapDSResolution
			if n <= 0 || n&(n-1) != 0 {
				p.LogInvalidField(KeyOccupancyMapDSResolution, DefaultOccupancyMapDSResolution)
				p.OccupancyMapDSResolution = DefaultOccupancyMapDSResolution
			}
		},
	},
	{
		Name:   KeyNbThreadPCPart,
		Type:   typeInt,
		Update: func(p *Parameters, v string) { p.NbThreadPCPart = parseInt(KeyNbThreadPCPart, v, p) },
	},
	{
		Name:   KeyOccupancyEncodingNbThread,
		Type:   typeInt,
		Update: func(p *Parameters, v string) { p.OccupancyEncodingNbThread = parseInt(KeyOccupancyEncodingNbThread, v, p) },
	},
	{
		Name:   KeyGeometryEncodingNbThread,
		Type:   typeInt,
		Update: func(p *Parameters, v string) { p.GeometryEncodingNbThread = parseInt(KeyGeometryEncodingNbThread, v, p) },
	},
	{
		Name:   KeyAttributeEncodingNbThread,
		Type:   typeInt,
		Update: func(p *Parameters, v string) { p.AttributeEncodingNbThread = parseInt(KeyAttributeEncodingNbThread, v, p) },
	},
	{
		Name:   KeyOccupancyEncoderName,
		Type:   "enum:kvazaar,uvg266",
		Update: func(p *Parameters, v string) { p.OccupancyEncoderName = v },
	},
	{
		Name:   KeyGeometryEncoderName,
		Type:   "enum:kvazaar,uvg266",
		Update: func(p *Parameters, v string) { p.GeometryEncoderName = v },
	},
	{
		Name:   KeyAttributeEncoderName,
		Type:   "enum:kvazaar,uvg266",
		Update: func(p *Parameters, v string) { p.AttributeEncoderName = v },
	},
	{
		Name:   KeyOccupancyEncodingMode,
		Type:   typeString,
		Update: func(p *Parameters, v string) { p.OccupancyEncodingMode = v },
	},
	{
		Name:   KeyGeometryEncodingMode,
		Type:   typeString,
		Update: func(p *Parameters, v string) { p.GeometryEncodingMode = v },
	},
	{
		Name:   KeyAttributeEncodingMode,
		Type:   typeString,
		Update: func(p *Parameters, v string) { p.AttributeEncodingMode = v },
	},
	{
		Name:   KeyOccupancyEncodingFormat,
		Type:   typeString,
		Update: func(p *Parameters, v string) { p.OccupancyEncodingFormat = v },
	},
	{
		Name:   KeyGeometryEncodingFormat,
		Type:   typeString,
		Update: func(p *Parameters, v string) { p.GeometryEncodingFormat = v },
	},
	{
		Name:   KeyAttributeEncodingFormat,
		Type:   typeString,
		Update: func(p *Parameters, v string) { p.AttributeEncodingFormat = v },
	},
	{
		Name:   KeyOccupancyEncodingQp,
		Type:   typeInt,
		Update: func(p *Parameters, v string) { p.OccupancyEncodingQp = parseInt(KeyOccupancyEncodingQp, v, p) },
	},
	{
		Name:   KeyGeometryEncodingQp,
		Type:   typeInt,
		Update: func(p *Parameters, v string) { p.GeometryEncodingQp = parseInt(KeyGeometryEncodingQp, v, p) },
	},
	{
		Name:   KeyAttributeEncodingQp,
		Type:   typeInt,
		Update: func(p *Parameters, v string) { p.AttributeEncodingQp = parseInt(KeyAttributeEncodingQp, v, p) },
	},
	{
		Name:   KeyOccupancyEncodingIsLossless,
		Type:   typeBool,
		Update: func(p *Parameters, v string) { p.OccupancyEncodingIsLossless = parseBool(KeyOccupancyEncodingIsLossless, v, p) },
	},
	{
		Name:   KeyGeometryEncodingIsLossless,
		Type:   typeBool,
		Update: func(p *Parameters, v string) { p.GeometryEncodingIsLossless = parseBool(KeyGeometryEncodingIsLossless, v, p) },
	},
	{
		Name:   KeyAttributeEncodingIsLossless,
		Type:   typeBool,
		Update: func(p *Parameters, v string) { p.AttributeEncodingIsLossless = parseBool(KeyAttributeEncodingIsLossless, v, p) },
	},
	{
		Name:   KeyInterPatchPacking,
		Type:   typeBool,
		Update: func(p *Parameters, v string) { p.InterPatchPacking = parseBool(KeyInterPatchPacking, v, p) },
	},
	{
		Name:   KeyDoubleLayer,
		Type:   typeBool,
		Update: func(p *Parameters, v string) { p.DoubleLayer = parseBool(KeyDoubleLayer, v, p) },
	},
	{
		Name:   KeyLowDelayBitstream,
		Type:   typeBool,
		Update: func(p *Parameters, v string) { p.LowDelayBitstream = parseBool(KeyLowDelayBitstream, v, p) },
	},
	{
		Name:   KeyTimerLog,
		Type:   typeBool,
		Update: func(p *Parameters, v string) { p.TimerLog = parseBool(KeyTimerLog, v, p) },
	},
	{
		Name:   KeyLogLevel,
		Type:   typeString,
		Update: func(p *Parameters, v string) { p.LogLevel = v },
	},
	{
		Name:   KeyErrorsAreFatal,
		Type:   typeBool,
		Update: func(p *Parameters, v string) { p.ErrorsAreFatal = parseBool(KeyErrorsAreFatal, v, p) },
	},
	{
		Name:   KeyExportIntermediateFiles,
		Type:   typeBool,
		Update: func(p *Parameters, v string) { p.ExportIntermediateFiles = parseBool(KeyExportIntermediateFiles, v, p) },
	},
	{
		Name:   KeyIntermediateFilesDir,
		Type:   typeString,
		Update: func(p *Parameters, v string) { p.IntermediateFilesDir = v },
	},
	{
		Name:   KeyIntermediateFilesDirTimeStamp,
		Type:   typeBool,
		Update: func(p *Parameters, v string) { p.IntermediateFilesDirTimeStamp = parseBool(KeyIntermediateFilesDirTimeStamp, v, p) },
	},
	{
		Name:   KeyGPATresholdIoU,
		Type:   typeFloat,
		Update: func(p *Parameters, v string) { p.GPATresholdIoU = parseFloat(KeyGPATresholdIoU, v, p) },
	},
	{
		Name:   KeyMinLevel,
		Type:   typeInt,
		Update: func(p *Parameters, v string) { p.MinLevel = parseInt(KeyMinLevel, v, p) },
		Validate: func(p *Parameters) {
			n := p.MinLevel
			if n <= 0 || n&(n-1) != 0 {
				p.LogInvalidField(KeyMinLevel, DefaultMinLevel)
				p.MinLevel = DefaultMinLevel
			}
		},
	},
	{
		Name:   KeyLog2QuantizerSizeX,
		Type:   typeInt,
		Update: func(p *Parameters, v string) { p.Log2QuantizerSizeX = parseInt(KeyLog2QuantizerSizeX, v, p) },
	},
	{
		Name:   KeyLog2QuantizerSizeY,
		Type:   typeInt,
		Update: func(p *Parameters, v string) { p.Log2QuantizerSizeY = parseInt(KeyLog2QuantizerSizeY, v, p) },
	},
	{
		Name:   KeySurfaceThickness,
		Type:   typeInt,
		Update: func(p *Parameters, v string) { p.SurfaceThickness = parseInt(KeySurfaceThickness, v, p) },
	},
	{
		Name:   KeySpacePatchPacking,
		Type:   typeBool,
		Update: func(p *Parameters, v string) { p.SpacePatchPacking = parseBool(KeySpacePatchPacking, v, p) },
	},
}

// lookup returns the Variables entry for name, or nil if unrecognized.
func lookup(name string) *struct {
	Name     string
	Type     string
	Update   func(*Parameters, string)
	Validate func(*Parameters)
} {
	for i := range Variables {
		if Variables[i].Name == name {
			return &Variables[i]
		}
	}
	return nil
}

func parseInt(name, v string, p *Parameters) int {
	n, err := strconv.Atoi(v)
	if err != nil && p.Logger != nil {
		p.Logger.Warning(fmt.Sprintf("expected integer for param %s", name), "value", v)
	}
	return n
}

func parseFloat(name, v string, p *Parameters) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil && p.Logger != nil {
		p.Logger.Warning(fmt.Sprintf("expected float for param %s", name), "value", v)
	}
	return f
}

func parseBool(name, v string, p *Parameters) bool {
	switch strings.ToLower(v) {
	case "true":
		return true
	case "false":
		return false
	default:
		if p.Logger != nil {
			p.Logger.Warning(fmt.Sprintf("expected bool for param %s", name), "value", v)
		}
		return false
	}
}
