/*
DESCRIPTION
  uvgvpccenc is a thin reference front-end for the encoder package: it
  reads a directory of per-frame point cloud files, drives the public API
  (SetParameter/InitializeEncoder/EncodeFrame/EmptyFrameQueue) and writes
  the resulting V3C chunks to an output file. It exists to exercise the
  pipeline end to end, not as a production ingestion tool (spec.md §1's
  scope excludes an ingestion/CLI subsystem).

AUTHORS
  uvgVPCCenc contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package main is the uvgVPCCenc reference command-line encoder.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/uvgvpccenc/config"
	"github.com/ausocean/uvgvpccenc/encoder"
	"github.com/ausocean/uvgvpccenc/frame"
)

const version = "v0.1.0"

// Logging configuration, mirroring cmd/rv's rotating-file sink.
const (
	logPath      = "uvgvpccenc.log"
	logMaxSize   = 100 // MB
	logMaxBackup = 5
	logMaxAge    = 28 // days
	logSuppress  = true
)

// pointRecordSize is the on-disk size of one binary point record: three
// big-endian uint32 geometry coordinates followed by three attribute
// bytes.
const pointRecordSize = 3*4 + 3

func main() {
	var (
		inDir            = flag.String("in", "", "directory of per-frame point cloud files (*.pts), read in sorted name order")
		out              = flag.String("out", "out.v3c", "output bitstream file")
		geoBitDepth      = flag.Int("geoBitDepthInput", 0, "input geometry bit depth; 0 auto-detects from a \"voxNN\" marker in the input file names")
		mode             = flag.String("mode", config.DefaultMode, "RA or AI")
		rate             = flag.String("rate", "", "\"G-A-O\" geometry/attribute QP and occupancy DS resolution, overrides individual QP flags")
		sizeGOF          = flag.Int("sizeGOF", config.DefaultSizeGOF, "frames per group of frames")
		mapWidth         = flag.Int("mapWidth", config.DefaultMapWidth, "atlas width in pixels")
		minimumMapHeight = flag.Int("minimumMapHeight", config.DefaultMinimumMapHeight, "atlas minimum height in pixels")
		occDS            = flag.Int("occupancyMapDSResolution", config.DefaultOccupancyMapDSResolution, "occupancy map downsample block size")
		nbThread         = flag.Int("nbThreadPCPart", config.DefaultNbThreadPCPart, "worker thread count, 0 for hardware concurrency")
		interPack        = flag.Bool("interPatchPacking", true, "enable inter-GOF patch packing in RA mode")
		lowDelay         = flag.Bool("lowDelayBitstream", false, "emit a low-delay (per-frame-unit) bitstream instead of classical")
		errorsFatal      = flag.Bool("errorsAreFatal", false, "treat configuration errors as fatal")
		showVersion      = flag.Bool("version", false, "show version")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(logging.Info, io.MultiWriter(fileLog, os.Stderr), logSuppress)
	log.Info("starting uvgvpccenc", "version", version)

	if *inDir == "" {
		log.Fatal("uvgvpccenc: -in is required")
	}

	files, err := framesInDir(*inDir)
	if err != nil {
		log.Fatal("uvgvpccenc: could not list input directory", "error", err.Error())
	}
	if len(files) == 0 {
		log.Fatal("uvgvpccenc: no *.pts files found", "dir", *inDir)
	}

	resolvedGeoBitDepth := *geoBitDepth
	if resolvedGeoBitDepth == 0 {
		resolvedGeoBitDepth = detectVoxelSize(files[0])
		if resolvedGeoBitDepth == 0 {
			log.Fatal("uvgvpccenc: geoBitDepthInput is not set and could not be detected from the input file name (expected a \"voxNN\" marker)", "file", files[0])
		}
		log.Info("detected geoBitDepthInput from file name", "file", files[0], "geoBitDepthInput", resolvedGeoBitDepth)
	}

	p := encoder.New(log)
	set := func(name, value string) {
		if err := p.SetParameter(name, value); err != nil {
			log.Fatal("uvgvpccenc: set_parameter failed", "name", name, "error", err.Error())
		}
	}
	set(config.KeyErrorsAreFatal, boolString(*errorsFatal))
	set(config.KeyGeoBitDepthInput, fmt.Sprint(resolvedGeoBitDepth))
	set(config.KeyMode, *mode)
	set(config.KeySizeGOF, fmt.Sprint(*sizeGOF))
	set(config.KeyMaxConcurrentFrames, fmt.Sprint(*sizeGOF))
	set(config.KeyMapWidth, fmt.Sprint(*mapWidth))
	set(config.KeyMinimumMapHeight, fmt.Sprint(*minimumMapHeight))
	set(config.KeyOccupancyMapDSResolution, fmt.Sprint(*occDS))
	set(config.KeyNbThreadPCPart, fmt.Sprint(*nbThread))
	set(config.KeyInterPatchPacking, boolString(*interPack))
	set(config.KeyLowDelayBitstream, boolString(*lowDelay))
	if *rate != "" {
		set(config.KeyRate, *rate)
	}

	if err := p.InitializeEncoder(); err != nil {
		log.Fatal("uvgvpccenc: initialize_encoder failed", "error", err.Error())
	}
	defer p.Stop()

	log.Info("encoding frames", "count", len(files))

	outFile, err := os.Create(*out)
	if err != nil {
		log.Fatal("uvgvpccenc: could not create output file", "error", err.Error())
	}
	defer outFile.Close()

	for i, path := range files {
		f, err := readFrame(i, path)
		if err != nil {
			log.Fatal("uvgvpccenc: could not read frame", "path", path, "error", err.Error())
		}
		if err := p.EncodeFrame(f); err != nil {
			log.Fatal("uvgvpccenc: encode_frame failed", "path", path, "error", err.Error())
		}
	}
	// EmptyFrameQueue blocks until the trailing GOF's Mux job has run, by
	// which point every chunk it and every prior GOF produced is already
	// sitting in the output queue (spec.md §4.9), so draining afterwards
	// needs no concurrent consumer.
	if err := p.EmptyFrameQueue(); err != nil {
		log.Fatal("uvgvpccenc: empty_frame_queue failed", "error", err.Error())
	}

	for p.Output().Len() > 0 {
		c := p.Output().Pop()
		if _, err := outFile.Write(c.Data); err != nil {
			log.Fatal("uvgvpccenc: writing output failed", "error", err.Error())
		}
		log.Debug("wrote chunk", "gofID", c.GOFID, "bytes", c.Len())
	}
	log.Info("finished", "out", *out)
}

// voxelSizePattern matches a "voxNN" geometry-precision marker embedded
// in an input file name, grounded on
// _examples/original_source/src/app/cli.cpp's select_voxel_size_auto.
var voxelSizePattern = regexp.MustCompile(`vox([0-9]+)`)

// detectVoxelSize returns the geometry bit depth encoded in name as a
// "voxNN" marker, or 0 if none is present.
func detectVoxelSize(name string) int {
	m := voxelSizePattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// framesInDir returns the *.pts files under dir in sorted name order,
// the ingest order EncodeFrame expects (spec.md §4.9).
func framesInDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".pts" {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// readFrame reads a *.pts file: a flat sequence of fixed-size binary
// point records (pointRecordSize bytes each).
func readFrame(id int, path string) (*frame.Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data)%pointRecordSize != 0 {
		return nil, fmt.Errorf("%s: length %d not a multiple of record size %d", path, len(data), pointRecordSize)
	}
	n := len(data) / pointRecordSize
	f := &frame.Frame{ID: id, Points: make([]frame.Point, n)}
	for i := 0; i < n; i++ {
		rec := data[i*pointRecordSize:]
		f.Points[i] = frame.Point{
			X: binary.BigEndian.Uint32(rec[0:4]),
			Y: binary.BigEndian.Uint32(rec[4:8]),
			Z: binary.BigEndian.Uint32(rec[8:12]),
			R: rec[12],
			G: rec[13],
			B: rec[14],
		}
	}
	return f, nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
