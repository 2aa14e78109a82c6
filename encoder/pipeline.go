/*
NAME
  pipeline.go

DESCRIPTION
  pipeline.go implements the public API of spec.md §4.9: set_parameter,
  initialize_encoder, encode_frame and empty_frame_queue, wiring the
  scheduler's job DAG per §4.2 over the config, frame, patchpack, atlas,
  vps and v3c packages. The Pipeline struct plays the role of
  github.com/ausocean/av/revid.Revid: a single object owning the
  configuration, the worker pool, and the downstream output queue,
  constructed once and driven by a small, explicitly sequenced public
  method set.

AUTHORS
  uvgVPCCenc contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package encoder wires the scheduler, patch pipeline, atlas/VPS builders
// and V3C muxer into uvgVPCCenc's four public entry points: set_parameter
// (via config.Parameters), initialize_encoder, encode_frame and
// empty_frame_queue.
package encoder

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/uvgvpccenc/annexb"
	"github.com/ausocean/uvgvpccenc/atlas"
	"github.com/ausocean/uvgvpccenc/config"
	"github.com/ausocean/uvgvpccenc/frame"
	"github.com/ausocean/uvgvpccenc/patchpack"
	"github.com/ausocean/uvgvpccenc/scheduler"
	"github.com/ausocean/uvgvpccenc/v3c"
	"github.com/ausocean/uvgvpccenc/videoenc"
	"github.com/ausocean/uvgvpccenc/vps"
)

// Pipeline is the encoder's public API surface. Zero value is not usable;
// construct with New.
type Pipeline struct {
	Params *config.Parameters

	log logging.Logger

	sched     *scheduler.Scheduler
	semaphore *scheduler.Semaphore
	output    *v3c.Queue
	muxer     *v3c.Muxer

	generator patchpack.Generator
	packer    patchpack.Packer
	mapGen    patchpack.MapGenerator

	mu          sync.Mutex
	started     bool
	frameCount  int
	currentGOF  *gofState
	lastMuxJob  *scheduler.Job
	debugDirRes string // Resolved once at InitializeEncoder; see debugDir.
}

// gofState tracks the jobs and collaborators live for one in-progress GOF.
type gofState struct {
	gof *frame.GOF

	interPack *scheduler.Job
	initMap   *scheduler.Job
	encode2D  *scheduler.Job
	mux       *scheduler.Job

	asps *atlas.ASPS
	afps *atlas.AFPS
}

// New returns a Pipeline with default parameters. Call SetParameter any
// number of times, then InitializeEncoder, before EncodeFrame.
func New(log logging.Logger) *Pipeline {
	return &Pipeline{
		Params: config.New(log),
		log:    log,
		output: v3c.NewQueue(4),
		muxer:  v3c.NewMuxer(log),
	}
}

// SetParameter implements spec.md §4.9's set_parameter entry point.
func (p *Pipeline) SetParameter(name, value string) error {
	return p.Params.SetParameter(name, value)
}

// InitializeEncoder implements spec.md §4.9's initialize_encoder: freezes
// the configuration, constructs the collaborator reference
// implementations and starts the worker pool.
func (p *Pipeline) InitializeEncoder() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.Params.Freeze(); err != nil {
		return err
	}

	p.generator = patchpack.NewGenerator()
	p.packer = patchpack.NewPacker()
	p.mapGen = patchpack.NewMapGenerator()

	p.semaphore = scheduler.NewSemaphore(p.Params.MaxConcurrentFrames)
	numWorkers := p.Params.NbThreadPCPart
	if numWorkers == 0 {
		numWorkers = runtime.NumCPU() // spec.md §5: 0 selects hardware concurrency.
	}
	p.sched = scheduler.New(numWorkers)
	if p.Params.TimerLog {
		p.sched.EnableTimerLog(p.log)
	}
	p.sched.Start()

	p.debugDirRes = p.Params.IntermediateFilesDir
	if p.debugDirRes == "" {
		p.debugDirRes = "."
	}
	if p.Params.IntermediateFilesDirTimeStamp {
		p.debugDirRes = filepath.Join(p.debugDirRes, fmt.Sprintf("uvgvpccenc-%d", time.Now().UnixNano()))
	}

	p.started = true
	return nil
}

// Output returns the chunk queue consumers read finished GOFs from.
func (p *Pipeline) Output() *v3c.Queue { return p.output }

// EncodeFrame implements spec.md §4.9's encode_frame: acquires the
// in-flight semaphore, builds/extends the current GOF's job graph, and
// submits frame-level jobs immediately; GOF-level jobs are submitted once
// the GOF fills (§4.2).
func (p *Pipeline) EncodeFrame(f *frame.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return fmt.Errorf("encoder: EncodeFrame called before InitializeEncoder")
	}

	p.semaphore.Acquire()

	f.GeoBitDepthInput = p.Params.GeoBitDepthInput
	f.DropOutOfRangeWithCallback(func(idx int, pt frame.Point) {
		if p.log != nil {
			p.log.Warning("dropping out-of-range point", "frame", f.ID, "index", idx)
		}
	})

	sizeGOF := p.Params.SizeGOF
	indexInGOF := p.frameCount % sizeGOF
	if indexInGOF == 0 {
		p.startGOF()
	}
	gs := p.currentGOF
	gs.gof.AddFrame(f)

	p.wireFrameJobs(gs, f)

	p.frameCount++
	if gs.gof.Full(sizeGOF) {
		p.submitGOFJobs(gs)
		p.currentGOF = nil
	}
	return nil
}

// EmptyFrameQueue implements spec.md §4.9's empty_frame_queue: submits
// the trailing, possibly short, GOF and blocks until its Mux job
// completes.
func (p *Pipeline) EmptyFrameQueue() error {
	p.mu.Lock()
	gs := p.currentGOF
	if gs != nil {
		p.submitGOFJobs(gs)
		p.currentGOF = nil
	}
	last := p.lastMuxJob
	p.mu.Unlock()

	if last == nil {
		return nil
	}
	return last.Wait()
}

// Stop shuts down the worker pool. Call after EmptyFrameQueue.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sched != nil {
		p.sched.Stop()
	}
}

// startGOF begins a new GOF's job graph, wiring GOF-scope jobs per
// spec.md §4.2 step 1. Caller holds p.mu.
func (p *Pipeline) startGOF() {
	gofID := p.frameCount / p.Params.SizeGOF
	gs := &gofState{gof: frame.NewGOF(gofID)}

	interPackOn := p.Params.InterPackingEnabled()

	if interPackOn {
		gs.interPack = scheduler.NewJob(fmt.Sprintf("InterPack(%d)", gofID), 3, func() error {
			_, err := p.packer.GofInterPack(gs.gof, p.Params.MapWidth, p.Params.OccupancyMapDSResolution, p.Params.GPATresholdIoU)
			return err
		})
	}

	// InitMapGen finalizes the GOF's common mapHeight (spec.md §3: "max of
	// any constituent frame") once every frame's packing job has run, then
	// builds the ASPS/AFPS that need that final height.
	gs.initMap = scheduler.NewJob(fmt.Sprintf("InitMapGen(%d)", gofID), 3, func() error {
		gs.gof.FinalizeMapHeight()
		p.applyMinimumMapHeight(gs.gof)
		gs.asps = atlas.NewASPS(gs.gof.VPSParameterSetID, p.Params.MapWidth, gs.gof.MapHeight,
			p.Params.GeoBitDepthInput, p.Params.OccupancyMapDSResolution, p.Params.DoubleLayer)
		gs.afps = atlas.NewAFPS(gs.gof.VPSParameterSetID, gs.asps.ASPSID)
		return p.mapGen.InitGOFMapGen(gs.gof, p.Params.MapWidth, p.Params.OccupancyMapDSResolution, p.Params.DoubleLayer)
	})
	if gs.interPack != nil {
		gs.initMap.AddDependency(gs.interPack)
	}

	gs.encode2D = scheduler.NewJob(fmt.Sprintf("Encode2D(%d)", gofID), 2, func() error {
		return p.encode2D(gs)
	})
	gs.encode2D.AddDependency(gs.initMap)

	gs.mux = scheduler.NewJob(fmt.Sprintf("Mux(%d)", gofID), 1, func() error {
		return p.muxGOF(gs)
	})
	gs.mux.AddDependency(gs.encode2D)
	if p.lastMuxJob != nil {
		gs.mux.AddDependency(p.lastMuxJob)
	}
	p.lastMuxJob = gs.mux

	p.currentGOF = gs
}

// wireFrameJobs creates and submits F's frame-scope jobs, per spec.md
// §4.2 steps 2-4. Caller holds p.mu.
func (p *Pipeline) wireFrameJobs(gs *gofState, f *frame.Frame) {
	interPackOn := p.Params.InterPackingEnabled()

	patchGen := scheduler.NewJob(fmt.Sprintf("PatchGen(%d)", f.ID), 4, func() error {
		return p.generator.Generate(f)
	})

	genMaps := scheduler.NewJob(fmt.Sprintf("GenFrameMaps(%d)", f.ID), 2, func() error {
		if err := p.mapGen.GenFrameMaps(f); err != nil {
			return err
		}
		if p.Params.ExportIntermediateFiles {
			mapWidthInBlk := p.Params.MapWidth / p.Params.OccupancyMapDSResolution
			mapHeightInBlk := f.MapHeight / p.Params.OccupancyMapDSResolution
			if err := patchpack.ExportOccupancyPNG(f, mapWidthInBlk, mapHeightInBlk, p.debugDir()); err != nil {
				return fmt.Errorf("encoder: GenFrameMaps: %w", err)
			}
		}
		return nil
	})
	genMaps.AddDependency(gs.initMap)
	gs.encode2D.AddDependency(genMaps)

	if interPackOn {
		gs.interPack.AddDependency(patchGen)
		p.sched.Submit(patchGen)
		p.sched.Submit(genMaps)
		return
	}

	allocOM := scheduler.NewJob(fmt.Sprintf("AllocOM(%d)", f.ID), 3, func() error {
		return p.packer.AllocOM(f, p.Params.OccupancyMapDSResolution)
	})
	allocOM.AddDependency(patchGen)

	intraPack := scheduler.NewJob(fmt.Sprintf("IntraPack(%d)", f.ID), 3, func() error {
		return p.packer.IntraPack(f, p.Params.MapWidth)
	})
	intraPack.AddDependency(allocOM)
	gs.initMap.AddDependency(intraPack)
	genMaps.AddDependency(intraPack)

	p.sched.Submit(patchGen)
	p.sched.Submit(allocOM)
	p.sched.Submit(intraPack)
	p.sched.Submit(genMaps)
}

// submitGOFJobs submits a GOF's GOF-scope jobs once it is full or at
// end-of-stream (spec.md §4.2 step 4). Caller holds p.mu.
func (p *Pipeline) submitGOFJobs(gs *gofState) {
	if gs.interPack != nil {
		p.sched.Submit(gs.interPack)
	}
	p.sched.Submit(gs.initMap)
	p.sched.Submit(gs.encode2D)
	p.sched.Submit(gs.mux)
}

// encode2D drives the three 2D video encoders over the GOF's generated
// maps, producing Annex-B byte streams that the muxer later consumes
// (spec.md §2, §4.9).
func (p *Pipeline) encode2D(gs *gofState) error {
	occFrames := make([][]byte, 0, len(gs.gof.Frames))
	geoFrames := make([][]byte, 0, len(gs.gof.Frames))
	attrFrames := make([][]byte, 0, len(gs.gof.Frames))
	for _, f := range gs.gof.Frames {
		occFrames = append(occFrames, f.Maps.Occupancy)
		geoFrames = append(geoFrames, f.Maps.Geometry1)
		attrFrames = append(attrFrames, f.Maps.Attribute1)
		if p.Params.DoubleLayer {
			geoFrames = append(geoFrames, f.Maps.Geometry2)
			attrFrames = append(attrFrames, f.Maps.Attribute2)
		}
	}

	codec := videoenc.Kvazaar
	if p.Params.GeometryEncoderName == "uvg266" {
		codec = videoenc.Uvg266
	}

	width, height := p.Params.MapWidth, gs.gof.MapHeight

	occEnc := videoenc.NewEncoder(codec)
	occAnnexB, err := occEnc.Encode(occFrames, videoenc.Params{Codec: codec, Width: width, Height: height,
		QP: p.Params.OccupancyEncodingQp, Lossless: true, Preset: p.Params.EncoderPreset, NumThreads: p.Params.OccupancyEncodingNbThread})
	if err != nil {
		return fmt.Errorf("encoder: Encode2D: occupancy: %w", err)
	}

	geoEnc := videoenc.NewEncoder(codec)
	geoAnnexB, err := geoEnc.Encode(geoFrames, videoenc.Params{Codec: codec, Width: width, Height: height,
		QP: p.Params.GeometryQP, Preset: p.Params.EncoderPreset, NumThreads: p.Params.GeometryEncodingNbThread})
	if err != nil {
		return fmt.Errorf("encoder: Encode2D: geometry: %w", err)
	}

	attrEnc := videoenc.NewEncoder(codec)
	attrAnnexB, err := attrEnc.Encode(attrFrames, videoenc.Params{Codec: codec, Width: width, Height: height,
		QP: p.Params.AttributeQP, Preset: p.Params.EncoderPreset, NumThreads: p.Params.AttributeEncodingNbThread})
	if err != nil {
		return fmt.Errorf("encoder: Encode2D: attribute: %w", err)
	}

	// The muxer consumes OVD/GVD/AVD as 4-byte-prefixed sample streams
	// (spec.md §6), not the encoders' native Annex-B output, so every
	// plane is transcoded here once per GOF.
	gs.gof.OVD, err = toSampleStream(occAnnexB)
	if err != nil {
		return fmt.Errorf("encoder: Encode2D: occupancy sample stream: %w", err)
	}
	gs.gof.GVD, err = toSampleStream(geoAnnexB)
	if err != nil {
		return fmt.Errorf("encoder: Encode2D: geometry sample stream: %w", err)
	}
	gs.gof.AVD, err = toSampleStream(attrAnnexB)
	if err != nil {
		return fmt.Errorf("encoder: Encode2D: attribute sample stream: %w", err)
	}
	return nil
}

// encoderSampleStreamPrecision is the fixed 4-byte length-prefix width
// the 2D video encoders' sample streams use, per spec.md §6.
const encoderSampleStreamPrecision = 4

func toSampleStream(annexBytes []byte) ([]byte, error) {
	out, _, err := annexb.ToSampleStream(annexBytes, encoderSampleStreamPrecision, false)
	return out, err
}

// muxGOF builds the GOF's VPS and atlas context, then muxes in classical
// or low-delay mode per lowDelayBitstream, and pushes the resulting chunk
// onto the output queue. Frames and their patch/map state are released
// once this returns, since nothing downstream references them again
// (spec.md §3: "destroyed when its muxer job has pushed its chunk").
func (p *Pipeline) muxGOF(gs *gofState) error {
	codecGroup := vps.CodecGroupHEVCMain10
	if p.Params.GeometryEncoderName == "uvg266" {
		codecGroup = vps.CodecGroupVVCMain10
	}
	v := vps.Build(gs.gof.ID, p.Params.MapWidth, gs.gof.MapHeight, p.Params.DoubleLayer, codecGroup)
	vpsBytes := v.Bytes()

	tiles := make([]*atlas.TileLayer, len(gs.gof.Frames))
	for i, f := range gs.gof.Frames {
		tiles[i] = atlas.NewTileLayer(f, gs.asps, i, p.Params.MinLevel, false)
	}
	ctx := atlas.NewContext(gs.asps, gs.afps, tiles)

	var chunk *v3c.Chunk
	var err error
	if p.Params.LowDelayBitstream {
		chunk, err = p.muxer.MuxLowDelay(v3c.LowDelayInput{
			GOFID:       gs.gof.ID,
			VPSBytes:    vpsBytes,
			Atlas:       ctx,
			NbFrames:    len(gs.gof.Frames),
			DoubleLayer: p.Params.DoubleLayer,
			OVD:         gs.gof.OVD,
			GVD:         gs.gof.GVD,
			AVD:         gs.gof.AVD,
		})
	} else {
		atlasBytes, sizeErr := ctx.EmitClassical()
		if sizeErr != nil {
			return fmt.Errorf("encoder: Mux: atlas emission: %w", sizeErr)
		}
		chunk, err = p.muxer.MuxClassical(v3c.GOFInput{
			GOFID:             gs.gof.ID,
			VPSBytes:          vpsBytes,
			AtlasSubBitstream: atlasBytes,
			OVD:               gs.gof.OVD,
			GVD:               gs.gof.GVD,
			AVD:               gs.gof.AVD,
			MapCount:          mapCount(p.Params.DoubleLayer),
		})
	}
	if err != nil {
		return fmt.Errorf("encoder: Mux: %w", err)
	}

	p.output.Push(chunk)
	for range gs.gof.Frames {
		p.semaphore.Release()
	}
	return nil
}

// applyMinimumMapHeight enforces the minimumMapHeight floor (spec.md §6's
// atlas geometry parameter) after FinalizeMapHeight has picked the max of
// the GOF's constituent frames, propagating any raise back to every frame
// the same way FinalizeMapHeight does.
func (p *Pipeline) applyMinimumMapHeight(g *frame.GOF) {
	if g.MapHeight >= p.Params.MinimumMapHeight {
		return
	}
	g.MapHeight = p.Params.MinimumMapHeight
	for _, f := range g.Frames {
		f.MapHeight = g.MapHeight
	}
}

// debugDir returns the directory intermediate debug files are written
// to, resolved once at InitializeEncoder (spec.md §6's
// intermediateFilesDir/intermediateFilesDirTimeStamp parameters).
func (p *Pipeline) debugDir() string { return p.debugDirRes }

func mapCount(doubleLayer bool) int {
	if doubleLayer {
		return 2
	}
	return 1
}
