/*
NAME
  mapgen.go

DESCRIPTION
  mapgen.go implements the GenFrameMaps stage of spec.md §2/§4.2: once a
  frame's patches have been placed (AllocOM+IntraPack, or GofInterPack for
  RA mode), GenFrameMaps rasterises them into the five 2D maps (occupancy,
  geometry x1/x2, attribute x1/x2) that the video sub-bitstreams are
  encoded from. InitGOFMapGen performs the one-time, GOF-scope setup
  (map dimensions common to every frame in the GOF) that spec.md §4.2
  schedules ahead of the per-frame GenFrameMaps jobs.

AUTHORS
  uvgVPCCenc contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package patchpack

import (
	"fmt"

	"github.com/ausocean/uvgvpccenc/frame"
)

// MapGenerator rasterises a GOF's placed patches into the 2D maps the
// video sub-bitstream encoders consume (spec.md §2's InitMapGen+GenFrameMaps
// stages).
type MapGenerator interface {
	InitGOFMapGen(g *frame.GOF, mapWidth, dsResolution int, doubleLayer bool) error
	GenFrameMaps(f *frame.Frame) error
}

// NewMapGenerator returns a reference MapGenerator.
func NewMapGenerator() MapGenerator { return &refMapGen{} }

type refMapGen struct {
	mapWidth     int
	dsResolution int
	doubleLayer  bool
}

// InitGOFMapGen records the GOF-wide map geometry. Must run before any
// GenFrameMaps call for frames in g, per spec.md §4.2's job ordering.
func (m *refMapGen) InitGOFMapGen(g *frame.GOF, mapWidth, dsResolution int, doubleLayer bool) error {
	if mapWidth <= 0 || dsResolution <= 0 {
		return fmt.Errorf("patchpack: InitGOFMapGen: mapWidth=%d dsResolution=%d must be positive", mapWidth, dsResolution)
	}
	if mapWidth%dsResolution != 0 {
		return fmt.Errorf("patchpack: InitGOFMapGen: mapWidth %d not a multiple of dsResolution %d", mapWidth, dsResolution)
	}
	m.mapWidth = mapWidth
	m.dsResolution = dsResolution
	m.doubleLayer = doubleLayer
	return nil
}

// GenFrameMaps rasterises f's placed patches into f.Maps. Occupancy is one
// byte (0/1) per downsampled block; geometry and attribute are one byte
// per pixel at full map resolution, geometry carrying the patch's 3D
// depth offset and attribute carrying the mean red value of the points in
// the patch's U/V footprint,
// a simplified rasterisation since the actual projection/smoothing
// algorithm is out of scope (spec.md §1).
func (m *refMapGen) GenFrameMaps(f *frame.Frame) error {
	if m.mapWidth == 0 {
		return fmt.Errorf("patchpack: GenFrameMaps: InitGOFMapGen not called for frame %d's GOF", f.ID)
	}
	mapWidthInBlk := m.mapWidth / m.dsResolution
	mapHeightInBlk := f.MapHeight / m.dsResolution

	occ := make([]byte, mapWidthInBlk*mapHeightInBlk)
	geo1 := make([]byte, m.mapWidth*f.MapHeight)
	att1 := make([]byte, m.mapWidth*f.MapHeight)
	var geo2, att2 []byte
	if m.doubleLayer {
		geo2 = make([]byte, m.mapWidth*f.MapHeight)
		att2 = make([]byte, m.mapWidth*f.MapHeight)
	}

	for i := range f.PatchList {
		p := &f.PatchList[i]
		if err := p.CheckInvariants(m.dsResolution, mapWidthInBlk, mapHeightInBlk); err != nil {
			return fmt.Errorf("patchpack: GenFrameMaps: frame %d patch %d: %w", f.ID, i, err)
		}

		depth := byte(p.PosD & 0xff)
		attr := meanAttribute(f, p)

		for by := 0; by < p.HeightInOccBlk; by++ {
			for bx := 0; bx < p.WidthInOccBlk; bx++ {
				occupied := p.Occ[by*p.WidthInOccBlk+bx]
				blkX, blkY := p.OMDSPosX+bx, p.OMDSPosY+by
				occIdx := blkY*mapWidthInBlk + blkX
				if occupied {
					occ[occIdx] = 1
				}
				for py := 0; py < m.dsResolution; py++ {
					for px := 0; px < m.dsResolution; px++ {
						pixX := blkX*m.dsResolution + px
						pixY := blkY*m.dsResolution + py
						pixIdx := pixY*m.mapWidth + pixX
						if !occupied {
							continue
						}
						geo1[pixIdx] = depth
						att1[pixIdx] = attr
						if m.doubleLayer {
							geo2[pixIdx] = depth
							att2[pixIdx] = attr
						}
					}
				}
			}
		}
	}

	f.Maps = frame.Maps{
		Occupancy:  occ,
		Geometry1:  geo1,
		Geometry2:  geo2,
		Attribute1: att1,
		Attribute2: att2,
	}
	return nil
}

// meanAttribute returns the mean of the red channel of f's points whose X
// and Y fall within p's U/V footprint (depth is not tested), or 0 if none
// fall within it.
func meanAttribute(f *frame.Frame, p *frame.Patch) byte {
	var sum, n int
	maxU := p.PosU + p.WidthInPixel
	maxV := p.PosV + p.HeightInPixel
	for _, pt := range f.Points {
		u, v := int(pt.X), int(pt.Y)
		if u >= p.PosU && u < maxU && v >= p.PosV && v < maxV {
			sum += int(pt.R)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return byte(sum / n)
}
