/*
NAME
  debug.go

DESCRIPTION
  debug.go renders a frame's occupancy map to a PNG file when
  exportIntermediateFiles is enabled (spec.md §6), for visual debugging of
  the packing stages. Grounded on gonum.org/v1/plot's plotter.Image, the
  same raster-to-plot path used for diagnostic imagery in the geometry and
  3D-reconstruction examples of the retrieval pack.

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
	"image"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ausocean/uvgvpccenc/frame"
)

// ExportOccupancyPNG renders f's occupancy map (mapWidthInBlk x
// mapHeightInBlk blocks, one byte each) as a black/white PNG under dir,
// creating dir if necessary. Intended to be called from GenFrameMaps only
// when Parameters.ExportIntermediateFiles is set.
func ExportOccupancyPNG(f *frame.Frame, mapWidthInBlk, mapHeightInBlk int, dir string) error {
	if len(f.Maps.Occupancy) != mapWidthInBlk*mapHeightInBlk {
		return fmt.Errorf("patchpack: ExportOccupancyPNG: occupancy buffer size %d != %d*%d", len(f.Maps.Occupancy), mapWidthInBlk, mapHeightInBlk)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("patchpack: ExportOccupancyPNG: %w", err)
	}

	img := image.NewGray(image.Rect(0, 0, mapWidthInBlk, mapHeightInBlk))
	for y := 0; y < mapHeightInBlk; y++ {
		for x := 0; x < mapWidthInBlk; x++ {
			g := uint8(0)
			if f.Maps.Occupancy[y*mapWidthInBlk+x] != 0 {
				g = 255
			}
			// Plot's image origin is bottom-left; flip so block (0,0) renders
			// at the top of the PNG, matching the map's raster order.
			img.SetGray(x, mapHeightInBlk-1-y, color.Gray{Y: g})
		}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("frame %d occupancy map", f.ID)
	p.Add(plotter.NewImage(img, 0, 0, float64(mapWidthInBlk), float64(mapHeightInBlk)))

	path := filepath.Join(dir, fmt.Sprintf("frame-%04d-occupancy.png", f.ID))
	if err := p.Save(vg.Length(mapWidthInBlk)*vg.Centimeter/10, vg.Length(mapHeightInBlk)*vg.Centimeter/10, path); err != nil {
		return fmt.Errorf("patchpack: ExportOccupancyPNG: %w", err)
	}
	return nil
}
