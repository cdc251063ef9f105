// Command layerdemo drives a synthetic scene through the layer resource
// cache and prints what it built.
package main

import (
	"flag"
	"image/color"
	"log"
	"log/slog"
	"math"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/gogpu/layercache"
	"github.com/gogpu/layercache/layer"
	"github.com/gogpu/layercache/resource"
)

func main() {
	var (
		config  = flag.String("config", "", "TOML config file")
		frames  = flag.Int("frames", 10, "frames to draw")
		width   = flag.Int("width", 256, "raster width")
		step    = flag.Float64("step", 5, "reconstruction time step per frame (Ma)")
		mapView = flag.Bool("map", false, "draw on a flat map instead of the globe")
		verbose = flag.Bool("v", false, "log rebuild decisions")
	)
	flag.Parse()

	if *verbose {
		layercache.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	var opts []layercache.Option
	if *config != "" {
		cfg, err := layercache.LoadConfig(*config)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		opts = append(opts, layercache.WithConfig(cfg))
	}

	cache, err := layercache.New(nil, opts...)
	if err != nil {
		log.Fatalf("Failed to create cache: %v", err)
	}
	defer cache.Close()

	topo := layer.NewRasterProxy("topography", cache.Batch())
	plates := layer.NewReconstructionProxy("plates", cache.Batch())
	ages := layer.NewRasterProxy("ages", cache.Batch())
	cache.Update(func() {
		topo.SetRaster(wave(*width, *width/2, 1))
		topo.SetGeoreferencing(layer.GlobalGeoreferencing())
		ages.SetRaster(wave(*width/4, *width/8, 200))
		ages.SetGeoreferencing(layer.GlobalGeoreferencing())
		plates.SetPolygons(platePolygons())
		plates.SetStagePole(1, layer.LatLon{Lat: 60, Lon: 20}, 0.5)
		plates.SetStagePole(2, layer.LatLon{Lat: -30, Lon: 120}, 0.8)
	})

	palette := layer.MustScalarPalette(
		layer.Stop{Value: 0, Colour: color.RGBA{R: 20, G: 60, B: 160, A: 255}},
		layer.Stop{Value: 0.5, Colour: color.RGBA{R: 90, G: 160, B: 80, A: 255}},
		layer.Stop{Value: 1, Colour: color.RGBA{R: 240, G: 240, B: 230, A: 255}},
	)

	var (
		draws     int
		tileBytes uint64
	)
	view := layercache.ViewFunc(func(cmd layercache.DrawCommand) {
		draws++
		if cmd.Cube != nil {
			tileBytes = cmd.Cube.Tiles.SizeBytes()
		}
	})

	params := layercache.RasterParams{
		Raster:         topo,
		Palette:        palette,
		Reconstruction: plates,
		AgeGrid:        ages,
	}
	if *mapView {
		params.Map = &resource.MapProjection{Width: *width, Height: *width / 2}
	}

	for f := 0; f < *frames; f++ {
		params.Time = float64(f) * *step
		h := cache.RenderRaster(view, params)
		cache.RenderFilledPolygons(view, platePolygons(), color.RGBA{R: 200, A: 128})
		h.Release()
	}

	log.Printf("Drew %d commands over %d frames, cube tiles %s", draws, *frames, humanize.IBytes(tileBytes))
	log.Printf("%s", cache.Stats())
}

// wave returns a w x h scalar raster of a smooth pattern scaled to max.
func wave(w, h int, scale float64) *layer.RawRaster {
	samples := make([]float32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := 0.5 + 0.25*math.Sin(float64(x)/float64(w)*4*math.Pi) + 0.25*math.Cos(float64(y)/float64(h)*3*math.Pi)
			samples[y*w+x] = float32(v * scale)
		}
	}
	r, err := layer.NewScalarRaster(w, h, samples)
	if err != nil {
		log.Fatalf("Failed to build raster: %v", err)
	}
	return r
}

func platePolygons() []layer.Polygon {
	return []layer.Polygon{
		{PlateID: 1, Ring: []layer.LatLon{{Lat: 10, Lon: -30}, {Lat: 10, Lon: 30}, {Lat: 50, Lon: 30}, {Lat: 50, Lon: -30}}},
		{PlateID: 2, Ring: []layer.LatLon{{Lat: -50, Lon: 90}, {Lat: -50, Lon: 150}, {Lat: -10, Lon: 150}, {Lat: -10, Lon: 90}}},
	}
}
