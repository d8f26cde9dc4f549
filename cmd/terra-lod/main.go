package main

import (
	"flag"
	"log"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/xlab/closer"

	"terra-lod/internal/config"
	"terra-lod/internal/profiling"
	"terra-lod/internal/scene"
	"terra-lod/internal/terrain"
)

func main() {
	configPath := flag.String("config", "", "path to YAML settings (empty = built-in defaults)")
	frames := flag.Int("frames", 0, "stop after this many frames (0 = run until interrupted)")
	rate := flag.Float64("rate", 60, "simulation rate, frames per second")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("load settings: %v", err)
		}
	}

	world, err := scene.NewWorld(cfg)
	if err != nil {
		log.Fatalf("create world: %v", err)
	}

	tr, err := world.AddTerrain("terrain", cfg.Bounds, mgl32.Ident4(), cfg.Lod, terrain.NewGenerator(cfg.Terrain))
	if err != nil {
		log.Fatalf("add terrain: %v", err)
	}

	stop := make(chan struct{})
	closer.Bind(func() {
		close(stop)
	})

	go func() {
		defer closer.Close()
		run(world, tr, cfg.Viewer, *frames, *rate, stop)
		world.Close()
	}()

	closer.Hold()
}

// run drives the owning-thread frame loop: fly the viewer, evaluate the
// trees, drain completed meshes, and stand in for the GPU upload step by
// consuming the dirty flag.
func run(world *scene.World, tr *scene.Terrain, vs config.ViewerSettings, frames int, rate float64, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
	defer ticker.Stop()

	start := time.Now()
	lastLog := start
	frame := 0
	uploads := 0
	instances := 0

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		profiling.ResetFrame()
		t := float32(time.Since(start).Seconds())

		// Orbit the terrain while oscillating toward and away from it, so
		// both split and collapse paths stay busy.
		radius := vs.OrbitRadius + vs.ApproachSpan*float32(math.Cos(float64(vs.ApproachRate*t)))
		angle := vs.OrbitSpeed * t
		world.SetViewer(mgl32.Vec3{
			radius * float32(math.Cos(float64(angle))),
			vs.Height,
			radius * float32(math.Sin(float64(angle))),
		})

		world.Step()

		// GPU-upload stand-in: rebuild the instance list when it changed.
		if tr.Tree.Dirty() {
			instances = 0
			for range tr.Tree.VisibleLeaves() {
				instances++
			}
			tr.Tree.ClearDirty()
			uploads++
		}

		frame++
		if time.Since(lastLog) >= time.Second {
			log.Printf("frame %d: viewer r=%.0f chunks=%d visible=%d instances=%d pending=%d applied=%d uploads=%d [%s]",
				frame, radius, world.ChunkCount(), world.VisibleCount(), instances,
				world.PendingTasks(), world.MeshesApplied(), uploads, profiling.TopN(3))
			lastLog = time.Now()
		}

		if frames > 0 && frame >= frames {
			return
		}
	}
}
