// Batchbench drives the batching pipeline headlessly and reports frame statistics.
//
//	go build ./cmd/batchbench
//	./batchbench -cubes 5000 -lights 40 -frames 600 -move 64
//	go tool pprof -http=":8000" ./batchbench cpu.pprof
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Carmen-Shannon/oxy-batch/engine"
	"github.com/Carmen-Shannon/oxy-batch/engine/batching"
	"github.com/Carmen-Shannon/oxy-batch/engine/config"
	"github.com/Carmen-Shannon/oxy-batch/engine/ecs"
	"github.com/Carmen-Shannon/oxy-batch/engine/logging"
	"github.com/Carmen-Shannon/oxy-batch/engine/scene"
	"github.com/pkg/profile"
	"go.uber.org/zap"
)

type options struct {
	configPath string
	scenePath  string
	savePath   string
	cubes      int
	texture    string
	lights     int
	frames     uint64
	move       int
	profile    string
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "TOML config file (defaults are used if empty)")
	flag.StringVar(&o.scenePath, "scene", "", "YAML scene file; overrides assets.scene and -cubes")
	flag.StringVar(&o.savePath, "save", "", "write the generated scene to this YAML file and exit")
	flag.IntVar(&o.cubes, "cubes", 1000, "number of cubes in the generated scene")
	flag.StringVar(&o.texture, "texture", "", "texture applied to every other generated cube")
	flag.IntVar(&o.lights, "lights", 8, "number of point lights in the generated scene")
	flag.Uint64Var(&o.frames, "frames", 300, "frames to draw before exiting (0 = until interrupted)")
	flag.IntVar(&o.move, "move", 0, "entities moved per frame through the incremental path")
	flag.StringVar(&o.profile, "profile", "", "cpu or mem; overrides profiling.mode")
	flag.Parse()

	if err := run(o); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(o options) error {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return err
		}
	}
	if o.profile != "" {
		cfg.Profiling.Mode = o.profile
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	s, err := loadScene(o, cfg)
	if err != nil {
		return err
	}
	if o.savePath != "" {
		if err := scene.Save(s, o.savePath); err != nil {
			return err
		}
		log.Info("scene saved", zap.String("path", o.savePath), zap.Int("entities", s.World().Len()))
		return nil
	}

	switch cfg.Profiling.Mode {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(cfg.Profiling.Path), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath(cfg.Profiling.Path), profile.NoShutdownHook).Stop()
	}

	eng, err := engine.NewEngine(
		engine.WithConfig(cfg),
		engine.WithLogger(log),
		engine.WithScene(0, s),
		engine.WithMaxFrames(o.frames),
	)
	if err != nil {
		return err
	}
	defer eng.Release()

	if o.move > 0 {
		mover := newMover(s.World(), o.move)
		eng.SetRenderCallback(func(dt float32) {
			eng.Notify(mover.step(dt))
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	if err := eng.Run(ctx); err != nil {
		return err
	}
	elapsed := time.Since(start)

	frames := eng.Frames()
	fps := 0.0
	if elapsed > 0 {
		fps = float64(frames) / elapsed.Seconds()
	}
	log.Info("benchmark complete",
		zap.Uint64("frames", frames),
		zap.Duration("elapsed", elapsed),
		zap.Float64("fps", fps),
		zap.Object("last_frame", eng.RenderManager().Statistics()))
	return nil
}

func loadScene(o options, cfg *config.Config) (scene.Scene, error) {
	path := o.scenePath
	if path == "" {
		path = cfg.Assets.Scene
	}
	if path != "" {
		return scene.Load(path)
	}
	return generateScene(o.cubes, o.lights, o.texture), nil
}

// generateScene lays cubes out on a square grid in front of a main camera, with lights above them.
func generateScene(cubes, lights int, texture string) scene.Scene {
	s := scene.NewScene(scene.WithName("generated"), scene.WithCapacity(cubes+lights+1))
	w := s.World()

	side := 1
	for side*side < cubes {
		side++
	}
	const spacing = 2.5

	cam := w.Create()
	w.AddTag(cam, ecs.Tag{Name: "camera"})
	ct := ecs.NewTransform()
	ct.Position = [3]float32{0, spacing * float32(side) / 2, spacing * float32(side)}
	ct.Rotation = [3]float32{-0.5, 0, 0}
	w.AddTransform(cam, ct)
	w.AddCamera(cam, ecs.NewCamera(true))

	for i := range cubes {
		e := w.Create()
		t := ecs.NewTransform()
		t.Position = [3]float32{
			(float32(i%side) - float32(side)/2) * spacing,
			0,
			(float32(i/side) - float32(side)/2) * spacing,
		}
		w.AddTransform(e, t)

		r := ecs.NewRenderable("Cube")
		if texture != "" && i%2 == 0 {
			r = ecs.NewTexturedRenderable("Cube", texture)
		}
		r.Color = [4]float32{float32(i%7) / 7, float32(i%11) / 11, float32(i%13) / 13, 1}
		w.AddRenderable(e, r)
	}

	for i := range lights {
		e := w.Create()
		t := ecs.NewTransform()
		t.Position = [3]float32{float32(i%8)*spacing*2 - 8*spacing, 10, float32(i/8)*spacing*2 - 8*spacing}
		w.AddTransform(e, t)
		w.AddPointLight(e, ecs.NewPointLight())
	}
	return s
}

// mover spins a rolling window of renderables each frame.
type mover struct {
	w       *ecs.World
	targets []ecs.Entity
	per     int
	next    int
}

func newMover(w *ecs.World, per int) *mover {
	m := &mover{w: w, per: per}
	for _, e := range w.Entities() {
		if w.Has(e, ecs.CapTransform|ecs.CapRenderable) {
			m.targets = append(m.targets, e)
		}
	}
	return m
}

func (m *mover) step(dt float32) batching.Change {
	c := batching.Change{Reason: batching.ReasonTransform}
	if len(m.targets) == 0 {
		return c
	}
	n := min(m.per, len(m.targets))
	c.Entities = make([]ecs.Entity, 0, n)
	for range n {
		e := m.targets[m.next]
		m.next = (m.next + 1) % len(m.targets)
		t, _ := m.w.Transform(e)
		t.Rotation[1] += dt
		c.Entities = append(c.Entities, e)
	}
	return c
}
