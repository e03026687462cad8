package game

import (
	"fmt"
	"log"
	"time"

	"meshmap/internal/config"
	"meshmap/internal/graphics"
	"meshmap/internal/input"
	"meshmap/internal/profiling"
	"meshmap/internal/streaming"

	"github.com/go-gl/glfw/v3.3/glfw"
)

const slowFrame = 16 * time.Millisecond

// App runs the terrain viewer: it pans a target with the keyboard and keeps
// the streaming controller centered on it.
type App struct {
	window    *glfw.Window
	input     *input.InputManager
	renderer  *graphics.Renderer
	engine    *streaming.Controller
	target    streaming.Target
	moveSpeed float64

	fpsLimiter  *FPSLimiter
	fpsCap      int
	lastTime    time.Time
	showProfile bool

	frames       int
	lastFPSCheck time.Time
}

// NewApp builds the renderer and the streaming controller. With an initial
// target configured this blocks until the preload square is resident.
func NewApp(window *glfw.Window, cfg *config.Config) (*App, error) {
	width, height := window.GetFramebufferSize()
	camera := graphics.NewCamera(width, height, float32(cfg.Terrain.HeightLimit))
	r, err := graphics.NewRenderer(camera)
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}
	r.SetViewport(width, height)

	engine, err := streaming.New(r.Backend(), cfg.Options())
	if err != nil {
		r.Dispose()
		return nil, err
	}

	var target streaming.Target
	if cfg.InitialTarget != nil {
		target = streaming.Target{X: cfg.InitialTarget.X, Z: cfg.InitialTarget.Z}
	}

	config.SetFPSLimit(cfg.Window.FPSLimit)

	im := input.NewInputManager()
	im.SetKeyCallback(window)
	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		r.SetViewport(width, height)
	})

	now := time.Now()
	return &App{
		window:       window,
		input:        im,
		renderer:     r,
		engine:       engine,
		target:       target,
		moveSpeed:    cfg.Window.MoveSpeed,
		fpsLimiter:   NewFPSLimiter(),
		fpsCap:       cfg.Window.FPSLimit,
		lastTime:     now,
		lastFPSCheck: now,
	}, nil
}

// Run loops until the window closes, then releases every chunk buffer.
func (a *App) Run() error {
	defer a.shutdown()
	for !a.window.ShouldClose() {
		if err := a.tick(); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) shutdown() {
	a.engine.Close()
	a.renderer.Dispose()
}

func (a *App) tick() error {
	profiling.ResetFrame()
	startTick := time.Now()
	dt := startTick.Sub(a.lastTime)
	a.lastTime = startTick

	glfw.PollEvents()
	a.handleInput(dt)

	if err := a.engine.Update(a.target); err != nil {
		return err
	}

	a.renderer.BeginFrame(a.target.X, a.target.Z, a.engine.Height(a.target.X, a.target.Z))
	a.engine.Render(a.target)
	a.renderer.EndFrame()

	a.window.SwapBuffers()

	processingDuration := time.Since(startTick)
	if processingDuration > slowFrame {
		log.Printf("Slow frame: %v. Top tasks: %s", processingDuration, profiling.TopNCurrentFrame(5))
	}
	a.reportFPS()

	a.input.PostUpdate()
	a.fpsLimiter.Wait()
	return nil
}

func (a *App) handleInput(dt time.Duration) {
	dx, dz := a.input.Movement()
	a.target = pan(a.target, dx, dz, a.moveSpeed, dt)

	if a.input.JustPressed(input.ActionFlush) {
		a.engine.Flush()
	}
	if a.input.JustPressed(input.ActionToggleFPSLimit) {
		if config.GetFPSLimit() > 0 {
			config.SetFPSLimit(0)
		} else {
			config.SetFPSLimit(a.fpsCap)
		}
	}
	if a.input.JustPressed(input.ActionToggleProfiling) {
		a.showProfile = !a.showProfile
	}
	if a.input.JustPressed(input.ActionQuit) {
		a.window.SetShouldClose(true)
	}
}

func (a *App) reportFPS() {
	a.frames++
	if time.Since(a.lastFPSCheck) < time.Second {
		return
	}
	if a.showProfile {
		s := a.engine.Stats()
		log.Printf("FPS: %d | target (%.1f, %.1f) | ready %d pending %d failed %d | workers busy %d queued %d | buffers %d",
			a.frames, a.target.X, a.target.Z, s.Ready, s.Pending, s.Failed, s.Running, s.Queued, a.renderer.Backend().Live())
	}
	a.frames = 0
	a.lastFPSCheck = time.Now()
}

// pan moves t by speed world units per millisecond along (dx, dz).
func pan(t streaming.Target, dx, dz, speed float64, dt time.Duration) streaming.Target {
	step := speed * float64(dt) / float64(time.Millisecond)
	t.X += dx * step
	t.Z += dz * step
	return t
}
