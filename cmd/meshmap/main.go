package main

import (
	"flag"
	"log"
	"runtime"

	"meshmap/internal/config"
	"meshmap/internal/game"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	// GLFW and GL calls must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := glfw.Init(); err != nil {
		log.Fatalf("init glfw: %v", err)
	}
	defer glfw.Terminate()

	window, err := game.SetupWindow(cfg.Window)
	if err != nil {
		log.Fatalf("create window: %v", err)
	}
	defer window.Destroy()

	app, err := game.NewApp(window, cfg)
	if err != nil {
		log.Fatalf("start viewer: %v", err)
	}
	if err := app.Run(); err != nil {
		log.Fatalf("viewer: %v", err)
	}
}
