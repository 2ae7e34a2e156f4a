package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/1broseidon/glasspane/internal/comp"
	"github.com/1broseidon/glasspane/internal/config"
	"github.com/1broseidon/glasspane/internal/logging"
	"github.com/1broseidon/glasspane/internal/x11"
)

func main() {
	if len(os.Args) > 1 {
		printUsage(os.Stderr)
		os.Exit(2)
	}
	run()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: glasspane")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "glasspane takes no arguments. It composites the default screen of $DISPLAY")
	fmt.Fprintf(w, "and reads optional settings from $%s or ~/.config/glasspane/config.yaml.\n", config.EnvConfigPath)
}

func run() {
	res, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := res.Config
	logger := logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	if res.File != "" {
		logger.Debug("configuration loaded", "file", res.File)
	}

	conn, err := x11.NewConnection(cfg.Display)
	if err != nil {
		log.Fatalf("Failed to connect to display: %v", err)
	}

	if err := conn.InitExtensions(); err != nil {
		log.Fatalf("Failed to initialize extensions: %v", err)
	}
	if _, err := conn.AcquireSelection(); err != nil {
		log.Fatalf("Failed to become compositing manager: %v", err)
	}
	atoms, err := conn.InternAtoms(cfg.OpacityProperty)
	if err != nil {
		log.Fatalf("Failed to intern atoms: %v", err)
	}

	srv, err := x11.NewServer(conn)
	if err != nil {
		log.Fatalf("Failed to query picture formats: %v", err)
	}
	screen := conn.ScreenInfo()
	mgr, err := comp.New(srv, comp.Options{
		Root:       conn.Root,
		Width:      screen.WidthInPixels,
		Height:     screen.HeightInPixels,
		Depth:      screen.RootDepth,
		Visual:     screen.RootVisual,
		Atoms:      atoms,
		Shape:      conn.Shape && cfg.Shape,
		Background: cfg.BackgroundColor(),
		Logger:     logger,
	})
	if err != nil {
		log.Fatalf("Failed to create compositor: %v", err)
	}

	if err := srv.Redirect(mgr.Adopt); err != nil {
		log.Fatalf("Failed to redirect windows: %v", err)
	}
	if err := mgr.Paint(0); err != nil {
		log.Fatalf("Initial paint failed: %v", err)
	}
	srv.Sync()
	logger.Info("compositing started",
		"screen", conn.Screen,
		"width", screen.WidthInPixels,
		"height", screen.HeightInPixels,
		"windows", len(mgr.Windows()),
		"shape", conn.Shape && cfg.Shape)

	err = mgr.Run(x11.NewEventSource(conn))
	conn.Close()
	log.Fatalf("Compositor stopped: %v", err)
}
