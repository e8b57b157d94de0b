package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/beholder/backend/internal/bridge"
	"github.com/beholder/backend/internal/config"
	"github.com/beholder/backend/internal/detect"
	"github.com/beholder/backend/internal/game"
	"github.com/beholder/backend/internal/mock"
	"github.com/beholder/backend/internal/notify"
)

// host is what every component needs from the game server.
type host interface {
	bridge.Host
	notify.Messenger
	detect.Host
}

func main() {
	mockMode := flag.Bool("mock", false, "Simulate a game server instead of waiting for one")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *port > 0 {
		cfg.Server.Port = *port
	}

	rules, err := config.OpenHolder(cfg.PluginPath())
	if err != nil {
		log.Fatalf("Failed to open rules file: %v", err)
	}
	log.Printf("Rules loaded from %s", rules.Path())

	fileLog := notify.NewFileLog(cfg.Game.SavePath, cfg.Log.Archive == config.ArchiveZstd)
	if err := fileLog.ArchivePending(); err != nil {
		log.Printf("[notify] archiving old logs: %v", err)
	}

	bus := game.NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var h host
	var gen *mock.MockGenerator
	if *mockMode {
		log.Println("Starting in mock mode")
		mh := mock.NewHost()
		gen = mock.NewGenerator(mh, bus, cfg.Slots())
		h = mh
	} else {
		log.Println("Waiting for the game server on /ws")
		h = bridge.New(bus)
	}

	dispatcher := notify.NewDispatcher(rules, h, notify.NewConsole(os.Stdout), fileLog, cfg.BroadcastColor())
	engine := detect.NewEngine(h, rules, dispatcher, cfg.Slots())
	unsubscribe := engine.Subscribe(bus)
	defer unsubscribe()

	if gen != nil {
		gen.Start(ctx)
	}

	server := bridge.NewServer(h, bus, engine, rules, cfg.Server.AuthToken)
	server.SetSinkHealth(dispatcher.Health)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		for sig := range sigCh {
			if sig == syscall.SIGHUP {
				log.Println("SIGHUP received, reloading rules")
				bus.Publish(game.ReloadRequest{Player: game.Everyone})
				continue
			}
			log.Println("Shutting down...")
			cancel()
			return
		}
	}()

	if err := bridge.ListenAndServe(ctx, cfg.Server.Host, cfg.Server.Port, server.Handler()); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
