package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	log "github.com/sirupsen/logrus"

	"github.com/lixenwraith/ecshttp/config"
	"github.com/lixenwraith/ecshttp/core"
	"github.com/lixenwraith/ecshttp/engine"
	"github.com/lixenwraith/ecshttp/event"
	"github.com/lixenwraith/ecshttp/httpclient"
	"github.com/lixenwraith/ecshttp/service"
)

var (
	configPath = flag.String("config", "", "Path to TOML configuration, reloaded on change")
	soundFlag  = flag.Bool("sound", false, "Play a chime when a lookup completes")
	debugFlag  = flag.Bool("debug", false, "Write logs to logs/ipwatch.log")
	urlFlag    = flag.String("url", "https://api.ipify.org?format=json", "IP echo endpoint")
	everyFlag  = flag.Duration("every", 10*time.Second, "Lookup interval")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	config.ConfigureLogging(cfg.Logging)
	if logFile := setupLogging(*debugFlag); logFile != nil {
		defer logFile.Close()
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create screen: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize screen: %v\n", err)
		os.Exit(1)
	}
	defer screen.Fini()

	fail := func(msg string, err error) {
		screen.Fini()
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
		os.Exit(1)
	}

	// Background goroutine panics restore the terminal before exiting
	core.SetCrashHook(func(r any, stack []byte) {
		screen.Fini()
		fmt.Fprintf(os.Stderr, "\nipwatch crashed: %v\n%s\n", r, stack)
		os.Exit(1)
	})

	ch := newChime(*soundFlag)
	defer ch.close()

	app := engine.NewApp()
	app.AddPlugins(httpclient.NewPlugin(cfg.HTTP))
	httpclient.RegisterRequestType[IpInfo](app)

	h := newHUD(app, screen, *urlFlag, *everyFlag, ch)
	app.AddSystem(h)

	hub := service.NewHub()
	if err := hub.Register(app.Tasks); err != nil {
		fail("Registering task pool failed", err)
	}
	if *configPath != "" {
		watcher := config.NewWatcher(*configPath, func(c *config.Config) {
			config.ConfigureLogging(c.Logging)
			httpclient.SetMaxConcurrent(app.World, c.HTTP.MaxConcurrent)
		})
		if err := hub.Register(watcher); err != nil {
			fail("Registering config watcher failed", err)
		}
	}
	if err := hub.InitAll(); err != nil {
		fail("Service init failed", err)
	}
	if err := hub.StartAll(); err != nil {
		fail("Service start failed", err)
	}
	defer func() {
		if err := hub.StopAll(); err != nil {
			log.WithError(err).Warn("Service shutdown incomplete")
		}
	}()

	core.Go(func() { pollInput(screen, app.World, h) })

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg.Scheduler.TickInterval); err != nil && ctx.Err() == nil {
		log.WithError(err).Error("Tick loop failed")
	}
	log.Info("ipwatch exiting")
}

// pollInput forwards key presses to the world as events
func pollInput(screen tcell.Screen, w *engine.World, h *hud) {
	for {
		ev := screen.PollEvent()
		if ev == nil {
			return
		}

		switch ev := ev.(type) {
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC,
				ev.Key() == tcell.KeyRune && ev.Rune() == 'q':
				w.PushEvent(event.EventShutdown, nil)
				return

			case ev.Key() == tcell.KeyRune && ev.Rune() == 'r':
				req, err := h.refreshRequest()
				if err != nil {
					log.WithError(err).Warn("Refresh request invalid")
					continue
				}
				if err := httpclient.Submit(w, req); err != nil {
					log.WithError(err).Error("Refresh request not submitted")
				}
			}

		case *tcell.EventResize:
			screen.Sync()
		}
	}
}
