package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"codeberg.org/mutker/dashmon/internal/config"
	"codeberg.org/mutker/dashmon/internal/errors"
	"codeberg.org/mutker/dashmon/internal/gpio"
	"codeberg.org/mutker/dashmon/internal/history"
	"codeberg.org/mutker/dashmon/internal/ipc"
	"codeberg.org/mutker/dashmon/internal/logger"
	"codeberg.org/mutker/dashmon/internal/perf"
	"codeberg.org/mutker/dashmon/internal/pid"
	"codeberg.org/mutker/dashmon/internal/status"
	"codeberg.org/mutker/dashmon/internal/telemetry"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/spf13/pflag"
)

const recordTimeout = 2 * time.Second

type app struct {
	cfg      *config.Config
	pidFile  *pid.File
	sampler  *telemetry.Sampler
	monitor  *perf.Monitor
	recorder history.Recorder
	endpoint *ipc.Endpoint
	buttons  *gpio.Reader
	server   *status.Server
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	if !cfg.Debug && !cfg.Verbose {
		if level, ok := logger.ParseLevel(cfg.LogLevel); ok {
			logger.SetLogLevel(level)
		}
	}
	logger.Debug().Msg("Config loaded")

	a, err := newApp(cfg)
	if err != nil {
		if appErr, ok := err.(errors.Error); ok {
			logger.FatalWithCode(appErr).Msg("Failed to initialize")
		}
		logger.Fatal().Err(err).Msg("Failed to initialize")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	var wg sync.WaitGroup
	a.startCollaborators(ctx, &wg)

	if err := a.loop(ctx); err != nil {
		logger.Error().Err(err).Msg("Error in main loop")
	}

	cancel()
	wg.Wait()
	a.cleanup()
}

func newApp(cfg *config.Config) (*app, error) {
	errFactory := errors.New()

	a := &app{cfg: cfg, pidFile: pid.New("")}
	if err := a.pidFile.Write(); err != nil {
		return nil, err
	}

	logHostInfo()

	monitor, err := perf.NewMonitor(perf.DefaultConfig(), logger.New("perf"))
	if err != nil {
		a.pidFile.Remove()
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}
	a.monitor = monitor

	a.sampler = telemetry.New(cfg.StoragePath,
		telemetry.WithPerfSink(monitor),
		telemetry.WithActiveModule(telemetry.Module(cfg.ActiveModule)),
	)

	a.recorder, err = history.NewService(history.Config{
		DBPath:       cfg.HistoryDB,
		Enabled:      cfg.History,
		BatchSize:    cfg.HistoryBatchSize,
		BatchTimeout: time.Duration(cfg.HistoryBatchTimeout) * time.Second,
	}, logger.New("history"))
	if err != nil {
		a.pidFile.Remove()
		return nil, errFactory.Wrap(errors.ErrInitHistory, err)
	}

	if cfg.IPC {
		ipcCfg := ipc.DefaultConfig()
		ipcCfg.Host = cfg.IPCHost
		ipcCfg.ListenPort = cfg.IPCListenPort
		ipcCfg.PeerPort = cfg.IPCPeerPort

		// the assistant channel is optional; the dashboard runs without it
		endpoint, err := ipc.Listen(ipcCfg, logger.New("ipc"))
		if err != nil {
			logger.Warn().Err(err).Msg("IPC endpoint unavailable")
		} else {
			a.endpoint = endpoint
			endpoint.Subscribe(a.handleMessage)
		}
	}

	if len(cfg.GPIOPins) > 0 {
		gpioCfg := gpio.DefaultConfig()
		gpioCfg.Pins = cfg.GPIOPins
		gpioCfg.ActiveLow = cfg.GPIOActiveLow
		gpioCfg.Debounce = time.Duration(cfg.GPIODebounce) * time.Millisecond

		buttons, err := gpio.New(gpioCfg, logger.New("gpio"))
		if err != nil {
			logger.Warn().Err(err).Msg("GPIO buttons unavailable")
		} else {
			a.buttons = buttons
		}
	}

	if cfg.StatusAddr != "" {
		a.server = status.New(cfg.StatusAddr, a.sampler, a.monitor, a.recorder, logger.New("status"))
	}

	return a, nil
}

func (a *app) startCollaborators(ctx context.Context, wg *sync.WaitGroup) {
	if a.endpoint != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.endpoint.Serve(ctx); err != nil {
				logger.Error().Err(err).Msg("IPC receive loop stopped")
			}
		}()
	}

	if a.buttons != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.buttons.Run(ctx)
		}()
	}

	if a.server != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.server.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("Status endpoint stopped")
			}
		}()
	}
}

func (a *app) loop(ctx context.Context) error {
	errFactory := errors.New()

	if a.cfg.TickInterval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, a.cfg.TickInterval)
	}

	ticker := time.NewTicker(time.Duration(a.cfg.TickInterval) * time.Millisecond)
	defer ticker.Stop()

	logger.Info().
		Int("tick_interval_ms", a.cfg.TickInterval).
		Str("storage_path", a.cfg.StoragePath).
		Str("active_module", telemetry.Module(a.cfg.ActiveModule).String()).
		Bool("history", a.recorder.Enabled()).
		Bool("ipc", a.endpoint != nil).
		Bool("gpio", a.buttons != nil).
		Bool("status", a.server != nil).
		Msg("Sampler running")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

func (a *app) tick(ctx context.Context) {
	if a.buttons != nil {
		if ev, ok := a.buttons.Take(); ok {
			logger.Debug().Int("pin", ev.Pin).Msg("Button press")
			a.sampler.NotifyUserActivity()
		}
	}

	if !a.sampler.Update() || !a.sampler.HasChanges() {
		return
	}

	snap := a.sampler.Snapshot()
	logState(snap)

	recordCtx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()
	if err := a.recorder.Record(recordCtx, &snap); err != nil {
		logger.Warn().Err(err).Msg("Failed to record sample")
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func (a *app) cleanup() {
	if a.endpoint != nil {
		if err := a.endpoint.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close IPC endpoint")
		}
	}
	if err := a.recorder.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close sample history")
	}
	if err := a.pidFile.Remove(); err != nil {
		logger.Error().Err(err).Msg("Failed to remove PID file")
	}
	logger.Info().Msg("Exiting...")
}

func logHostInfo() {
	info, err := host.Info()
	if err != nil {
		logger.Debug().Err(err).Msg("Host information unavailable")
		return
	}

	logger.Info().
		Str("hostname", info.Hostname).
		Str("platform", info.Platform).
		Str("platform_version", info.PlatformVersion).
		Str("kernel", info.KernelVersion).
		Str("arch", info.KernelArch).
		Uint64("uptime_s", info.Uptime).
		Msg("Host")
}

func logState(snap telemetry.Snapshot) {
	logger.Debug().
		Float64("cpu_usage", snap.CPU.Usage).
		Uint8("cpu_temp", snap.CPU.Temperature).
		Uint64("memory_used_kb", snap.Memory.UsedKB).
		Uint8("memory_pct", snap.Memory.Percent).
		Uint64("storage_used_kb", snap.Storage.UsedKB).
		Uint8("storage_pct", snap.Storage.Percent).
		Str("priority", snap.Priority.String()).
		Bool("low_power", snap.LowPower).
		Str("module", snap.ActiveModule.String()).
		Msg("")
}
