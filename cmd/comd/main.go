// Command comd runs the COM scheduler as a standalone daemon: it wires
// configuration, logging, an optional SocketCAN transport, the metrics
// registry, and a ticker that drives MainFunction on every tick, then waits
// for SIGINT/SIGTERM to shut down cleanly.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/ecucore/gocom/internal/com"
	"github.com/ecucore/gocom/internal/config"
	"github.com/ecucore/gocom/internal/logging"
	"github.com/ecucore/gocom/internal/metrics"
	transportcan "github.com/ecucore/gocom/internal/transport/can"
)

var (
	version   = "0.0.1-dev"
	buildDate = "unknown"
)

func main() {
	app := &cli.App{
		Name:    "comd",
		Usage:   "run an AUTOSAR-style COM scheduler against a linked-in I-PDU configuration",
		Version: fmt.Sprintf("%s (built %s)", version, buildDate),
		Commands: []*cli.Command{
			runCommand(),
			dumpCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "start the scheduler loop",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to daemon YAML config"},
			&cli.StringFlag{Name: "can-iface", Usage: "override the configured CAN interface name"},
			&cli.StringFlag{Name: "log-level", Usage: "override the configured log level"},
		},
		Action: runAction,
	}
}

func dumpCommand() *cli.Command {
	return &cli.Command{
		Name:  "dump",
		Usage: "print the current decoded value of every signal and exit",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to daemon YAML config"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			logger := logging.New(cfg.LogLevel)
			defer logger.Sync() //nolint:errcheck

			scheduler := com.New(&com.Config{}, nil, metrics.Noop(), logger)
			scheduler.Init()
			for _, s := range scheduler.Snapshot() {
				fmt.Printf("%s (%s) = %d\n", s.Name, s.Kind, s.Value)
			}
			return nil
		},
	}
}

func runAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if v := c.String("can-iface"); v != "" {
		cfg.CANInterface = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.LogLevel = v
	}

	logger := logging.New(cfg.LogLevel)
	defer logger.Sync() //nolint:errcheck

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	comCfg := &com.Config{}
	scheduler := com.New(comCfg, nil, m, logger)
	scheduler.Init()
	for _, g := range cfg.AutostartGroups {
		if !scheduler.StartGroup(g, true) {
			logger.Warnf("autostart group %d out of range for the linked-in configuration", g)
		}
	}

	bus, err := transportcan.Open(cfg.CANInterface, func(int) (uint32, bool) { return 0, false }, logger)
	if err != nil {
		logger.Warnf("CAN interface %s unavailable, running without a transport: %v", cfg.CANInterface, err)
		bus = nil
	} else {
		go func() {
			if err := bus.ConnectAndPublish(func(uint32, []byte) {}); err != nil {
				logger.Errorf("CAN bus connection ended: %v", err)
			}
		}()
	}

	httpSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{})}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("metrics server failed: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticker := time.NewTicker(cfg.TickInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				scheduler.MainFunction()
			}
		}
	}()

	logger.Infof("comd started: tick=%s can=%s", cfg.TickInterval, cfg.CANInterface)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Infof("signal %s received, shutting down", sig)

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("metrics server shutdown error: %v", err)
	}
	if bus != nil {
		if err := bus.Close(); err != nil {
			logger.Errorf("CAN bus close error: %v", err)
		}
	}

	logger.Info("comd shut down cleanly")
	return nil
}
