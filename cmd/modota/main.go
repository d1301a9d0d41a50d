package main

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/bottlerocket-os/modota/pkg/config"
	"github.com/bottlerocket-os/modota/pkg/logging"
	"github.com/bottlerocket-os/modota/pkg/sigcontext"
	"github.com/urfave/cli/v2"
)

// version is set at link time.
var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logging.New("main").WithError(err).Error("modota stopped")
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "modota",
		Usage: "device agent for module over-the-air upgrades",
		Commands: []*cli.Command{
			runCommand(),
			{
				Name:  "version",
				Usage: "print the agent version",
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, version)
					return nil
				},
			},
		},
		DefaultCommand: "run",
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "connect to the platform and handle upgrades",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: config.DefaultPath,
				Usage: "path to the configuration file",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
			&cli.StringFlag{
				Name:  "device-id",
				Usage: "override the configured device id",
			},
			&cli.StringFlag{
				Name:  "module",
				Usage: "override the configured module name",
			},
			&cli.BoolFlag{
				Name:  "poll",
				Usage: "request the latest package once connected",
			},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	logging.Set(logging.SplitOutput())
	if c.Bool("debug") {
		logging.Set(logging.Level("debug"))
	}
	log := logging.New("main")

	if logging.Debuggable {
		log.Info("low-level logging.Debuggable is enabled in this build")
		log.Warn("logging.Debuggable produces large volumes of logs")
		delay := 3 * time.Second
		log.WithField("delay", delay).Warn("delaying start due to logging.Debuggable build")
		time.Sleep(delay)
	}

	cfg, err := config.Load(c.String("config"), c.IsSet("config"))
	if err != nil {
		return err
	}
	if id := c.String("device-id"); id != "" {
		cfg.DeviceID = id
	}
	if module := c.String("module"); module != "" {
		cfg.Module = module
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(err.Error(), 2)
	}

	ctx, cancel := sigcontext.WithSignalCancel(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := newDaemon(cfg)
	if err != nil {
		return err
	}
	sigcontext.OnSignal(ctx, func(ctx context.Context) {
		if err := d.agent.Poll(ctx); err != nil {
			log.WithError(err).Warn("package request failed")
		}
	}, syscall.SIGUSR1)

	log.WithField("module", cfg.Module).WithField("version", d.agent.Version()).Info("starting")
	return d.run(ctx, c.Bool("poll"))
}
