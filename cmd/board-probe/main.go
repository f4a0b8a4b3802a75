package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/okian/balanceboard/internal/adapters/device/discovery"
	"github.com/okian/balanceboard/internal/probe"
	"github.com/okian/balanceboard/pkg/logger"
)

func main() {
	var (
		list     = flag.Bool("list", false, "List input devices and exit")
		devices  = flag.String("devices", discovery.DefaultDevicesFile, "Device list to read with -list")
		baseURL  = flag.String("url", probe.DefaultBaseURL, "Base URL of the service")
		interval = flag.Duration("interval", probe.DefaultInterval, "Poll interval")
		timeout  = flag.Duration("timeout", probe.DefaultTimeout, "HTTP request timeout")
		count    = flag.Int("count", 0, "Frames to render before exiting, 0 runs until interrupted")
		noClear  = flag.Bool("no-clear", false, "Do not clear the screen between frames")
		verbose  = flag.Bool("verbose", false, "Enable debug logging")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		probe.ShowHelp(os.Stdout)
		return
	}

	// Frames go to stdout, logs to stderr.
	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	cfg := &probe.Config{
		BaseURL:     *baseURL,
		Interval:    *interval,
		Timeout:     *timeout,
		Count:       *count,
		Clear:       !*noClear,
		DevicesFile: *devices,
		Out:         os.Stdout,
	}

	if *list {
		n, err := probe.List(cfg)
		if err != nil {
			os.Stderr.WriteString("list devices: " + err.Error() + "\n")
			os.Exit(1)
		}
		if n == 0 {
			os.Stderr.WriteString("no balance board found\n")
			os.Exit(2)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := probe.Run(ctx, cfg)
	if err != nil {
		os.Stderr.WriteString("probe failed: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
	os.Stderr.WriteString("polls=" + strconv.Itoa(stats.Polls) +
		" frames=" + strconv.Itoa(stats.Frames) +
		" unavailable=" + strconv.Itoa(stats.Unavailable) +
		" duration=" + stats.Duration.String() + "\n")
}
