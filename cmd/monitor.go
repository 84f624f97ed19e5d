package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"firestige.xyz/ifmon/internal/config"
	"firestige.xyz/ifmon/internal/metrics"
	"firestige.xyz/ifmon/internal/monitor"
	"firestige.xyz/ifmon/internal/sink"
	"firestige.xyz/ifmon/internal/sink/console"
	"firestige.xyz/ifmon/internal/sink/history"
	"firestige.xyz/ifmon/internal/sink/kafka"
	"firestige.xyz/ifmon/internal/source"

	// Capture engines register themselves.
	_ "firestige.xyz/ifmon/internal/source/afpacket"
	_ "firestige.xyz/ifmon/internal/source/file"
	_ "firestige.xyz/ifmon/internal/source/pcap"
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitor an interface until interrupted (default command)",
	Long: `Monitor one network interface and print a line per reporting window:

  Time         Packets/s    Bytes/s      Total Pkts   Total Bytes

Press Ctrl-C (SIGINT) or send SIGTERM to stop; a session summary is printed
on exit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMonitor(cmd)
	},
}

func runMonitor(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if cfg.Monitor.ListInterfaces {
		return runList(cmd.OutOrStdout(), source.ListDevices)
	}

	return monitorInterface(context.Background(), cfg, cmd.OutOrStdout())
}

// monitorInterface opens the capture source and runs a session. Errors
// returned before the loops start leave nothing printed but the error.
func monitorInterface(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	opts := sourceOptions(cfg)
	src, err := source.Open(cfg.Capture.Engine, opts)
	if err != nil {
		return err
	}

	out, err := buildSinks(cfg, stdout)
	if err != nil {
		src.Close()
		return err
	}

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := srv.Start(ctx); err != nil {
			src.Close()
			return err
		}
		defer func() {
			if err := srv.Stop(context.Background()); err != nil {
				slog.Warn("failed to stop metrics server", "error", err)
			}
		}()
	}

	m := monitor.New(monitor.Config{
		Interface: sessionName(cfg),
		Filter:    cfg.Monitor.Filter,
		Engine:    cfg.Capture.Engine,
		Interval:  cfg.Monitor.UpdateInterval(),
	}, src, out)

	release := monitor.HandleSignals(m)
	defer release()

	res := m.Run(ctx)
	if res.Err != nil {
		slog.Warn("session ended by capture error", "interface", res.Interface, "error", res.Err)
	}
	return nil
}

func sourceOptions(cfg *config.Config) source.Options {
	return source.Options{
		Interface:     cfg.Monitor.Interface,
		Filter:        cfg.Monitor.Filter,
		SnapLen:       cfg.Capture.SnapLen,
		Promiscuous:   cfg.Capture.Promiscuous,
		ImmediateMode: cfg.Capture.ImmediateMode,
		Timeout:       cfg.Capture.Timeout(),
		BufferSizeMB:  cfg.Capture.BufferSizeMB,
		FilePath:      cfg.Capture.FilePath,
	}
}

// sessionName labels the session: the interface, or the file being replayed.
func sessionName(cfg *config.Config) string {
	if cfg.Capture.Engine == config.EngineFile {
		return cfg.Capture.FilePath
	}
	return cfg.Monitor.Interface
}

func buildSinks(cfg *config.Config, stdout io.Writer) (*sink.Multi, error) {
	out := sink.NewMulti()

	if cfg.Outputs.Console.Enabled {
		if stdout == nil {
			out.Add(console.NewSink())
		} else {
			out.Add(console.NewSinkWriter(stdout))
		}
	}
	if cfg.Outputs.Kafka.Enabled {
		k, err := kafka.NewSink(cfg.Outputs.Kafka)
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka sink: %w", err)
		}
		out.Add(k)
	}
	if cfg.Outputs.History.Enabled {
		out.Add(history.NewSink(cfg.Outputs.History.Path))
	}
	if cfg.Metrics.Enabled {
		out.Add(metrics.NewSink())
	}

	slog.Debug("sinks configured", "count", out.Len())
	return out, nil
}
