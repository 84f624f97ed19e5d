// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/ifmon/internal/config"
	"firestige.xyz/ifmon/internal/log"
)

// version is overridden at build time with -ldflags "-X".
var version = "0.1.0"

var (
	// Global flags
	configFile string
)

// rootCmd represents the base command. Without a subcommand it monitors.
var rootCmd = &cobra.Command{
	Use:   "ifmon",
	Short: "ifmon - real-time network interface traffic monitor",
	Long: `ifmon attaches to a network interface, counts packets and bytes as they
arrive and prints packet and byte rates at a fixed interval until interrupted.
On shutdown it prints a summary of the whole session.

Window records can additionally be published to Kafka, stored in a SQLite
history database and exported as Prometheus metrics.`,
	Version:       version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMonitor(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "config file path (YAML)")

	pf.StringP("interface", "i", "eth0", "network interface to monitor")
	pf.IntP("update-interval", "u", 1000, "reporting interval in milliseconds")
	pf.StringP("filter", "f", "", "BPF filter expression")
	pf.BoolP("list-interfaces", "l", false, "list available interfaces and exit")
	pf.String("engine", config.EnginePcap, "capture engine: pcap, afpacket or file")
	pf.String("read-file", "", "pcap file to replay (engine=file)")
	pf.Int("snaplen", 65535, "capture snapshot length")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text or json")
	pf.String("metrics-listen", ":9091", "serve Prometheus metrics on this address")
	pf.String("history-database", "ifmon.db", "record windows into this SQLite database")

	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(historyCmd)
}

// loadConfig loads configuration for cmd and initializes logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := log.Init(cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}
	return cfg, nil
}
