package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"firestige.xyz/ifmon/internal/source"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available network interfaces",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(cmd); err != nil {
			return err
		}
		return runList(cmd.OutOrStdout(), source.ListDevices)
	},
}

const listFormat = "%-20s %-30s %-40s %-10s %s\n"

func runList(w io.Writer, list func() ([]source.Device, error)) error {
	devs, err := list()
	if err != nil {
		return fmt.Errorf("failed to list interfaces: %w", err)
	}

	fmt.Fprintln(w, "Available network interfaces:")
	fmt.Fprintf(w, listFormat, "Name", "IP Address", "Description", "State", "MTU")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, d := range devs {
		state := d.State
		if state == "" {
			state = "-"
		}
		mtu := "-"
		if d.MTU > 0 {
			mtu = strconv.Itoa(d.MTU)
		}
		fmt.Fprintf(w, listFormat, d.Name, d.Address(), d.Desc(), state, mtu)
	}
	return nil
}
