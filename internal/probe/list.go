package probe

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/okian/balanceboard/internal/adapters/device/discovery"
)

// List writes every input device with its classification and returns the
// number of balance boards found.
func List(cfg *Config) (int, error) {
	c := cfg.withDefaults()
	cfg = &c

	opts := []discovery.Option{}
	if cfg.DevicesFile != "" {
		opts = append(opts, discovery.WithDevicesFile(cfg.DevicesFile))
	}
	devices, err := discovery.New(opts...).List()
	if err != nil {
		return 0, err
	}
	return writeList(cfg.Out, devices), nil
}

func writeList(w io.Writer, devices []discovery.InputDevice) int {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tNAME\tSTATUS")

	boards := 0
	for _, d := range devices {
		status := d.Reason()
		if d.IsBalanceBoard() {
			status = "balance board"
			boards++
		}
		node := d.EventNode()
		if node == "" {
			node = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", node, d.Name, status)
	}
	_ = tw.Flush()
	return boards
}
