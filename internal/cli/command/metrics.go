package command

import (
	"github.com/urfave/cli/v2"
)

// MetricsCommand prints the client metrics of this process in the
// Prometheus text format. Most useful inside the console.
func MetricsCommand() *cli.Command {
	return &cli.Command{
		Name:  "metrics",
		Usage: "Print client metrics",
		Action: func(c *cli.Context) error {
			rt, err := runtimeFrom(c)
			if err != nil {
				return err
			}
			return rt.Metrics.WriteText(rt.Out)
		},
	}
}
