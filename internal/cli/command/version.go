package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/cepip-console/internal/infra/buildinfo"
)

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			rt, err := runtimeFrom(c)
			if err != nil {
				return err
			}
			info := buildinfo.Get()
			if rt.tableOutput() {
				rt.printf("%s %s\n  commit: %s\n  built:  %s\n  go:     %s (%s)\n",
					buildinfo.Product, info.Version, info.Commit, info.BuildTime, info.GoVersion, info.Platform)
				return nil
			}
			return rt.print(info)
		},
	}
}
