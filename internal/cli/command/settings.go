package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/cepip-console/internal/core/domain"
)

// SettingsCommand returns the settings subcommand group.
func SettingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Show or change the application settings",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the settings",
				Action: settingsShow,
			},
			{
				Name:      "set",
				Usage:     "Change settings (administrators only)",
				ArgsUsage: "KEY=VALUE...",
				Action:    settingsSet,
			},
		},
		Action: settingsShow,
	}
}

func settingsShow(c *cli.Context) error {
	rt, err := requireSession(c, "settings")
	if err != nil {
		return err
	}
	s, err := rt.client.Settings(c.Context)
	if err != nil {
		return err
	}
	return rt.print(s)
}

func settingsSet(c *cli.Context) error {
	if c.NArg() == 0 {
		return domain.ErrInvalidRequest.WithDetails("at least one KEY=VALUE is required")
	}
	patch, err := parseAssignments(c.Args().Slice())
	if err != nil {
		return err
	}
	rt, err := requireSession(c, "settings")
	if err != nil {
		return err
	}
	if !rt.gateway.IsAdmin() {
		return domain.ErrAdminRequired
	}
	s, err := rt.client.UpdateSettings(c.Context, patch)
	if err != nil {
		return err
	}
	rt.printf("Settings updated.\n")
	return rt.print(s)
}
