package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/cepip-console/internal/cli/config"
	"github.com/yndnr/cepip-console/internal/cli/connection"
)

// ConnectCommand returns the connect command.
func ConnectCommand() *cli.Command {
	return &cli.Command{
		Name:      "connect",
		Usage:     "Save a backend as a profile and switch to it",
		ArgsUsage: "SERVER",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "name",
				Aliases: []string{"n"},
				Usage:   "Profile name",
				Value:   "default",
			},
			&cli.StringFlag{
				Name:  "prefix",
				Usage: "API path prefix of the backend",
			},
		},
		Action: connectAction,
	}
}

func connectAction(c *cli.Context) error {
	server, err := argN(c, 0, "server URL")
	if err != nil {
		return err
	}
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}

	mgr := rt.Config.ProfileManager()
	p := connection.Profile{Name: c.String("name"), Server: server, APIPrefix: c.String("prefix")}
	if err := mgr.Add(p); err != nil {
		return err
	}
	if _, err := mgr.Use(p.Name); err != nil {
		return err
	}
	if err := rt.saveProfiles(mgr); err != nil {
		return err
	}

	s, prefix := rt.Config.ActiveServer()
	rt.printf("Using %s (%s%s)\n", p.Name, s, prefix)
	return nil
}

// ProfileCommand returns the profile subcommand group.
func ProfileCommand() *cli.Command {
	return &cli.Command{
		Name:    "profile",
		Aliases: []string{"profiles"},
		Usage:   "Manage saved backends",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List profiles",
				Action:  profileList,
			},
			{
				Name:      "use",
				Usage:     "Switch to a profile",
				ArgsUsage: "NAME",
				Action:    profileUse,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Delete a profile",
				ArgsUsage: "NAME",
				Action:    profileRemove,
			},
		},
		Action: profileList,
	}
}

type profileRow struct {
	Name      string `json:"name" yaml:"name"`
	Server    string `json:"server" yaml:"server"`
	APIPrefix string `json:"api_prefix" yaml:"api_prefix"`
	Active    bool   `json:"active" yaml:"active"`
}

func profileList(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	mgr := rt.Config.ProfileManager()
	cur, _ := mgr.Current()

	rows := make([]profileRow, 0)
	for _, p := range mgr.List() {
		rows = append(rows, profileRow{
			Name:      p.Name,
			Server:    p.Server,
			APIPrefix: p.APIPrefix,
			Active:    p.Name == cur.Name,
		})
	}
	if len(rows) == 0 && rt.tableOutput() {
		rt.printf("No profiles. Use: connect SERVER --name NAME\n")
		return nil
	}
	return rt.print(rows)
}

func profileUse(c *cli.Context) error {
	name, err := argN(c, 0, "profile name")
	if err != nil {
		return err
	}
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	mgr := rt.Config.ProfileManager()
	p, err := mgr.Use(name)
	if err != nil {
		return err
	}
	if err := rt.saveProfiles(mgr); err != nil {
		return err
	}
	rt.printf("Using %s (%s)\n", p.Name, p.Server)
	return nil
}

func profileRemove(c *cli.Context) error {
	name, err := argN(c, 0, "profile name")
	if err != nil {
		return err
	}
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	mgr := rt.Config.ProfileManager()
	if err := mgr.Remove(name); err != nil {
		return err
	}
	if err := rt.saveProfiles(mgr); err != nil {
		return err
	}
	rt.printf("Removed %s\n", name)
	return nil
}

// saveProfiles writes the profiles back and drops the current backend
// connection so the next command talks to the selected one.
func (rt *Runtime) saveProfiles(mgr *connection.Manager) error {
	rt.Config.SetProfiles(mgr)
	if err := config.Save(rt.Config, rt.ConfigPath); err != nil {
		return err
	}
	rt.disconnect()
	return nil
}
