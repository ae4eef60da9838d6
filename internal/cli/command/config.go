package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/cepip-console/internal/cli/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Local configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration",
				Action: configShow,
			},
			{
				Name:      "get",
				Usage:     "Print one configuration value",
				ArgsUsage: "KEY",
				Action:    configGet,
			},
			{
				Name:      "set",
				Usage:     "Change one configuration value and save it",
				ArgsUsage: "KEY VALUE",
				Action:    configSet,
			},
			{
				Name:  "keys",
				Usage: "List the configuration keys",
				Action: func(c *cli.Context) error {
					rt, err := runtimeFrom(c)
					if err != nil {
						return err
					}
					for _, k := range config.Keys() {
						rt.printf("%s\n", k)
					}
					return nil
				},
			},
			{
				Name:  "path",
				Usage: "Print the configuration file path",
				Action: func(c *cli.Context) error {
					rt, err := runtimeFrom(c)
					if err != nil {
						return err
					}
					rt.printf("%s\n", rt.ConfigPath)
					return nil
				},
			},
			{
				Name:  "init",
				Usage: "Write a configuration file with the defaults",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Overwrite an existing file"},
				},
				Action: configInit,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	if !rt.tableOutput() {
		return rt.print(rt.Config)
	}
	values := make(map[string]string, len(config.Keys()))
	for _, k := range config.Keys() {
		v, err := config.Get(rt.Config, k)
		if err != nil {
			return err
		}
		values[k] = v
	}
	rt.printf("# %s\n", rt.ConfigPath)
	return rt.print(values)
}

func configGet(c *cli.Context) error {
	key, err := argN(c, 0, "key")
	if err != nil {
		return err
	}
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	v, err := config.Get(rt.Config, key)
	if err != nil {
		return err
	}
	rt.printf("%s\n", v)
	return nil
}

func configSet(c *cli.Context) error {
	key, err := argN(c, 0, "key")
	if err != nil {
		return err
	}
	if c.NArg() < 2 {
		return fmt.Errorf("value required")
	}
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	if err := config.Set(rt.Config, key, c.Args().Get(1)); err != nil {
		return err
	}
	if err := config.Save(rt.Config, rt.ConfigPath); err != nil {
		return err
	}
	rt.Log.Debug("config saved", "path", rt.ConfigPath, "key", key)
	rt.printf("%s = %s\n", key, c.Args().Get(1))
	return nil
}

func configInit(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	if _, err := os.Stat(rt.ConfigPath); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", rt.ConfigPath)
	}
	if err := config.Save(config.Default(), rt.ConfigPath); err != nil {
		return err
	}
	rt.printf("Wrote %s\n", rt.ConfigPath)
	return nil
}
