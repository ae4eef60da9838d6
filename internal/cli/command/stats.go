package command

import (
	"github.com/urfave/cli/v2"
)

// StatsCommand returns the global statistics command.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show global statistics",
		Action: func(c *cli.Context) error {
			rt, err := requireSession(c, "dashboard")
			if err != nil {
				return err
			}
			stats, err := rt.client.Stats(c.Context)
			if err != nil {
				return err
			}
			if !rt.tableOutput() {
				return rt.print(stats)
			}
			rt.printf("Total records: %d (%d tables), last update %s\n\n",
				stats.TotalRecords, stats.TotalTables, orDefault(stats.LastUpdate, "-"))
			return rt.print(stats.TableStats)
		},
	}
}

// DashboardCommand returns the dashboard command.
func DashboardCommand() *cli.Command {
	return &cli.Command{
		Name:  "dashboard",
		Usage: "Show the dashboard summary",
		Action: func(c *cli.Context) error {
			rt, err := requireSession(c, "dashboard")
			if err != nil {
				return err
			}
			d, err := rt.client.Dashboard(c.Context)
			if err != nil {
				return err
			}
			return rt.print(d)
		},
	}
}

// TablesCommand returns the tables command group.
func TablesCommand() *cli.Command {
	return &cli.Command{
		Name:  "tables",
		Usage: "List the tables exposed by the backend",
		Action: func(c *cli.Context) error {
			rt, err := requireSession(c, "data")
			if err != nil {
				return err
			}
			tables, err := rt.client.Tables(c.Context)
			if err != nil {
				return err
			}
			return rt.print(tables)
		},
		Subcommands: []*cli.Command{
			{
				Name:      "schema",
				Usage:     "Show the columns of a table",
				ArgsUsage: "TABLE",
				Action: func(c *cli.Context) error {
					name, err := argN(c, 0, "table name")
					if err != nil {
						return err
					}
					rt, err := requireSession(c, "data")
					if err != nil {
						return err
					}
					cols, err := rt.client.TableSchema(c.Context, name)
					if err != nil {
						return err
					}
					return rt.print(cols)
				},
			},
		},
	}
}
