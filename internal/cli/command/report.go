package command

import (
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/cepip-console/internal/backend"
	"github.com/yndnr/cepip-console/internal/cli/output"
)

// ReportCommand returns the report subcommand group.
func ReportCommand() *cli.Command {
	return &cli.Command{
		Name:    "report",
		Aliases: []string{"reports"},
		Usage:   "List, generate and export reports",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List available reports",
				Action: reportList,
			},
			{
				Name:      "generate",
				Usage:     "Generate a report",
				ArgsUsage: "TYPE",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "param",
						Aliases: []string{"p"},
						Usage:   "Report parameter as KEY=VALUE (repeatable)",
					},
				},
				Action: reportGenerate,
			},
			{
				Name:      "export",
				Usage:     "Export a report (" + strings.Join(backend.ExportFormats, ", ") + ")",
				ArgsUsage: "TYPE FORMAT",
				Action:    reportExport,
			},
		},
	}
}

func reportList(c *cli.Context) error {
	rt, err := requireSession(c, "reports")
	if err != nil {
		return err
	}
	reports, err := rt.client.Reports(c.Context)
	if err != nil {
		return err
	}
	return rt.print(reports)
}

func reportGenerate(c *cli.Context) error {
	typ, err := argN(c, 0, "report type")
	if err != nil {
		return err
	}
	params, err := parseAssignments(c.StringSlice("param"))
	if err != nil {
		return err
	}
	rt, err := requireSession(c, "reports")
	if err != nil {
		return err
	}
	spin := output.NewSpinner(rt.Err, "Generating "+typ+" report")
	spin.Start()
	res, err := rt.client.GenerateReport(c.Context, typ, params)
	if err != nil {
		spin.Fail(typ + " report failed")
		return err
	}
	spin.Stop()
	return rt.print(map[string]any(res))
}

func reportExport(c *cli.Context) error {
	typ, err := argN(c, 0, "report type")
	if err != nil {
		return err
	}
	format, err := argN(c, 1, "format")
	if err != nil {
		return err
	}
	rt, err := requireSession(c, "reports")
	if err != nil {
		return err
	}
	res, err := rt.client.ExportReport(c.Context, typ, strings.ToLower(format))
	if err != nil {
		return err
	}
	if rt.tableOutput() {
		rt.printf("%s\n", orDefault(res.Message, "Export requested."))
		return nil
	}
	return rt.print(res)
}
