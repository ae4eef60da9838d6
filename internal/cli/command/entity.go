package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/cepip-console/internal/backend"
	"github.com/yndnr/cepip-console/internal/cli/output"
	"github.com/yndnr/cepip-console/internal/entity"
)

// target is the entity a subcommand works on and its remaining arguments.
type target struct {
	def     entity.Definition
	section string
	args    []string
}

// resolver finds the target of a subcommand.
type resolver func(c *cli.Context) (target, error)

func fixedTarget(def entity.Definition, section string) resolver {
	return func(c *cli.Context) (target, error) {
		return target{def: def, section: section, args: c.Args().Slice()}, nil
	}
}

// tableTarget reads the table from the first argument, for "record".
func tableTarget(c *cli.Context) (target, error) {
	table := c.Args().First()
	if table == "" {
		return target{}, errors.New("table name required")
	}
	def, ok := entity.ByName(table)
	if !ok {
		def = entity.Generic(table)
	}
	return target{def: def, section: "data", args: c.Args().Tail()}, nil
}

func pageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "page",
			Value: backend.DefaultPage,
			Usage: "Page number",
		},
		&cli.IntFlag{
			Name:  "limit",
			Value: backend.DefaultLimit,
			Usage: fmt.Sprintf("Page size (max %d)", backend.MaxLimit),
		},
	}
}

func listOptions(c *cli.Context) backend.ListOptions {
	return backend.ListOptions{Page: c.Int("page"), Limit: c.Int("limit")}.Normalize()
}

// EntityCommand returns the command group of one entity kind.
func EntityCommand(def entity.Definition, section string, extra ...*cli.Command) *cli.Command {
	cmd := &cli.Command{
		Name:        def.Name,
		Aliases:     []string{def.Plural},
		Usage:       "Manage " + def.Plural,
		Subcommands: crudCommands(fixedTarget(def, section), "ID"),
	}
	cmd.Subcommands = append(cmd.Subcommands, extra...)
	return cmd
}

// RecordCommand returns the generic record commands for any table.
func RecordCommand() *cli.Command {
	cmds := crudCommands(tableTarget, "TABLE ID")
	for _, c := range cmds {
		if c.ArgsUsage == "" {
			c.ArgsUsage = "TABLE"
		}
	}
	return &cli.Command{
		Name:        "record",
		Aliases:     []string{"records"},
		Usage:       "Manage records of any table",
		Subcommands: cmds,
	}
}

func crudCommands(resolve resolver, idUsage string) []*cli.Command {
	return []*cli.Command{
		{
			Name:    "list",
			Aliases: []string{"ls"},
			Usage:   "List one page of records",
			Flags:   pageFlags(),
			Action:  withTarget(resolve, entityList),
		},
		{
			Name:      "get",
			Usage:     "Show one record",
			ArgsUsage: idUsage,
			Action:    withTarget(resolve, entityGet),
		},
		{
			Name:   "create",
			Usage:  "Create a record",
			Flags:  recordFlags(),
			Action: withTarget(resolve, entityCreate),
		},
		{
			Name:      "update",
			Usage:     "Update a record",
			ArgsUsage: idUsage,
			Flags:     recordFlags(),
			Action:    withTarget(resolve, entityUpdate),
		},
		{
			Name:      "delete",
			Aliases:   []string{"rm"},
			Usage:     "Delete a record",
			ArgsUsage: idUsage,
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:    "force",
					Aliases: []string{"f"},
					Usage:   "Skip confirmation",
				},
			},
			Action: withTarget(resolve, entityDelete),
		},
		{
			Name:   "stats",
			Usage:  "Statistics of one page of records",
			Flags:  pageFlags(),
			Action: withTarget(resolve, entityStats),
		},
		{
			Name:  "export",
			Usage: "Export every record as CSV",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "out",
					Usage: "Output file; - writes to stdout (default <plural>_<date>.csv)",
				},
				&cli.IntFlag{
					Name:  "page-size",
					Value: backend.MaxLimit,
					Usage: "Records fetched per request",
				},
				&cli.IntFlag{
					Name:  "concurrency",
					Value: 4,
					Usage: "Pages fetched in parallel",
				},
			},
			Action: withTarget(resolve, entityExport),
		},
	}
}

type targetAction func(c *cli.Context, rt *Runtime, t target) error

func withTarget(resolve resolver, fn targetAction) cli.ActionFunc {
	return func(c *cli.Context) error {
		t, err := resolve(c)
		if err != nil {
			return err
		}
		rt, err := requireSession(c, t.section)
		if err != nil {
			return err
		}
		return fn(c, rt, t)
	}
}

func targetID(t target) (string, error) {
	if len(t.args) == 0 || t.args[0] == "" {
		return "", fmt.Errorf("%s ID required", t.def.Name)
	}
	return t.args[0], nil
}

func entityList(c *cli.Context, rt *Runtime, t target) error {
	page, err := rt.manager(t.def).List(c.Context, listOptions(c))
	if err != nil {
		return err
	}
	return rt.print(page)
}

func entityGet(c *cli.Context, rt *Runtime, t target) error {
	id, err := targetID(t)
	if err != nil {
		return err
	}
	rec, err := rt.manager(t.def).Get(c.Context, id)
	if err != nil {
		return err
	}
	return rt.print(map[string]any(rec))
}

func entityCreate(c *cli.Context, rt *Runtime, t target) error {
	in, err := recordInput(c)
	if err != nil {
		return err
	}
	rec, err := rt.manager(t.def).Create(c.Context, in)
	if err != nil {
		return err
	}
	if rt.tableOutput() {
		rt.printf("%s created.\n", t.def.Name)
	}
	return rt.print(map[string]any(rec))
}

func entityUpdate(c *cli.Context, rt *Runtime, t target) error {
	id, err := targetID(t)
	if err != nil {
		return err
	}
	in, err := recordInput(c)
	if err != nil {
		return err
	}
	rec, err := rt.manager(t.def).Update(c.Context, id, in)
	if err != nil {
		return err
	}
	if rt.tableOutput() {
		rt.printf("%s %s updated.\n", t.def.Name, id)
	}
	return rt.print(map[string]any(rec))
}

func entityDelete(c *cli.Context, rt *Runtime, t target) error {
	id, err := targetID(t)
	if err != nil {
		return err
	}
	if !c.Bool("force") && !confirm(rt, "Delete %s %s?", t.def.Name, id) {
		rt.printf("Cancelled.\n")
		return nil
	}
	if err := rt.manager(t.def).Delete(c.Context, id); err != nil {
		return err
	}
	rt.printf("%s %s deleted.\n", t.def.Name, id)
	return nil
}

func entityStats(c *cli.Context, rt *Runtime, t target) error {
	stats, err := rt.manager(t.def).Statistics(c.Context, listOptions(c))
	if err != nil {
		return err
	}
	return rt.print(stats)
}

func entityExport(c *cli.Context, rt *Runtime, t target) error {
	path := c.String("out")
	if path == "" {
		path = fmt.Sprintf("%s_%s.csv", t.def.Plural, time.Now().Format("2006-01-02"))
	}

	var (
		w    io.Writer = rt.Out
		file *os.File
		bar  *output.ProgressBar
	)
	if path != "-" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return err
		}
		file = f
		w = f
		bar = output.NewProgressBar(rt.Err, "Exporting "+t.def.Plural, "pages")
	}
	buf := bufio.NewWriter(w)

	opts := entity.ExportOptions{
		PageSize:    c.Int("page-size"),
		Concurrency: c.Int("concurrency"),
	}
	if bar != nil {
		opts.Progress = bar.Update
	}

	n, err := rt.manager(t.def).Export(c.Context, buf, opts)
	if err == nil {
		err = buf.Flush()
	}
	if file != nil {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		if file != nil {
			os.Remove(path)
		}
		return err
	}

	if file != nil {
		rt.printf("Exported %d %s to %s\n", n, t.def.Plural, path)
	}
	return nil
}
