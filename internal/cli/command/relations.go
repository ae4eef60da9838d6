package command

import (
	"fmt"
	"slices"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/cepip-console/internal/backend"
)

func personaCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:      "relations",
			Usage:     "List the empresas a persona is related to",
			ArgsUsage: "PERSONA_ID",
			Action:    personaRelations,
		},
		{
			Name:      "relate",
			Usage:     "Relate a persona to an empresa",
			ArgsUsage: "PERSONA_ID",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "ente", Usage: "Empresa id", Required: true},
				&cli.IntFlag{Name: "cargo", Usage: "Cargo id", Required: true},
				&cli.IntFlag{Name: "area", Usage: "Area id (optional)"},
			},
			Action: personaRelate,
		},
		{
			Name:      "unrelate",
			Usage:     "Remove a relation",
			ArgsUsage: "PERSONA_ID RELATION_ID",
			Action:    personaUnrelate,
		},
	}
}

func parcelaCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:      "assign",
			Usage:     "Assign a parcela to a consorcista",
			ArgsUsage: "PARCELA_ID CONSORCISTA_ID",
			Action:    parcelaAssign,
		},
		{
			Name:      "unassign",
			Usage:     "Remove the consorcista of a parcela",
			ArgsUsage: "PARCELA_ID",
			Action:    parcelaUnassign,
		},
	}
}

func consorcistaCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:      "parcelas",
			Usage:     "List the parcelas of a consorcista",
			ArgsUsage: "CONSORCISTA_ID",
			Action:    consorcistaParcelas,
		},
	}
}

func personaRelations(c *cli.Context) error {
	id, err := argN(c, 0, "persona ID")
	if err != nil {
		return err
	}
	rt, err := requireSession(c, "personas")
	if err != nil {
		return err
	}
	rels, err := rt.client.Relations(c.Context, id)
	if err != nil {
		return err
	}
	return rt.print(rels)
}

func personaRelate(c *cli.Context) error {
	id, err := argN(c, 0, "persona ID")
	if err != nil {
		return err
	}
	in := backend.RelationInput{EnteID: c.Int("ente"), CargoID: c.Int("cargo")}
	if c.IsSet("area") {
		area := c.Int("area")
		in.AreaID = &area
	}

	rt, err := requireSession(c, "personas")
	if err != nil {
		return err
	}
	msg, err := rt.client.AddRelation(c.Context, id, in)
	if err != nil {
		return err
	}
	rt.printf("%s\n", orDefault(msg, "Relation added."))
	return nil
}

func personaUnrelate(c *cli.Context) error {
	id, err := argN(c, 0, "persona ID")
	if err != nil {
		return err
	}
	rel, err := argN(c, 1, "relation ID")
	if err != nil {
		return err
	}
	rt, err := requireSession(c, "personas")
	if err != nil {
		return err
	}
	msg, err := rt.client.DeleteRelation(c.Context, id, rel)
	if err != nil {
		return err
	}
	rt.printf("%s\n", orDefault(msg, "Relation removed."))
	return nil
}

func parcelaAssign(c *cli.Context) error {
	id, err := argN(c, 0, "parcela ID")
	if err != nil {
		return err
	}
	cons, err := intArg(c, 1, "consorcista ID")
	if err != nil {
		return err
	}
	return assignParcela(c, id, &cons)
}

func parcelaUnassign(c *cli.Context) error {
	id, err := argN(c, 0, "parcela ID")
	if err != nil {
		return err
	}
	return assignParcela(c, id, nil)
}

func assignParcela(c *cli.Context, parcelaID string, consorcistaID *int) error {
	rt, err := requireSession(c, "parcelas")
	if err != nil {
		return err
	}
	msg, err := rt.client.AssignConsorcista(c.Context, parcelaID, consorcistaID)
	if err != nil {
		return err
	}
	rt.printf("%s\n", orDefault(msg, "Parcela updated."))
	return nil
}

func consorcistaParcelas(c *cli.Context) error {
	id, err := argN(c, 0, "consorcista ID")
	if err != nil {
		return err
	}
	rt, err := requireSession(c, "consorcistas")
	if err != nil {
		return err
	}
	parcelas, err := rt.client.ConsorcistaParcelas(c.Context, id)
	if err != nil {
		return err
	}
	return rt.print(parcelas)
}

// LookupCommand returns the lookup command.
func LookupCommand() *cli.Command {
	return &cli.Command{
		Name:      "lookup",
		Usage:     "List id/name pairs: " + strings.Join(backend.LookupKinds, ", "),
		ArgsUsage: "KIND",
		Action: func(c *cli.Context) error {
			kind, err := argN(c, 0, "lookup kind")
			if err != nil {
				return err
			}
			if !slices.Contains(backend.LookupKinds, kind) {
				return fmt.Errorf("unknown lookup %q (%s)", kind, strings.Join(backend.LookupKinds, ", "))
			}
			rt, err := requireSession(c, "data")
			if err != nil {
				return err
			}
			items, err := rt.client.Lookup(c.Context, kind)
			if err != nil {
				return err
			}
			return rt.print(items)
		},
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
