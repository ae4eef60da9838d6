package entity

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/cepip-console/internal/core/domain"
)

// Column is one exported CSV column.
type Column struct {
	Header string
	Value  func(domain.Record) string
}

// Stat is one figure of the statistics block.
type Stat struct {
	Key   string `json:"key" yaml:"key"`
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Definition describes an entity kind.
type Definition struct {
	// Name is the singular command name, e.g. "empresa".
	Name string
	// Plural is used in messages and export file names.
	Plural string
	// Table is the backend table, e.g. "ente".
	Table string
	// IDField is the primary key column.
	IDField string
	// Export lists the CSV columns; nil exports every field.
	Export []Column
	// Stats computes the statistics of a page; nil reports only the count.
	Stats func([]domain.Record) []Stat
}

var (
	Empresas = Definition{
		Name:    "empresa",
		Plural:  "empresas",
		Table:   "ente",
		IDField: "enteid",
		Export: []Column{
			{"ID", field("enteid")},
			{"Razón Social", field("razonsocial")},
			{"CUIT", func(r domain.Record) string { return FormatCUIT(r["cuit"]) }},
			{"N° Socio", field("nro_socio_cepip")},
			{"Sector", field("sector_nombre")},
			{"Rubro", field("rubro_nombre")},
			{"Es Socio", yesNo("es_socio")},
			{"Consorcista", yesNo("esconsorcista")},
			{"Web", field("web")},
		},
		Stats: func(rows []domain.Record) []Stat {
			return []Stat{
				count("total", "Total empresas", len(rows)),
				count("socios", "Socios", countTruthy(rows, "es_socio")),
				count("consorcistas", "Consorcistas", countTruthy(rows, "esconsorcista")),
				count("sectores", "Sectores", countDistinct(rows, "sector_nombre")),
			}
		},
	}

	Personas = Definition{
		Name:    "persona",
		Plural:  "personas",
		Table:   "persona",
		IDField: "personaid",
		Export: []Column{
			{"ID", field("personaid")},
			{"Nombre y Apellido", field("nombre_apellido")},
			{"Email", field("correo_electronico")},
			{"Teléfono", field("telefono")},
			{"Celular", field("celular")},
			{"Empresas", field("empresas")},
			{"Cargos", field("cargos")},
		},
		Stats: func(rows []domain.Record) []Stat {
			return []Stat{
				count("total", "Total personas", len(rows)),
				count("con_email", "Con email", countNonBlank(rows, "correo_electronico")),
				count("con_telefono", "Con teléfono", countNonBlank(rows, "telefono")),
				count("con_relaciones", "Con relaciones", countNonBlank(rows, "empresas")),
			}
		},
	}

	Parcelas = Definition{
		Name:    "parcela",
		Plural:  "parcelas",
		Table:   "parcela",
		IDField: "parcelaid",
		Export: []Column{
			{"ID", field("parcelaid")},
			{"Parcela", field("parcela")},
			{"Calle", field("calle")},
			{"Número", field("numero")},
			{"Superficie (ha)", field("superficie_has")},
			{"Tiene Planta", yesNo("tieneplanta")},
			{"Alquilada", yesNo("alquilada")},
			{"Fracción", field("fraccion")},
		},
		Stats: func(rows []domain.Record) []Stat {
			var surface float64
			for _, r := range rows {
				surface += number(r["superficie_has"])
			}
			return []Stat{
				count("total", "Total parcelas", len(rows)),
				count("con_planta", "Con planta", countTruthy(rows, "tieneplanta")),
				count("alquiladas", "Alquiladas", countTruthy(rows, "alquilada")),
				{Key: "superficie_total", Label: "Superficie total", Value: strconv.FormatFloat(surface, 'f', 2, 64) + " ha"},
			}
		},
	}

	Consorcistas = Definition{
		Name:    "consorcista",
		Plural:  "consorcistas",
		Table:   "consorcista",
		IDField: "consorcistaid",
		Export: []Column{
			{"ID", field("consorcistaid")},
			{"Nombre", field("nombre")},
			{"N° Consorcista", field("nro_consorcista")},
			{"Tipo", field("tipo_nombre")},
			{"Parcelas", intField("parcelas_count")},
			{"Empresas", intField("empresas_count")},
			{"Fecha Carga", func(r domain.Record) string { return FormatDate(r["fecha_de_carga"]) }},
		},
		Stats: func(rows []domain.Record) []Stat {
			var parcelas, empresas int
			for _, r := range rows {
				parcelas += int(number(r["parcelas_count"]))
				empresas += int(number(r["empresas_count"]))
			}
			return []Stat{
				count("total", "Total consorcistas", len(rows)),
				count("parcelas", "Parcelas", parcelas),
				count("empresas", "Empresas", empresas),
				count("tipos", "Tipos", countDistinct(rows, "tipo_nombre")),
			}
		},
	}
)

// Kinds lists the dedicated entity kinds.
var Kinds = []Definition{Empresas, Personas, Parcelas, Consorcistas}

// ByName finds a dedicated kind by singular name, plural or table.
func ByName(name string) (Definition, bool) {
	for _, d := range Kinds {
		if name == d.Name || name == d.Plural || name == d.Table {
			return d, true
		}
	}
	return Definition{}, false
}

// Generic describes an auxiliary table without dedicated handling. The
// primary key follows the backend convention <table>id.
func Generic(table string) Definition {
	return Definition{
		Name:    table,
		Plural:  table,
		Table:   table,
		IDField: table + "id",
	}
}

func count(key, label string, n int) Stat {
	return Stat{Key: key, Label: label, Value: strconv.Itoa(n)}
}

func countTruthy(rows []domain.Record, key string) int {
	n := 0
	for _, r := range rows {
		if truthy(r[key]) {
			n++
		}
	}
	return n
}

func countNonBlank(rows []domain.Record, key string) int {
	n := 0
	for _, r := range rows {
		if s, ok := r[key].(string); ok && strings.TrimSpace(s) != "" {
			n++
		}
	}
	return n
}

func countDistinct(rows []domain.Record, key string) int {
	seen := make(map[string]struct{})
	for _, r := range rows {
		if truthy(r[key]) {
			seen[Text(r[key])] = struct{}{}
		}
	}
	return len(seen)
}

// truthy treats null, false, zero and "" as unset.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

func number(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Text renders a field value for display.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(t)
	}
}

// field exports key, leaving unset values empty.
func field(key string) func(domain.Record) string {
	return func(r domain.Record) string {
		if !truthy(r[key]) {
			return ""
		}
		return Text(r[key])
	}
}

func intField(key string) func(domain.Record) string {
	return func(r domain.Record) string {
		return strconv.Itoa(int(number(r[key])))
	}
}

func yesNo(key string) func(domain.Record) string {
	return func(r domain.Record) string {
		if truthy(r[key]) {
			return "Sí"
		}
		return "No"
	}
}

// FormatCUIT renders an 11 digit CUIT as XX-XXXXXXXX-X and "-" when unset.
func FormatCUIT(v any) string {
	if !truthy(v) {
		return "-"
	}
	s := Text(v)
	if len(s) == 11 {
		return s[:2] + "-" + s[2:10] + "-" + s[10:]
	}
	return s
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

// FormatDate renders a backend date as d/m/yyyy, "-" when unset, and the
// raw value when it cannot be parsed.
func FormatDate(v any) string {
	if !truthy(v) {
		return "-"
	}
	s := Text(v)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2/1/2006")
		}
	}
	return s
}

// genericColumns picks the export columns of a table without a
// definition: the backend column metadata when present, otherwise the
// sorted field names of the rows.
func genericColumns(cols []domain.Column, rows []domain.Record) []Column {
	var out []Column
	if len(cols) > 0 {
		for _, c := range cols {
			header := c.Label
			if header == "" {
				header = c.Name
			}
			out = append(out, Column{Header: header, Value: rawField(c.Name)})
		}
		return out
	}

	keys := make(map[string]struct{})
	for _, r := range rows {
		for k := range r {
			keys[k] = struct{}{}
		}
	}
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		out = append(out, Column{Header: k, Value: rawField(k)})
	}
	return out
}

func rawField(key string) func(domain.Record) string {
	return func(r domain.Record) string { return Text(r[key]) }
}
