package output

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/yndnr/cepip-console/internal/core/domain"
)

var (
	timeType = reflect.TypeFor[time.Time]()

	errNotTabular = errors.New("output: value is not tabular")
)

// TableFormatter renders data as aligned columns.
type TableFormatter struct {
	// Wide shows fields tagged `table:"wide"` and record fields the
	// backend column metadata leaves out.
	Wide      bool
	NoHeaders bool
}

// Format accepts a Table, a record page, raw JSON, slices of structs or
// maps, a map or a struct. Anything else is printed as indented JSON.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	var t *Table
	switch d := data.(type) {
	case nil:
		return nil
	case *Table:
		t = d
	case Table:
		t = &d
	case *domain.RecordPage:
		t = RecordTable(d, f.Wide)
	case domain.RecordPage:
		t = RecordTable(&d, f.Wide)
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(d, &decoded); err != nil {
			return err
		}
		return f.Format(w, decoded)
	default:
		var err error
		if t, err = buildTable(reflect.ValueOf(data), f.Wide); err != nil {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(data)
		}
	}
	return t.RenderWithOptions(w, f.NoHeaders)
}

func buildTable(v reflect.Value, wide bool) (*Table, error) {
	v = indirect(v)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return listTable(v, wide), nil
	case reflect.Map:
		return keyValueTable(v), nil
	case reflect.Struct:
		return fieldTable(v), nil
	}
	return nil, fmt.Errorf("%w: %s", errNotTabular, v.Kind())
}

// listTable turns each element into a row. The first element decides the
// shape: struct fields become columns, maps contribute the sorted union of
// their keys, scalars go in a single VALUE column.
func listTable(v reflect.Value, wide bool) *Table {
	t := &Table{}
	if v.Len() == 0 {
		return t
	}

	var cellsOf func(elem reflect.Value) []string
	switch first := indirect(v.Index(0)); first.Kind() {
	case reflect.Struct:
		fields := visibleFields(first.Type(), wide)
		for _, fi := range fields {
			t.Headers = append(t.Headers, strings.ToUpper(toSnakeCase(fi.name)))
		}
		cellsOf = func(elem reflect.Value) []string {
			cells := make([]string, len(fields))
			for i, fi := range fields {
				cells[i] = formatValue(elem.Field(fi.index))
			}
			return cells
		}
	case reflect.Map:
		keys := unionKeys(v)
		for _, k := range keys {
			t.Headers = append(t.Headers, strings.ToUpper(k))
		}
		cellsOf = func(elem reflect.Value) []string {
			byKey := map[string]string{}
			for it := elem.MapRange(); it.Next(); {
				byKey[formatValue(it.Key())] = formatValue(it.Value())
			}
			cells := make([]string, len(keys))
			for i, k := range keys {
				cells[i] = byKey[k]
			}
			return cells
		}
	default:
		t.Headers = []string{"VALUE"}
	}

	for i := range v.Len() {
		elem := indirect(v.Index(i))
		switch {
		case cellsOf != nil && (elem.Kind() == reflect.Struct || elem.Kind() == reflect.Map):
			t.Rows = append(t.Rows, cellsOf(elem))
		default:
			t.Rows = append(t.Rows, []string{formatValue(elem)})
		}
	}
	return t
}

type fieldInfo struct {
	index int
	name  string
}

func visibleFields(typ reflect.Type, wide bool) []fieldInfo {
	var out []fieldInfo
	for i := range typ.NumField() {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := sf.Tag.Get("table")
		if tag == "-" || (!wide && strings.Contains(tag, "wide")) {
			continue
		}
		out = append(out, fieldInfo{index: i, name: displayName(sf)})
	}
	return out
}

// displayName prefers the JSON name so headers match what the API returns.
func displayName(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return sf.Name
	}
	return name
}

func unionKeys(v reflect.Value) []string {
	var keys []string
	for i := range v.Len() {
		elem := indirect(v.Index(i))
		if elem.Kind() != reflect.Map {
			continue
		}
		for _, k := range elem.MapKeys() {
			if s := formatValue(k); !slices.Contains(keys, s) {
				keys = append(keys, s)
			}
		}
	}
	slices.Sort(keys)
	return keys
}

func keyValueTable(v reflect.Value) *Table {
	t := &Table{Headers: []string{"KEY", "VALUE"}}
	for it := v.MapRange(); it.Next(); {
		t.AddRow(formatValue(it.Key()), formatValue(it.Value()))
	}
	slices.SortFunc(t.Rows, func(a, b []string) int { return strings.Compare(a[0], b[0]) })
	return t
}

func fieldTable(v reflect.Value) *Table {
	t := &Table{Headers: []string{"FIELD", "VALUE"}}
	typ := v.Type()
	for i := range typ.NumField() {
		if sf := typ.Field(i); sf.IsExported() {
			t.AddRow(displayName(sf), formatValue(v.Field(i)))
		}
	}
	return t
}

// indirect strips one level of interface and pointer.
func indirect(v reflect.Value) reflect.Value {
	if v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	return v
}

// formatValue renders a single cell. Nil renders empty, empty strings and
// collections render "-".
func formatValue(v reflect.Value) string {
	if v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) && v.IsNil() {
		return ""
	}
	v = indirect(v)
	if !v.IsValid() {
		return ""
	}

	if v.Type() == timeType {
		ts := v.Interface().(time.Time)
		if ts.IsZero() {
			return "-"
		}
		return ts.Format("2006-01-02 15:04")
	}

	switch v.Kind() {
	case reflect.String:
		return orDash(v.String())
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		// JSON numbers decode as float64; ids should not print as 1e+06.
		if n := v.Float(); n == float64(int64(n)) {
			return strconv.FormatInt(int64(n), 10)
		}
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "-"
		}
		return fmt.Sprintf("[%d items]", v.Len())
	case reflect.Map:
		if v.Len() == 0 {
			return "-"
		}
		return fmt.Sprintf("{%d keys}", v.Len())
	}
	return fmt.Sprint(v.Interface())
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// toSnakeCase puts an underscore before every inner capital:
// RecordCount becomes Record_Count.
func toSnakeCase(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range s {
		if i > 0 && 'A' <= r && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Table is a header row, data rows and an optional footer line.
type Table struct {
	Headers []string
	Rows    [][]string
	// Footer is written below the aligned block, e.g. paging information.
	Footer string
}

func (t *Table) Render(w io.Writer) error {
	return t.RenderWithOptions(w, false)
}

func (t *Table) RenderWithOptions(w io.Writer, noHeaders bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	lines := t.Rows
	if !noHeaders && len(t.Headers) > 0 {
		lines = append([][]string{t.Headers}, t.Rows...)
	}
	for _, cells := range lines {
		if _, err := io.WriteString(tw, strings.Join(cells, "\t")+"\n"); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if t.Footer == "" {
		return nil
	}
	_, err := fmt.Fprintln(w, t.Footer)
	return err
}

func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

func (t *Table) SetHeaders(headers ...string) {
	t.Headers = headers
}

// RecordTable lays out a page of records. Column metadata from the backend
// fixes order and labels; without it, or in wide mode, the remaining record
// fields follow in name order.
func RecordTable(page *domain.RecordPage, wide bool) *Table {
	t := &Table{}
	fields := make([]string, 0, len(page.Columns))
	for _, c := range page.Columns {
		fields = append(fields, c.Name)
		t.Headers = append(t.Headers, strings.ToUpper(cmp.Or(c.Label, c.Name)))
	}

	if wide || len(fields) == 0 {
		var extra []string
		for _, rec := range page.Data {
			for name := range rec {
				if !slices.Contains(fields, name) && !slices.Contains(extra, name) {
					extra = append(extra, name)
				}
			}
		}
		slices.Sort(extra)
		for _, name := range extra {
			fields = append(fields, name)
			t.Headers = append(t.Headers, strings.ToUpper(name))
		}
	}

	for _, rec := range page.Data {
		row := make([]string, len(fields))
		for i, name := range fields {
			row[i] = formatValue(reflect.ValueOf(rec[name]))
		}
		t.AddRow(row...)
	}

	if p := page.Pagination; p.Pages > 0 {
		t.Footer = fmt.Sprintf("page %d/%d, %d records", p.Page, p.Pages, p.Total)
	}
	return t
}

