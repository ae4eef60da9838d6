// Package testutil provides an in-process fake of the CEPIP REST backend
// for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/yndnr/cepip-console/internal/core/domain"
)

// Request is a request the fake backend received.
type Request struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// Backend is a fake backend on an httptest server. Protected routes accept
// only tokens registered with AddUser.
type Backend struct {
	*httptest.Server

	mu        sync.Mutex
	users     map[string]string
	google    map[string]string
	tables    map[string][]domain.Record
	columns   map[string][]domain.Column
	relations map[int][]map[string]any
	settings  map[string]any
	forced    map[string]int
	requests  []Request
	nextID    int
}

// Tables the backend accepts in record routes.
var validTables = []string{"ente", "persona", "consorcista", "parcela", "sector", "rubro", "subrubro", "area", "cargo", "camara", "sindicato"}

// NewBackend starts a backend that is closed when t ends.
func NewBackend(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		users:     make(map[string]string),
		google:    make(map[string]string),
		tables:    make(map[string][]domain.Record),
		columns:   make(map[string][]domain.Column),
		relations: make(map[int][]map[string]any),
		forced:    make(map[string]int),
		settings: map[string]any{
			"appName":        "CEPIP",
			"recordsPerPage": float64(20),
			"theme":          "light",
			"language":       "es",
			"notifications":  true,
		},
		nextID: 1000,
	}
	b.Server = httptest.NewServer(b.routes())
	t.Cleanup(b.Close)
	return b
}

// AddUser accepts token and answers /api/auth/me with identity, verbatim.
func (b *Backend) AddUser(token, identity string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[token] = identity
}

// RevokeToken makes every protected route answer 401 for token.
func (b *Backend) RevokeToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.users, token)
}

// AddGoogleLogin makes POST /api/auth/google exchange googleToken for
// accessToken, which must have been added with AddUser.
func (b *Backend) AddGoogleLogin(googleToken, accessToken string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.google[googleToken] = accessToken
}

// ForceStatus makes path answer status with a detail body, whatever the
// credentials. Status 0 removes the override.
func (b *Backend) ForceStatus(path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if status == 0 {
		delete(b.forced, path)
		return
	}
	b.forced[path] = status
}

// SetRecords replaces the rows of table.
func (b *Backend) SetRecords(table string, rows ...domain.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tables[table] = rows
}

// SetColumns sets the column metadata returned with listings of table.
func (b *Backend) SetColumns(table string, cols ...domain.Column) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.columns[table] = cols
}

// Records returns a copy of the rows of table.
func (b *Backend) Records(table string) []domain.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Record(nil), b.tables[table]...)
}

// Requests returns every request received so far.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// LastRequest returns the most recent request to path.
func (b *Backend) LastRequest(path string) (Request, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.requests) - 1; i >= 0; i-- {
		if b.requests[i].Path == path {
			return b.requests[i], true
		}
	}
	return Request{}, false
}

// CountRequests returns how many requests hit path.
func (b *Backend) CountRequests(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, r := range b.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record, b.forceStatus)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/google", b.googleLogin)
			r.With(b.requireToken).Get("/me", b.me)
			r.Post("/logout", func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
			})
			r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{
					"google_client_configured": true,
					"google_client_id":         "test-client.apps.googleusercontent.com",
					"secret_key_configured":    true,
				})
			})
			r.Get("/config", func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, map[string]string{"google_client_id": "test-client.apps.googleusercontent.com"})
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(b.requireToken)

			r.Get("/records/lookup/{kind}", b.lookup)
			r.Get("/records/{table}", b.listRecords)
			r.Post("/records/{table}", b.createRecord)
			r.Get("/records/{table}/{id}", b.getRecord)
			r.Put("/records/{table}/{id}", b.updateRecord)
			r.Delete("/records/{table}/{id}", b.deleteRecord)
			r.Get("/records/{table}/{id}/relaciones", b.listRelations)
			r.Post("/records/{table}/{id}/relaciones", b.addRelation)
			r.Delete("/records/{table}/{id}/relaciones/{rid}", b.deleteRelation)
			r.Put("/records/{table}/{id}/consorcista", b.assignConsorcista)
			r.Get("/records/{table}/{id}/parcelas", b.consorcistaParcelas)

			r.Get("/stats", b.stats)
			r.Get("/stats/dashboard", b.dashboard)
			r.Get("/tables", b.listTables)
			r.Get("/tables/{name}/schema", b.tableSchema)
			r.Get("/reports", b.listReports)
			r.Post("/reports/{type}", b.generateReport)
			r.Get("/reports/{type}/export/{format}", b.exportReport)
			r.Get("/settings", b.getSettings)
			r.Put("/settings", b.updateSettings)
		})
	})
	return r
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) forceStatus(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		status, ok := b.forced[r.URL.Path]
		b.mu.Unlock()
		if ok {
			writeDetail(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		b.mu.Lock()
		_, known := b.users[token]
		b.mu.Unlock()
		if !ok || !known {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	b.mu.Lock()
	identity := b.users[token]
	b.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, identity)
}

func (b *Backend) googleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	b.mu.Lock()
	access, ok := b.google[req.Token]
	identity := b.users[access]
	b.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Invalid Google token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": access,
		"token_type":   "bearer",
		"user":         json.RawMessage(identity),
	})
}

func validTable(name string) bool {
	for _, t := range validTables {
		if t == name {
			return true
		}
	}
	return false
}

// primaryKey returns the id column of table.
func primaryKey(table string) string {
	switch table {
	case "ente", "persona", "parcela", "consorcista", "sector", "rubro", "subrubro", "area", "cargo", "camara", "sindicato":
		return table + "id"
	default:
		return "id"
	}
}

func (b *Backend) listRecords(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	if !validTable(table) {
		writeDetail(w, http.StatusBadRequest, "Invalid table name")
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)
	if page < 1 || limit < 1 || limit > 100 {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid paging")
		return
	}

	b.mu.Lock()
	rows := b.tables[table]
	cols := b.columns[table]
	b.mu.Unlock()

	total := len(rows)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)

	writeJSON(w, http.StatusOK, domain.RecordPage{
		Data:    append([]domain.Record{}, rows[start:end]...),
		Columns: cols,
		Pagination: domain.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: (total + limit - 1) / limit,
		},
	})
}

func (b *Backend) findRecord(table, id string) (int, bool) {
	pk := primaryKey(table)
	for i, row := range b.tables[table] {
		if fmt.Sprint(row[pk]) == id {
			return i, true
		}
	}
	return 0, false
}

func (b *Backend) getRecord(w http.ResponseWriter, r *http.Request) {
	table, id := chi.URLParam(r, "table"), chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	i, ok := b.findRecord(table, id)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Record not found")
		return
	}
	writeJSON(w, http.StatusOK, b.tables[table][i])
}

func (b *Backend) createRecord(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	var rec domain.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	b.mu.Lock()
	b.nextID++
	rec[primaryKey(table)] = float64(b.nextID)
	b.tables[table] = append(b.tables[table], rec)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"message": "Record created successfully", "data": rec})
}

func (b *Backend) updateRecord(w http.ResponseWriter, r *http.Request) {
	table, id := chi.URLParam(r, "table"), chi.URLParam(r, "id")
	var patch domain.Record
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	i, ok := b.findRecord(table, id)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Record not found")
		return
	}
	row := b.tables[table][i]
	for k, v := range patch {
		row[k] = v
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Record updated successfully", "data": row})
}

func (b *Backend) deleteRecord(w http.ResponseWriter, r *http.Request) {
	table, id := chi.URLParam(r, "table"), chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	i, ok := b.findRecord(table, id)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Record not found")
		return
	}
	rows := b.tables[table]
	b.tables[table] = append(rows[:i:i], rows[i+1:]...)
	n, _ := strconv.Atoi(id)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Record deleted successfully", "id": n})
}

func (b *Backend) lookup(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	var table, field, key string
	switch kind {
	case "empresas":
		table, field, key = "ente", "razonsocial", "empresas"
	case "cargos":
		table, field, key = "cargo", "cargo", "cargos"
	case "areas":
		table, field, key = "area", "area", "areas"
	case "consorcistas":
		table, field, key = "consorcista", "nombre", "consorcistas"
	case "tipos-consorcista":
		table, field, key = "tipo_consorcista", "tipo", "tipos"
	default:
		writeDetail(w, http.StatusNotFound, "Not Found")
		return
	}

	b.mu.Lock()
	items := make([]map[string]any, 0, len(b.tables[table]))
	for _, row := range b.tables[table] {
		items = append(items, map[string]any{"id": row[primaryKey(table)], "name": row[field]})
	}
	b.mu.Unlock()

	sort.Slice(items, func(i, j int) bool {
		return fmt.Sprint(items[i]["name"]) < fmt.Sprint(items[j]["name"])
	})
	writeJSON(w, http.StatusOK, map[string]any{key: items})
}

func (b *Backend) listRelations(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	b.mu.Lock()
	rels := append([]map[string]any{}, b.relations[id]...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"relaciones": rels})
}

func (b *Backend) addRelation(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	var rel map[string]any
	if err := json.NewDecoder(r.Body).Decode(&rel); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	b.mu.Lock()
	b.nextID++
	rel["id"] = float64(b.nextID)
	b.relations[id] = append(b.relations[id], rel)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Relación creada exitosamente"})
}

func (b *Backend) deleteRelation(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	rid := chi.URLParam(r, "rid")
	b.mu.Lock()
	rels := b.relations[id]
	for i, rel := range rels {
		if fmt.Sprint(rel["id"]) == rid {
			b.relations[id] = append(rels[:i:i], rels[i+1:]...)
			break
		}
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Relación eliminada exitosamente"})
}

func (b *Backend) assignConsorcista(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	i, ok := b.findRecord("parcela", id)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Record not found")
		return
	}
	b.tables["parcela"][i]["consorcistaid"] = body["consorcistaid"]
	msg := "Parcela asignada al consorcista exitosamente"
	if body["consorcistaid"] == nil {
		msg = "Parcela desasignada del consorcista exitosamente"
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (b *Backend) consorcistaParcelas(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	var out []map[string]any
	for _, row := range b.tables["parcela"] {
		if row["consorcistaid"] != nil && fmt.Sprint(row["consorcistaid"]) == id {
			out = append(out, map[string]any{
				"id":             row["parcelaid"],
				"parcela":        row["parcela"],
				"superficie_has": row["superficie_has"],
			})
		}
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"parcelas": out})
}

func (b *Backend) stats(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var s domain.Stats
	for _, t := range validTables {
		n := len(b.tables[t])
		s.TotalRecords += n
		s.TableStats = append(s.TableStats, domain.TableCount{Table: t, Count: n})
	}
	s.TotalTables = len(validTables)
	s.ActiveRecords = s.TotalRecords
	s.LastUpdate = "2024-01-20 10:30:00"
	s.RecentActivity = map[string]int{"todayCreated": 0, "todayUpdated": 0, "todayDeleted": 0}
	writeJSON(w, http.StatusOK, s)
}

func (b *Backend) dashboard(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	total := 0
	for _, rows := range b.tables {
		total += len(rows)
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, domain.Dashboard{
		TotalRecords: total,
		LastUpdate:   "2024-01-20 10:30:00",
		SystemStatus: "operational",
		BackupStatus: "completed",
		LastBackup:   "2024-01-20 03:00:00",
	})
}

func (b *Backend) listTables(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.TableInfo
	for _, t := range []string{"ente", "persona", "consorcista", "parcela"} {
		out = append(out, domain.TableInfo{
			Name:        t,
			Label:       strings.ToUpper(t[:1]) + t[1:],
			Columns:     b.columns[t],
			RecordCount: len(b.tables[t]),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": out})
}

func (b *Backend) tableSchema(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	b.mu.Lock()
	cols, ok := b.columns[name]
	b.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "Table schema not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "columns": cols})
}

func (b *Backend) listReports(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"reports": []domain.ReportDescriptor{
		{ID: "summary", Name: "Resumen General", Description: "Resumen estadístico de todos los datos", Parameters: []domain.ReportParameter{}},
		{ID: "detailed", Name: "Reporte Detallado", Description: "Reporte detallado con filtros personalizables", Parameters: []domain.ReportParameter{
			{Name: "fecha_inicio", Type: "date", Required: true},
			{Name: "fecha_fin", Type: "date", Required: true},
		}},
		{ID: "monthly", Name: "Reporte Mensual", Description: "Estadísticas mensuales", Parameters: []domain.ReportParameter{
			{Name: "mes", Type: "select"},
		}},
	}})
}

func (b *Backend) generateReport(w http.ResponseWriter, r *http.Request) {
	typ := chi.URLParam(r, "type")
	var params map[string]any
	json.NewDecoder(r.Body).Decode(&params)

	switch typ {
	case "summary", "detailed", "monthly":
		writeJSON(w, http.StatusOK, map[string]any{
			"title":        typ,
			"generated_at": "2024-01-20T10:30:00",
			"parameters":   params,
		})
	default:
		writeDetail(w, http.StatusNotFound, "Report type not found")
	}
}

func (b *Backend) exportReport(w http.ResponseWriter, r *http.Request) {
	typ, format := chi.URLParam(r, "type"), chi.URLParam(r, "format")
	switch format {
	case "pdf", "excel", "csv":
	default:
		writeDetail(w, http.StatusBadRequest, "Format not supported")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Report export not yet implemented for " + format,
		"report_type": typ,
		"format":      format,
	})
}

func (b *Backend) getSettings(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.settings)
}

func (b *Backend) updateSettings(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, v := range patch {
		b.settings[k] = v
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Settings updated successfully", "settings": b.settings})
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
