package entity

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/cepip-console/internal/backend"
	"github.com/yndnr/cepip-console/internal/cli/connection"
	"github.com/yndnr/cepip-console/internal/core/domain"
	"github.com/yndnr/cepip-console/internal/session"
	"github.com/yndnr/cepip-console/internal/storage"
	"github.com/yndnr/cepip-console/internal/telemetry/logger"
	"github.com/yndnr/cepip-console/internal/testutil"
)

const token = "tok-ops"

func newClient(t *testing.T) (*testutil.Backend, *backend.Client) {
	t.Helper()
	be := testutil.NewBackend(t)
	be.AddUser(token, `{"name":"Ops","is_admin":false}`)

	gw, err := session.New(session.Config{
		Store:     storage.NewMemoryStore(),
		Navigator: session.NewViewTracker("empresas", nil),
		ServerURL: be.URL,
	}, session.WithLogger(logger.Nop()))
	require.NoError(t, err)
	require.NoError(t, gw.Login(context.Background(), token))

	hc := connection.NewHTTPClient(be.URL, connection.WithTransport(gw.Transport(nil)))
	return be, backend.New(hc, gw.APIPrefix())
}

func statMap(stats []Stat) map[string]string {
	m := make(map[string]string, len(stats))
	for _, s := range stats {
		m[s.Key] = s.Value
	}
	return m
}

func TestDefinitions_Stats(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
		rows []domain.Record
		want map[string]string
	}{
		{
			name: "empresas",
			def:  Empresas,
			rows: []domain.Record{
				{"es_socio": true, "esconsorcista": true, "sector_nombre": "Metalúrgica"},
				{"es_socio": false, "esconsorcista": nil, "sector_nombre": "Metalúrgica"},
				{"es_socio": true, "sector_nombre": "Química"},
				{"sector_nombre": ""},
			},
			want: map[string]string{"total": "4", "socios": "2", "consorcistas": "1", "sectores": "2"},
		},
		{
			name: "personas",
			def:  Personas,
			rows: []domain.Record{
				{"correo_electronico": "ana@x.org", "telefono": " ", "empresas": "ACME"},
				{"correo_electronico": "", "telefono": "4455", "empresas": nil},
				{},
			},
			want: map[string]string{"total": "3", "con_email": "1", "con_telefono": "1", "con_relaciones": "1"},
		},
		{
			name: "parcelas",
			def:  Parcelas,
			rows: []domain.Record{
				{"tieneplanta": true, "alquilada": false, "superficie_has": 1.5},
				{"tieneplanta": false, "alquilada": true, "superficie_has": "2.25"},
				{"superficie_has": "n/a"},
			},
			want: map[string]string{"total": "3", "con_planta": "1", "alquiladas": "1", "superficie_total": "3.75 ha"},
		},
		{
			name: "consorcistas",
			def:  Consorcistas,
			rows: []domain.Record{
				{"parcelas_count": float64(2), "empresas_count": float64(1), "tipo_nombre": "Propietario"},
				{"parcelas_count": "3", "empresas_count": nil, "tipo_nombre": "Inquilino"},
				{"tipo_nombre": "Propietario"},
			},
			want: map[string]string{"total": "3", "parcelas": "5", "empresas": "1", "tipos": "2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statMap(tt.def.Stats(tt.rows)))
		})
	}
}

func TestFormatCUIT(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{float64(30712345678), "30-71234567-8"},
		{"20123456789", "20-12345678-9"},
		{"123", "123"},
		{nil, "-"},
		{"", "-"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCUIT(tt.in), "FormatCUIT(%v)", tt.in)
	}
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"2024-03-05", "5/3/2024"},
		{"2024-03-05T10:20:30", "5/3/2024"},
		{"2024-12-01T00:00:00Z", "1/12/2024"},
		{"ayer", "ayer"},
		{nil, "-"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDate(tt.in), "FormatDate(%v)", tt.in)
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"empresa", "empresas", "ente"} {
		d, ok := ByName(name)
		require.True(t, ok, name)
		assert.Equal(t, "ente", d.Table)
	}
	_, ok := ByName("sector")
	assert.False(t, ok)

	g := Generic("sector")
	assert.Equal(t, "sectorid", g.IDField)
	assert.Nil(t, g.Export)
}

func TestManager_CRUD(t *testing.T) {
	be, client := newClient(t)
	m := NewManager(client, Personas, logger.Nop())
	ctx := context.Background()

	_, err := m.Create(ctx, domain.Record{})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	created, err := m.Create(ctx, domain.Record{"personaid": float64(5), "nombre_apellido": "Ana Pérez"})
	require.NoError(t, err)
	id := Text(created["personaid"])
	assert.Equal(t, "1001", id, "caller supplied keys are dropped")

	req, _ := be.LastRequest("/api/records/persona")
	assert.NotContains(t, string(req.Body), "personaid")

	got, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ana Pérez", got["nombre_apellido"])

	_, err = m.Update(ctx, id, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	updated, err := m.Update(ctx, id, domain.Record{"telefono": "4455"})
	require.NoError(t, err)
	assert.Equal(t, "4455", updated["telefono"])

	require.NoError(t, m.Delete(ctx, id))
	assert.ErrorIs(t, m.Delete(ctx, id), domain.ErrRecordNotFound)
}

func TestManager_Statistics(t *testing.T) {
	be, client := newClient(t)
	be.SetRecords("ente",
		domain.Record{"enteid": float64(1), "es_socio": true, "sector_nombre": "A"},
		domain.Record{"enteid": float64(2), "esconsorcista": true, "sector_nombre": "B"},
	)

	stats, err := NewManager(client, Empresas, logger.Nop()).Statistics(context.Background(), backend.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"total": "2", "socios": "1", "consorcistas": "1", "sectores": "2"}, statMap(stats))

	generic, err := NewManager(client, Generic("rubro"), logger.Nop()).Statistics(context.Background(), backend.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, "0", statMap(generic)["total"])
}

func TestManager_ExportAllPages(t *testing.T) {
	be, client := newClient(t)
	var rows []domain.Record
	for i := 1; i <= 7; i++ {
		rows = append(rows, domain.Record{
			"parcelaid":      float64(i),
			"parcela":        fmt.Sprintf("P-%d", i),
			"calle":          "Ruta 2, km 40",
			"superficie_has": 1.5,
			"tieneplanta":    i%2 == 0,
		})
	}
	be.SetRecords("parcela", rows...)

	var (
		mu    sync.Mutex
		calls [][2]int
	)
	var buf bytes.Buffer
	n, err := NewManager(client, Parcelas, logger.Nop()).Export(context.Background(), &buf, ExportOptions{
		PageSize:    3,
		Concurrency: 2,
		Progress: func(done, total int) {
			mu.Lock()
			defer mu.Unlock()
			calls = append(calls, [2]int{done, total})
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, 3, be.CountRequests("/api/records/parcela"))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 8)
	assert.Equal(t, []string{"ID", "Parcela", "Calle", "Número", "Superficie (ha)", "Tiene Planta", "Alquilada", "Fracción"}, records[0])
	for i, rec := range records[1:] {
		assert.Equal(t, fmt.Sprint(i+1), rec[0], "rows keep page order")
	}
	assert.Equal(t, []string{"2", "P-2", "Ruta 2, km 40", "", "1.5", "Sí", "No", ""}, records[2])

	require.Len(t, calls, 3)
	assert.Equal(t, [2]int{3, 3}, calls[len(calls)-1])
}

func TestManager_ExportGenericUsesColumns(t *testing.T) {
	be, client := newClient(t)
	be.SetColumns("rubro",
		domain.Column{Name: "rubroid", Label: "ID"},
		domain.Column{Name: "rubro"},
	)
	be.SetRecords("rubro", domain.Record{"rubroid": float64(1), "rubro": "Plásticos", "extra": "x"})

	var buf bytes.Buffer
	_, err := NewManager(client, Generic("rubro"), logger.Nop()).Export(context.Background(), &buf, ExportOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ID,rubro\n1,Plásticos\n", buf.String())
}

func TestManager_ExportGenericWithoutColumns(t *testing.T) {
	be, client := newClient(t)
	be.SetRecords("sector", domain.Record{"sectorid": float64(3), "sector": "Norte"})

	var buf bytes.Buffer
	_, err := NewManager(client, Generic("sector"), logger.Nop()).Export(context.Background(), &buf, ExportOptions{})
	require.NoError(t, err)
	assert.Equal(t, "sector,sectorid\nNorte,3\n", buf.String())
}

func TestManager_ExportEmpty(t *testing.T) {
	_, client := newClient(t)
	_, err := NewManager(client, Consorcistas, logger.Nop()).Export(context.Background(), &bytes.Buffer{}, ExportOptions{})
	assert.ErrorIs(t, err, ErrNoData)
}

// pagedAPI serves pages of a fixed size and fails on one page.
type pagedAPI struct {
	rows     int
	failPage int
}

func (a *pagedAPI) ListRecords(_ context.Context, _ string, opts backend.ListOptions) (*domain.RecordPage, error) {
	if opts.Page == a.failPage {
		return nil, &connection.APIError{StatusCode: 500, Detail: "boom"}
	}
	pages := (a.rows + opts.Limit - 1) / opts.Limit
	var data []domain.Record
	for i := (opts.Page - 1) * opts.Limit; i < min(opts.Page*opts.Limit, a.rows); i++ {
		data = append(data, domain.Record{"enteid": float64(i + 1), "razonsocial": "ACME, \"Sur\""})
	}
	return &domain.RecordPage{Data: data, Pagination: domain.Pagination{Page: opts.Page, Limit: opts.Limit, Total: a.rows, Pages: pages}}, nil
}

func (a *pagedAPI) GetRecord(context.Context, string, string) (domain.Record, error) {
	return nil, errors.New("not implemented")
}

func (a *pagedAPI) CreateRecord(context.Context, string, domain.Record) (domain.Record, error) {
	return nil, errors.New("not implemented")
}

func (a *pagedAPI) UpdateRecord(context.Context, string, string, domain.Record) (domain.Record, error) {
	return nil, errors.New("not implemented")
}

func (a *pagedAPI) DeleteRecord(context.Context, string, string) error {
	return errors.New("not implemented")
}

func TestManager_ExportPageFailure(t *testing.T) {
	m := NewManager(&pagedAPI{rows: 500, failPage: 4}, Empresas, logger.Nop())
	var buf bytes.Buffer
	_, err := m.Export(context.Background(), &buf, ExportOptions{PageSize: 50})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBackend)
	assert.Contains(t, err.Error(), "page 4")
	assert.Zero(t, buf.Len(), "nothing is written when a page fails")
}

func TestManager_ExportQuoting(t *testing.T) {
	m := NewManager(&pagedAPI{rows: 1}, Empresas, logger.Nop())
	var buf bytes.Buffer
	_, err := m.Export(context.Background(), &buf, ExportOptions{})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `1,"ACME, ""Sur""",-,,,,No,No,`, lines[1])
}
