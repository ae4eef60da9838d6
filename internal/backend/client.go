package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/yndnr/cepip-console/internal/cli/connection"
	"github.com/yndnr/cepip-console/internal/core/domain"
)

// Paging limits enforced by the backend.
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Client calls the REST API under a path prefix.
type Client struct {
	http   *connection.HTTPClient
	prefix string
}

// New creates a client. prefix is the API prefix, e.g. "/api".
func New(httpClient *connection.HTTPClient, prefix string) *Client {
	prefix = "/" + strings.Trim(prefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	return &Client{http: httpClient, prefix: prefix}
}

func (c *Client) path(parts ...string) string {
	var b strings.Builder
	b.WriteString(c.prefix)
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(p))
	}
	return b.String()
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.http.DoJSON(ctx, http.MethodGet, path, nil, out)
}

// ---- auth ----

// LoginResult is the answer of the Google token exchange.
type LoginResult struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	User        json.RawMessage `json:"user"`
}

// AuthStatus reports how the backend's authentication is configured.
type AuthStatus struct {
	GoogleClientConfigured bool   `json:"google_client_configured" yaml:"google_client_configured"`
	GoogleClientID         string `json:"google_client_id" yaml:"google_client_id"`
	SecretKeyConfigured    bool   `json:"secret_key_configured" yaml:"secret_key_configured"`
}

// GoogleLogin exchanges a Google ID token for an access token.
func (c *Client) GoogleLogin(ctx context.Context, googleToken string) (*LoginResult, error) {
	if strings.TrimSpace(googleToken) == "" {
		return nil, domain.ErrInvalidRequest.WithDetails("google token is empty")
	}
	var res LoginResult
	if err := c.http.DoJSON(ctx, http.MethodPost, c.path("auth", "google"), map[string]string{"token": googleToken}, &res); err != nil {
		return nil, err
	}
	if res.AccessToken == "" {
		return nil, errors.New("login response has no access_token")
	}
	return &res, nil
}

// Logout tells the backend the session ends. Tokens are stateless on the
// server side, so this is informational.
func (c *Client) Logout(ctx context.Context) (string, error) {
	var res struct {
		Message string `json:"message"`
	}
	err := c.http.DoJSON(ctx, http.MethodPost, c.path("auth", "logout"), nil, &res)
	return res.Message, err
}

// AuthStatus returns the backend authentication configuration.
func (c *Client) AuthStatus(ctx context.Context) (*AuthStatus, error) {
	var res AuthStatus
	if err := c.get(ctx, c.path("auth", "status"), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GoogleClientID returns the OAuth client id the backend expects.
// The backend answers 503 when it has none configured.
func (c *Client) GoogleClientID(ctx context.Context) (string, error) {
	var res struct {
		GoogleClientID string `json:"google_client_id"`
	}
	if err := c.get(ctx, c.path("auth", "config"), &res); err != nil {
		return "", err
	}
	return res.GoogleClientID, nil
}

// ---- records ----

// ListOptions selects a page of a listing.
type ListOptions struct {
	Page  int
	Limit int
}

// Normalize fills defaults and clamps the limit.
func (o ListOptions) Normalize() ListOptions {
	if o.Page < 1 {
		o.Page = DefaultPage
	}
	if o.Limit < 1 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	return o
}

// ListRecords returns one page of table.
func (c *Client) ListRecords(ctx context.Context, table string, opts ListOptions) (*domain.RecordPage, error) {
	opts = opts.Normalize()
	q := url.Values{}
	q.Set("page", strconv.Itoa(opts.Page))
	q.Set("limit", strconv.Itoa(opts.Limit))

	var page domain.RecordPage
	if err := c.get(ctx, c.path("records", table)+"?"+q.Encode(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetRecord returns a single row.
func (c *Client) GetRecord(ctx context.Context, table, id string) (domain.Record, error) {
	var rec domain.Record
	if err := c.get(ctx, c.path("records", table, id), &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

type mutation struct {
	Message string        `json:"message"`
	Data    domain.Record `json:"data"`
}

// CreateRecord inserts rec and returns the stored row.
func (c *Client) CreateRecord(ctx context.Context, table string, rec domain.Record) (domain.Record, error) {
	var res mutation
	if err := c.http.DoJSON(ctx, http.MethodPost, c.path("records", table), rec, &res); err != nil {
		return nil, err
	}
	return res.Data, nil
}

// UpdateRecord applies the fields of patch to row id.
func (c *Client) UpdateRecord(ctx context.Context, table, id string, patch domain.Record) (domain.Record, error) {
	var res mutation
	if err := c.http.DoJSON(ctx, http.MethodPut, c.path("records", table, id), patch, &res); err != nil {
		return nil, err
	}
	return res.Data, nil
}

// DeleteRecord removes row id.
func (c *Client) DeleteRecord(ctx context.Context, table, id string) error {
	return c.http.DoJSON(ctx, http.MethodDelete, c.path("records", table, id), nil, nil)
}

// ---- lookups ----

// Lookup kinds.
const (
	LookupEmpresas         = "empresas"
	LookupCargos           = "cargos"
	LookupAreas            = "areas"
	LookupConsorcistas     = "consorcistas"
	LookupTiposConsorcista = "tipos-consorcista"
)

// LookupKinds lists the kinds accepted by Lookup.
var LookupKinds = []string{LookupEmpresas, LookupCargos, LookupAreas, LookupConsorcistas, LookupTiposConsorcista}

// LookupItem is an id/name pair used to fill select lists.
type LookupItem struct {
	ID   json.Number `json:"id" yaml:"id"`
	Name string      `json:"name" yaml:"name"`
}

// Lookup returns the id/name pairs of kind.
func (c *Client) Lookup(ctx context.Context, kind string) ([]LookupItem, error) {
	// Each kind answers under its own key ("empresas", "tipos", ...).
	var res map[string][]LookupItem
	if err := c.get(ctx, c.path("records", "lookup", kind), &res); err != nil {
		return nil, err
	}
	for _, items := range res {
		return items, nil
	}
	return nil, nil
}

// ---- relations ----

// Relation links a persona to an empresa with a cargo and an area.
type Relation struct {
	ID      json.Number `json:"id" yaml:"id"`
	EnteID  json.Number `json:"enteid" yaml:"enteid"`
	CargoID json.Number `json:"cargoid" yaml:"cargoid"`
	AreaID  json.Number `json:"areaid,omitempty" yaml:"areaid,omitempty"`
	Empresa string      `json:"empresa,omitempty" yaml:"empresa,omitempty"`
	Cargo   string      `json:"cargo,omitempty" yaml:"cargo,omitempty"`
	Area    string      `json:"area,omitempty" yaml:"area,omitempty"`
}

// RelationInput creates a Relation. AreaID is optional.
type RelationInput struct {
	EnteID  int  `json:"enteid"`
	CargoID int  `json:"cargoid"`
	AreaID  *int `json:"areaid"`
}

// Relations lists the relations of persona id.
func (c *Client) Relations(ctx context.Context, personaID string) ([]Relation, error) {
	var res struct {
		Relaciones []Relation `json:"relaciones"`
	}
	if err := c.get(ctx, c.path("records", "persona", personaID, "relaciones"), &res); err != nil {
		return nil, err
	}
	return res.Relaciones, nil
}

// AddRelation links persona id to an empresa.
func (c *Client) AddRelation(ctx context.Context, personaID string, in RelationInput) (string, error) {
	if in.EnteID <= 0 || in.CargoID <= 0 {
		return "", domain.ErrInvalidRequest.WithDetails("ente and cargo are required")
	}
	var res struct {
		Message string `json:"message"`
	}
	err := c.http.DoJSON(ctx, http.MethodPost, c.path("records", "persona", personaID, "relaciones"), in, &res)
	return res.Message, err
}

// DeleteRelation removes one relation of persona id.
func (c *Client) DeleteRelation(ctx context.Context, personaID, relationID string) (string, error) {
	var res struct {
		Message string `json:"message"`
	}
	err := c.http.DoJSON(ctx, http.MethodDelete, c.path("records", "persona", personaID, "relaciones", relationID), nil, &res)
	return res.Message, err
}

// AssignConsorcista assigns parcela id to a consorcista; nil unassigns it.
func (c *Client) AssignConsorcista(ctx context.Context, parcelaID string, consorcistaID *int) (string, error) {
	var res struct {
		Message string `json:"message"`
	}
	body := map[string]*int{"consorcistaid": consorcistaID}
	err := c.http.DoJSON(ctx, http.MethodPut, c.path("records", "parcela", parcelaID, "consorcista"), body, &res)
	return res.Message, err
}

// ConsorcistaParcelas lists the parcelas assigned to consorcista id.
func (c *Client) ConsorcistaParcelas(ctx context.Context, consorcistaID string) ([]domain.Record, error) {
	var res struct {
		Parcelas []domain.Record `json:"parcelas"`
	}
	if err := c.get(ctx, c.path("records", "consorcista", consorcistaID, "parcelas"), &res); err != nil {
		return nil, err
	}
	return res.Parcelas, nil
}

// ---- stats and tables ----

// Stats returns the global statistics.
func (c *Client) Stats(ctx context.Context) (*domain.Stats, error) {
	var s domain.Stats
	if err := c.get(ctx, c.path("stats"), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Dashboard returns the dashboard block.
func (c *Client) Dashboard(ctx context.Context) (*domain.Dashboard, error) {
	var d domain.Dashboard
	if err := c.get(ctx, c.path("stats", "dashboard"), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Tables lists the tables the backend exposes.
func (c *Client) Tables(ctx context.Context) ([]domain.TableInfo, error) {
	var res struct {
		Tables []domain.TableInfo `json:"tables"`
	}
	if err := c.get(ctx, c.path("tables"), &res); err != nil {
		return nil, err
	}
	return res.Tables, nil
}

// TableSchema returns the columns of table name.
func (c *Client) TableSchema(ctx context.Context, name string) ([]domain.Column, error) {
	var res struct {
		Columns []domain.Column `json:"columns"`
	}
	if err := c.get(ctx, c.path("tables", name, "schema"), &res); err != nil {
		return nil, err
	}
	return res.Columns, nil
}

// ---- reports ----

// Export formats accepted by ExportReport.
var ExportFormats = []string{"pdf", "excel", "csv"}

// ExportResult acknowledges a report export.
type ExportResult struct {
	Message    string `json:"message" yaml:"message"`
	ReportType string `json:"report_type" yaml:"report_type"`
	Format     string `json:"format" yaml:"format"`
}

// Reports lists the available reports.
func (c *Client) Reports(ctx context.Context) ([]domain.ReportDescriptor, error) {
	var res struct {
		Reports []domain.ReportDescriptor `json:"reports"`
	}
	if err := c.get(ctx, c.path("reports"), &res); err != nil {
		return nil, err
	}
	return res.Reports, nil
}

// GenerateReport runs report typ with params and returns its payload.
func (c *Client) GenerateReport(ctx context.Context, typ string, params map[string]any) (domain.Record, error) {
	if params == nil {
		params = map[string]any{}
	}
	var out domain.Record
	if err := c.http.DoJSON(ctx, http.MethodPost, c.path("reports", typ), params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExportReport requests report typ in format.
func (c *Client) ExportReport(ctx context.Context, typ, format string) (*ExportResult, error) {
	if !validFormat(format) {
		return nil, domain.ErrInvalidRequest.WithDetails(fmt.Sprintf("format %q not supported (pdf, excel, csv)", format))
	}
	var res ExportResult
	if err := c.get(ctx, c.path("reports", typ, "export", format), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func validFormat(f string) bool {
	for _, v := range ExportFormats {
		if v == f {
			return true
		}
	}
	return false
}

// ---- settings ----

// Settings returns the application settings.
func (c *Client) Settings(ctx context.Context) (map[string]any, error) {
	var s map[string]any
	if err := c.get(ctx, c.path("settings"), &s); err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateSettings merges patch into the settings and returns the result.
func (c *Client) UpdateSettings(ctx context.Context, patch map[string]any) (map[string]any, error) {
	var res struct {
		Message  string         `json:"message"`
		Settings map[string]any `json:"settings"`
	}
	if err := c.http.DoJSON(ctx, http.MethodPut, c.path("settings"), patch, &res); err != nil {
		return nil, err
	}
	return res.Settings, nil
}
