package domain

// Record is a single table row as the backend sends it.
type Record map[string]any

// Column describes how the backend wants a record field displayed.
type Column struct {
	Name       string `json:"name" yaml:"name"`
	Label      string `json:"label" yaml:"label"`
	Type       string `json:"type" yaml:"type"`
	PrimaryKey bool   `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
}

// Pagination is the paging block of a record listing.
type Pagination struct {
	Page  int `json:"page" yaml:"page"`
	Limit int `json:"limit" yaml:"limit"`
	Total int `json:"total" yaml:"total"`
	Pages int `json:"pages" yaml:"pages"`
}

// RecordPage is one page of a table listing.
type RecordPage struct {
	Data       []Record   `json:"data" yaml:"data"`
	Columns    []Column   `json:"columns" yaml:"columns"`
	Pagination Pagination `json:"pagination" yaml:"pagination"`
}

// TableInfo describes a table the backend exposes.
type TableInfo struct {
	Name        string   `json:"name" yaml:"name"`
	Label       string   `json:"label" yaml:"label"`
	Description string   `json:"description" yaml:"description"`
	Columns     []Column `json:"columns,omitempty" yaml:"columns,omitempty" table:"wide"`
	RecordCount int      `json:"record_count" yaml:"record_count"`
}

// ReportParameter describes one input of a report.
type ReportParameter struct {
	Name     string   `json:"name" yaml:"name"`
	Type     string   `json:"type" yaml:"type"`
	Required bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Options  []string `json:"options,omitempty" yaml:"options,omitempty"`
}

// ReportDescriptor describes a report the backend can generate.
type ReportDescriptor struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
	Parameters  []ReportParameter `json:"parameters" yaml:"parameters" table:"wide"`
}

// TableCount is one entry of the per-table statistics.
type TableCount struct {
	Table string `json:"table" yaml:"table"`
	Count int    `json:"count" yaml:"count"`
}

// Stats is the global statistics block.
type Stats struct {
	TotalRecords    int            `json:"totalRecords" yaml:"total_records"`
	LastUpdate      string         `json:"lastUpdate" yaml:"last_update"`
	TotalTables     int            `json:"totalTables" yaml:"total_tables"`
	ActiveRecords   int            `json:"activeRecords" yaml:"active_records"`
	InactiveRecords int            `json:"inactiveRecords" yaml:"inactive_records"`
	RecentActivity  map[string]int `json:"recentActivity" yaml:"recent_activity"`
	TableStats      []TableCount   `json:"tableStats" yaml:"table_stats"`
}

// Dashboard is the dashboard statistics block.
type Dashboard struct {
	TotalRecords int    `json:"totalRecords" yaml:"total_records"`
	LastUpdate   string `json:"lastUpdate" yaml:"last_update"`
	SystemStatus string `json:"systemStatus" yaml:"system_status"`
	BackupStatus string `json:"backupStatus" yaml:"backup_status"`
	LastBackup   string `json:"lastBackup" yaml:"last_backup"`
}
