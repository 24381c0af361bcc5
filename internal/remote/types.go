package remote

// Grid column identifiers used by the saved-report queries and the pipeline's
// join projection. The remote system keys report data by these names; row
// ordering inside a report is not stable release-to-release, the names are.
const (
	ColSourceURL  = "source_url"
	ColLinkURL    = "link_url"
	ColAnchorText = "anchor_text"
	ColLinkHTML   = "link_html"
	ColURL        = "url"
	ColFinalURL   = "final_url"
	ColStatusCode = "http_status_code"
)

// Grid entity types the saved reports query against.
const (
	EntityLinks = "links"
	EntityPages = "pages"
)

// Filter is one predicate of a saved-report query definition.
type Filter struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value any    `json:"value"`
}

// Order is one sort term of a saved-report query definition.
type Order struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending,omitempty"`
}

// QueryDefinition is the filter/column/sort spec of a saved report.
type QueryDefinition struct {
	Columns []string `json:"columns"`
	Filters []Filter `json:"filters,omitempty"`
	GroupBy []string `json:"group_by,omitempty"`
	OrderBy []Order  `json:"order_by,omitempty"`
}

// SavedReport is a named, persisted query definition owned by the remote
// audit system.
type SavedReport struct {
	ID             string          `json:"id,omitempty"`
	Name           string          `json:"name"`
	GridEntityType string          `json:"grid_entity_type"`
	Query          QueryDefinition `json:"query"`
}

// Schedule controls when the remote system runs an audit. A one-time schedule
// has RunOnce set and no recurrence.
type Schedule struct {
	RunOnce    bool   `json:"run_once,omitempty"`
	Recurrence string `json:"recurrence,omitempty"`
}

// AuditOptions carries per-audit settings the pipeline cares about. The
// webhook URL is the completion callback the remote system invokes.
type AuditOptions struct {
	WebhookURL string `json:"webhook_url,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
}

// Audit is a crawl configuration owned by the remote system. The pipeline
// mutates only the secondary audit's StartingURLs, Limit and webhook options;
// server-owned fields are stripped before any save.
type Audit struct {
	ID           string       `json:"id,omitempty"`
	Name         string       `json:"name,omitempty"`
	DomainID     string       `json:"domain_id,omitempty"`
	FolderID     string       `json:"folder_id,omitempty"`
	StartingURLs []string     `json:"starting_urls"`
	Limit        int          `json:"limit,omitempty"`
	Schedule     *Schedule    `json:"schedule,omitempty"`
	Options      AuditOptions `json:"options,omitempty"`
	Recipients   []string     `json:"recipients,omitempty"`

	// Server-owned fields. The API rejects a PUT that echoes them back.
	CreatedAt string `json:"created_at,omitempty"`
	LastRunID string `json:"last_run_id,omitempty"`
	LastRunAt string `json:"last_run_at,omitempty"`
	Running   bool   `json:"running,omitempty"`
}

// Sanitized returns a copy safe to send on a save: server-owned fields are
// cleared so the API does not reject the payload.
func (a Audit) Sanitized() Audit {
	a.CreatedAt = ""
	a.LastRunID = ""
	a.LastRunAt = ""
	a.Running = false
	return a
}
