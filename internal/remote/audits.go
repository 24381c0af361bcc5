package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

type runResponse struct {
	RunID string `json:"run_id"`
}

// GetAudit fetches an audit by ID.
func (c *Client) GetAudit(ctx context.Context, auditID string) (Audit, error) {
	var out Audit
	if err := c.do(ctx, http.MethodGet, "/v1/audits/"+url.PathEscape(auditID), nil, nil, &out); err != nil {
		return Audit{}, err
	}
	return out, nil
}

// CreateAudit creates an audit and returns it with the server-assigned ID.
func (c *Client) CreateAudit(ctx context.Context, audit Audit) (Audit, error) {
	var out Audit
	if err := c.do(ctx, http.MethodPost, "/v1/audits", nil, audit.Sanitized(), &out); err != nil {
		return Audit{}, err
	}
	if out.ID == "" {
		return Audit{}, fmt.Errorf("remote created audit %q without an id", audit.Name)
	}
	return out, nil
}

// SaveAudit persists an audit update. Server-owned fields are stripped before
// sending; the API rejects a PUT that echoes them back.
func (c *Client) SaveAudit(ctx context.Context, audit Audit) error {
	if audit.ID == "" {
		return fmt.Errorf("save audit: id is required")
	}
	return c.do(ctx, http.MethodPut, "/v1/audits/"+url.PathEscape(audit.ID), nil, audit.Sanitized(), nil)
}

// RunAudit triggers an audit run and returns the remote run identifier.
func (c *Client) RunAudit(ctx context.Context, auditID string) (string, error) {
	var out runResponse
	if err := c.do(ctx, http.MethodPost, "/v1/audits/"+url.PathEscape(auditID)+"/run", nil, nil, &out); err != nil {
		return "", err
	}
	return out.RunID, nil
}
