package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// HTTPLoader reads a role's grants from GET /role-permissions/role/{roleId}
type HTTPLoader struct {
	BaseURL string
	RoleID  string
	Token   string
	Client  *http.Client
}

type grantRow struct {
	Name     string `json:"name"`
	IsActive *bool  `json:"is_active"`
}

type grantEnvelope struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    []grantRow `json:"data"`
}

// LoadGrants implements Loader. Rows without is_active were filtered
// server-side and count as active.
func (l *HTTPLoader) LoadGrants(ctx context.Context) ([]Grant, error) {
	if l.Token == "" || l.RoleID == "" {
		return nil, ErrNoSession
	}

	endpoint := strings.TrimRight(l.BaseURL, "/") + "/role-permissions/role/" + url.PathEscape(l.RoleID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build permissions request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+l.Token)
	req.Header.Set("Accept", "application/json")

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch permissions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch permissions: unexpected status %d", resp.StatusCode)
	}

	var envelope grantEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode permissions: %w", err)
	}
	if !envelope.Success {
		return nil, fmt.Errorf("fetch permissions: %s", envelope.Message)
	}

	grants := make([]Grant, 0, len(envelope.Data))
	for _, row := range envelope.Data {
		grants = append(grants, Grant{Name: row.Name, Active: row.IsActive == nil || *row.IsActive})
	}
	return grants, nil
}
