package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jordanlanch/leadsync/pkg/domain"
	"github.com/jordanlanch/leadsync/pkg/logger"
)

// TokenProvider supplies access tokens for API calls
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// TokenInvalidator is implemented by providers that can forget a token the
// CRM answered 401 for
type TokenInvalidator interface {
	Invalidate(ctx context.Context, rejected string)
}

// Client calls the CRM REST API
type Client struct {
	apiURL string
	http   *http.Client
	tokens TokenProvider
	log    logger.Logger
}

// NewClient creates an API client
func NewClient(opts Options, tokens TokenProvider, log logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		apiURL: strings.TrimRight(opts.APIURL, "/"),
		http:   opts.httpClient(),
		tokens: tokens,
		log:    log,
	}
}

type statusRecord struct {
	ID             string `json:"id"`
	LeadSyncStatus string `json:"Lead_Sync_Status"`
}

type recordResult struct {
	Code    string `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// UpdateLeadStatus writes Lead_Sync_Status on one CRM lead. A 401 makes the
// token provider forget the token and the call is retried once.
func (c *Client) UpdateLeadStatus(ctx context.Context, leadID, status string) error {
	body, err := json.Marshal(map[string][]statusRecord{
		"data": {{ID: leadID, LeadSyncStatus: status}},
	})
	if err != nil {
		return fmt.Errorf("failed to encode status update: %w", err)
	}

	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to get crm access token: %w", err)
	}
	err = c.putStatus(ctx, token, leadID, status, body)
	inv, ok := c.tokens.(TokenInvalidator)
	if !errors.Is(err, errUnauthorized) || !ok {
		return err
	}

	c.log.Warn("crm rejected access token, refreshing", "crm_lead_id", leadID)
	inv.Invalidate(ctx, token)
	if token, err = c.tokens.AccessToken(ctx); err != nil {
		return fmt.Errorf("failed to get crm access token: %w", err)
	}
	return c.putStatus(ctx, token, leadID, status, body)
}

var errUnauthorized = errors.New("access token rejected")

func (c *Client) putStatus(ctx context.Context, token, leadID, status string, body []byte) error {
	endpoint := c.apiURL + "/crm/v2/Leads/" + url.PathEscape(leadID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build status update: %w", err)
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.NewExternalServiceError("crm lead status update", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.NewExternalServiceError("crm lead status update", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return domain.NewExternalServiceError("crm lead status update",
			fmt.Errorf("unexpected status %d: %w: %s", resp.StatusCode, errUnauthorized, strings.TrimSpace(string(raw))))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.NewExternalServiceError("crm lead status update",
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}

	var result struct {
		Data []recordResult `json:"data"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &result); err != nil {
			return domain.NewExternalServiceError("crm lead status update", fmt.Errorf("malformed response: %w", err))
		}
	}
	for _, r := range result.Data {
		if strings.EqualFold(r.Status, "error") {
			return domain.NewExternalServiceError("crm lead status update",
				fmt.Errorf("%s: %s", r.Code, r.Message))
		}
	}

	c.log.Debug("crm lead status updated", "crm_lead_id", leadID, "status", status)
	return nil
}
