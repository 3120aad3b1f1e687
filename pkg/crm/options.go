package crm

import (
	"net/http"
	"strings"
	"time"

	"github.com/jordanlanch/leadsync/config"
)

// Sync statuses written to the CRM's Lead_Sync_Status field
const (
	StatusLeadCreated = "Lead Created in ERPNext"
	StatusCompleted   = "Completed"
	StatusFailed      = "Failed"
)

// IsTerminalStatus reports whether the CRM already considers a lead done
func IsTerminalStatus(status string) bool {
	switch status {
	case StatusLeadCreated, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Options configures the CRM token service and API client
type Options struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AccountsURL  string
	APIURL       string
	Scopes       []string
	HTTPClient   *http.Client
}

// OptionsFromConfig builds Options from the application config
func OptionsFromConfig(cfg *config.Config) Options {
	var scopes []string
	for _, s := range strings.Split(cfg.CRMScopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	timeout := cfg.CRMHTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return Options{
		ClientID:     cfg.CRMClientID,
		ClientSecret: cfg.CRMClientSecret,
		RedirectURI:  cfg.CRMRedirectURI,
		AccountsURL:  strings.TrimRight(cfg.CRMAccountsURL, "/"),
		APIURL:       strings.TrimRight(cfg.CRMAPIURL, "/"),
		Scopes:       scopes,
		HTTPClient:   &http.Client{Timeout: timeout},
	}
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{Timeout: 15 * time.Second}
}
