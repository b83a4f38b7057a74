package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrSnakeDoc/linkdex/internal/logger"
)

// SafetyOptions configure the reputation check.
type SafetyOptions struct {
	// APIKey for Google Safe Browsing v4. Empty disables lookups.
	APIKey  string
	BaseURL string

	// Production makes every undecidable case unsafe.
	Production bool

	Timeout    time.Duration
	HTTPClient *http.Client
}

// Safety checks URLs against Google Safe Browsing (threatMatches:find).
//
// Without a key or when the lookup fails, development treats URLs as safe
// and production fails closed.
type Safety struct {
	key        string
	endpoint   string
	production bool
	http       *http.Client
	log        logger.Logger
}

// NewSafety creates a reputation checker.
func NewSafety(opts SafetyOptions, log logger.Logger) *Safety {
	client := opts.HTTPClient
	if client == nil {
		client = newHTTPClient(opts.Timeout)
	}
	s := &Safety{
		key:        opts.APIKey,
		endpoint:   strings.TrimRight(opts.BaseURL, "/") + "/v4/threatMatches:find",
		production: opts.Production,
		http:       client,
		log:        log.With(logger.String("component", "safety")),
	}
	if s.key == "" {
		if s.production {
			s.log.Warn("no safe browsing key in production: every url will be rejected")
		} else {
			s.log.Info("no safe browsing key: urls are considered safe in development")
		}
	}
	return s
}

// IsSafe reports whether target may be published.
func (s *Safety) IsSafe(ctx context.Context, target string) bool {
	if s == nil {
		return true
	}
	if s.key == "" {
		return !s.production
	}
	threats, err := s.lookup(ctx, target)
	if err != nil {
		if s.production {
			s.log.Error("safety lookup failed, rejecting url", logger.String("url", target), logger.Error(err))
			return false
		}
		s.log.Warn("safety lookup failed, accepting url in development", logger.String("url", target), logger.Error(err))
		return true
	}
	if len(threats) > 0 {
		s.log.Info("url flagged unsafe", logger.String("url", target), logger.Strings("threats", threats))
		return false
	}
	return true
}

type threatEntry struct {
	URL string `json:"url"`
}

type findRequest struct {
	Client struct {
		ClientID      string `json:"clientId"`
		ClientVersion string `json:"clientVersion"`
	} `json:"client"`
	ThreatInfo struct {
		ThreatTypes      []string      `json:"threatTypes"`
		PlatformTypes    []string      `json:"platformTypes"`
		ThreatEntryTypes []string      `json:"threatEntryTypes"`
		ThreatEntries    []threatEntry `json:"threatEntries"`
	} `json:"threatInfo"`
}

type findResponse struct {
	Matches []struct {
		ThreatType string `json:"threatType"`
	} `json:"matches"`
}

// lookup returns the threat types matched for target.
func (s *Safety) lookup(ctx context.Context, target string) ([]string, error) {
	var body findRequest
	body.Client.ClientID = "linkdex"
	body.Client.ClientVersion = "1.0"
	body.ThreatInfo.ThreatTypes = []string{"MALWARE", "SOCIAL_ENGINEERING", "UNWANTED_SOFTWARE", "POTENTIALLY_HARMFUL_APPLICATION"}
	body.ThreatInfo.PlatformTypes = []string{"ANY_PLATFORM"}
	body.ThreatInfo.ThreatEntryTypes = []string{"URL"}
	body.ThreatInfo.ThreatEntries = []threatEntry{{URL: target}}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"?key="+url.QueryEscape(s.key), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST threatMatches: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("POST threatMatches: http status: %s", resp.Status)
	}

	var out findResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode threatMatches: %w", err)
	}
	threats := make([]string, 0, len(out.Matches))
	for _, m := range out.Matches {
		threats = append(threats, m.ThreatType)
	}
	return threats, nil
}
