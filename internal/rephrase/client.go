// Package rephrase talks to the external summary-rephrasing sidecar and
// provides the deterministic template fallback used when the sidecar is
// unavailable or returns text that fails fact validation.
package rephrase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"
)

// GroupFacts is one group's row in a user's summary.
type GroupFacts struct {
	GroupID   string  `json:"group_id"`
	GroupName string  `json:"group_name"`
	Currency  string  `json:"currency"`
	Paid      float64 `json:"paid"`
	Owed      float64 `json:"owed"`
	Net       float64 `json:"net"`
}

// Facts is the validated numeric summary for one user. Amounts are currency
// units, not cents; the wire contract predates the cents representation.
type Facts struct {
	OverallPaid float64      `json:"overall_paid"`
	OverallOwed float64      `json:"overall_owed"`
	OverallNet  float64      `json:"overall_net"`
	Groups      []GroupFacts `json:"groups"`
}

type rephraseRequest struct {
	Facts        Facts `json:"facts"`
	MaxSentences int   `json:"max_sentences"`
}

type rephraseResponse struct {
	Summary string `json:"summary"`
	Mode    string `json:"mode"`
}

// Client calls the sidecar's POST /rephrase endpoint with a bounded timeout.
// Any transport error, non-200 status, or summary that fails validation
// against the facts makes Summarize fall back to the local template, so the
// caller always gets a usable sentence.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a rephraser client. An empty baseURL disables the sidecar
// entirely and every call takes the template path.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Summarize returns a one-or-two sentence summary of the facts. The returned
// mode is "rephrased" when the sidecar's text was used, "template" otherwise.
func (c *Client) Summarize(ctx context.Context, facts Facts) (summary, mode string) {
	if c.baseURL == "" {
		return TemplateSummary(facts), "template"
	}

	remote, err := c.call(ctx, facts)
	if err != nil {
		slog.Warn("rephraser unavailable, using template summary", "error", err)
		return TemplateSummary(facts), "template"
	}
	if err := Validate(facts, remote); err != nil {
		slog.Warn("rephraser response failed validation, using template summary", "error", err)
		return TemplateSummary(facts), "template"
	}
	return remote, "rephrased"
}

func (c *Client) call(ctx context.Context, facts Facts) (string, error) {
	body, err := json.Marshal(rephraseRequest{Facts: facts, MaxSentences: 2})
	if err != nil {
		return "", fmt.Errorf("failed to encode facts: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rephrase", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("rephrase request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("rephrase returned status %d", resp.StatusCode)
	}

	var out rephraseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode rephrase response: %w", err)
	}
	if strings.TrimSpace(out.Summary) == "" {
		return "", fmt.Errorf("rephrase returned empty summary")
	}
	return out.Summary, nil
}

var spaceRun = regexp.MustCompile(`\s+`)

// TemplateSummary renders the deterministic local summary: one overall
// sentence plus, when group activity exists, a second sentence about the
// group with the largest absolute net.
func TemplateSummary(facts Facts) string {
	if len(facts.Groups) == 0 {
		return fmt.Sprintf("You have no group activity yet (paid %.2f, owed %.2f).",
			facts.OverallPaid, facts.OverallOwed)
	}

	s1 := fmt.Sprintf("Across your groups you paid %.2f and owed %.2f (net %.2f).",
		facts.OverallPaid, facts.OverallOwed, facts.OverallNet)

	top := topGroup(facts.Groups)
	direction := "ahead"
	if top.Net < 0 {
		direction = "behind"
	}
	s2 := fmt.Sprintf("In %q, you paid %.2f and owed %.2f (%s by %.2f %s).",
		top.GroupName, top.Paid, top.Owed, direction, abs(top.Net), top.Currency)

	return spaceRun.ReplaceAllString(s1+" "+s2, " ")
}

// Validate checks that the rephrased text still states the facts: the overall
// amounts must appear verbatim (two-decimal form) and no group name outside
// the facts may be quoted. A summary that drops or invents numbers is
// rejected.
func Validate(facts Facts, summary string) error {
	for _, amount := range []float64{facts.OverallPaid, facts.OverallOwed} {
		want := fmt.Sprintf("%.2f", amount)
		if !strings.Contains(summary, want) {
			return fmt.Errorf("summary is missing amount %s", want)
		}
	}

	known := make(map[string]bool, len(facts.Groups))
	for _, g := range facts.Groups {
		known[g.GroupName] = true
	}
	for _, quoted := range regexp.MustCompile(`"([^"]+)"`).FindAllStringSubmatch(summary, -1) {
		if !known[quoted[1]] {
			return fmt.Errorf("summary names unknown group %q", quoted[1])
		}
	}
	return nil
}

func topGroup(groups []GroupFacts) GroupFacts {
	sorted := make([]GroupFacts, len(groups))
	copy(sorted, groups)
	sort.SliceStable(sorted, func(i, j int) bool {
		return abs(sorted[i].Net) > abs(sorted[j].Net)
	})
	return sorted[0]
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
