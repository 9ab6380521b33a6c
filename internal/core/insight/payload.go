package insight

import (
	"errors"
	"fmt"
	"strings"

	"github.com/testtube/campus-ledger/internal/core/models"
)

// ErrEmptyInsight means the generator returned a blank narrative. Callers
// degrade to showing raw statistics instead of an empty text block.
var ErrEmptyInsight = errors.New("insight generator returned empty text")

// Request is the structured payload handed to the insight generator.
type Request struct {
	PeriodStart  string         `json:"period_start"`
	PeriodEnd    string         `json:"period_end"`
	Currency     string         `json:"currency"`
	TotalCount   int            `json:"total_count"`
	TotalDisplay string         `json:"total_display"`
	Categories   []CategoryLine `json:"categories"`
	TopMerchants []string       `json:"top_merchants"`
	AnomalyCount int            `json:"anomaly_count"`
}

type CategoryLine struct {
	Category string `json:"category"`
	Display  string `json:"display"`
	Count    int    `json:"count"`
}

// BuildRequest is a pure formatting transform from a snapshot to the
// generator payload. No side effects, no store access.
func BuildRequest(snap *models.AnalyticsSnapshot) *Request {
	req := &Request{
		PeriodStart:  snap.From.UTC().Format("2006-01-02"),
		PeriodEnd:    snap.To.UTC().Format("2006-01-02"),
		Currency:     snap.Rate.Quote,
		TotalCount:   snap.TotalCount,
		TotalDisplay: snap.TotalDisplay.StringFixedBank(2),
		AnomalyCount: len(snap.Anomalies),
	}

	for _, ct := range snap.Categories {
		req.Categories = append(req.Categories, CategoryLine{
			Category: string(ct.Category),
			Display:  ct.Display.StringFixedBank(2),
			Count:    ct.Count,
		})
	}

	for _, m := range snap.TopMerchants {
		req.TopMerchants = append(req.TopMerchants, m.Label)
	}

	return req
}

// Prompt renders the request as the plain-text instruction the generator
// receives. Deterministic for a given request.
func (r *Request) Prompt() string {
	var b strings.Builder
	b.WriteString("You are a spending assistant for a campus payment app.\n")
	b.WriteString("Write a short, friendly summary (3-5 sentences) of the user's spending.\n")
	b.WriteString("Mention the biggest category, notable merchants and any unusual transactions.\n")
	b.WriteString("Return plain text only. No markdown, no bullet points.\n\n")
	fmt.Fprintf(&b, "Period: %s to %s\n", r.PeriodStart, r.PeriodEnd)
	fmt.Fprintf(&b, "Total: %s %s across %d transactions\n", r.TotalDisplay, r.Currency, r.TotalCount)
	b.WriteString("Spending by category:\n")
	for _, c := range r.Categories {
		fmt.Fprintf(&b, "- %s: %s %s (%d transactions)\n", c.Category, c.Display, r.Currency, c.Count)
	}
	if len(r.TopMerchants) > 0 {
		fmt.Fprintf(&b, "Top merchants: %s\n", strings.Join(r.TopMerchants, ", "))
	}
	fmt.Fprintf(&b, "Flagged as unusual: %d transactions\n", r.AnomalyCount)
	return b.String()
}

// ParseResponse trims the generator output and rejects blank responses so a
// confusing empty narrative never reaches the dashboard.
func ParseResponse(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrEmptyInsight
	}
	return trimmed, nil
}
