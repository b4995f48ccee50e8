// Package model contains domain models passed between layers.
package model

import "time"

// Row is one scored upload record reduced to what the aggregator needs.
type Row struct {
	AdGroup     string
	Marketplace string
	Spend       float64
	Sales       float64 // predicted
}

// Group is one (Ad_group, Marketplace) aggregate. ROI is nil when Spend is
// zero; such groups are flagged and carry rank 0.
type Group struct {
	AdGroup     string   `json:"Ad_group"`
	Marketplace string   `json:"Marketplace"`
	Sales       float64  `json:"Sales"`
	Spend       float64  `json:"Spend"`
	ROI         *float64 `json:"ROI"`
	Rank        int      `json:"rank"`
}

// Flagged reports whether the group's ROI is undefined.
func (g Group) Flagged() bool { return g.ROI == nil }

// Run is one completed recommendation request.
type Run struct {
	ID           string    `json:"id"`
	User         string    `json:"user"`
	FileName     string    `json:"file_name"`
	Fingerprint  string    `json:"fingerprint"`
	ModelVersion string    `json:"model_version"`
	Rows         int       `json:"rows"`
	Groups       []Group   `json:"groups"`
	Top          []Group   `json:"top"`
	Warnings     []string  `json:"warnings,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// RunSummary is the listing view of a Run.
type RunSummary struct {
	ID           string    `json:"id"`
	User         string    `json:"user"`
	FileName     string    `json:"file_name"`
	ModelVersion string    `json:"model_version"`
	Rows         int       `json:"rows"`
	Groups       int       `json:"groups"`
	Top          int       `json:"top"`
	CreatedAt    time.Time `json:"created_at"`
}

// Summary returns the listing view of r.
func (r Run) Summary() RunSummary {
	return RunSummary{
		ID:           r.ID,
		User:         r.User,
		FileName:     r.FileName,
		ModelVersion: r.ModelVersion,
		Rows:         r.Rows,
		Groups:       len(r.Groups),
		Top:          len(r.Top),
		CreatedAt:    r.CreatedAt,
	}
}
