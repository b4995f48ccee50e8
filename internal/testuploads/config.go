// Package testuploads drives a running optimizer with synthetic spend
// uploads and checks that every returned ranking is consistent.
package testuploads

import (
	"errors"
	"time"

	"github.com/okian/mmo/internal/domain/model"
)

// Config holds configuration for the upload test
type Config struct {
	BaseURL      string        // Base URL of the service
	Username     string        // Login name
	Password     string        // Login password
	Uploads      int           // Number of distinct uploads to submit
	RowsPerGroup int           // Rows generated per (Ad_group, Marketplace)
	Marketplaces []string      // Marketplace values; must match the served model
	AdGroups     []string      // Ad_group values; must match the served model
	Workers      int           // Number of concurrent workers
	Timeout      time.Duration // HTTP request timeout
	Verbose      bool          // Log every upload
}

// Validate rejects configurations that cannot produce a usable upload.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return errors.New("base url is required")
	case c.Uploads <= 0:
		return errors.New("uploads must be positive")
	case c.RowsPerGroup <= 0:
		return errors.New("rows per group must be positive")
	case len(c.Marketplaces) == 0 || len(c.AdGroups) == 0:
		return errors.New("at least one marketplace and one ad group are required")
	case c.Workers <= 0:
		return errors.New("workers must be positive")
	}
	return nil
}

// Upload is one generated file.
type Upload struct {
	Name    string
	Content []byte
}

// RunResponse mirrors the recommendation page payload.
type RunResponse struct {
	model.Run
	Replayed bool `json:"replayed"`
}

// Stats holds test statistics
type Stats struct {
	UploadsGenerated int
	UploadsSubmitted int
	UploadsAccepted  int
	UploadsReplayed  int
	UploadsFailed    int
	RunsVerified     int
	Inconsistencies  int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
