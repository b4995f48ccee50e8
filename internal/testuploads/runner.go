package testuploads

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/mmo/pkg/logger"
)

// PercentageMultiplier turns a ratio into a percentage.
const PercentageMultiplier = 100

// Run executes the complete upload test against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config, log logger.Logger) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting optimizer upload test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("uploads", cfg.Uploads),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client, log); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Sign in
	if err := client.Login(ctx, cfg.Username, cfg.Password); err != nil {
		return stats, err
	}

	// Step 3: Generate uploads
	uploads, err := generateUploads(ctx, cfg, stats, log)
	if err != nil {
		return stats, fmt.Errorf("upload generation failed: %w", err)
	}

	// Step 4: Submit uploads concurrently
	runs := submitUploads(ctx, cfg, client, uploads, stats, log)

	// Step 5: Verify rankings
	if err := verifyRuns(ctx, runs, stats, log); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	// Step 6: Identical upload must replay
	if err := verifyReplay(ctx, client, uploads[0], runFor(runs, uploads[0].Name)); err != nil {
		return stats, fmt.Errorf("replay verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats, runs[0], log)

	if stats.UploadsFailed > 0 {
		return stats, fmt.Errorf("%d of %d uploads failed", stats.UploadsFailed, stats.UploadsSubmitted)
	}
	log.Info(ctx, "test completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, log logger.Logger) error {
	resp, err := client.Get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	_, _ = readResponseBody(resp)

	// Any 200 is healthy; the body is Prometheus metrics.
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	log.Info(ctx, "service is healthy")
	return nil
}

func runFor(runs []RunResponse, fileName string) RunResponse {
	for _, r := range runs {
		if r.FileName == fileName {
			return r
		}
	}
	return RunResponse{}
}

// displayFinalStats logs the final test statistics and one sample ranking.
func displayFinalStats(ctx context.Context, stats *Stats, sample RunResponse, log logger.Logger) {
	var successRate, uploadsPerSecond float64
	if stats.UploadsSubmitted > 0 {
		successRate = float64(stats.UploadsAccepted+stats.UploadsReplayed) / float64(stats.UploadsSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		uploadsPerSecond = float64(stats.UploadsSubmitted) / stats.Duration.Seconds()
	}

	for mkt, groups := range topPerMarketplace(sample) {
		for _, g := range groups {
			log.Info(ctx, "sample recommendation",
				logger.String("marketplace", mkt),
				logger.String("adGroup", g.AdGroup),
				logger.Float64("roi", *g.ROI))
		}
	}

	log.Info(ctx, "final statistics",
		logger.Int("uploadsGenerated", stats.UploadsGenerated),
		logger.Int("uploadsSubmitted", stats.UploadsSubmitted),
		logger.Int("uploadsAccepted", stats.UploadsAccepted),
		logger.Int("uploadsReplayed", stats.UploadsReplayed),
		logger.Int("uploadsFailed", stats.UploadsFailed),
		logger.Int("runsVerified", stats.RunsVerified),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("uploadsPerSecond", uploadsPerSecond))
}
