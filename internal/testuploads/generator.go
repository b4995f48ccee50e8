package testuploads

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/csv"
	"fmt"
	"math/big"
	"strconv"

	"github.com/google/uuid"
	"github.com/okian/mmo/pkg/logger"
)

// Spend generation bounds.
const (
	randomFloatDivisor = 1000000
	spendMin           = 10.0
	spendRange         = 990.0
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// generateUploads builds cfg.Uploads distinct files. Every file covers every
// (Ad_group, Marketplace) pair so batch-derived indicator columns match the
// served model.
func generateUploads(ctx context.Context, cfg *Config, stats *Stats, log logger.Logger) ([]Upload, error) {
	log.Info(ctx, "generating uploads",
		logger.Int("uploads", cfg.Uploads),
		logger.Int("rowsPerFile", cfg.RowsPerGroup*len(cfg.Marketplaces)*len(cfg.AdGroups)))

	uploads := make([]Upload, 0, cfg.Uploads)
	for i := 0; i < cfg.Uploads; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := generateCSV(cfg)
		if err != nil {
			return nil, fmt.Errorf("upload %d: %w", i, err)
		}
		uploads = append(uploads, Upload{Name: "spend_" + uuid.NewString() + ".csv", Content: content})
	}
	stats.UploadsGenerated = len(uploads)
	return uploads, nil
}

func generateCSV(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Marketplace", "Ad_group", "Spend"}); err != nil {
		return nil, err
	}
	for _, mkt := range cfg.Marketplaces {
		for _, grp := range cfg.AdGroups {
			for r := 0; r < cfg.RowsPerGroup; r++ {
				spend := spendMin + getRandomFloat()*spendRange
				if err := w.Write([]string{mkt, grp, strconv.FormatFloat(spend, 'f', 2, 64)}); err != nil {
					return nil, err
				}
			}
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
