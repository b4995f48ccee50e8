package testuploads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/mmo/pkg/logger"
)

// Submission outcomes.
const (
	outcomeAccepted = "accepted"
	outcomeReplayed = "replayed"
	outcomeFailed   = "failed"
)

// HTTPClient wraps http.Client with timeout and the session token
type HTTPClient struct {
	client  *http.Client
	baseURL string
	token   string
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Get performs an authenticated GET request.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)
	return c.client.Do(req)
}

// Login opens a session and keeps its token for later requests.
func (c *HTTPClient) Login(ctx context.Context, username, password string) error {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	data, err := readResponseBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	var sess struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &sess); err != nil {
		return fmt.Errorf("decode session: %w", err)
	}
	c.token = sess.Token
	return nil
}

// Upload posts a file to the recommendation page.
func (c *HTTPClient) Upload(ctx context.Context, u Upload) (RunResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", u.Name)
	if err != nil {
		return RunResponse{}, err
	}
	if _, err := fw.Write(u.Content); err != nil {
		return RunResponse{}, err
	}
	if err := mw.Close(); err != nil {
		return RunResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/recommendation", &buf)
	if err != nil {
		return RunResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return RunResponse{}, err
	}
	data, err := readResponseBody(resp)
	if err != nil {
		return RunResponse{}, err
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return RunResponse{}, fmt.Errorf("upload %s: status %d: %s", u.Name, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	var run RunResponse
	if err := json.Unmarshal(data, &run); err != nil {
		return RunResponse{}, fmt.Errorf("decode run: %w", err)
	}
	return run, nil
}

func (c *HTTPClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitUploads posts uploads concurrently using a worker pool and returns
// the runs that came back, in no particular order.
func submitUploads(ctx context.Context, cfg *Config, client *HTTPClient, uploads []Upload, stats *Stats, log logger.Logger) []RunResponse {
	log.Info(ctx, "submitting uploads", logger.Int("uploads", len(uploads)), logger.Int("workers", cfg.Workers))

	var (
		accepted  int64
		replayed  int64
		failed    int64
		submitted int64
	)

	var mu sync.Mutex
	runs := make([]RunResponse, 0, len(uploads))

	uploadChan := make(chan Upload, cfg.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range uploadChan {
				if ctx.Err() != nil {
					return
				}
				run, outcome := submitSingleUpload(ctx, client, u, log)
				atomic.AddInt64(&submitted, 1)
				switch outcome {
				case outcomeAccepted:
					atomic.AddInt64(&accepted, 1)
				case outcomeReplayed:
					atomic.AddInt64(&replayed, 1)
				default:
					atomic.AddInt64(&failed, 1)
					continue
				}
				mu.Lock()
				runs = append(runs, run)
				mu.Unlock()
				if cfg.Verbose {
					log.Info(ctx, "upload scored",
						logger.String("file", u.Name),
						logger.String("run", run.ID),
						logger.Int("groups", len(run.Groups)))
				}
			}
		}()
	}

	go func() {
		defer close(uploadChan)
		for _, u := range uploads {
			select {
			case <-ctx.Done():
				return
			case uploadChan <- u:
			}
		}
	}()

	wg.Wait()

	stats.UploadsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.UploadsAccepted = int(atomic.LoadInt64(&accepted))
	stats.UploadsReplayed = int(atomic.LoadInt64(&replayed))
	stats.UploadsFailed = int(atomic.LoadInt64(&failed))

	log.Info(ctx, "upload submission completed",
		logger.Int("accepted", stats.UploadsAccepted),
		logger.Int("replayed", stats.UploadsReplayed),
		logger.Int("failed", stats.UploadsFailed))
	return runs
}

// submitSingleUpload submits one upload and classifies the result.
func submitSingleUpload(ctx context.Context, client *HTTPClient, u Upload, log logger.Logger) (RunResponse, string) {
	run, err := client.Upload(ctx, u)
	if err != nil {
		log.Warn(ctx, "upload failed", logger.String("file", u.Name), logger.Error(err))
		return RunResponse{}, outcomeFailed
	}
	if run.Replayed {
		return run, outcomeReplayed
	}
	return run, outcomeAccepted
}
