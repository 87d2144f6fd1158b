package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/elonfeng/clusterboard/pkg/cluster"
)

const defaultTimeout = 30 * time.Second

// StatusError is a non-2xx reply from the scoring service.
type StatusError struct {
	StatusCode int
	Message    string // "error" field of the reply, when present
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("scoring service status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("scoring service status %d", e.StatusCode)
}

// Client calls the external scoring service.
type Client struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}
}

// Score sends a grade sheet to the service and returns its payload. The
// payload is returned as delivered; an unsuccessful payload is not an
// error here.
func (c *Client) Score(ctx context.Context, grades GradeSheet) (*cluster.Payload, error) {
	if len(grades) == 0 {
		return nil, fmt.Errorf("%w: no grades", ErrInvalidGrade)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(grades)
	if err != nil {
		return nil, fmt.Errorf("marshal grades: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/calculate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create scoring request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "clusterboard/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send scoring request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read scoring response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		serr := &StatusError{StatusCode: resp.StatusCode}
		var reply struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &reply) == nil {
			serr.Message = reply.Error
		}
		return nil, serr
	}

	p, err := cluster.DecodePayload(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("scoring response: %w", err)
	}
	return p, nil
}

// ServiceSource adapts Client to Source for a fixed grade sheet.
type ServiceSource struct {
	client *Client
	grades GradeSheet
}

// NewServiceSource binds a grade sheet to a client.
func NewServiceSource(c *Client, grades GradeSheet) *ServiceSource {
	return &ServiceSource{client: c, grades: grades}
}

func (s *ServiceSource) Name() SourceType { return SourceService }

func (s *ServiceSource) Fetch(ctx context.Context) (*cluster.Payload, error) {
	return s.client.Score(ctx, s.grades)
}
