// Package apiclient calls the external petition and prayer API.
//
// Calls are made exactly once: there is no retry, no caching and no
// reconciliation. Whatever the backend last returned is what callers render.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yellowbridge/lamentwall/internal/contracts"
	"github.com/yellowbridge/lamentwall/internal/platform/metrics"
)

// DefaultPrayerLimit is the page size used by the wall feed.
const DefaultPrayerLimit = 50

const maxErrorBody = 64 << 10

// AdminTokenHeader carries the out-of-band admin token.
const AdminTokenHeader = "X-Admin-Token"

var (
	// ErrTransport wraps failures where no HTTP response was received.
	ErrTransport = errors.New("request did not complete")
	// ErrAlreadyRecorded is returned for a 409 on amen.
	ErrAlreadyRecorded = errors.New("amen already recorded")
)

// StatusError is a non-2xx response. Error returns the body verbatim, or the
// status code when the body is empty.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return e.Body
	}
	return strconv.Itoa(e.Code)
}

var upstreamRequests = metrics.NewCounterVec(metrics.Opts{
	Name: "upstream_requests_total",
	Help: "Calls to the external API by endpoint and outcome.",
}, "endpoint", "outcome")

func init() {
	metrics.Default.MustRegister(upstreamRequests)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) ListPrayers(ctx context.Context, filter string, limit int) ([]contracts.Prayer, error) {
	if limit <= 0 {
		limit = DefaultPrayerLimit
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("type", filter)

	var prayers []contracts.Prayer
	if err := c.do(ctx, "list_prayers", http.MethodGet, "/api/prayers?"+q.Encode(), nil, nil, &prayers); err != nil {
		return nil, err
	}
	if prayers == nil {
		prayers = []contracts.Prayer{}
	}
	return prayers, nil
}

func (c *Client) PrayerStats(ctx context.Context) (contracts.PrayerStats, error) {
	var stats contracts.PrayerStats
	err := c.do(ctx, "prayer_stats", http.MethodGet, "/api/prayer-stats", nil, nil, &stats)
	return stats, err
}

func (c *Client) SubmitPrayer(ctx context.Context, sub contracts.PrayerSubmission) (contracts.Prayer, error) {
	var created contracts.Prayer
	err := c.do(ctx, "submit_prayer", http.MethodPost, "/api/pray", nil, sub, &created)
	return created, err
}

// Amen records an endorsement. A 409 maps to ErrAlreadyRecorded.
func (c *Client) Amen(ctx context.Context, prayerID int64) (contracts.AmenResult, error) {
	var res contracts.AmenResult
	path := "/api/amen/" + strconv.FormatInt(prayerID, 10)
	err := c.do(ctx, "amen", http.MethodPost, path, nil, nil, &res)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusConflict {
		return contracts.AmenResult{}, ErrAlreadyRecorded
	}
	return res, err
}

func (c *Client) PetitionInfo(ctx context.Context, petitionID string) (contracts.PetitionInfo, error) {
	var info contracts.PetitionInfo
	err := c.do(ctx, "petition_info", http.MethodGet, "/api/"+url.PathEscape(petitionID)+"/info", nil, nil, &info)
	return info, err
}

func (c *Client) SignatureCount(ctx context.Context, petitionID string) (int64, error) {
	var res contracts.SignatureCount
	if err := c.do(ctx, "signature_count", http.MethodGet, "/api/"+url.PathEscape(petitionID)+"/count", nil, nil, &res); err != nil {
		return 0, err
	}
	return res.Count, nil
}

// Sign posts a signature. Any 2xx counts as recorded; the body is ignored.
func (c *Client) Sign(ctx context.Context, petitionID string, sig contracts.Signature) error {
	return c.do(ctx, "sign", http.MethodPost, "/api/"+url.PathEscape(petitionID)+"/sign", nil, sig, nil)
}

func (c *Client) CreatePetition(ctx context.Context, adminToken string, p contracts.NewPetition) (contracts.CreatedPetition, error) {
	header := http.Header{}
	header.Set(AdminTokenHeader, adminToken)
	var created contracts.CreatedPetition
	err := c.do(ctx, "create_petition", http.MethodPost, "/api/petitions", header, p, &created)
	return created, err
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, header http.Header, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		upstreamRequests.WithLabelValues(endpoint, "transport").Inc()
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome := "status"
		if resp.StatusCode == http.StatusConflict {
			outcome = "conflict"
		}
		upstreamRequests.WithLabelValues(endpoint, outcome).Inc()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, Body: string(raw)}
	}

	upstreamRequests.WithLabelValues(endpoint, "ok").Inc()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}
