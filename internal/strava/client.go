package strava

import (
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

	"golang.org/x/oauth2"
)

const BaseURL = "https://www.strava.com/api/v3"

// MaxPerPage is the largest page size the activities endpoint accepts
const MaxPerPage = 200

// ErrNotFound is returned for activities or streams Strava does not have,
// such as manual activities without any recorded stream.
var ErrNotFound = errors.New("strava: not found")

// APIError is a non-200 response from the API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Body)
}

// Client is a Strava API client
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *RateLimiter
}

// NewClient creates a client authenticated through tokenSource
func NewClient(tokenSource oauth2.TokenSource) *Client {
	return NewClientWithHTTP(oauth2.NewClient(context.Background(), tokenSource), BaseURL)
}

// NewClientWithHTTP creates a client using an already authenticated HTTP
// client against baseURL.
func NewClientWithHTTP(httpClient *http.Client, baseURL string) *Client {
	return &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		rateLimiter: NewRateLimiter(),
	}
}

// GetActivities fetches one page of activities started after 'after'
func (c *Client) GetActivities(ctx context.Context, after time.Time, page, perPage int) ([]Activity, error) {
	params := url.Values{}
	if !after.IsZero() {
		params.Set("after", strconv.FormatInt(after.Unix(), 10))
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	body, err := c.get(ctx, "/athlete/activities", params)
	if err != nil {
		return nil, err
	}

	var activities []Activity
	if err := json.Unmarshal(body, &activities); err != nil {
		return nil, fmt.Errorf("decoding activities: %w", err)
	}

	return activities, nil
}

// GetAllActivities fetches every activity after a given time, following
// pagination until a short page is returned.
func (c *Client) GetAllActivities(ctx context.Context, after time.Time, onProgress func(fetched int)) ([]Activity, error) {
	var allActivities []Activity
	page := 1

	for {
		activities, err := c.GetActivities(ctx, after, page, MaxPerPage)
		if err != nil {
			return allActivities, fmt.Errorf("fetching page %d: %w", page, err)
		}

		allActivities = append(allActivities, activities...)
		if onProgress != nil && len(activities) > 0 {
			onProgress(len(allActivities))
		}

		if len(activities) < MaxPerPage {
			break
		}
		page++
	}

	return allActivities, nil
}

// GetActivityStreamsRaw fetches the stream payload of an activity exactly as
// Strava sends it.
func (c *Client) GetActivityStreamsRaw(ctx context.Context, activityID int64) ([]byte, error) {
	params := url.Values{}
	params.Set("keys", strings.Join(StreamKeys, ","))
	params.Set("key_by_type", "true")

	return c.get(ctx, fmt.Sprintf("/activities/%d/streams", activityID), params)
}

// GetActivityStreams fetches and decodes the streams of an activity
func (c *Client) GetActivityStreams(ctx context.Context, activityID int64) (*Streams, error) {
	body, err := c.GetActivityStreamsRaw(ctx, activityID)
	if err != nil {
		return nil, err
	}
	return ParseStreams(body)
}

// RateLimitStatus returns the remaining requests in both windows
func (c *Client) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return c.rateLimiter.Status()
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	c.rateLimiter.UpdateFromHeaders(resp.Header)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	default:
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
}
