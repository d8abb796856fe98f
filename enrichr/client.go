// Package enrichr provides an HTTP client for the Enrichr gene-set enrichment
// service. A gene list is uploaded once and then scored against any number of
// gene-set libraries; results are exported as tab-separated tables.
package enrichr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL serves human and mouse gene symbols.
const DefaultBaseURL = "https://maayanlab.cloud/Enrichr"

var (
	ErrUnknownOrganism = errors.New("enrichr: unknown organism")
	ErrEmptyGeneList   = errors.New("enrichr: empty gene list")
)

// organismURLs maps organisms to the Enrichr instance that serves them.
var organismURLs = map[string]string{
	"human": DefaultBaseURL,
	"mouse": DefaultBaseURL,
	"fly":   "https://maayanlab.cloud/FlyEnrichr",
	"yeast": "https://maayanlab.cloud/YeastEnrichr",
	"worm":  "https://maayanlab.cloud/WormEnrichr",
	"fish":  "https://maayanlab.cloud/FishEnrichr",
}

// BaseURL returns the service URL for an organism.
func BaseURL(organism string) (string, error) {
	base, ok := organismURLs[strings.ToLower(organism)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownOrganism, organism)
	}
	return base, nil
}

// Client handles HTTP communication with one Enrichr instance.
type Client struct {
	baseURL    string       // The Enrichr instance, without trailing slash
	httpClient *http.Client // Reusable HTTP client for making requests
}

// NewClient creates a client for baseURL. A zero timeout means no timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// addListResponse represents the JSON response from the /addList endpoint.
type addListResponse struct {
	UserListID int64  `json:"userListId"`
	ShortID    string `json:"shortId"`
}

// statisticsResponse represents the JSON response from /datasetStatistics.
type statisticsResponse struct {
	Statistics []struct {
		LibraryName string `json:"libraryName"`
	} `json:"statistics"`
}

// AddList uploads a gene list and returns its user list id.
func (c *Client) AddList(ctx context.Context, genes []string, description string) (int64, error) {
	if len(genes) == 0 {
		return 0, ErrEmptyGeneList
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("list", strings.Join(genes, "\n")); err != nil {
		return 0, fmt.Errorf("write form: %w", err)
	}
	if err := form.WriteField("description", description); err != nil {
		return 0, fmt.Errorf("write form: %w", err)
	}
	if err := form.Close(); err != nil {
		return 0, fmt.Errorf("write form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/addList", &body)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return 0, err
	}

	var result addListResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	return result.UserListID, nil
}

// Export scores an uploaded list against one library.
func (c *Client) Export(ctx context.Context, listID int64, library string) ([]Result, error) {
	query := url.Values{}
	query.Set("userListId", strconv.FormatInt(listID, 10))
	query.Set("backgroundType", library)
	query.Set("filename", "export")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/export?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	results, err := ParseResults(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("library %s: %w", library, err)
	}
	for i := range results {
		results[i].GeneSet = library
	}
	return results, nil
}

// Enrich uploads genes once and scores them against every library in turn.
// Results are concatenated in library order.
func (c *Client) Enrich(ctx context.Context, genes, libraries []string) ([]Result, error) {
	listID, err := c.AddList(ctx, genes, "cacaio")
	if err != nil {
		return nil, fmt.Errorf("add list: %w", err)
	}

	var all []Result
	for _, library := range libraries {
		results, err := c.Export(ctx, listID, library)
		if err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}
		all = append(all, results...)
	}
	return all, nil
}

// Libraries lists the gene-set libraries the instance offers.
func (c *Client) Libraries(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/datasetStatistics", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var stats statisticsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	names := make([]string, 0, len(stats.Statistics))
	for _, library := range stats.Statistics {
		names = append(names, library.LibraryName)
	}
	return names, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
