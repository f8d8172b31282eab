// Package qbo implements the remote accounting API client: paginated filter
// queries, single-entity reads, attachment download/upload, and the OAuth2
// authorization-code boundary.
package qbo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"qbridge/internal/domain"
	"qbridge/internal/port"
)

const (
	defaultBaseURL  = "https://quickbooks.api.intuit.com"
	defaultMinorVer = 75
	defaultPageSize = 1000
)

// Client talks to the remote accounting API. Safe for concurrent use.
type Client struct {
	http     *http.Client
	baseURL  string
	minorVer int
	retry    RetryPolicy
	log      *logrus.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (used by tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// NewClient creates a Client with the default retry policy.
func NewClient(log *logrus.Logger, opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{Timeout: 120 * time.Second},
		baseURL:  defaultBaseURL,
		minorVer: defaultMinorVer,
		retry:    DefaultRetryPolicy(),
		log:      log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ port.QueryClient = (*Client)(nil)

// StatusError is a non-2xx response from the remote API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote api status %d: %s", e.StatusCode, e.Body)
}

// get issues an authenticated GET with the retry policy applied and returns
// the response body. Non-2xx responses surface as *StatusError.
func (c *Client) get(ctx context.Context, token, rawURL, accept string) ([]byte, error) {
	var body []byte
	err := c.retry.Do(ctx, c.log, func() (int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return 0, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", accept)

		resp, err := c.http.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return resp.StatusCode, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return resp.StatusCode, &StatusError{StatusCode: resp.StatusCode, Body: snippet(b)}
		}
		body = b
		return resp.StatusCode, nil
	})
	return body, err
}

// snippet truncates a response body for error messages.
func snippet(b []byte) string {
	const max = 256
	s := string(b)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// queryResponse runs one filter query and returns the QueryResponse object.
func (c *Client) queryResponse(ctx context.Context, conn domain.Connection, query string) (map[string]json.RawMessage, error) {
	rawURL := fmt.Sprintf("%s/v3/company/%s/query?query=%s&minorversion=%d",
		c.baseURL, url.PathEscape(conn.RealmID), url.QueryEscape(query), c.minorVer)

	body, err := c.get(ctx, conn.AccessToken, rawURL, "application/json")
	if err != nil {
		return nil, err
	}

	var envelope struct {
		QueryResponse map[string]json.RawMessage `json:"QueryResponse"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding query response: %w", err)
	}
	if envelope.QueryResponse == nil {
		return map[string]json.RawMessage{}, nil
	}
	return envelope.QueryResponse, nil
}

func buildSelect(entity domain.EntityType, where string, startPos, pageSize int) string {
	q := "SELECT * FROM " + string(entity)
	if strings.TrimSpace(where) != "" {
		q += " WHERE " + where
	}
	return fmt.Sprintf("%s STARTPOSITION %d MAXRESULTS %d", q, startPos, pageSize)
}

// QueryPage fetches a single page of rows matching the filter expression.
func (c *Client) QueryPage(ctx context.Context, conn domain.Connection, entity domain.EntityType, where string, startPos, pageSize int) ([]json.RawMessage, error) {
	resp, err := c.queryResponse(ctx, conn, buildSelect(entity, where, startPos, pageSize))
	if err != nil {
		return nil, err
	}
	return decodeRows(resp, entity)
}

// QueryAll pages through every row matching the filter expression. Pagination
// continues while the returned page is full-sized and stops on a short or
// empty page.
func (c *Client) QueryAll(ctx context.Context, conn domain.Connection, entity domain.EntityType, where string) ([]json.RawMessage, error) {
	var all []json.RawMessage
	startPos := 1
	for {
		page, err := c.QueryPage(ctx, conn, entity, where, startPos, defaultPageSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
		if len(page) < defaultPageSize {
			break
		}
		startPos += defaultPageSize
	}
	return all, nil
}

func decodeRows(resp map[string]json.RawMessage, entity domain.EntityType) ([]json.RawMessage, error) {
	raw, ok := resp[entity.RootKey()]
	if !ok {
		return nil, nil
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decoding %s rows: %w", entity, err)
	}
	return rows, nil
}

// FetchByID reads one entity by id. Returns (nil, nil) when the remote has no
// such entity.
func (c *Client) FetchByID(ctx context.Context, conn domain.Connection, entity domain.EntityType, id string) (json.RawMessage, error) {
	endpoint := entity.Endpoint()
	if endpoint == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownEntityType, entity)
	}

	rawURL := fmt.Sprintf("%s/v3/company/%s/%s/%s?minorversion=%d",
		c.baseURL, url.PathEscape(conn.RealmID), endpoint, url.PathEscape(id), c.minorVer)

	body, err := c.get(ctx, conn.AccessToken, rawURL, "application/json")
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding %s read: %w", entity, err)
	}
	doc, ok := envelope[entity.RootKey()]
	if !ok {
		return nil, nil
	}
	return doc, nil
}

// DownloadFile fetches the attachment binary from its file-access URL,
// authenticated as the owning tenant.
func (c *Client) DownloadFile(ctx context.Context, conn domain.Connection, att *domain.Attachable) (*port.FileContent, error) {
	fileURL := att.FileURL()
	if fileURL == "" {
		return nil, domain.ErrNoFileURL
	}

	data, err := c.get(ctx, conn.AccessToken, fileURL, "*/*")
	if err != nil {
		return nil, err
	}

	fileName := att.FileName
	if fileName == "" {
		fileName = "attachment.bin"
	}
	return &port.FileContent{Data: data, FileName: fileName}, nil
}

// attachmentMetadata is the upload metadata envelope.
type attachmentMetadata struct {
	AttachableRef []domain.AttachableRef `json:"AttachableRef"`
	FileName      string                 `json:"FileName"`
	Note          string                 `json:"Note"`
	Category      string                 `json:"Category"`
}

// UploadAttachment uploads the binary plus its metadata envelope as a
// multipart request and links it to the target entity.
func (c *Client) UploadAttachment(ctx context.Context, conn domain.Connection, entity domain.EntityType, targetID string, file *port.FileContent, note string) error {
	meta := attachmentMetadata{
		AttachableRef: []domain.AttachableRef{{
			EntityRef: &domain.EntityRef{Type: string(entity), Value: targetID},
		}},
		FileName: file.FileName,
		Note:     note,
		Category: "Document",
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encoding attachment metadata: %w", err)
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	metaHeader := make(textproto.MIMEHeader)
	metaHeader.Set("Content-Disposition", `form-data; name="file_metadata_01"`)
	metaHeader.Set("Content-Type", "application/json")
	metaPart, err := form.CreatePart(metaHeader)
	if err != nil {
		return fmt.Errorf("creating metadata part: %w", err)
	}
	if _, err := metaPart.Write(metaJSON); err != nil {
		return fmt.Errorf("writing metadata part: %w", err)
	}

	filePart, err := form.CreateFormFile("file_content_01", file.FileName)
	if err != nil {
		return fmt.Errorf("creating file part: %w", err)
	}
	if _, err := filePart.Write(file.Data); err != nil {
		return fmt.Errorf("writing file part: %w", err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("closing multipart form: %w", err)
	}

	rawURL := fmt.Sprintf("%s/v3/company/%s/upload?minorversion=%d",
		c.baseURL, url.PathEscape(conn.RealmID), c.minorVer)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+conn.AccessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("attachment upload status %d: %s", resp.StatusCode, snippet(b))
	}
	return nil
}

// CompanyName resolves the display name of the connected company, trying the
// aliased name fields in order.
func (c *Client) CompanyName(ctx context.Context, conn domain.Connection) (string, error) {
	rawURL := fmt.Sprintf("%s/v3/company/%s/companyinfo/%s?minorversion=%d",
		c.baseURL, url.PathEscape(conn.RealmID), url.PathEscape(conn.RealmID), c.minorVer)

	body, err := c.get(ctx, conn.AccessToken, rawURL, "application/json")
	if err != nil {
		return "", err
	}

	var envelope struct {
		CompanyInfo struct {
			CompanyName          string `json:"CompanyName"`
			LegalName            string `json:"LegalName"`
			CompanyNameFormatted string `json:"CompanyNameFormatted"`
			CompanyNameOnChecks  string `json:"CompanyNameOnChecks"`
		} `json:"CompanyInfo"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("decoding company info: %w", err)
	}

	ci := envelope.CompanyInfo
	for _, name := range []string{ci.CompanyName, ci.LegalName, ci.CompanyNameFormatted, ci.CompanyNameOnChecks} {
		if name != "" {
			return name, nil
		}
	}
	return "", nil
}
