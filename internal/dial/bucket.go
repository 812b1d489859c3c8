package dial

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

	"dial-go/internal/chat"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const uploadField = "attachment"

type BucketConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// BucketClient uploads files to the caller's DIAL storage bucket.
type BucketClient struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

// FileMetadata is what the gateway reports about a stored file.
type FileMetadata struct {
	Name          string `json:"name"`
	ParentPath    string `json:"parentPath,omitempty"`
	Bucket        string `json:"bucket"`
	URL           string `json:"url"`
	ContentType   string `json:"contentType,omitempty"`
	ContentLength int64  `json:"contentLength,omitempty"`
}

func NewBucketClient(cfg BucketConfig) (*BucketClient, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("dial base url is required")
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("dial api key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BucketClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		timeout:    timeout,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Bucket resolves the storage bucket that belongs to the API key.
func (c *BucketClient) Bucket(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/bucket", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("api-key", c.apiKey)

	var out struct {
		Bucket string `json:"bucket"`
	}
	if err := c.do(httpReq, &out); err != nil {
		return "", err
	}
	if out.Bucket == "" {
		return "", errors.New("dial bucket response has no bucket")
	}
	return out.Bucket, nil
}

// PutFile stores content under name in the caller's bucket.
func (c *BucketClient) PutFile(ctx context.Context, name, mimeType string, content io.Reader) (FileMetadata, error) {
	bucket, err := c.Bucket(ctx)
	if err != nil {
		return FileMetadata{}, err
	}
	return c.put(ctx, bucket, name, mimeType, content)
}

// Upload stores content and returns an attachment that references it. The
// attachment is titled with the last segment of name.
func (c *BucketClient) Upload(ctx context.Context, name, mimeType string, content io.Reader) (chat.Attachment, error) {
	bucket, err := c.Bucket(ctx)
	if err != nil {
		return chat.Attachment{}, err
	}
	if _, err := c.put(ctx, bucket, name, mimeType, content); err != nil {
		return chat.Attachment{}, err
	}
	return chat.Attachment{
		Title: lastSegment(name),
		URL:   filePath(bucket, name),
		Type:  mimeType,
	}, nil
}

// UniqueName places name under a random directory so repeated uploads of
// the same file do not overwrite each other.
func UniqueName(name string) string {
	return uuid.NewString() + "/" + name
}

func (c *BucketClient) put(ctx context.Context, bucket, name, mimeType string, content io.Reader) (FileMetadata, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return FileMetadata{}, errors.New("file name is required")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, contentType, err := multipartBody(name, mimeType, content)
	if err != nil {
		return FileMetadata{}, err
	}
	endpoint := c.baseURL + "/v1/" + filePath(bucket, name)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, body)
	if err != nil {
		return FileMetadata{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("api-key", c.apiKey)
	httpReq.Header.Set("Content-Type", contentType)

	c.logger.Debug("uploading file",
		zap.String("bucket", bucket),
		zap.String("name", name),
		zap.String("type", mimeType),
	)
	var meta FileMetadata
	if err := c.do(httpReq, &meta); err != nil {
		return FileMetadata{}, err
	}
	return meta, nil
}

func (c *BucketClient) do(httpReq *http.Request, out any) error {
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("dial storage request failed", zap.Error(err))
		return fmt.Errorf("dial storage request: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < http.StatusOK || httpResp.StatusCode >= http.StatusMultipleChoices {
		statusErr := readStatusError(httpResp.Body, httpResp.StatusCode)
		c.logger.Warn("dial storage request rejected",
			zap.Int("status", statusErr.StatusCode),
			zap.String("body", statusErr.Body),
		)
		return statusErr
	}
	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func multipartBody(name, mimeType string, content io.Reader) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, uploadField, lastSegment(name)))
	if mimeType != "" {
		header.Set("Content-Type", mimeType)
	}
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create form part: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, "", fmt.Errorf("read file content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

func filePath(bucket, name string) string {
	segments := strings.Split(name, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return "files/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}

func lastSegment(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}
