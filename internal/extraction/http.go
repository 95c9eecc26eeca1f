package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gestionviaticos/viaticos/internal"
)

// HTTPExtractor posts the receipt to a document-AI endpoint and maps its JSON
// response. The endpoint is opaque; only the response shape is contracted.
type HTTPExtractor struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

func NewHTTPExtractor(endpoint, apiKey string, timeout time.Duration, logger *slog.Logger) *HTTPExtractor {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPExtractor{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

func (e *HTTPExtractor) Extract(ctx context.Context, filename string, contentType string, body io.Reader) (*Result, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("document", filename)
	if err != nil {
		return nil, fmt.Errorf("build extraction request: %w", err)
	}
	if _, err := io.Copy(part, body); err != nil {
		return nil, fmt.Errorf("build extraction request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("build extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, internal.NewInternalError("extraction service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e.logger.Warn("extraction service returned non-200", "status", resp.StatusCode)
		return nil, internal.NewInternalError(fmt.Sprintf("extraction service returned %d", resp.StatusCode), nil)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, internal.NewInternalError("could not decode extraction response", err)
	}

	e.logger.Info("receipt extracted",
		"filename", filename,
		"confidence", result.Confidence,
		"has_amount", result.Amount != nil)
	return &result, nil
}
