// Package azure implements the OCR collaborator on top of the Azure AI Document
// Intelligence REST API: submit bytes, then poll the operation until it settles.
package azure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/infrastructure/resilience"
)

const (
	DefaultModelID      = "prebuilt-read"
	DefaultAPIVersion   = "2023-07-31"
	DefaultPollInterval = time.Second
	DefaultTimeout      = 2 * time.Minute

	apiKeyHeader = "Ocp-Apim-Subscription-Key"
)

type Options struct {
	ModelID      string
	APIVersion   string
	PollInterval time.Duration
	// Timeout bounds one whole analysis, submit plus polling.
	Timeout            time.Duration
	HTTPClient         *http.Client
	ResilienceExecutor *resilience.Executor
}

type Client struct {
	endpoint     string
	apiKey       string
	modelID      string
	apiVersion   string
	pollInterval time.Duration
	timeout      time.Duration
	httpClient   *http.Client
	executor     *resilience.Executor
	schema       *jsonschema.Schema
}

func New(endpoint, apiKey string, opts Options) (*Client, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("azure document intelligence endpoint is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("azure document intelligence key is required")
	}

	schema, err := compileAnalyzeResultSchema()
	if err != nil {
		return nil, err
	}

	c := &Client{
		endpoint:     endpoint,
		apiKey:       apiKey,
		modelID:      opts.ModelID,
		apiVersion:   opts.APIVersion,
		pollInterval: opts.PollInterval,
		timeout:      opts.Timeout,
		httpClient:   opts.HTTPClient,
		executor:     opts.ResilienceExecutor,
		schema:       schema,
	}
	if c.modelID == "" {
		c.modelID = DefaultModelID
	}
	if c.apiVersion == "" {
		c.apiVersion = DefaultAPIVersion
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return c, nil
}

// Analyze submits data to the configured model and returns the full-text content.
func (c *Client) Analyze(ctx context.Context, filename string, data []byte) (domain.Analysis, error) {
	if len(data) == 0 {
		return domain.Analysis{}, domain.WrapError(domain.ErrInvalidInput, "azure analyze", fmt.Errorf("%s is empty", filename))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	operationURL, err := c.submit(ctx, data)
	if err != nil {
		return domain.Analysis{}, wrapCollaboratorError("azure analyze", err)
	}

	analysis, err := c.poll(ctx, operationURL)
	if err != nil {
		return domain.Analysis{}, wrapCollaboratorError("azure analyze result", err)
	}
	return analysis, nil
}

func (c *Client) analyzeURL() string {
	return fmt.Sprintf(
		"%s/formrecognizer/documentModels/%s:analyze?api-version=%s",
		c.endpoint,
		url.PathEscape(c.modelID),
		url.QueryEscape(c.apiVersion),
	)
}

func (c *Client) submit(ctx context.Context, data []byte) (string, error) {
	var operationURL string
	err := c.execute(ctx, "azure.analyze", func(ctx context.Context) error {
		resp, _, err := c.do(ctx, http.MethodPost, c.analyzeURL(), "application/octet-stream", data, "analyze")
		if err != nil {
			return err
		}
		operationURL = strings.TrimSpace(resp.Header.Get("Operation-Location"))
		if operationURL == "" {
			return errors.New("azure analyze response without Operation-Location header")
		}
		return nil
	})
	return operationURL, err
}

func (c *Client) poll(ctx context.Context, operationURL string) (domain.Analysis, error) {
	for {
		var result operationResult
		err := c.execute(ctx, "azure.analyze_result", func(ctx context.Context) error {
			_, body, err := c.do(ctx, http.MethodGet, operationURL, "", nil, "analyze result")
			if err != nil {
				return err
			}
			result, err = decodeOperation(c.schema, body)
			return err
		})
		if err != nil {
			return domain.Analysis{}, err
		}

		switch result.Status {
		case "succeeded":
			return domain.Analysis{
				Content:   result.AnalyzeResult.Content,
				PageCount: len(result.AnalyzeResult.Pages),
				ModelID:   result.AnalyzeResult.ModelID,
			}, nil
		case "failed", "canceled":
			return domain.Analysis{}, operationError(result)
		}

		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return domain.Analysis{}, fmt.Errorf("wait for analyze result: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	return c.executor.Execute(ctx, operation, fn, classifyAzureError)
}

func operationError(result operationResult) error {
	if result.Error == nil || strings.TrimSpace(result.Error.Message) == "" {
		return fmt.Errorf("azure analyze operation %s", result.Status)
	}
	return fmt.Errorf("azure analyze operation %s: %s: %s", result.Status, result.Error.Code, result.Error.Message)
}
