package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/exoplanet-triage/internal/core/domain"
	"github.com/kirillkom/exoplanet-triage/internal/infrastructure/resilience"
)

const (
	predictPath = "/predict"
	healthPath  = "/health"
)

// Operation names used for retry and breaker bookkeeping.
const (
	OperationPredict = "classifier.predict"
	OperationEnrich  = "classifier.enrich"
)

// Client calls the model service that labels candidate records.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

type predictRequest struct {
	Features domain.FeatureRecord `json:"features"`
}

// Classify accepts a reply only when it is a 2xx, non-empty JSON object with a
// recognizable prediction. Every other outcome is ErrUnusableResponse.
func (c *Client) Classify(ctx context.Context, record domain.FeatureRecord) (domain.ClassificationResult, error) {
	raw, err := c.predict(ctx, OperationPredict, record)
	if err != nil {
		return domain.ClassificationResult{}, domain.WrapError(domain.ErrUnusableResponse, "classify", err)
	}

	body, err := decodeObject(raw)
	if err != nil {
		return domain.ClassificationResult{}, domain.WrapError(domain.ErrUnusableResponse, "classify", err)
	}
	label, err := parsePrediction(body)
	if err != nil {
		return domain.ClassificationResult{}, domain.WrapError(domain.ErrUnusableResponse, "classify", err)
	}

	result := domain.ClassificationResult{
		Label:             label,
		Probabilities:     parseProbabilities(body),
		FeatureImportance: parseFeatureImportance(body),
		Source:            domain.SourceRemote,
	}
	if conf, ok := parseNumber(body["confidence"]); ok {
		conf = domain.ClampUnit(conf)
		result.Confidence = &conf
	} else if p, ok := result.Probabilities[label]; ok {
		conf = domain.ClampUnit(p)
		result.Confidence = &conf
	}
	return result, nil
}

// Enrich asks for probabilities and feature importances only. The label in the
// reply, if any, is ignored.
func (c *Client) Enrich(ctx context.Context, record domain.FeatureRecord) (domain.Enrichment, error) {
	raw, err := c.predict(ctx, OperationEnrich, record)
	if err != nil {
		return domain.Enrichment{}, err
	}
	body, err := decodeObject(raw)
	if err != nil {
		return domain.Enrichment{}, domain.WrapError(domain.ErrNoEnrichment, "enrich", err)
	}

	out := domain.Enrichment{
		Probabilities:     parseProbabilities(body),
		FeatureImportance: parseFeatureImportance(body),
	}
	if out.Empty() {
		return domain.Enrichment{}, domain.WrapError(domain.ErrNoEnrichment, "enrich", errors.New("reply carries no probabilities or feature importances"))
	}
	return out, nil
}

// Ping checks the model service health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapTemporaryIfNeeded("classifier health", fmt.Errorf("classifier health request: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return wrapTemporaryIfNeeded("classifier health", newHTTPStatusError("health", resp))
	}
	return nil
}

func (c *Client) predict(ctx context.Context, operation string, record domain.FeatureRecord) ([]byte, error) {
	call := func(ctx context.Context) ([]byte, error) {
		return c.postJSON(ctx, predictPath, predictRequest{Features: record}, operation)
	}
	raw, err := resilience.Do(ctx, c.executor, operation, call, classifyRemoteError)
	if err != nil {
		return nil, wrapTemporaryIfNeeded(operation, err)
	}
	return raw, nil
}

func decodeObject(raw []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("empty response body")
	}
	if trimmed[0] != '{' {
		return nil, errors.New("response body is not a JSON object")
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return body, nil
}

func parsePrediction(body map[string]json.RawMessage) (domain.Label, error) {
	raw, ok := body["prediction"]
	if !ok {
		return "", errors.New("prediction field missing")
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", fmt.Errorf("prediction is not a string: %w", err)
	}
	return domain.ParseLabel(value)
}

// parseProbabilities keeps entries whose key is a known label and whose value is numeric.
func parseProbabilities(body map[string]json.RawMessage) map[domain.Label]float64 {
	raw, ok := body["probabilities"]
	if !ok {
		return nil
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}

	out := make(map[domain.Label]float64, len(entries))
	for key, value := range entries {
		label, err := domain.ParseLabel(key)
		if err != nil {
			continue
		}
		if p, ok := parseNumber(value); ok {
			out[label] = p
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// parseFeatureImportance accepts either key spelling, as a list of
// {feature, importance} objects or as a feature-to-weight object.
func parseFeatureImportance(body map[string]json.RawMessage) []domain.FeatureImportance {
	raw, ok := body["feature_importances"]
	if !ok {
		raw, ok = body["featureImportance"]
	}
	if !ok {
		return nil
	}

	var list []domain.FeatureImportance
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]domain.FeatureImportance, 0, len(list))
		for _, fi := range list {
			if strings.TrimSpace(fi.Feature) != "" {
				out = append(out, fi)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}

	var weights map[string]float64
	if err := json.Unmarshal(raw, &weights); err != nil || len(weights) == 0 {
		return nil
	}
	out := make([]domain.FeatureImportance, 0, len(weights))
	for feature, importance := range weights {
		out = append(out, domain.FeatureImportance{Feature: feature, Importance: importance})
	}
	return domain.SortedImportance(out)
}

func parseNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
