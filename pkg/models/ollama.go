package models

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/scottdavis/inferpipe/pkg/core"
	"github.com/scottdavis/inferpipe/pkg/errors"
)

// OllamaModel implements core.Model backed by an Ollama server. The
// forward input must carry the prompt under "prompt" (or "text");
// forward params are passed through as Ollama generation options.
type OllamaModel struct {
	endpoint string
	name     string
	http     *http.Client
}

// NewOllamaModel creates an OllamaModel for the given server endpoint
// and model name. An empty endpoint falls back to the local default.
func NewOllamaModel(endpoint, name string) (*OllamaModel, error) {
	if endpoint == "" {
		endpoint = "http://localhost:11434" // Default Ollama endpoint
	}
	if name == "" {
		return nil, errors.New(errors.InvalidInput, "ollama model name is required")
	}
	return &OllamaModel{
		endpoint: endpoint,
		name:     name,
		http:     &http.Client{Timeout: 10 * time.Minute},
	}, nil
}

// Name returns the Ollama model name.
func (o *OllamaModel) Name() string {
	return o.name
}

// Endpoint returns the Ollama server endpoint.
func (o *OllamaModel) Endpoint() string {
	return o.endpoint
}

// Invoke implements core.Model.
func (o *OllamaModel) Invoke(ctx context.Context, inputs map[string]any, params map[string]any) (map[string]any, error) {
	prompt, err := promptFromInputs(inputs)
	if err != nil {
		return nil, err
	}

	streamValue := false
	reqBody := api.GenerateRequest{
		Model:   o.name,
		Prompt:  prompt,
		Stream:  &streamValue,
		Options: params,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to marshal request body"),
			errors.Fields{"model": o.name},
		)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.endpoint+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to create request"),
			errors.Fields{"model": o.name},
		)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.ModelExecutionFailed, "failed to send request"),
			errors.Fields{"model": o.name},
		)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.ModelExecutionFailed, "failed to read response body"),
			errors.Fields{"model": o.name},
		)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.WithFields(
			errors.New(errors.ModelExecutionFailed, fmt.Sprintf("API request failed with status code %d", resp.StatusCode)),
			errors.Fields{
				"model":         o.name,
				"status_code":   resp.StatusCode,
				"response_body": string(body),
			},
		)
	}

	var ollamaResp api.GenerateResponse
	if err := json.Unmarshal(body, &ollamaResp); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidResponse, "failed to unmarshal response"),
			errors.Fields{"model": o.name},
		)
	}

	return map[string]any{
		"text":  ollamaResp.Response,
		"model": ollamaResp.Model,
		"done":  ollamaResp.Done,
	}, nil
}

func promptFromInputs(inputs map[string]any) (string, error) {
	for _, key := range []string{"prompt", "text"} {
		if v, ok := inputs[key]; ok {
			if s, ok := v.(string); ok {
				return s, nil
			}
		}
	}
	return "", errors.New(errors.InvalidInput, `forward inputs must carry a string "prompt" or "text" entry`)
}

func loadOllama(ctx context.Context, path string, cfg *PretrainedConfig) (core.Model, error) {
	endpoint, _ := cfg.Options["endpoint"].(string)
	name, _ := cfg.Options["model"].(string)
	if name == "" {
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, `ollama model configuration requires an options "model" entry`),
			errors.Fields{"path": path},
		)
	}
	return NewOllamaModel(endpoint, name)
}

func init() {
	// Registered like a database/sql driver: importing this package
	// makes "ollama" snapshots loadable by FromPretrained.
	if err := RegisterModelType("ollama", loadOllama); err != nil {
		panic(err)
	}
}
