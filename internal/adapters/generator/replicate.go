package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"pixelperfect/internal/config"
	"pixelperfect/internal/core/domain"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const maxErrorBody = 512

// Replicate provides a wrapper for the Replicate predictions API running an upscaling model.
type Replicate struct {
	apiToken     string
	endpoint     string
	modelVersion string
	waitSeconds  int
	limiter      *rate.Limiter
	client       *http.Client
}

func NewReplicate(cfg config.Replicate, client *http.Client) *Replicate {
	if client == nil {
		client = &http.Client{}
	}

	r := &Replicate{
		apiToken:     cfg.APIToken,
		endpoint:     cfg.Endpoint,
		modelVersion: cfg.ModelVersion,
		waitSeconds:  cfg.WaitSeconds,
		client:       client,
	}

	if cfg.RequestsPerMinute > 0 {
		r.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return r
}

type upscaleInput struct {
	Image       string `json:"image"`
	Scale       int    `json:"scale"`
	FaceEnhance bool   `json:"face_enhance"`
}

type predictionRequest struct {
	Version string       `json:"version"`
	Input   upscaleInput `json:"input"`
}

type predictionResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
}

func (r *Replicate) RequestUpscale(ctx context.Context, image domain.ImageAsset,
	scale domain.ScaleFactor) (string, error) {
	if r.apiToken == "" {
		return "", fmt.Errorf("%w: replicate api token is not set", domain.ErrConfiguration)
	}

	if image.Size() == 0 {
		return "", fmt.Errorf("%w: no image provided", domain.ErrValidation)
	}

	if !scale.Valid() {
		return "", fmt.Errorf("%w: scale must be 2x or 4x", domain.ErrValidation)
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: waiting for request slot: %w", domain.ErrTransport, err)
		}
	}

	replicateRequest := predictionRequest{
		Version: r.modelVersion,
		Input: upscaleInput{
			Image:       image.DataURI(),
			Scale:       int(scale),
			FaceEnhance: true,
		},
	}

	payloadBuf := new(bytes.Buffer)
	err := json.NewEncoder(payloadBuf).Encode(replicateRequest)
	if err != nil {
		return "", fmt.Errorf("%w: error encoding replicate request: %w", domain.ErrValidation, err)
	}

	body, err := r.postPrediction(ctx, payloadBuf)
	if err != nil {
		return "", err
	}

	var result predictionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: error unmarshalling replicate response: %w", domain.ErrService, err)
	}

	log.Debug().Str("predictionId", result.ID).Str("status", result.Status).Msg("replicate prediction")

	if result.Status != "succeeded" {
		return "", fmt.Errorf("%w: prediction %s ended with status %q: %v", domain.ErrService, result.ID,
			result.Status, result.Error)
	}

	url, err := outputURL(result.Output)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrService, err)
	}

	return url, nil
}

// outputURL accepts both a single URL and a list of URLs, returning the first.
func outputURL(output json.RawMessage) (string, error) {
	var single string
	if err := json.Unmarshal(output, &single); err == nil && single != "" {
		return single, nil
	}

	var list []string
	if err := json.Unmarshal(output, &list); err == nil && len(list) > 0 && list[0] != "" {
		return list[0], nil
	}

	return "", errors.New("no output returned from replicate response")
}

func (r *Replicate) postPrediction(ctx context.Context, payloadBuf *bytes.Buffer) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, payloadBuf)
	if err != nil {
		log.Error().Err(err).Msg("error creating POST request for replicate")
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}

	req.Header.Add("Authorization", "Bearer "+r.apiToken)
	req.Header.Add("Content-Type", "application/json")
	if r.waitSeconds > 0 {
		req.Header.Add("Prefer", fmt.Sprintf("wait=%d", r.waitSeconds))
	}

	res, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: error executing replicate request: %w", domain.ErrTransport, err)
	}

	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: error reading replicate response: %w", domain.ErrTransport, err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, fmt.Errorf("%w: unexpected status code %d: %s", domain.ErrService, res.StatusCode, body)
	}

	return body, nil
}
