package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"helmetwatch/internal/config"
	"helmetwatch/internal/dto"
	"helmetwatch/internal/httpc"
	"helmetwatch/internal/logger"
)

const (
	// JPEGQuality is the quality used when uploading frames.
	JPEGQuality = 90
	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 4 << 20
)

// Options configure the remote detection endpoint.
type Options struct {
	BaseURL    string
	APIKey     string
	Project    string
	Version    int
	Confidence int // percent
	Overlap    int // percent
	Timeout    time.Duration
}

// OptionsFromConfig maps configuration values onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BaseURL:    cfg.DetectionURL,
		APIKey:     cfg.DetectionAPIKey,
		Project:    cfg.DetectionProject,
		Version:    cfg.DetectionVersion,
		Confidence: cfg.ConfidenceThresh,
		Overlap:    cfg.OverlapThresh,
		Timeout:    time.Duration(cfg.DetectionTimeout) * time.Second,
	}
}

type predictionResponse struct {
	Predictions []dto.Prediction `json:"predictions"`
}

// DetectorService sends frames to a hosted object-detection model.
type DetectorService struct {
	endpoint string
	client   *http.Client
	logger   *logger.Logger
}

// NewDetectorService builds the request URL once; model identity and thresholds are fixed per service.
func NewDetectorService(opts Options, logger *logger.Logger) (*DetectorService, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid detection url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid detection url %q", opts.BaseURL)
	}

	base.Path = fmt.Sprintf("%s/%s/%d", base.Path, opts.Project, opts.Version)
	q := base.Query()
	q.Set("api_key", opts.APIKey)
	q.Set("confidence", strconv.Itoa(opts.Confidence))
	q.Set("overlap", strconv.Itoa(opts.Overlap))
	base.RawQuery = q.Encode()

	return &DetectorService{
		endpoint: base.String(),
		client:   httpc.NewClient(opts.Timeout),
		logger:   logger,
	}, nil
}

// Predict returns the predictions for frame. Any failure yields an empty list.
func (s *DetectorService) Predict(ctx context.Context, frame image.Image) []dto.Prediction {
	predictions, err := s.Detect(ctx, frame)
	if err != nil {
		s.logger.Warning("Detection failed, treating frame as empty: %v", err)
		return []dto.Prediction{}
	}
	return predictions
}

// Detect uploads frame as JPEG and decodes the predictions array.
func (s *DetectorService) Detect(ctx context.Context, frame image.Image) ([]dto.Prediction, error) {
	body, contentType, err := encodeFrame(frame)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detection request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, fmt.Errorf("detection endpoint returned %s", resp.Status)
	}

	var result predictionResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode predictions: %w", err)
	}
	if result.Predictions == nil {
		result.Predictions = []dto.Prediction{}
	}
	return result.Predictions, nil
}

// encodeFrame writes frame as a JPEG multipart "file" field.
func encodeFrame(frame image.Image) (*bytes.Buffer, string, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fw, err := w.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if err := jpeg.Encode(fw, frame, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, "", fmt.Errorf("failed to encode frame: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return &b, w.FormDataContentType(), nil
}
