package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

var analyzeActions = []string{"age", "gender", "race"}

// DeepFaceClient calls the /analyze endpoint of a DeepFace API server.
type DeepFaceClient struct {
	baseURL          string
	detectorBackend  string
	enforceDetection bool
	client           *http.Client
}

type DeepFaceOption func(*DeepFaceClient)

// WithHTTPClient replaces the default client (timeout from NewDeepFaceClient).
func WithHTTPClient(client *http.Client) DeepFaceOption {
	return func(c *DeepFaceClient) { c.client = client }
}

// WithEnforceDetection makes the server fail instead of analyzing the whole
// image when it cannot find a face.
func WithEnforceDetection(enforce bool) DeepFaceOption {
	return func(c *DeepFaceClient) { c.enforceDetection = enforce }
}

func NewDeepFaceClient(baseURL, detectorBackend string, timeout time.Duration, opts ...DeepFaceOption) *DeepFaceClient {
	c := &DeepFaceClient{
		baseURL:         strings.TrimRight(baseURL, "/"),
		detectorBackend: detectorBackend,
		client:          &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type analyzeRequest struct {
	Img              string   `json:"img"`
	Actions          []string `json:"actions"`
	DetectorBackend  string   `json:"detector_backend,omitempty"`
	EnforceDetection bool     `json:"enforce_detection"`
}

type analyzeRegion struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type analyzeFace struct {
	Age            *float64      `json:"age"`
	DominantGender string        `json:"dominant_gender"`
	DominantRace   string        `json:"dominant_race"`
	Region         analyzeRegion `json:"region"`
}

type analyzeResponse struct {
	Results []analyzeFace `json:"results"`
	Error   string        `json:"error"`
}

// Analyze returns an empty slice when the server reports that no face was found.
func (c *DeepFaceClient) Analyze(ctx context.Context, jpeg []byte) ([]Attributes, error) {
	body, err := json.Marshal(analyzeRequest{
		Img:              "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg),
		Actions:          analyzeActions,
		DetectorBackend:  c.detectorBackend,
		EnforceDetection: c.enforceDetection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analyze request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read analyze response: %w", err)
	}

	var parsed analyzeResponse
	decodeErr := json.Unmarshal(data, &parsed)

	if resp.StatusCode != http.StatusOK {
		msg := parsed.Error
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		if isNoFaceError(msg) {
			return []Attributes{}, nil
		}
		return nil, fmt.Errorf("analyzer returned %d: %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode analyze response: %w", decodeErr)
	}

	attrs := make([]Attributes, 0, len(parsed.Results))
	for _, face := range parsed.Results {
		a := Attributes{
			DominantGender: face.DominantGender,
			DominantRace:   face.DominantRace,
			Region:         image.Rect(face.Region.X, face.Region.Y, face.Region.X+face.Region.W, face.Region.Y+face.Region.H),
		}
		if face.Age != nil {
			age := int(math.Round(*face.Age))
			a.Age = &age
		}
		attrs = append(attrs, a)
	}
	return attrs, nil
}

func isNoFaceError(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "face could not be detected") || strings.Contains(msg, "no face")
}
