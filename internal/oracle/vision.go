package oracle

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// FrameAnalysis holds the integrity signals extracted from one camera frame.
type FrameAnalysis struct {
	FaceDetected        bool      `json:"face_detected"`
	MultipleFaces       bool      `json:"multiple_faces"`
	EyeMovementDetected bool      `json:"eye_movement_detected"`
	Timestamp           time.Time `json:"timestamp"`
}

// Suspicious reports whether the frame should raise a proctoring alert.
func (f *FrameAnalysis) Suspicious() bool {
	return !f.FaceDetected || f.MultipleFaces || f.EyeMovementDetected
}

// Vision analyzes a camera frame for test-taking integrity violations.
// The frame is a base64 data URL as captured by the browser.
type Vision interface {
	AnalyzeFrame(ctx context.Context, frame string) (*FrameAnalysis, error)
}

const visionPrompt = `You are a proctoring assistant for a spoken exam.
Analyze the attached webcam frame and answer with a single JSON object,
no markdown, with exactly these boolean fields:
{"face_detected": ..., "multiple_faces": ..., "eye_movement_detected": ...}
face_detected: at least one human face is visible.
multiple_faces: more than one face is visible.
eye_movement_detected: the visible person's eyes are closed, obscured,
or clearly looking away from the screen.`

// GeminiVision analyzes frames with a Gemini multimodal model.
type GeminiVision struct {
	client *genai.Client
	model  string
}

// NewGeminiVision creates a Gemini-backed vision oracle.
func NewGeminiVision(ctx context.Context, apiKey, model string) (*GeminiVision, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiVision{client: client, model: model}, nil
}

// Close releases the underlying API client.
func (v *GeminiVision) Close() error {
	return v.client.Close()
}

// AnalyzeFrame decodes the data-URL frame and asks the model for the three
// integrity signals.
func (v *GeminiVision) AnalyzeFrame(ctx context.Context, frame string) (*FrameAnalysis, error) {
	format, data, err := decodeDataURL(frame)
	if err != nil {
		return nil, err
	}

	m := v.client.GenerativeModel(v.model)
	resp, err := m.GenerateContent(ctx, genai.ImageData(format, data), genai.Text(visionPrompt))
	if err != nil {
		return nil, fmt.Errorf("analyze frame: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("vision model returned no candidates")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return nil, fmt.Errorf("vision model returned non-text part")
	}

	analysis := &FrameAnalysis{}
	raw := strings.TrimSpace(stripCodeFence(string(text)))
	if err := json.Unmarshal([]byte(raw), analysis); err != nil {
		return nil, fmt.Errorf("parse vision response: %w (raw: %s)", err, raw)
	}

	analysis.Timestamp = time.Now().UTC()
	return analysis, nil
}

// decodeDataURL splits a "data:image/jpeg;base64,...." frame into the image
// format expected by the API ("jpeg", "png") and the raw bytes.
func decodeDataURL(frame string) (string, []byte, error) {
	header, encoded, found := strings.Cut(frame, ",")
	if !found {
		return "", nil, fmt.Errorf("frame is not a data URL")
	}

	format := "jpeg"
	if strings.Contains(header, "image/png") {
		format = "png"
	} else if strings.Contains(header, "image/webp") {
		format = "webp"
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("decode frame: %w", err)
	}
	return format, data, nil
}

// stripCodeFence removes a surrounding markdown code fence if the model
// ignored the no-markdown instruction.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
