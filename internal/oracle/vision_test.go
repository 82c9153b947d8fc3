package oracle

import (
	"encoding/base64"
	"testing"
)

func TestDecodeDataURL(t *testing.T) {
	payload := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	encoded := base64.StdEncoding.EncodeToString(payload)

	t.Run("JPEG", func(t *testing.T) {
		format, data, err := decodeDataURL("data:image/jpeg;base64," + encoded)
		if err != nil {
			t.Fatalf("decodeDataURL() error = %v", err)
		}
		if format != "jpeg" {
			t.Errorf("format = %q, want jpeg", format)
		}
		if string(data) != string(payload) {
			t.Errorf("data = %v, want %v", data, payload)
		}
	})

	t.Run("PNG", func(t *testing.T) {
		format, _, err := decodeDataURL("data:image/png;base64," + encoded)
		if err != nil {
			t.Fatalf("decodeDataURL() error = %v", err)
		}
		if format != "png" {
			t.Errorf("format = %q, want png", format)
		}
	})

	t.Run("NotADataURL", func(t *testing.T) {
		if _, _, err := decodeDataURL(encoded); err == nil {
			t.Error("expected error for frame without a comma")
		}
	})

	t.Run("BadBase64", func(t *testing.T) {
		if _, _, err := decodeDataURL("data:image/jpeg;base64,!!not-base64!!"); err == nil {
			t.Error("expected error for invalid base64")
		}
	})
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Plain", `{"face_detected": true}`, `{"face_detected": true}`},
		{"JSONFence", "```json\n{\"face_detected\": true}\n```", `{"face_detected": true}`},
		{"BareFence", "```\n{}\n```", `{}`},
		{"Whitespace", "  {}  ", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripCodeFence(tt.in); got != tt.want {
				t.Errorf("stripCodeFence() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSuspicious(t *testing.T) {
	tests := []struct {
		name     string
		analysis FrameAnalysis
		want     bool
	}{
		{"Clean", FrameAnalysis{FaceDetected: true}, false},
		{"NoFace", FrameAnalysis{FaceDetected: false}, true},
		{"MultipleFaces", FrameAnalysis{FaceDetected: true, MultipleFaces: true}, true},
		{"EyesAway", FrameAnalysis{FaceDetected: true, EyeMovementDetected: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.analysis.Suspicious(); got != tt.want {
				t.Errorf("Suspicious() = %v, want %v", got, tt.want)
			}
		})
	}
}
