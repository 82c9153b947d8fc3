package model

import (
	"time"

	"github.com/google/uuid"
)

// ProctoringEvent is one recorded camera-frame integrity check.
type ProctoringEvent struct {
	ID                  uuid.UUID `json:"id"`
	AttemptID           uuid.UUID `json:"attempt_id"`
	FaceDetected        bool      `json:"face_detected"`
	MultipleFaces       bool      `json:"multiple_faces"`
	EyeMovementDetected bool      `json:"eye_movement_detected"`
	CapturedAt          time.Time `json:"captured_at"`
}

// FaceCheckRequest carries a base64 data-URL camera frame for analysis.
type FaceCheckRequest struct {
	AttemptID uuid.UUID `json:"attempt_id" binding:"required"`
	Frame     string    `json:"frame" binding:"required"`
}
