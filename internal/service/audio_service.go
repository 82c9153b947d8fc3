package service

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/speakeval/speakeval-backend/internal/config"
)

// Sentinel errors for audio uploads.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)

// Allowed audio MIME types, as the browser recording stacks produce them.
var allowedAudioTypes = map[string]string{
	"audio/wav":   ".wav",
	"audio/x-wav": ".wav",
	"audio/wave":  ".wav",
	"audio/webm":  ".webm",
	"audio/mpeg":  ".mp3",
	"audio/mp4":   ".m4a",
	"audio/ogg":   ".ogg",
}

// AudioService stores uploaded answer recordings on local disk.
type AudioService struct {
	cfg *config.Config
}

// NewAudioService creates a new AudioService.
func NewAudioService(cfg *config.Config) *AudioService {
	return &AudioService{cfg: cfg}
}

// SaveUpload saves an uploaded recording with a UUID filename. It returns the
// on-disk path (fed to transcription) and the relative URL path (stored on
// the answer row).
func (s *AudioService) SaveUpload(file multipart.File, header *multipart.FileHeader) (diskPath, urlPath string, err error) {
	contentType := header.Header.Get("Content-Type")
	ext, ok := allowedAudioTypes[contentType]
	if !ok {
		return "", "", fmt.Errorf("%w: %s (allowed: %s)",
			ErrUnsupportedFileType, contentType, strings.Join(allowedAudio(), ", "))
	}

	if header.Size > s.cfg.MaxUploadBytes {
		return "", "", fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, header.Size, s.cfg.MaxUploadBytes)
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return "", "", fmt.Errorf("create upload dir: %w", err)
	}

	filename := uuid.New().String() + ext
	diskPath = filepath.Join(s.cfg.UploadDir, filename)

	dst, err := os.Create(diskPath)
	if err != nil {
		return "", "", fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", "", fmt.Errorf("write file: %w", err)
	}

	return diskPath, "/uploads/" + filename, nil
}

func allowedAudio() []string {
	types := make([]string, 0, len(allowedAudioTypes))
	for t := range allowedAudioTypes {
		types = append(types, t)
	}
	return types
}
