package service

import (
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StoredScreenshot describes a screenshot persisted to disk.
type StoredScreenshot struct {
	Status    string         `json:"status"`
	FileName  string         `json:"file_name"`
	FilePath  string         `json:"file_path"`
	SizeBytes int            `json:"size_bytes"`
	Source    string         `json:"source,omitempty"`
	Metadata  map[string]any `json:"metadata"`
	StoredAt  string         `json:"stored_at"`
}

// ScreenshotStore persists screenshots received as base64 data URLs.
type ScreenshotStore struct {
	storageDir string
}

// NewScreenshotStore creates the storage directory if needed.
func NewScreenshotStore(storageDir string) (*ScreenshotStore, error) {
	if err := os.MkdirAll(storageDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	log.Printf("Screenshot storage initialized at %s", storageDir)
	return &ScreenshotStore{storageDir: storageDir}, nil
}

// SaveDataURL decodes a base64 data URL and writes it under the storage dir.
func (s *ScreenshotStore) SaveDataURL(dataURL, source string, metadata map[string]any) (*StoredScreenshot, error) {
	imageBytes, extension, err := ParseDataURL(dataURL)
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().UTC()
	filename := fmt.Sprintf("%s_%s.%s", timestamp.Format("20060102T150405.000000000"), uuid.New().String(), extension)
	filePath := filepath.Join(s.storageDir, filename)

	if err := os.WriteFile(filePath, imageBytes, 0644); err != nil {
		return nil, fmt.Errorf("failed to write screenshot: %w", err)
	}

	log.Printf("Stored screenshot %s (%d bytes)", filename, len(imageBytes))
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &StoredScreenshot{
		Status:    "stored",
		FileName:  filename,
		FilePath:  filePath,
		SizeBytes: len(imageBytes),
		Source:    source,
		Metadata:  metadata,
		StoredAt:  timestamp.Format(time.RFC3339Nano),
	}, nil
}

// ParseDataURL splits a base64 data URL into binary content and a file
// extension inferred from the media type.
func ParseDataURL(dataURL string) ([]byte, string, error) {
	header, encoded, found := strings.Cut(dataURL, "base64,")
	if !found {
		return nil, "", fmt.Errorf("screenshot payload must be a base64 data URL")
	}

	extension := "png"
	switch {
	case strings.Contains(header, "image/jpeg"):
		extension = "jpg"
	case strings.Contains(header, "image/webp"):
		extension = "webp"
	}

	imageBytes, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("invalid base64 data in screenshot payload: %w", err)
	}
	if len(imageBytes) == 0 {
		return nil, "", fmt.Errorf("empty screenshot payload")
	}

	return imageBytes, extension, nil
}
