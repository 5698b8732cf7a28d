// utils/signature.go
package utils

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var signatureIDSanitizer = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// SignatureDir returns the directory signature images are written to.
func SignatureDir() string {
	if dir := os.Getenv("SIGNATURE_DIR"); dir != "" {
		return dir
	}
	return filepath.Join("static", "signatures")
}

// SaveSignatureFile decodes a data-URI style base64 payload and writes it
// under a collision-resistant name scoped to the transaction id. It returns
// the bare filename, or "" with the error when the payload is malformed or
// the write fails; callers decide whether that is fatal.
func SaveSignatureFile(b64Data, transactionID string) (string, error) {
	if b64Data == "" {
		return "", nil
	}

	encoded := b64Data
	if idx := strings.Index(b64Data, ","); idx >= 0 {
		encoded = b64Data[idx+1:]
	}
	binary, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode signature: %w", err)
	}

	dir := SignatureDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create signature dir: %w", err)
	}

	// The transaction id is caller-supplied; strip anything that could walk
	// the filesystem.
	safeID := signatureIDSanitizer.ReplaceAllString(transactionID, "")
	filename := fmt.Sprintf("sig_%s_%s.png", safeID, uuid.New().String()[:8])
	if err := os.WriteFile(filepath.Join(dir, filename), binary, 0o644); err != nil {
		return "", fmt.Errorf("write signature: %w", err)
	}
	return filename, nil
}
