// Package models defines the upload-session data model and the payload
// encoding shared by server and client.
package models

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	dErrors "handoff/pkg/domain-errors"
)

// UploadSession is one slot in the relay store. At most one payload exists per
// sid; a resubmission overwrites, never appends.
type UploadSession struct {
	SID       string    `json:"sid"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubmitRequest is the body the secondary device PUTs to /uploads/{sid}.
type SubmitRequest struct {
	Payload string `json:"payload"`
}

// FetchResponse is returned by GET /uploads/{sid}. Found=false is the normal
// keep-polling signal, not an error.
type FetchResponse struct {
	Found   bool   `json:"found"`
	Payload string `json:"payload,omitempty"`
}

// AckResponse acknowledges a submit or delete.
type AckResponse struct {
	OK bool `json:"ok"`
}

const dataURIPrefix = "data:image/"

// allowedImageTypes lists the image subtypes a phone camera flow produces.
var allowedImageTypes = map[string]bool{
	"png":  true,
	"jpeg": true,
	"jpg":  true,
	"gif":  true,
	"webp": true,
}

// ValidatePayload checks that payload is a recognizable base64 image data URI
// no larger than maxBytes (encoded size). Returns a bad_request domain error on
// any violation; the store must stay untouched when validation fails.
func ValidatePayload(payload string, maxBytes int64) error {
	if payload == "" {
		return dErrors.New(dErrors.CodeBadRequest, "payload must not be empty")
	}
	if maxBytes > 0 && int64(len(payload)) > maxBytes {
		return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("payload exceeds %d bytes", maxBytes))
	}
	if _, _, err := DecodePayload(payload); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, err.Error())
	}
	return nil
}

// DecodePayload splits a data URI into its image subtype and decoded bytes.
func DecodePayload(payload string) (imageType string, data []byte, err error) {
	if !strings.HasPrefix(payload, dataURIPrefix) {
		return "", nil, fmt.Errorf("payload is not an image data URI")
	}
	rest := strings.TrimPrefix(payload, dataURIPrefix)
	imageType, b64, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return "", nil, fmt.Errorf("payload is not base64 encoded")
	}
	if !allowedImageTypes[imageType] {
		return "", nil, fmt.Errorf("unsupported image type %q", imageType)
	}
	data, err = base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", nil, fmt.Errorf("payload base64 is malformed")
	}
	return imageType, data, nil
}

// EncodePayload builds the data URI for raw image bytes. The inverse of
// DecodePayload; used by the CLI's simulated submission.
func EncodePayload(imageType string, data []byte) string {
	return dataURIPrefix + imageType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
