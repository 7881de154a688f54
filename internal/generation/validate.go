package generation

import (
	"bytes"
	"encoding/json"
	"strings"
)

// VideoFile describes the generated video. Only URL is guaranteed.
type VideoFile struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
	FileName    string `json:"file_name,omitempty"`
	FileSize    int64  `json:"file_size,omitempty"`
}

// Result is the validated terminal payload of a successful job.
type Result struct {
	Video VideoFile
	// Raw is the normalized payload, after unwrapping any "data" envelope.
	Raw json.RawMessage
}

// ValidationError reports why a terminal payload was unusable.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Validate normalizes a raw terminal response and checks that it describes
// a video with a URL. The payload may sit at the top level or under "data".
func Validate(raw json.RawMessage) (Result, error) {
	payload, err := normalizePayload(raw)
	if err != nil {
		return Result{}, err
	}

	videoRaw, ok := payload["video"]
	if !ok || isNull(videoRaw) {
		return Result{}, &ValidationError{Reason: "video descriptor missing"}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(videoRaw, &fields); err != nil {
		return Result{}, &ValidationError{Reason: "video descriptor is not an object"}
	}

	var video VideoFile
	if rawURL, ok := fields["url"]; ok {
		_ = json.Unmarshal(rawURL, &video.URL)
	}
	video.URL = strings.TrimSpace(video.URL)
	if video.URL == "" {
		return Result{}, &ValidationError{Reason: "video url missing"}
	}
	// Optional fields are best effort; a malformed one is dropped.
	if v, ok := fields["content_type"]; ok {
		_ = json.Unmarshal(v, &video.ContentType)
	}
	if v, ok := fields["file_name"]; ok {
		_ = json.Unmarshal(v, &video.FileName)
	}
	if v, ok := fields["file_size"]; ok {
		_ = json.Unmarshal(v, &video.FileSize)
	}

	normalized, err := json.Marshal(payload)
	if err != nil {
		normalized = nil
	}
	return Result{Video: video, Raw: normalized}, nil
}

// normalizePayload is the only place that knows about the "data" envelope.
func normalizePayload(raw json.RawMessage) (map[string]json.RawMessage, error) {
	if isNull(raw) {
		return nil, &ValidationError{Reason: "payload missing"}
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil || top == nil {
		return nil, &ValidationError{Reason: "payload is not an object"}
	}
	data, ok := top["data"]
	if !ok || isNull(data) {
		return top, nil
	}
	var nested map[string]json.RawMessage
	if err := json.Unmarshal(data, &nested); err != nil || nested == nil {
		return nil, &ValidationError{Reason: "data payload is not an object"}
	}
	return nested, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func compactOrNull(raw json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return []byte("null")
	}
	return buf.Bytes()
}
