package generation

import (
	"strings"
)

// DefaultPrompt is sent when the caller leaves the prompt empty.
const DefaultPrompt = "Generate ambient background sound that fits the video's content"

// Request is an immutable generation request. Build it with NewRequest.
type Request struct {
	videoURL  string
	prompt    string
	defaulted bool
}

// Input is the payload shape the generation service expects.
type Input struct {
	VideoURL string `json:"video_url"`
	Prompt   string `json:"prompt"`
}

// NewRequest validates the video reference and applies the default prompt.
// It performs no I/O. A prompt is only inspected for emptiness; anything
// else is passed through untouched.
func NewRequest(videoURL, prompt string) (Request, error) {
	if strings.TrimSpace(videoURL) == "" {
		return Request{}, ErrMissingVideoURL
	}
	req := Request{videoURL: videoURL, prompt: prompt}
	if strings.TrimSpace(prompt) == "" {
		req.prompt = DefaultPrompt
		req.defaulted = true
	}
	return req, nil
}

// VideoURL returns the source video reference.
func (r Request) VideoURL() string { return r.videoURL }

// Prompt returns the effective prompt.
func (r Request) Prompt() string { return r.prompt }

// UsesDefaultPrompt reports whether the caller's prompt was replaced.
func (r Request) UsesDefaultPrompt() bool { return r.defaulted }

// Input returns the wire payload for the generation service.
func (r Request) Input() Input {
	return Input{VideoURL: r.videoURL, Prompt: r.prompt}
}

// PromptPreview shortens the prompt for log lines.
func (r Request) PromptPreview() string {
	if r.defaulted {
		return "default"
	}
	const max = 50
	runes := []rune(r.prompt)
	if len(runes) <= max {
		return r.prompt
	}
	return string(runes[:max]) + "..."
}

func (r Request) valid() bool {
	return strings.TrimSpace(r.videoURL) != "" && r.prompt != ""
}
