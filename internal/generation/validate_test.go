package generation

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsBothShapes(t *testing.T) {
	descriptor := `{"url":"https://cdn/out123.mp4","content_type":"video/mp4","file_name":"out123.mp4","file_size":2048}`

	top, err := Validate(json.RawMessage(`{"video":` + descriptor + `}`))
	require.NoError(t, err)
	nested, err := Validate(json.RawMessage(`{"data":{"video":` + descriptor + `},"requestId":"req-1"}`))
	require.NoError(t, err)

	assert.Equal(t, top, nested)
	assert.Equal(t, VideoFile{
		URL:         "https://cdn/out123.mp4",
		ContentType: "video/mp4",
		FileName:    "out123.mp4",
		FileSize:    2048,
	}, top.Video)
}

func TestValidateRejectsUnusablePayloads(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		reason string
	}{
		{name: "empty", raw: ``, reason: "payload missing"},
		{name: "null", raw: `null`, reason: "payload missing"},
		{name: "not an object", raw: `"done"`, reason: "payload is not an object"},
		{name: "missing video", raw: `{"seed":42}`, reason: "video descriptor missing"},
		{name: "null video", raw: `{"video":null}`, reason: "video descriptor missing"},
		{name: "nested missing video", raw: `{"data":{"seed":42}}`, reason: "video descriptor missing"},
		{name: "missing url", raw: `{"video":{"content_type":"video/mp4"}}`, reason: "video url missing"},
		{name: "empty url", raw: `{"video":{"url":""}}`, reason: "video url missing"},
		{name: "blank url", raw: `{"data":{"video":{"url":"   "}}}`, reason: "video url missing"},
		{name: "non-string url", raw: `{"video":{"url":7}}`, reason: "video url missing"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Validate(json.RawMessage(tc.raw))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.reason, verr.Reason)
		})
	}
}

func TestValidateOptionalFieldsAreBestEffort(t *testing.T) {
	result, err := Validate(json.RawMessage(`{"video":{"url":"https://cdn/x.mp4","file_size":"big","file_name":null}}`))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/x.mp4", result.Video.URL)
	assert.Zero(t, result.Video.FileSize)
	assert.Empty(t, result.Video.FileName)
}
