package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"vidsound/internal/middleware"
	"vidsound/internal/storage"
)

const (
	uploadField       = "video"
	multipartOverhead = 1 << 20
	multipartMemory   = 32 << 20
)

type uploadResponse struct {
	VideoURL string `json:"videoUrl"`
}

func (a *App) UploadVideo(w http.ResponseWriter, r *http.Request) {
	if a.Store == nil {
		a.error(w, http.StatusServiceUnavailable, "Video storage is not configured", nil)
		return
	}
	if a.Policy.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, a.Policy.MaxBytes+multipartOverhead)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "Video exceeds the upload size limit", nil)
			return
		}
		a.error(w, http.StatusBadRequest, "No video file provided", nil)
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		a.error(w, http.StatusBadRequest, "No video file provided", nil)
		return
	}
	defer file.Close()

	logger := a.Logger.With().
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Str("file_name", header.Filename).
		Int64("size", header.Size).
		Logger()

	contentType := detectContentType(header.Header.Get("Content-Type"), header.Filename)
	if err := a.Policy.Check(contentType, header.Size); err != nil {
		logger.Warn().Err(err).Str("content_type", contentType).Msg("upload: rejected by policy")
		switch {
		case errors.Is(err, storage.ErrTooLarge):
			a.error(w, http.StatusRequestEntityTooLarge, "Video exceeds the upload size limit", nil)
		case errors.Is(err, storage.ErrUnsupportedType):
			a.error(w, http.StatusUnsupportedMediaType, "Unsupported video type: "+contentType, nil)
		default:
			a.error(w, http.StatusBadRequest, "No video file provided", nil)
		}
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		logger.Error().Err(err).Msg("upload: read file")
		a.error(w, http.StatusBadRequest, "Failed to read uploaded video", nil)
		return
	}

	url, err := a.Store.Upload(r.Context(), storage.Asset{
		Name:        header.Filename,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		logger.Error().Err(err).Msg("upload: store failed")
		a.error(w, http.StatusInternalServerError, "Failed to upload video", quoteDetails(err.Error()))
		return
	}

	logger.Info().Str("video_url", url).Str("content_type", contentType).Msg("upload: stored")
	a.json(w, http.StatusOK, uploadResponse{VideoURL: url})
}

var videoExtensions = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
}

// detectContentType prefers the part header and falls back to the file extension.
func detectContentType(declared, fileName string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if byExt, ok := videoExtensions[ext]; ok {
		return byExt
	}
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		return byExt
	}
	if declared != "" {
		return declared
	}
	return "application/octet-stream"
}

func quoteDetails(s string) json.RawMessage {
	quoted, _ := json.Marshal(s)
	return quoted
}
