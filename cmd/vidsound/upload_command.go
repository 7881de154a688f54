package main

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"vidsound/internal/bootstrap"
	"vidsound/internal/storage"
)

var videoContentTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
}

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var contentType string
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a video and print its URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			info, err := os.Stat(absPath)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("file does not exist: %s", absPath)
				}
				return fmt.Errorf("inspect file: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", absPath)
			}
			if contentType == "" {
				contentType = contentTypeForPath(absPath)
			}

			return ctx.withServices(cmd, false, func(svc *bootstrap.Services) error {
				if err := svc.Policy.Check(contentType, info.Size()); err != nil {
					return err
				}
				data, err := os.ReadFile(absPath)
				if err != nil {
					return fmt.Errorf("read file: %w", err)
				}
				url, err := svc.Store.Upload(cmd.Context(), storage.Asset{
					Name:        filepath.Base(absPath),
					ContentType: contentType,
					Data:        data,
				})
				if err != nil {
					return fmt.Errorf("upload: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), url)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "Override the content type inferred from the file extension")
	return cmd
}

func contentTypeForPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := videoContentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
