package main

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"vidsound/internal/bootstrap"
	"vidsound/internal/generation"
)

var errGenerationDisabled = errors.New("audio generation is disabled: set FAL_KEY")

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var videoURL string
	var prompt string
	var deadline time.Duration

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate ambient audio for a video URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := generation.NewRequest(videoURL, prompt)
			if err != nil {
				return err
			}
			return ctx.withServices(cmd, false, func(svc *bootstrap.Services) error {
				if svc.Supervisor == nil {
					return errGenerationDisabled
				}
				if deadline <= 0 {
					deadline = svc.Config.GenerationTimeout
				}
				out := cmd.OutOrStdout()

				progress := make(chan generation.Progress, 32)
				var wg sync.WaitGroup
				wg.Add(1)
				go func() {
					defer wg.Done()
					for p := range progress {
						fmt.Fprintf(out, "[%s] %s\n", p.Status, p.Message)
					}
				}()

				outcome := svc.Supervisor.Run(cmd.Context(), req, deadline, progress)
				// Run never sends after returning.
				close(progress)
				wg.Wait()

				if err := outcome.Err(); err != nil {
					return err
				}
				fmt.Fprintln(out, outcome.ArtifactURL)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&videoURL, "video-url", "", "URL of the source video (required)")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Describe the ambient sound; a default prompt is used when empty")
	cmd.Flags().DurationVar(&deadline, "deadline", 0, "Overall time limit (defaults to GENERATION_TIMEOUT_SECONDS)")
	_ = cmd.MarkFlagRequired("video-url")
	return cmd
}
