package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/glance"
	"github.com/aretw0/glance/pkg/core"
)

const defaultOCRCommand = "tesseract {path} stdout"

var (
	scanImages     []string
	scanCaptureCmd string
	scanOCRCmd     string
	scanTimeout    time.Duration
	scanJSON       bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Capture one photo, print its text, and delete the photo",
	Long: `Capture a single photo (from --image files or the capture command), run OCR
on it and print the recognized text. The photo is deleted before exiting.`,
	Run: func(cmd *cobra.Command, args []string) {
		var extra []glance.Option
		if len(scanImages) > 0 {
			extra = append(extra, glance.WithSourceImages(scanImages...))
		} else if scanCaptureCmd != "" {
			extra = append(extra, glance.WithCaptureCommand(scanCaptureCmd))
		}
		if scanOCRCmd != "" {
			extra = append(extra, glance.WithRecognizer(glance.CommandRecognizer(scanOCRCmd)))
		}

		cfg, err := loadConfig()
		if err != nil {
			fatal("Failed to load config", err)
		}
		if scanOCRCmd == "" && cfg.RecognizeCommand == "" {
			extra = append(extra, glance.WithRecognizer(glance.CommandRecognizer(defaultOCRCommand)))
		}

		opts, err := sessionOptions(extra...)
		if err != nil {
			fatal("Failed to load config", err)
		}

		ctx := cmd.Context()
		s, err := glance.New(ctx, opts...)
		if err != nil {
			fatal("Failed to start session", err)
		}

		st, err := scanOnce(ctx, s.Coordinator(), scanTimeout)
		if closeErr := s.Close(context.WithoutCancel(ctx)); closeErr != nil {
			slog.Warn("failed to close session", "error", closeErr)
		}
		if err != nil {
			fatal("Scan failed", err)
		}

		if scanJSON {
			if err := printJSON(os.Stdout, st); err != nil {
				fatal("Failed to encode result", err)
			}
			return
		}
		fmt.Println(st.Result.Text)
	},
}

// scanOnce runs one capture cycle and returns the state once recognition
// has finished.
func scanOnce(ctx context.Context, coord *core.Coordinator, timeout time.Duration) (core.State, error) {
	if !coord.CurrentState().Granted && !coord.RequestPermission(ctx) {
		return core.State{}, core.ErrPermissionDenied
	}
	if !coord.RequestCapture() {
		if err := coord.Err(); err != nil {
			return core.State{}, err
		}
		return core.State{}, fmt.Errorf("capture did not start")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	events := coord.Events()
	for {
		select {
		case <-ctx.Done():
			return core.State{}, fmt.Errorf("waiting for text: %w", ctx.Err())
		case e, ok := <-events:
			if !ok {
				return core.State{}, core.ErrTerminated
			}
			slog.Debug("event", "event", e.String())
			switch e.Type {
			case core.EventRecognized:
				return coord.CurrentState(), nil
			case core.EventCaptureFailed, core.EventRecognitionFailed:
				return coord.CurrentState(), coord.Err()
			}
		}
	}
}

func init() {
	scanCmd.Flags().StringSliceVar(&scanImages, "image", nil, "Use these image files instead of a camera")
	scanCmd.Flags().StringVar(&scanCaptureCmd, "capture-cmd", "", "Capture command, {path} is the output file")
	scanCmd.Flags().StringVar(&scanOCRCmd, "ocr-cmd", "", "OCR command, {path} is the photo (default \""+defaultOCRCommand+"\")")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 30*time.Second, "How long to wait for the text")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Print the final state as JSON")
	rootCmd.AddCommand(scanCmd)
}
