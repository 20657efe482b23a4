package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/glance"
	"github.com/aretw0/glance/pkg/adapters/lifecycle"
	"github.com/aretw0/glance/pkg/core"
)

var (
	runImages     []string
	runCaptureCmd string
	runOCRCmd     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an interactive capture session",
	Long: `Run a capture session driven by stdin:

  <enter> or c   capture a photo
  s              print the current state
  p              request camera permission
  q              quit

Events are printed as they happen. The session ends on q, EOF or a signal,
and any photo still on display is deleted.`,
	Run: func(cmd *cobra.Command, args []string) {
		var extra []glance.Option
		if len(runImages) > 0 {
			extra = append(extra, glance.WithSourceImages(runImages...))
		} else if runCaptureCmd != "" {
			extra = append(extra, glance.WithCaptureCommand(runCaptureCmd))
		}
		if runOCRCmd != "" {
			extra = append(extra, glance.WithRecognizer(glance.CommandRecognizer(runOCRCmd)))
		}
		opts, err := sessionOptions(extra...)
		if err != nil {
			fatal("Failed to load config", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := glance.New(ctx, opts...)
		if err != nil {
			fatal("Failed to start session", err)
		}

		done := make(chan struct{})
		src := lifecycle.NewEventSource(s.Coordinator())
		if err := src.Start(ctx); err != nil {
			fatal("Failed to subscribe to events", err)
		}
		go func() {
			defer close(done)
			for e := range src.Events() {
				fmt.Fprintln(cmd.OutOrStdout(), e.String())
			}
		}()

		fmt.Fprintf(cmd.ErrOrStderr(), "session started in %s (enter: capture, s: state, q: quit)\n", s.CacheDir())
		interact(ctx, os.Stdin, cmd.OutOrStdout(), s.Coordinator())

		if err := s.Close(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("failed to close session", "error", err)
		}
		<-done
	},
}

// interact dispatches stdin commands until q, EOF or ctx is done.
func interact(ctx context.Context, in io.Reader, out io.Writer, coord *core.Coordinator) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			switch line {
			case "", "c":
				if !coord.RequestCapture() {
					if err := coord.Err(); err != nil {
						fmt.Fprintln(out, "capture refused:", err)
					} else {
						fmt.Fprintln(out, "capture already in progress")
					}
				}
			case "s":
				printState(out, coord.CurrentState())
			case "p":
				fmt.Fprintln(out, "granted:", coord.RequestPermission(ctx))
			case "q":
				return
			default:
				fmt.Fprintf(out, "unknown command %q\n", line)
			}
		}
	}
}

func printState(out io.Writer, st core.State) {
	headers := []string{"Phase", "Artifact", "Expires", "Text", "Error"}
	row := []string{string(st.Phase), "", "", "", st.LastError}
	if st.Artifact != nil {
		row[1] = st.Artifact.Path
		if st.Artifact.Vanished {
			row[1] += " (vanished)"
		}
		row[2] = st.Artifact.ExpiresAt.Format("15:04:05")
	}
	if st.Result != nil {
		row[3] = st.Result.Text
	}
	printRows(out, headers, [][]string{row}, nil)
}

func init() {
	runCmd.Flags().StringSliceVar(&runImages, "image", nil, "Use these image files instead of a camera")
	runCmd.Flags().StringVar(&runCaptureCmd, "capture-cmd", "", "Capture command, {path} is the output file")
	runCmd.Flags().StringVar(&runOCRCmd, "ocr-cmd", "", "OCR command, {path} is the photo")
	rootCmd.AddCommand(runCmd)
}
