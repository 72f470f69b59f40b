package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"image-sizer-go/internal/bootstrap"
	"image-sizer-go/internal/domain/archive"
	"image-sizer-go/internal/domain/eventbus"
	domainimage "image-sizer-go/internal/domain/image"
	"image-sizer-go/internal/domain/job"
	"image-sizer-go/internal/domain/sizes"
	"image-sizer-go/internal/utils"
)

var errNoSizes = errors.New("no sizes selected")

func (c *cli) resizeCmd() *cobra.Command {
	var (
		sizeIDs    []string
		categories []string
		outDir     string
		asZip      bool
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "resize <image>",
		Short: "Render an image into the selected sizes",
		Example: `  image-sizer-cli resize logo.png --category favicon --out ./icons
  image-sizer-cli resize logo.png -s favicon-32,custom-300x120 --zip`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.build(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			ids, err := selectSizes(app.Catalog, sizeIDs, categories)
			if err != nil {
				return err
			}
			source, err := readSource(cmd.Context(), app, args[0])
			if err != nil {
				return fmt.Errorf("read source: %w", err)
			}

			out := cmd.OutOrStdout()
			var progress func(eventbus.ProgressEvent)
			if !quiet {
				progress = progressPrinter(cmd.ErrOrStderr())
			}

			res, err := renderTo(cmd.Context(), app, source, ids, outDir, asZip, progress)
			if res != nil {
				for _, n := range res.notices() {
					fmt.Fprintln(cmd.ErrOrStderr(), n)
				}
			}
			if err != nil {
				return err
			}
			for _, p := range res.Written {
				fmt.Fprintln(out, p)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&sizeIDs, "sizes", "s", nil, "Size ids to render (preset ids or custom-WxH)")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "Render every preset in these categories")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
	cmd.Flags().BoolVar(&asZip, "zip", false, "Write a single "+archive.Filename+" instead of separate files")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print progress")
	return cmd
}

// selectSizes expands categories into their preset ids and appends the explicit ids.
func selectSizes(catalog *sizes.Catalog, ids, categories []string) ([]string, error) {
	var out []string
	for _, category := range categories {
		specs, ok := catalog.ByCategory(strings.TrimSpace(category))
		if !ok {
			return nil, fmt.Errorf("unknown category %q", category)
		}
		for _, s := range specs {
			out = append(out, s.ID)
		}
	}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil, errNoSizes
	}
	return out, nil
}

// readSource loads path through the image pipeline, so oversized files and
// non-images are refused before a job is submitted.
func readSource(ctx context.Context, app *bootstrap.App, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return app.Pipeline.Ingest(ctx, domainimage.Input{Reader: f, Source: path})
}

type renderResult struct {
	Snapshot job.Snapshot
	Written  []string
}

func (r *renderResult) notices() []string {
	s := r.Snapshot
	var lines []string
	if len(s.Unrecognized) > 0 {
		lines = append(lines, "ignored unrecognized sizes: "+strings.Join(s.Unrecognized, ", "))
	}
	for _, w := range s.Warnings {
		lines = append(lines, "warning: "+w)
	}
	for _, f := range s.Failures {
		lines = append(lines, fmt.Sprintf("failed %s: %s", f.Label, f.Reason))
	}
	return lines
}

// renderTo runs one job to completion and writes its outputs under outDir.
// The job is discarded afterwards so its handles do not outlive the command.
func renderTo(
	ctx context.Context,
	app *bootstrap.App,
	source []byte,
	ids []string,
	outDir string,
	asZip bool,
	progress func(eventbus.ProgressEvent),
) (*renderResult, error) {
	snap, err := app.Jobs.Submit(ctx, job.SubmitRequest{Source: source, SizeIDs: ids})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = app.Jobs.Discard(context.WithoutCancel(ctx), snap.ID)
	}()

	if progress != nil {
		if ch, stop, err := app.Jobs.Watch(snap.ID); err == nil {
			follow(ctx, ch, progress)
			stop()
		}
	}

	done, err := app.Jobs.Wait(ctx, snap.ID)
	res := &renderResult{Snapshot: done}
	if err != nil {
		return res, err
	}
	if done.State != job.StateComplete {
		return res, fmt.Errorf("job %s: %s", done.State, done.Err)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return res, fmt.Errorf("create output dir: %w", err)
	}

	if asZip {
		bundle, err := app.Jobs.Archive(ctx, snap.ID)
		if err != nil {
			return res, err
		}
		path := filepath.Join(outDir, bundle.Filename)
		if err := os.WriteFile(path, bundle.Content, 0o644); err != nil {
			return res, fmt.Errorf("write %s: %w", bundle.Filename, err)
		}
		res.Written = append(res.Written, path)
		return res, nil
	}

	for _, o := range done.Outputs {
		file, err := app.Jobs.File(ctx, snap.ID, o.Filename)
		if err != nil {
			return res, err
		}
		path := filepath.Join(outDir, o.Filename)
		if err := os.WriteFile(path, file.Content, 0o644); err != nil {
			return res, fmt.Errorf("write %s: %w", o.Filename, err)
		}
		res.Written = append(res.Written, path)
	}
	return res, nil
}

func follow(ctx context.Context, ch <-chan eventbus.ProgressEvent, fn func(eventbus.ProgressEvent)) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			fn(e)
		}
	}
}

func progressPrinter(w io.Writer) func(eventbus.ProgressEvent) {
	return func(e eventbus.ProgressEvent) {
		if e.Total == 0 {
			return
		}
		fmt.Fprintf(w, "[%d/%d] %s\n", e.Completed, e.Total, e.CurrentLabel)
	}
}

func describeOutput(o job.OutputInfo) string {
	return fmt.Sprintf("%-36s %5dx%-5d %s", o.Filename, o.Width, o.Height, utils.HumanBytes(int64(o.Size)))
}
