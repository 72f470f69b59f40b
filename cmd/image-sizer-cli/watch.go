package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"image-sizer-go/internal/inbox"
)

func (c *cli) watchCmd() *cobra.Command {
	var (
		dir        string
		outDir     string
		sizeIDs    []string
		categories []string
		existing   bool
		asZip      bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Render every image dropped into a directory",
		Long: `Watch a directory and render each new image into the selected sizes.
Outputs for <name>.<ext> are written to <out>/<name>/. Flags override the
watch section of the configuration file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.build(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			wc := app.Config.Watch
			if dir == "" {
				dir = wc.Dir
			}
			if outDir == "" {
				outDir = wc.OutDir
			}
			if len(sizeIDs) == 0 && len(categories) == 0 {
				sizeIDs = wc.SizeIDs
			}
			if dir == "" {
				return fmt.Errorf("no watch directory: pass --dir or set watch.dir")
			}
			if outDir == "" {
				outDir = filepath.Join(dir, "resized")
			}
			ids, err := selectSizes(app.Catalog, sizeIDs, categories)
			if err != nil {
				return err
			}

			logger := app.Logger
			process := func(ctx context.Context, path string) error {
				source, err := readSource(ctx, app, path)
				if err != nil {
					return err
				}
				name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
				res, err := renderTo(ctx, app, source, ids, filepath.Join(outDir, name), asZip, nil)
				if res != nil {
					for _, n := range res.notices() {
						logger.WarnTag("CLI", "%s: %s", filepath.Base(path), n)
					}
					for _, o := range res.Snapshot.Outputs {
						logger.DebugTag("CLI", "%s", describeOutput(o))
					}
				}
				if err != nil {
					return err
				}
				for _, p := range res.Written {
					fmt.Fprintln(cmd.OutOrStdout(), p)
				}
				return nil
			}

			w, err := inbox.New(inbox.Options{
				Dir:          dir,
				ScanExisting: existing,
				Process:      process,
				Logger:       logger,
			})
			if err != nil {
				return err
			}
			logger.InfoTag("CLI", "watching %s for images, writing to %s", w.Dir(), outDir)
			fmt.Fprintf(cmd.ErrOrStderr(), "watching %s (ctrl-c to stop)\n", w.Dir())
			return w.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory to watch")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default <dir>/resized)")
	cmd.Flags().StringSliceVarP(&sizeIDs, "sizes", "s", nil, "Size ids to render")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "Render every preset in these categories")
	cmd.Flags().BoolVar(&existing, "existing", false, "Also render images already in the directory")
	cmd.Flags().BoolVar(&asZip, "zip", false, "Write one archive per image")
	return cmd
}
