package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"image-sizer-go/internal/domain/sizes"
)

func (c *cli) presetsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "presets [category]",
		Short: "List the preset sizes, optionally for one category",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.build(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			catalog := app.Catalog
			var specs []sizes.SizeSpec
			if len(args) == 1 {
				var ok bool
				if specs, ok = catalog.ByCategory(args[0]); !ok {
					return fmt.Errorf("unknown category %q", args[0])
				}
			} else {
				specs = catalog.All()
			}

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := sonic.ConfigStd.MarshalIndent(specs, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCATEGORY\tSIZE\tFILE\tLABEL")
			for _, s := range specs {
				size := fmt.Sprintf("%dx%d", s.Width, s.Height)
				if s.Format == sizes.FormatICO {
					size = fmt.Sprint(s.IconResolutions)
				}
				if s.Maskable {
					size += " maskable"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Category, size, s.Filename, s.Label)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}
