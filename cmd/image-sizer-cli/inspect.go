package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"image-sizer-go/internal/domain/ico"
	"image-sizer-go/internal/utils"
)

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.ico>",
		Short: "List the members of an icon container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			entries, err := ico.Parse(data)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d images, %s\n", args[0], len(entries), utils.HumanBytes(int64(len(data))))
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tSIZE\tBPP\tOFFSET\tBYTES")
			for i, e := range entries {
				fmt.Fprintf(tw, "%d\t%dx%d\t%d\t%d\t%d\n", i, e.Width, e.Height, e.BitsPerPixel, e.Offset, len(e.Data))
			}
			return tw.Flush()
		},
	}
}
