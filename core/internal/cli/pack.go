package cli

import (
	"fmt"
	"os"

	"github.com/inhies/go-bytesize"
	"github.com/spf13/cobra"

	"drfeedback/bundle"
	"drfeedback/core/internal/output"
)

func NewPackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pack <dir> <bundle.tar.gz>",
		Short: "Bundle the files of a directory into a feedback archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := output.EnsureParent(args[1]); err != nil {
				return err
			}
			f, err := os.Create(args[1])
			if err != nil {
				return err
			}

			n, err := bundle.Pack(f, args[0])
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				_ = os.Remove(args[1])
				return err
			}

			st, err := os.Stat(args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "bundle=%s files=%d size=%s\n", args[1], n, bytesize.New(float64(st.Size())))
			return nil
		},
	}
}
