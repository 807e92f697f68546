package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/viant/mlvec/version"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Parse and compare dotted server versions",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "parse VERSION",
			Short: "Print the canonical major.minor.patch.build form",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, ok := version.Parse(args[0])
				if !ok {
					return fmt.Errorf("cannot parse version %q", args[0])
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), v)
				return err
			},
		},
		&cobra.Command{
			Use:   "compare A B",
			Short: "Print the sign of comparing version A with version B",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				cmp, err := version.CompareStrings(args[0], args[1])
				if err != nil {
					return err
				}
				sign := 0
				switch {
				case cmp < 0:
					sign = -1
				case cmp > 0:
					sign = 1
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), sign)
				return err
			},
		},
	)
	return cmd
}
