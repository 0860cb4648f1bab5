package main

import (
	"github.com/spf13/cobra"

	"github.com/jobayadurrasid/Smart-Campus/internal/service"
)

func newDecodeIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode-id <person-id>",
		Short: "Split a person id into year, role, department and sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parts, err := service.DecodePersonID(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), parts)
		},
	}
}
