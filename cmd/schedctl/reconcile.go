package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jobayadurrasid/Smart-Campus/internal/dto"
)

func newReconcileCmd(configPath *string) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Submit a group timetable plan from a JSON file (- for stdin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readPlan(cmd, file)
			if err != nil {
				return err
			}

			a, err := openApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.services().GroupSchedule.Reconcile(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Plan file in the POST /schedules/group body format (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// readPlan 读取与 HTTP 接口同构的提交体
func readPlan(cmd *cobra.Command, file string) (*dto.ReconcileGroupScheduleRequest, error) {
	var r io.Reader
	if file == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("open plan: %w", err)
		}
		defer f.Close()
		r = f
	}

	var req dto.ReconcileGroupScheduleRequest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	return &req, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
