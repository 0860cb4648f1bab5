package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jobayadurrasid/Smart-Campus/internal/dto"
)

func newShowCmd(configPath *string) *cobra.Command {
	var (
		year     int
		semester string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:       "show <group|teacher|student> <id>",
		Short:     "Print a timetable ordered by day and start time",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"group", "teacher", "student"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			query := a.services().Query
			ctx := cmd.Context()

			var list []dto.ScheduleEntryResponse
			switch args[0] {
			case "group":
				list, err = query.ForGroup(ctx, args[1], year, semester)
			case "teacher":
				list, err = query.ForTeacher(ctx, args[1], year, semester)
			case "student":
				list, err = query.ForStudent(ctx, args[1], year, semester)
			default:
				return fmt.Errorf("unknown scope %q, want group, teacher or student", args[0])
			}
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), list)
			}
			return printEntries(cmd.OutOrStdout(), list)
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "Academic year, e.g. 2025 (required)")
	cmd.Flags().StringVar(&semester, "semester", "", "FALL or SPRING (required)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("semester")
	return cmd
}

func printEntries(w io.Writer, list []dto.ScheduleEntryResponse) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDAY\tTIME\tCOURSE\tTEACHER\tGROUP\tACTIVE")
	for _, e := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s-%s\t%s\t%s\t%s\t%t\n",
			e.ID, e.DayName, e.StartTime, e.EndTime, e.CourseID,
			deref(e.TeacherID), deref(e.GroupCode), e.IsActive)
	}
	return tw.Flush()
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
