package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/datastore"
)

var (
	listFilter datastore.Filter
	listJSON   bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored walkthroughs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer b.Close()

		recs, err := b.transport.List(cmd.Context(), listFilter)
		if err != nil {
			return err
		}
		if listJSON {
			if recs == nil {
				recs = []datastore.Record{}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(recs)
		}
		if len(recs) == 0 {
			cmd.Println("no walkthroughs")
			return nil
		}
		for _, r := range recs {
			cmd.Printf("%s  %s  %5s  %3d steps  %s\n",
				r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), clock(r.DurationMs), r.StepCount, r.Name)
		}
		return nil
	},
}

func init() {
	f := listCmd.Flags()
	f.StringVar(&listFilter.CourseID, "course", "", "only walkthroughs of this course")
	f.StringVar(&listFilter.ChapterID, "chapter", "", "only walkthroughs of this chapter")
	f.StringVar(&listFilter.LessonID, "lesson", "", "only walkthroughs of this lesson")
	f.IntVar(&listFilter.Limit, "limit", 0, "maximum number of results (0 for all)")
	f.BoolVar(&listJSON, "json", false, "print JSON")
	rootCmd.AddCommand(listCmd)
}
