package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the stuck-job sweep once",
	Long: `Run one pass of the stuck-job sweep.

Scheduled jobs whose scheduled time passed more than the grace window ago
are marked stuck. The sweep never touches jobs that have been claimed or
finished, and running it again is a no-op for already-stuck jobs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := getScheduler().Sweep(cmd.Context(), time.Now())
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Println("No stuck jobs found")
		} else {
			fmt.Printf("Marked %d job(s) stuck\n", n)
		}
		return nil
	},
}
