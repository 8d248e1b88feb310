package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openlot/dealsync-go/internal/models"
	"github.com/openlot/dealsync-go/internal/store"
)

var statsOrg string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show inventory and job counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		vehicles, err := dbClient.CountVehicles(ctx, statsOrg)
		if err != nil {
			return fmt.Errorf("count vehicles: %w", err)
		}
		fmt.Printf("Organization: %s\n", boldStyle.Render(statsOrg))
		fmt.Printf("  Vehicles: %d\n", vehicles)

		fmt.Println("  Jobs:")
		for _, status := range []models.JobStatus{
			models.JobQueued, models.JobScheduled, models.JobRunning,
			models.JobSucceeded, models.JobFailed, models.JobStuck,
		} {
			jobs, err := dbClient.ListJobs(ctx, store.JobFilter{Organization: statsOrg, Status: status})
			if err != nil {
				return fmt.Errorf("list %s jobs: %w", status, err)
			}
			if len(jobs) == 0 {
				continue
			}
			fmt.Printf("    %-10s %d\n", renderStatus(status), len(jobs))
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsOrg, "org", "default", "organization to report on")
}
