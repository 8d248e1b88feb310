package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/openlot/dealsync-go/internal/models"
	"github.com/openlot/dealsync-go/internal/store"
)

var (
	jobsStatus     string
	jobsAssignedTo string
	jobsRequeue    bool
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List or inspect scrape jobs",
	Long: `List scrape jobs or inspect a specific job by ID.

Examples:
  dealsync jobs                    # List all jobs
  dealsync jobs --status stuck     # Jobs the sweep flagged
  dealsync jobs abc12345           # Show details for one job
  dealsync jobs abc12345 --requeue # Put a stuck/failed job back in the queue`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func init() {
	jobsCmd.Flags().StringVar(&jobsStatus, "status", "", "filter by status (queued, scheduled, running, succeeded, failed, stuck)")
	jobsCmd.Flags().StringVar(&jobsAssignedTo, "assigned-to", "", "filter by assigned user")
	jobsCmd.Flags().BoolVar(&jobsRequeue, "requeue", false, "requeue the given stuck or failed job")
}

var statusStyles = map[models.JobStatus]lipgloss.Style{
	models.JobQueued:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	models.JobScheduled: lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	models.JobRunning:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	models.JobSucceeded: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	models.JobFailed:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	models.JobStuck:     lipgloss.NewStyle().Foreground(lipgloss.Color("201")),
}

func renderStatus(s models.JobStatus) string {
	if style, ok := statusStyles[s]; ok {
		return style.Render(string(s))
	}
	return string(s)
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if len(args) == 1 {
		if jobsRequeue {
			return requeueJob(ctx, args[0])
		}
		return showJob(ctx, args[0])
	}
	if jobsRequeue {
		return fmt.Errorf("--requeue needs a job ID")
	}
	return listJobs(ctx)
}

func listJobs(ctx context.Context) error {
	filter := store.JobFilter{AssignedUser: jobsAssignedTo}
	if jobsStatus != "" {
		status := models.JobStatus(jobsStatus)
		if !status.Valid() {
			return fmt.Errorf("unknown status: %s", jobsStatus)
		}
		filter.Status = status
	}

	jobs, err := getScheduler().List(ctx, filter)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("%-10s %-12s %-10s %-20s %s\n", "ID", "STATUS", "ASSIGNED", "CREATED", "URL")
	fmt.Println("--------------------------------------------------------------------------------")

	for _, job := range jobs {
		fmt.Printf("%-10s %-12s %-10s %-20s %s\n",
			job.ID,
			renderStatus(job.Status),
			job.AssignedUser,
			job.CreatedAt.Format("2006-01-02 15:04:05"),
			job.SourceURL)
	}
	return nil
}

func showJob(ctx context.Context, id string) error {
	job, err := getScheduler().Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("job not found: %s", id)
	}

	fmt.Printf("Job: %s\n", job.ID)
	fmt.Printf("  Status: %s\n", renderStatus(job.Status))
	fmt.Printf("  Organization: %s\n", job.Organization)
	fmt.Printf("  URL: %s\n", job.SourceURL)
	if job.AssignedUser != "" {
		fmt.Printf("  Assigned: %s\n", job.AssignedUser)
	}
	if job.ScheduledTime != nil {
		fmt.Printf("  Scheduled: %s\n", job.ScheduledTime.Format(time.RFC3339))
	}
	fmt.Printf("  Attempts: %d\n", job.Attempts)
	fmt.Printf("  Created: %s\n", job.CreatedAt.Format(time.RFC3339))
	fmt.Printf("  Updated: %s\n", job.UpdatedAt.Format(time.RFC3339))

	if job.VehicleID != "" {
		fmt.Printf("  Vehicle: %s\n", job.VehicleID)
	}
	if job.Error != "" {
		fmt.Printf("  Error: %s\n", failedStyle.Render(job.Error))
	}
	return nil
}

func requeueJob(ctx context.Context, id string) error {
	job, err := getScheduler().Requeue(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("Job %s requeued (status %s)\n", job.ID, renderStatus(job.Status))
	return nil
}
