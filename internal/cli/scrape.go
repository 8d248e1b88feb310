package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/openlot/dealsync-go/internal/service"
)

var (
	scrapeOrg      string
	scrapeUser     string
	scrapeURLsFile string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape [url]...",
	Short: "Scrape listing URLs into the inventory",
	Long: `Scrape one or more listing URLs and sync them into the inventory.

URLs are processed sequentially against the source site. Each URL gets its
own job and its own line in the report; a failing URL never aborts the
rest of the batch. Listings that already exist (matched by VIN or listing
URL) are reported as skipped.

Examples:
  dealsync scrape https://mydealer.edealer.ca/vehicles/2023-hyundai-elantra-9921
  dealsync scrape --file urls.txt --org lot42
  dealsync scrape --user sales-1 https://mydealer.edealer.ca/vehicles/123`,
	Args: cobra.ArbitraryArgs,
	RunE: runScrape,
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeOrg, "org", "default", "organization the vehicles belong to")
	scrapeCmd.Flags().StringVarP(&scrapeUser, "user", "u", "", "user the scrape jobs are assigned to")
	scrapeCmd.Flags().StringVarP(&scrapeURLsFile, "file", "f", "", "file with one listing URL per line")
}

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	boldStyle    = lipgloss.NewStyle().Bold(true)
)

func runScrape(cmd *cobra.Command, args []string) error {
	urls := args
	if scrapeURLsFile != "" {
		fromFile, err := readURLsFile(scrapeURLsFile)
		if err != nil {
			return err
		}
		urls = append(urls, fromFile...)
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URLs given: pass them as arguments or via --file")
	}

	orchestrator, err := getOrchestrator()
	if err != nil {
		return err
	}

	fmt.Printf("Scraping %d URL(s) for %s\n\n", len(urls), boldStyle.Render(scrapeOrg))
	report := orchestrator.ScrapeBulk(cmd.Context(), scrapeOrg, urls, scrapeUser)
	printReport(report)
	return nil
}

func readURLsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open urls file: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read urls file: %w", err)
	}
	return urls, nil
}

func printReport(report *service.BulkReport) {
	for _, item := range report.Items {
		switch item.Status {
		case service.ItemSuccess:
			fmt.Printf("%s %s\n", successStyle.Render("✓"), item.Title)
			fmt.Printf("  %s\n", dimStyle.Render(item.URL+"  →  "+item.VehicleID))
		default:
			fmt.Printf("%s %s\n", failedStyle.Render("✗"), item.URL)
			fmt.Printf("  %s\n", dimStyle.Render(item.Error))
		}
	}

	fmt.Printf("\n%s  %s  %s\n",
		boldStyle.Render(fmt.Sprintf("total %d", report.Total)),
		successStyle.Render(fmt.Sprintf("success %d", report.Success)),
		failedStyle.Render(fmt.Sprintf("failed %d", report.Failed)))
}
