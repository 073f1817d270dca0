package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"formrelay/internal/history"
	"formrelay/pkg/fileutil"

	"github.com/spf13/cobra"
)

var (
	historyDBPath string
	historyLimit  int
	historyJSON   bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent contact form submissions from the audit trail",
	Long: `Show recent contact form submissions recorded by 'formrelay serve --db'.

Example:
  formrelay history --db /var/lib/formrelay/audit.db --limit 50`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyDBPath, "db", "", "Path to the audit database")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of submissions to show")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print records as JSON")
	_ = historyCmd.MarkFlagRequired("db")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if !fileutil.FileExists(historyDBPath) {
		return fmt.Errorf("audit database %s does not exist", historyDBPath)
	}
	if historyLimit < 1 {
		return fmt.Errorf("--limit must be at least 1")
	}

	hist, err := history.NewHistory(historyDBPath)
	if err != nil {
		return fmt.Errorf("failed to open audit database: %w", err)
	}
	defer hist.Close()

	records, err := hist.RecentSubmissions(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if historyJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(out, "No submissions recorded yet.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME (UTC)\tSTATUS\tIP\tNAME\tEMAIL\tERROR")
	for _, r := range records {
		errMsg := ""
		if r.ErrorMessage != nil {
			errMsg = *r.ErrorMessage
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.CreatedAt.UTC().Format("2006-01-02 15:04:05"), r.Status, r.IP, r.Name, r.Email, errMsg)
	}
	return tw.Flush()
}
