package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/appimage-updater/appimage-updater/pkg/types"
)

// applicationRow is one line of `list` output.
type applicationRow struct {
	Name       string `json:"name" pretty:"label=Application"`
	SourceType string `json:"source_type" pretty:"label=Source"`
	URL        string `json:"url" pretty:"label=URL"`
	Enabled    string `json:"enabled" pretty:"label=Enabled"`
	Rotation   string `json:"rotation" pretty:"label=Rotation"`
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered applications",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	snap, err := loadSnapshot()
	if err != nil {
		return err
	}

	rows := applicationRows(snap.Apps)
	if len(rows) == 0 {
		fmt.Println("no applications registered")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "APPLICATION\tSOURCE\tURL\tENABLED\tROTATION")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", row.Name, row.SourceType, row.URL, row.Enabled, row.Rotation)
	}
	return w.Flush()
}

func applicationRows(apps []types.ApplicationConfig) []applicationRow {
	rows := make([]applicationRow, 0, len(apps))
	for _, app := range apps {
		rows = append(rows, applicationRow{
			Name:       app.Name,
			SourceType: string(app.SourceType),
			URL:        app.URL,
			Enabled:    boolLabel(app.Enabled),
			Rotation:   boolLabel(app.RotationEnabled),
		})
	}
	return rows
}

func boolLabel(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
