package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sandboxkit/desktopd/pkg/events"
	"github.com/sandboxkit/desktopd/pkg/importer"
)

var importCmd = &cobra.Command{
	Use:   "import <source> [dest-subpath]",
	Short: "Import a folder or file into the workspace",
	Long: `import copies source_path into the workspace, optionally under
dest_subpath, emitting folder-import-progress events to stderr as it runs
and printing the final ImportResult as JSON to stdout.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runImport,
}

func init() {
	importCmd.Flags().String("workspace", "", "Workspace directory (required)")
	_ = importCmd.MarkFlagRequired("workspace")
}

func runImport(cmd *cobra.Command, args []string) error {
	workspace, _ := cmd.Flags().GetString("workspace")
	sourcePath := args[0]
	var destSubpath string
	if len(args) == 2 {
		destSubpath = args[1]
	}

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)
	go func() {
		for ev := range sub {
			if p, ok := ev.Payload.(importer.ImportProgress); ok {
				fmt.Fprintf(os.Stderr, "[%s] %d/%d %s\n", p.Phase, p.Processed, p.Total, p.CurrentFile)
			}
		}
	}()

	imp, err := importer.New(workspace, events.NewImportProgressSink(broker))
	if err != nil {
		return fmt.Errorf("desktopd: %w", err)
	}

	result, err := imp.Import(sourcePath, destSubpath)
	if err != nil {
		return fmt.Errorf("desktopd: import failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
