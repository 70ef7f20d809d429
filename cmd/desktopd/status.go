package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sandboxkit/desktopd/pkg/resources"
	"github.com/sandboxkit/desktopd/pkg/supervisor"
)

// statusReport is the read-only diagnostic snapshot reported by `desktopd
// status` (SPEC_FULL.md's supplemented features): resource-root
// resolution, the VM image path under that root (not checked for
// existence), and the sidecar/VM PIDs recorded in the PID file from the
// last (or current) run.
type statusReport struct {
	DataDir      string   `json:"data_dir"`
	ResourceRoot string   `json:"resource_root"`
	ResourceErr  string   `json:"resource_root_error,omitempty"`
	VMImage      string   `json:"vm_image,omitempty"`
	PIDFile      string   `json:"pid_file"`
	PIDs         []int    `json:"pids"`
	CleanExit    bool     `json:"clean_exit"`
	Warnings     []string `json:"warnings,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report resource-root resolution, staged artifacts, and sidecar PIDs",
	Long: `status is a read-only diagnostic command: it does not spawn or
reap anything, it just reports what a "serve" run would find.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().String("build-dir", "", "Development fallback directory to search for a resources/ subdirectory")
}

func runStatus(cmd *cobra.Command, args []string) error {
	dataDir, err := resolveDataDir(cmd)
	if err != nil {
		return err
	}
	buildDir, _ := cmd.Flags().GetString("build-dir")

	report := statusReport{
		DataDir: dataDir,
		PIDFile: filepath.Join(dataDir, "desktop-services.pid"),
	}

	root, err := resources.Resolve(buildDir)
	if err != nil {
		report.ResourceErr = err.Error()
	} else {
		report.ResourceRoot = root
		if paths, err := resources.VMResourcePathsFor(root); err == nil {
			report.VMImage = paths.Image
		} else {
			report.Warnings = append(report.Warnings, "vm resource paths: "+err.Error())
		}
	}

	pids, err := supervisor.ReadPIDFile(report.PIDFile)
	if err != nil {
		report.Warnings = append(report.Warnings, "pid file: "+err.Error())
	}
	report.PIDs = pids
	report.CleanExit = len(pids) == 0

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
