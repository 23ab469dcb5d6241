package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/cipherscore/internal/fhe/lattice"
	"github.com/ppiankov/cipherscore/internal/registry"
	"github.com/ppiankov/cipherscore/internal/scenario"
)

var (
	checkScenario string
	checkFormat   string
	checkWatch    bool
)

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkScenario, "scenario", "", "Glob pattern for scenario YAML files (required)")
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format (text|json)")
	checkCmd.Flags().BoolVar(&checkWatch, "watch", false, "Re-run when scenario files or the roster change")
	checkCmd.MarkFlagRequired("scenario")
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run lifecycle assertions from scenario files",
	Long: "Loads scenario YAML files matching a glob pattern, runs each\n" +
		"lifecycle script against a fresh in-memory stack, and reports\n" +
		"pass/fail. Scenarios without a requesters list run against the\n" +
		"state directory's roster.\n\n" +
		"Exit code 0 if all steps pass, 1 if any fail.\n" +
		"Use in CI to gate deployments on scoring and authorization\n" +
		"correctness.",
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	matches, err := filepath.Glob(checkScenario)
	if err != nil {
		return fmt.Errorf("invalid glob pattern: %w", err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("no scenario files match pattern: %s", checkScenario)
	}

	roster, err := registry.Load(rosterPath(stateDir))
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}

	// Scenario runs share one set of keys; generation dominates startup.
	km, err := lattice.GenerateKeys(lattice.DefaultParametersLiteral())
	if err != nil {
		return fmt.Errorf("generate keys: %w", err)
	}

	failed, err := runScenarioFiles(matches, km, roster)
	if err != nil {
		return err
	}
	if !checkWatch {
		if failed {
			os.Exit(1)
		}
		return nil
	}

	fmt.Fprintf(os.Stderr, "Watching %d scenario files...\n", len(matches))
	return watchAndRerun(context.Background(), matches, roster, rosterPath(stateDir), func() {
		if _, err := runScenarioFiles(matches, km, roster); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		}
	})
}

func runScenarioFiles(paths []string, km *lattice.KeyMaterial, roster *registry.Registry) (failed bool, err error) {
	var results []*scenario.RunResult
	for _, path := range paths {
		r, err := scenario.LoadAndRun(path, km, roster)
		if err != nil {
			return false, fmt.Errorf("%s: %w", path, err)
		}
		results = append(results, r)
	}

	switch checkFormat {
	case "json":
		out, err := scenario.FormatJSON(results)
		if err != nil {
			return false, err
		}
		fmt.Println(out)
	default:
		fmt.Print(scenario.FormatText(results))
	}

	for _, r := range results {
		if r.Failed > 0 {
			failed = true
		}
	}
	return failed, nil
}

// watchAndRerun calls rerun whenever a scenario file changes. If the
// roster file exists it is hot-reloaded into roster on edit, followed by
// a rerun so the new roster is visible immediately. Blocks until ctx is
// cancelled.
func watchAndRerun(ctx context.Context, paths []string, roster *registry.Registry, rosterFile string, rerun func()) error {
	if _, err := os.Stat(rosterFile); err == nil {
		rw, err := registry.NewRosterWatcher(roster, rosterFile, func(err error) {
			if err != nil {
				fmt.Fprintf(os.Stderr, "ERROR: reload roster: %v\n", err)
				return
			}
			rerun()
		})
		if err != nil {
			return err
		}
		go rw.Run(ctx)
	}

	w, err := registry.NewWatcher(paths, rerun)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
