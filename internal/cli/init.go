package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/cipherscore/internal/fhe/lattice"
	"github.com/ppiankov/cipherscore/internal/registry"
	"github.com/ppiankov/cipherscore/internal/scoring"
)

var initRequesters []string

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringSliceVar(&initRequesters, "requester", nil,
		"Requester identity to register (repeatable)")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a state directory with fresh engine keys",
	Long: "Generates BGV key material, writes the default scoring factor\n" +
		"table and the requester roster, and prepares the record store.\n" +
		"Refuses to overwrite an initialized state directory.",
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	if initialized(stateDir) {
		return fmt.Errorf("state directory %s is already initialized", stateDir)
	}
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	km, err := lattice.GenerateKeys(lattice.DefaultParametersLiteral())
	if err != nil {
		return fmt.Errorf("generate keys: %w", err)
	}
	if err := km.Save(keysDir(stateDir)); err != nil {
		return err
	}

	roster := registry.Roster{}
	for _, r := range initRequesters {
		roster.Requesters = append(roster.Requesters, registry.Entry{ID: r})
	}
	if err := registry.Save(rosterPath(stateDir), roster); err != nil {
		return err
	}
	if err := scoring.Save(scoringPath(stateDir), scoring.DefaultConfig()); err != nil {
		return err
	}

	fmt.Printf("Initialized %s (%d requesters registered)\n", stateDir, len(roster.Requesters))
	return nil
}
