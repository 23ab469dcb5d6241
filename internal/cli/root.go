// Package cli implements the cipherscore command line. All commands
// operate on a local state directory; there is no network surface.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var stateDir string

var rootCmd = &cobra.Command{
	Use:   "cipherscore",
	Short: "Confidential health risk scoring over encrypted attributes",
	Long: "Maintains encrypted health records keyed by (subject, requester),\n" +
		"computes composite risk scores homomorphically, and mediates every\n" +
		"read through subject-granted capabilities. Attribute values never\n" +
		"appear in plaintext outside the submitting client.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&stateDir, "state", ".cipherscore",
		"State directory (keys, records, roster, audit log)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
