package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/cipherscore/internal/model"
)

var (
	computeSubject   string
	computeRequester string
	computeCaller    string
)

func init() {
	rootCmd.AddCommand(computeCmd)
	computeCmd.Flags().StringVar(&computeSubject, "subject", "", "Subject identity (required)")
	computeCmd.Flags().StringVar(&computeRequester, "requester", "", "Requester identity (required)")
	computeCmd.Flags().StringVar(&computeCaller, "caller", "", "Invoking identity (default: subject)")
	computeCmd.MarkFlagRequired("subject")
	computeCmd.MarkFlagRequired("requester")
}

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute the encrypted risk score for a submitted record",
	Long: "Runs the scoring pipeline over the stored ciphertexts. Any caller\n" +
		"may trigger computation; reading the result is what requires\n" +
		"authorization. Succeeds at most once per record.",
	RunE: runCompute,
}

func runCompute(cmd *cobra.Command, args []string) error {
	s, err := openStack(stateDir)
	if err != nil {
		return err
	}
	defer s.close()

	caller := computeCaller
	if caller == "" {
		caller = computeSubject
	}
	if err := s.core.Compute(model.Identity(caller), model.Identity(computeSubject), model.Identity(computeRequester)); err != nil {
		return err
	}
	fmt.Printf("Computed score for %s:%s\n", computeSubject, computeRequester)
	return nil
}
