package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/cipherscore/internal/model"
)

var (
	accessCaller    string
	accessSubject   string
	accessRequester string
	accessReveal    bool
)

func init() {
	rootCmd.AddCommand(accessCmd)
	accessCmd.Flags().StringVar(&accessCaller, "caller", "", "Identity performing the read (required)")
	accessCmd.Flags().StringVar(&accessSubject, "subject", "", "Subject identity (required)")
	accessCmd.Flags().StringVar(&accessRequester, "requester", "", "Requester identity (required)")
	accessCmd.Flags().BoolVar(&accessReveal, "reveal", false,
		"Decrypt the score through the known-key harness")
	accessCmd.MarkFlagRequired("caller")
	accessCmd.MarkFlagRequired("subject")
	accessCmd.MarkFlagRequired("requester")
}

var accessCmd = &cobra.Command{
	Use:   "access",
	Short: "Read a computed score",
	Long: "Returns the score ciphertext handle if the caller is the subject or\n" +
		"a requester holding a live grant. With --reveal the harness decrypts\n" +
		"the value for callers the ciphertext is marked usable by.",
	RunE: runAccess,
}

func runAccess(cmd *cobra.Command, args []string) error {
	s, err := openStack(stateDir)
	if err != nil {
		return err
	}
	defer s.close()

	caller := model.Identity(accessCaller)
	h, err := s.core.Access(caller, model.Identity(accessSubject), model.Identity(accessRequester))
	if err != nil {
		return err
	}
	if !accessReveal {
		fmt.Printf("Score handle: %s\n", h)
		return nil
	}

	v, err := s.engine.Reveal(h, caller)
	if err != nil {
		return err
	}
	fmt.Printf("Score for %s:%s = %d\n", accessSubject, accessRequester, v)
	return nil
}
