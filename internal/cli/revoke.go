package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/cipherscore/internal/model"
)

var (
	revokeSubject   string
	revokeRequester string
)

func init() {
	rootCmd.AddCommand(revokeCmd)
	revokeCmd.Flags().StringVar(&revokeSubject, "subject", "", "Subject identity (required)")
	revokeCmd.Flags().StringVar(&revokeRequester, "requester", "", "Requester identity (required)")
	revokeCmd.MarkFlagRequired("subject")
	revokeCmd.MarkFlagRequired("requester")
}

var revokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Withdraw a requester's read access",
	Long:  "Clears the capability for the pair. Revoking access that was never\ngranted succeeds and changes nothing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStack(stateDir)
		if err != nil {
			return err
		}
		defer s.close()

		if err := s.core.Revoke(model.Identity(revokeSubject), model.Identity(revokeRequester)); err != nil {
			return err
		}
		fmt.Printf("Revoked %s access to %s:%s\n", revokeRequester, revokeSubject, revokeRequester)
		return nil
	},
}
