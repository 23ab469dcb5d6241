package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/cipherscore/internal/model"
)

var (
	grantSubject   string
	grantRequester string
)

func init() {
	rootCmd.AddCommand(grantCmd)
	grantCmd.Flags().StringVar(&grantSubject, "subject", "", "Subject identity (required)")
	grantCmd.Flags().StringVar(&grantRequester, "requester", "", "Requester identity (required)")
	grantCmd.MarkFlagRequired("subject")
	grantCmd.MarkFlagRequired("requester")
}

var grantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Authorize a requester to read the subject's computed score",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStack(stateDir)
		if err != nil {
			return err
		}
		defer s.close()

		if err := s.core.Grant(model.Identity(grantSubject), model.Identity(grantRequester)); err != nil {
			return err
		}
		fmt.Printf("Granted %s access to %s:%s\n", grantRequester, grantSubject, grantRequester)
		return nil
	},
}
