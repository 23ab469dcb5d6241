package cli

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/cipherscore/internal/model"
	"github.com/ppiankov/cipherscore/internal/proof"
)

var (
	submitSubject   string
	submitRequester string
	submitAttrs     string
)

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().StringVar(&submitSubject, "subject", "", "Subject identity (required)")
	submitCmd.Flags().StringVar(&submitRequester, "requester", "", "Registered requester identity (required)")
	submitCmd.Flags().StringVar(&submitAttrs, "attrs", "",
		"Comma-separated attribute values in submission order:\n"+
			strings.Join(model.AttributeNames[:], ","))
	submitCmd.MarkFlagRequired("subject")
	submitCmd.MarkFlagRequired("requester")
	submitCmd.MarkFlagRequired("attrs")
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Encrypt and submit the twelve health attributes",
	Long: "Encrypts each attribute client-side, builds the knowledge proof\n" +
		"binding the values to the ciphertexts, and stores the record for\n" +
		"the (subject, requester) pair. One submission per pair, ever.",
	RunE: runSubmit,
}

func parseAttrs(s string) ([model.AttributeCount]uint64, error) {
	var vals [model.AttributeCount]uint64
	parts := strings.Split(s, ",")
	if len(parts) != model.AttributeCount {
		return vals, fmt.Errorf("expected %d attribute values, got %d", model.AttributeCount, len(parts))
	}
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return vals, fmt.Errorf("attribute %s: %w", model.AttributeNames[i], err)
		}
		vals[i] = v
	}
	return vals, nil
}

func runSubmit(cmd *cobra.Command, args []string) error {
	vals, err := parseAttrs(submitAttrs)
	if err != nil {
		return err
	}

	s, err := openStack(stateDir)
	if err != nil {
		return err
	}
	defer s.close()

	raw := make([][]byte, model.AttributeCount)
	digests := make([][]byte, model.AttributeCount)
	for i, v := range vals {
		b, err := s.engine.EncryptInput(v)
		if err != nil {
			return fmt.Errorf("encrypt %s: %w", model.AttributeNames[i], err)
		}
		raw[i] = b
		d := sha256.Sum256(b)
		digests[i] = d[:]
	}
	p, err := proof.Build(vals, digests)
	if err != nil {
		return err
	}

	if err := s.core.Submit(model.Identity(submitSubject), model.Identity(submitRequester), raw, p); err != nil {
		return err
	}
	fmt.Printf("Submitted %s:%s\n", submitSubject, submitRequester)
	return nil
}
