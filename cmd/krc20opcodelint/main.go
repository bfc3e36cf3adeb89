// Command krc20opcodelint checks the opcode registry for internal
// consistency: every registered handler has a canonical field order, and
// a synthetic payload for each opcode round-trips through encode, redeem
// script wrapping, and decode unchanged. Grounded on the teacher's
// opcode-lint duplicate-detection idiom, generalized to a full round-trip
// and given the teacher's cmd/synnergy root-command-plus-subcommand shape.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AvatoLabs/kasplex-indexer/internal/ops"
)

func main() {
	rootCmd := &cobra.Command{Use: "krc20opcodelint"}
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(showCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// checkCmd runs the full registry round-trip check: every registered
// opcode must have a sample payload, every sample payload must have a
// registered handler, and no opcode may be registered twice.
func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "verify every registered opcode round-trips through encode/decode",
		RunE: func(cmd *cobra.Command, args []string) error {
			seenNames := make(map[string]struct{})
			for name, handler := range ops.Registry {
				if _, dup := seenNames[name]; dup {
					return fmt.Errorf("duplicate opcode registration %q", name)
				}
				seenNames[name] = struct{}{}
				_ = handler

				payload, ok := samplePayloads[name]
				if !ok {
					return fmt.Errorf("opcode %q has no sample payload for round-trip checking", name)
				}
				if err := checkRoundTrip(name, payload); err != nil {
					return fmt.Errorf("opcode %q round-trip: %w", name, err)
				}
			}
			for name := range samplePayloads {
				if _, ok := ops.Registry[name]; !ok {
					return fmt.Errorf("sample payload %q has no registered handler", name)
				}
			}
			fmt.Printf("checked %d opcodes, no collisions or round-trip mismatches\n", len(ops.Registry))
			return nil
		},
	}
}

// showCmd prints the sample payload and its encoded redeem script for a
// single opcode, for manual inspection of the wire format.
func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [opcode]",
		Short: "print the sample payload and encoded script for one opcode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			payload, ok := samplePayloads[name]
			if !ok {
				return fmt.Errorf("no sample payload registered for opcode %q", name)
			}
			encoded, sigScript, err := encodeSample(name, payload)
			if err != nil {
				return err
			}
			fmt.Printf("opcode:  %s\n", name)
			fmt.Printf("payload: %v\n", payload)
			fmt.Printf("json:    %s\n", encoded)
			fmt.Printf("script:  %x\n", sigScript)
			return nil
		},
	}
}
