// Command fhmqv-keygen generates a fresh long-term Curve25519 key pair and
// prints it in spec.md §6's format, optionally persisting it to a file.
package main

import (
	"fmt"
	"os"

	"github.com/fhmqvtun/fhmqvtund/internal/identity"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	var outPath string

	root := &cobra.Command{
		Use:     "fhmqv-keygen",
		Short:   "generate an ec25519-fhmqvc long-term key pair",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(outPath)
		},
	}
	root.Flags().StringVarP(&outPath, "out", "o", "", "write the identity file here instead of only printing it")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(outPath string) error {
	id, err := identity.Generate()
	if err != nil {
		return fmt.Errorf("generate identity: %w", err)
	}

	fmt.Printf("Secret: %s\n", id.SecretHex())
	fmt.Printf("Public: %s\n", id.PublicHex())

	if outPath != "" {
		if err := id.Save(outPath); err != nil {
			return fmt.Errorf("save identity: %w", err)
		}
	}
	return nil
}
