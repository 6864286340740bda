// Package keygen implements the key-generation command described in
// spec.md §6: mint a fresh long-term identity and print it.
package keygen

import (
	"fmt"
	"io"

	"github.com/fhmqvtun/fhmqvtund/internal/identity"
)

// Run generates a fresh identity and writes the two lines spec.md §6
// mandates to w: "Secret: <hex>" and "Public: <hex>".
func Run(w io.Writer) error {
	id, err := identity.Generate()
	if err != nil {
		return fmt.Errorf("keygen: %w", err)
	}
	if _, err := fmt.Fprintf(w, "Secret: %s\n", id.SecretHex()); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Public: %s\n", id.PublicHex())
	return err
}
