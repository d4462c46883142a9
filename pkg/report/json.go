package report

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteJSON renders the full envelope as indented JSON.
func WriteJSON(w io.Writer, env *Envelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}
	return nil
}
