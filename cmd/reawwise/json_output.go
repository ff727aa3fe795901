package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func addJSONFlag(cmd *cobra.Command, target *bool, what string) {
	cmd.Flags().BoolVar(target, "json", false, "Emit "+what+" as JSON")
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeRawJSON re-indents an already encoded document such as a stored
// import summary.
func writeRawJSON(cmd *cobra.Command, raw string) error {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, []byte(raw), "", "  "); err != nil {
		return fmt.Errorf("decode summary: %w", err)
	}
	pretty.WriteByte('\n')
	_, err := pretty.WriteTo(cmd.OutOrStdout())
	return err
}
