package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"reawwise/internal/daemon"
	"reawwise/internal/ipc"
	"reawwise/internal/preview"
	"reawwise/internal/wwise"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var refresh bool

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the hierarchy a transfer would create",
		RunE: func(cmd *cobra.Command, args []string) error {
			report := func(resp *ipc.PreviewResponse) error {
				if jsonOutput {
					return writeJSON(cmd, resp.Rows)
				}
				renderPreviewReport(cmd.OutOrStdout(), resp)
				return nil
			}

			if client, ok := ctx.dialWatch(); ok {
				defer client.Close()
				resp, err := client.Preview(refresh)
				if err != nil {
					return err
				}
				return report(resp)
			}

			return ctx.withDaemon(cmd, daemon.Options{}, true, func(runCtx context.Context, d *daemon.Daemon) error {
				if refresh {
					if err := d.Session().Refresh(runCtx); err != nil {
						return err
					}
				}
				update, err := d.Session().Preview(runCtx)
				if err != nil {
					return err
				}
				settings, err := d.Session().Settings(runCtx)
				if err != nil {
					return err
				}
				resp := &ipc.PreviewResponse{
					Session:        settings.Session,
					Destination:    settings.Destination,
					ConflictPolicy: settings.ConflictPolicy.String(),
					Items:          update.Items,
					Hash:           update.Result.Hash,
					Issues:         settings.Validation.Messages(),
					Rows:           update.Result.Tree.Rows(),
				}
				return report(resp)
			})
		},
	}
	addJSONFlag(cmd, &jsonOutput, "the predicted objects")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Re-read the project even if nothing changed")
	return cmd
}

func renderPreviewReport(out io.Writer, resp *ipc.PreviewResponse) {
	fmt.Fprintf(out, "Session:     %s\n", resp.Session)
	fmt.Fprintf(out, "Destination: %s\n", resp.Destination)
	fmt.Fprintf(out, "Policy:      %s\n", resp.ConflictPolicy)
	for _, issue := range resp.Issues {
		fmt.Fprintf(out, "Mapping:     %s\n", issue)
	}
	renderPreview(out, resp.Rows)
}

func renderPreview(out io.Writer, rows []preview.Row) {
	if len(rows) == 0 {
		fmt.Fprintln(out, "Nothing to transfer: the render has no targets.")
		return
	}
	counts := make(map[wwise.Status]int)
	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		counts[r.Status]++
		name := r.Name
		if r.Unresolved {
			name = "<unresolved>"
		}
		wav := ""
		if r.WavStatus != wwise.WavUnknown {
			wav = r.WavStatus.String()
		}
		table = append(table, []string{strings.Repeat("  ", r.Depth) + name, r.Type.String(), r.Status.String(), wav})
	}
	fmt.Fprintln(out, renderTable([]column{left("Object"), left("Type"), left("Status"), left("WAV")}, table))
	fmt.Fprintf(out, "%d new, %d replaced, %d unchanged\n",
		counts[wwise.StatusNew], counts[wwise.StatusReplaced], counts[wwise.StatusNoChange])
}
