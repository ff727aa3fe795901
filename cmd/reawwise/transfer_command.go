package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reawwise/internal/daemon"
	"reawwise/internal/importer"
	"reawwise/internal/session"
	"reawwise/internal/wwise"
)

func newTransferCommand(ctx *commandContext) *cobra.Command {
	var assumeYes bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Render the session and import the files into Wwise",
		RunE: func(cmd *cobra.Command, args []string) error {
			confirm := promptConfirm(cmd.InOrStdin(), cmd.OutOrStdout())
			if assumeYes {
				confirm = nil
			}
			report := func(summary *importer.Summary, err error) error {
				if summary != nil {
					if jsonOutput {
						if jsonErr := writeJSON(cmd, summary); jsonErr != nil {
							return jsonErr
						}
					} else {
						renderSummary(cmd.OutOrStdout(), summary)
					}
				}
				return err
			}

			if client, ok := ctx.dialWatch(); ok {
				defer client.Close()
				if confirm != nil {
					pending, err := client.Confirmation()
					if err != nil {
						return err
					}
					approved, err := confirm(commandCtx(cmd), session.Confirmation{
						Session:     pending.Session,
						Destination: pending.Destination,
						Targets:     pending.Targets,
					})
					if err != nil {
						return err
					}
					if !approved {
						return session.ErrDeclined
					}
				}
				resp, err := client.Transfer()
				if resp == nil {
					return err
				}
				return report(resp.Summary, err)
			}

			return ctx.withDaemon(cmd, daemon.Options{}, true, func(runCtx context.Context, d *daemon.Daemon) error {
				return report(d.Session().TransferToWwise(runCtx, confirm))
			})
		},
	}
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Render without asking for confirmation")
	addJSONFlag(cmd, &jsonOutput, "the import summary")
	return cmd
}

func promptConfirm(in io.Reader, out io.Writer) session.ConfirmFunc {
	return func(_ context.Context, c session.Confirmation) (bool, error) {
		fmt.Fprintf(out, "Render %d file(s) of session %q and import them under %s? [y/N] ",
			len(c.Targets), c.Session, c.Destination)
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}

func renderSummary(out io.Writer, summary *importer.Summary) {
	entries := summary.Sorted()
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		if !e.Imported {
			continue
		}
		wav := ""
		if e.WavStatus != wwise.WavUnknown {
			wav = e.WavStatus.String()
		}
		rows = append(rows, []string{e.Path, e.Type.String(), e.Status.String(), wav, e.TemplatePath})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable([]column{left("Object"), left("Type"), left("Status"), left("WAV"), left("Template")}, rows))
	}

	counts := [][]string{
		{"Objects created", strconv.Itoa(summary.ObjectsCreated)},
		{"Objects replaced", strconv.Itoa(summary.ObjectsReplaced)},
		{"Templates applied", strconv.Itoa(summary.TemplatesApplied)},
		{"Files transferred", strconv.Itoa(summary.FilesTransferred)},
	}
	if len(summary.Skipped) > 0 {
		counts = append(counts, []string{"Skipped (unresolved)", strconv.Itoa(len(summary.Skipped))})
	}
	if summary.Selected != "" {
		counts = append(counts, []string{"Selected", summary.Selected})
	}
	fmt.Fprintln(out, renderTable([]column{left("Result"), right("Value")}, counts))

	for _, e := range summary.Errors {
		fmt.Fprintf(out, "error: %s: %s\n", e.Procedure, e.Message)
	}
}
