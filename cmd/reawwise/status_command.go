package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reawwise/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check configuration, local directories and the WAAPI connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			style := styleFor(out)

			lines := style.header("Configuration")
			lines = append(lines,
				style.line("Config", statusInfo, ctx.configPath),
				style.line("WAAPI", statusInfo, cfg.WAAPI.URL()+" ("+cfg.WAAPI.Serializer+")"),
				style.line("Conflict policy", statusInfo, cfg.Import.ConflictPolicy),
				style.line("Embed audio", statusInfo, yesNo(cfg.Import.EmbedAudio)),
			)
			if strings.TrimSpace(cfg.Session.Manifest) == "" {
				lines = append(lines, style.line("Manifest", statusWarn, "not configured"))
			}
			lines = append(lines, "")
			lines = append(lines, style.header("Watch")...)
			lines = append(lines, watchStatusLines(ctx, style)...)
			lines = append(lines, "")
			lines = append(lines, style.header("Checks")...)

			failed := 0
			for _, result := range preflight.RunAll(commandCtx(cmd), cfg) {
				if !result.Passed {
					failed++
				}
				lines = append(lines, style.check(result, statusError))
			}
			fmt.Fprintln(out, strings.Join(lines, "\n"))
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
}

func watchStatusLines(ctx *commandContext, style statusStyle) []string {
	client, ok := ctx.dialWatch()
	if !ok {
		return []string{style.line("Watch", statusInfo, "not running")}
	}
	defer client.Close()
	status, err := client.Status()
	if err != nil {
		return []string{style.line("Watch", statusWarn, err.Error())}
	}
	kind := statusOK
	detail := fmt.Sprintf("%s, pid %d", status.State, status.PID)
	if status.Project != "" {
		detail += ", project " + status.Project
	}
	if status.LastError != "" {
		kind = statusWarn
		detail += ": " + status.LastError
	}
	lines := []string{style.line("Watch", kind, detail)}
	if status.Importing {
		lines = append(lines, style.line("Import", statusInfo, "in progress"))
	}
	return lines
}
