package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"reawwise/internal/mapping"
	"reawwise/internal/wwise"
)

func newPresetCommand(ctx *commandContext) *cobra.Command {
	presetCmd := &cobra.Command{
		Use:   "preset",
		Short: "Share hierarchy mappings as YAML presets",
	}
	presetCmd.AddCommand(newPresetExportCommand(ctx))
	presetCmd.AddCommand(newPresetImportCommand(ctx))
	return presetCmd
}

func newPresetExportCommand(ctx *commandContext) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Write the session's mapping as a preset (stdout when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			local, err := openLocalState(cfg)
			if err != nil {
				return err
			}
			defer local.Close()

			runCtx := commandCtx(cmd)
			state, _, err := local.load(runCtx)
			if err != nil {
				return err
			}
			if strings.TrimSpace(name) == "" {
				name, _ = local.adapter.SessionName(runCtx)
			}
			preset := mapping.NewPreset(name, state.MappingNodes())

			if len(args) == 0 || args[0] == "-" {
				return mapping.WritePreset(cmd.OutOrStdout(), preset)
			}
			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("create preset: %w", err)
			}
			if err := mapping.WritePreset(f, preset); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote preset %q to %s\n", preset.Name, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Preset name (defaults to the session name)")
	return cmd
}

func newPresetImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the session's mapping with a preset (\"-\" reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open preset: %w", err)
				}
				defer f.Close()
				r = f
			}
			preset, err := mapping.ReadPreset(r)
			if err != nil {
				return err
			}
			nodes, err := preset.MappingNodes()
			if err != nil {
				return err
			}
			if v := mapping.Validate(wwise.Unknown, nodes); !v.Valid {
				return fmt.Errorf("preset %q: %w", preset.Name, v.Err())
			}

			local, err := openLocalState(cfg)
			if err != nil {
				return err
			}
			defer local.Close()

			runCtx := commandCtx(cmd)
			state, _, err := local.load(runCtx)
			if err != nil {
				return err
			}
			state = mapping.NewProjectState(state.Destination, state.OriginalsSubfolder, state.ConflictPolicy, state.TemplatePolicy, nodes)
			if err := local.save(runCtx, state); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied preset %q (%d levels)\n", preset.Name, len(nodes))
			return nil
		},
	}
}
