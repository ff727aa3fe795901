package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reawwise/internal/mapping"
	"reawwise/internal/services"
	"reawwise/internal/wwise"
)

func newStateCommand(ctx *commandContext) *cobra.Command {
	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect and edit the transfer settings saved for the session",
	}
	stateCmd.AddCommand(newStateShowCommand(ctx))
	stateCmd.AddCommand(newStateSaveCommand(ctx))
	stateCmd.AddCommand(newStateListCommand(ctx))
	return stateCmd
}

func newStateShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the saved settings of the current session",
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
			state, saved, err := local.load(runCtx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, state)
			}
			name, _ := local.adapter.SessionName(runCtx)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session:          %s\n", name)
			fmt.Fprintf(out, "Saved:            %s\n", yesNo(saved))
			fmt.Fprintf(out, "Destination:      %s\n", state.Destination)
			fmt.Fprintf(out, "Originals folder: %s\n", state.OriginalsSubfolder)
			fmt.Fprintf(out, "Conflict policy:  %s\n", state.ConflictPolicy)
			fmt.Fprintf(out, "Template policy:  %s\n", state.TemplatePolicy)
			fmt.Fprintln(out, renderNodes(state.MappingNodes()))
			return nil
		},
	}
	addJSONFlag(cmd, &jsonOutput, "the state")
	return cmd
}

func newStateSaveCommand(ctx *commandContext) *cobra.Command {
	var (
		destination string
		subfolder   string
		conflict    string
		template    string
	)

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Change saved settings of the current session",
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
			flags := cmd.Flags()
			if flags.Changed("destination") {
				if len(wwise.PathParts(destination)) == 0 {
					return services.Wrap(services.ErrValidation, "cli", "state save", "destination must be an absolute object path", nil)
				}
				state.Destination = destination
			}
			if flags.Changed("subfolder") {
				state.OriginalsSubfolder = subfolder
			}
			if flags.Changed("conflict-policy") {
				if state.ConflictPolicy, err = mapping.ParseConflictPolicy(conflict); err != nil {
					return err
				}
			}
			if flags.Changed("template-policy") {
				if state.TemplatePolicy, err = mapping.ParseTemplatePolicy(template); err != nil {
					return err
				}
			}
			if err := local.save(runCtx, state); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session state saved")
			return nil
		},
	}
	cmd.Flags().StringVar(&destination, "destination", "", "Object path the mapping is rooted under")
	cmd.Flags().StringVar(&subfolder, "subfolder", "", "Originals subfolder (wildcards allowed)")
	cmd.Flags().StringVar(&conflict, "conflict-policy", "", "use_existing, create_new or replace")
	cmd.Flags().StringVar(&template, "template-policy", "", "new_only or all")
	return cmd
}

func newStateListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every session with saved state",
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

			entries, err := local.store.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved sessions")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{e.Session, e.Key, strconv.Itoa(e.Size)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{left("Session"), left("Key"), right("Bytes")}, rows))
			return nil
		},
	}
}

func renderNodes(nodes []mapping.Node) string {
	rows := make([][]string, 0, len(nodes))
	for i, n := range nodes {
		template := n.TemplatePath
		if template != "" && !n.TemplateEnabled {
			template += " (disabled)"
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), n.Type.String(), n.Name, strings.TrimSpace(template), n.Language})
	}
	return renderTable([]column{right("#"), left("Type"), left("Name"), left("Template"), left("Language")}, rows)
}
