package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"reawwise/internal/scripting"
	"reawwise/internal/waapi"
)

func newCallCommand(ctx *commandContext) *cobra.Command {
	var (
		argsFile    string
		optionsFile string
		argsJSON    string
	)

	cmd := &cobra.Command{
		Use:   "call <procedure>",
		Short: "Issue a raw WAAPI call and print the result as JSON",
		Long: "Arguments and options are JSON documents; comments and trailing commas are accepted.\n" +
			"Example: reawwise call ak.wwise.core.object.get --args-json '{\"waql\": \"$ from type Sound\"}'",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			arena := scripting.NewArena()
			argHandle, err := loadDocument(arena, argsFile, argsJSON)
			if err != nil {
				return fmt.Errorf("args: %w", err)
			}
			optHandle, err := loadDocument(arena, optionsFile, "")
			if err != nil {
				return fmt.Errorf("options: %w", err)
			}

			runCtx, cancel := context.WithTimeout(commandCtx(cmd), connectTimeout)
			defer cancel()
			client, err := waapi.Connect(runCtx, waapi.Options{
				URL:         cfg.WAAPI.URL(),
				Serializer:  cfg.WAAPI.Serializer,
				CallTimeout: cfg.WAAPI.CallTimeout(),
				Logger:      ctx.newLogger(),
			})
			if err != nil {
				return fmt.Errorf("connect to Wwise: %w", err)
			}
			defer client.Close()

			result, err := arena.Call(runCtx, client, strings.TrimSpace(args[0]), argHandle, optHandle)
			if err != nil {
				return err
			}
			data, err := arena.FormatJSON(result)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&argsFile, "args", "", "File holding the call arguments")
	cmd.Flags().StringVar(&argsJSON, "args-json", "", "Inline call arguments")
	cmd.Flags().StringVar(&optionsFile, "options", "", "File holding the call options")
	return cmd
}

// loadDocument parses inline JSON or the file at path into the arena. An
// empty source yields the zero handle, which sends no payload.
func loadDocument(arena *scripting.Arena, path, inline string) (scripting.Handle, error) {
	var data []byte
	switch {
	case strings.TrimSpace(inline) != "":
		data = []byte(inline)
	case strings.TrimSpace(path) != "":
		raw, err := os.ReadFile(path)
		if err != nil {
			return 0, err
		}
		data = raw
	default:
		return 0, nil
	}
	h, err := arena.ParseJSON(data)
	if err != nil {
		return 0, err
	}
	if kind, err := arena.Kind(h); err != nil || kind != scripting.KindMap {
		return 0, errors.New("expected a JSON object")
	}
	return h, nil
}
