package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"reawwise/internal/connection"
	"reawwise/internal/daemon"
	"reawwise/internal/eventbus"
	"reawwise/internal/ipc"
	"reawwise/internal/preflight"
	"reawwise/internal/session"
	"reawwise/internal/wwise"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the connection open and print preview updates as the session changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(commandCtx(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			cmd.SetContext(signalCtx)

			return ctx.withDaemon(cmd, daemon.Options{Exclusive: true}, false, func(runCtx context.Context, d *daemon.Daemon) error {
				out := cmd.OutOrStdout()
				style := styleFor(out)
				srv, err := ipc.NewServer(runCtx, ctx.config.SocketPath(), d, ctx.newLogger())
				if err != nil {
					return fmt.Errorf("start control socket: %w", err)
				}
				srv.Serve()
				defer srv.Close()

				sub := d.Bus().Subscribe(64, eventbus.TopicConnection, eventbus.TopicPreview, eventbus.TopicImport)
				defer sub.Close()

				fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", d.Status().Connection.Address)
				for {
					select {
					case <-runCtx.Done():
						return nil
					case ev := <-sub.C:
						printWatchEvent(out, ev, style)
					}
				}
			})
		},
	}
}

func printWatchEvent(out io.Writer, ev eventbus.Event, style statusStyle) {
	switch payload := ev.Payload.(type) {
	case connection.Snapshot:
		if payload.State == connection.Connecting {
			return
		}
		fmt.Fprintln(out, style.check(preflight.ConnectionStatus(payload), statusWarn))
	case session.PreviewUpdate:
		if payload.Err != nil {
			fmt.Fprintln(out, style.line("Preview", statusWarn, payload.Err.Error()))
			return
		}
		if payload.Result.Cached {
			return
		}
		counts := payload.Result.Tree.Counts()
		fmt.Fprintln(out, style.line("Preview", statusInfo, fmt.Sprintf("%d items: %d new, %d replaced, %d unchanged",
			payload.Items, counts[wwise.StatusNew], counts[wwise.StatusReplaced], counts[wwise.StatusNoChange])))
	case session.ImportEvent:
		switch payload.Phase {
		case session.ImportStarted:
			fmt.Fprintln(out, style.line("Import", statusInfo, "started"))
		case session.ImportFinished:
			fmt.Fprintln(out, style.line("Import", statusOK, fmt.Sprintf("%d created, %d replaced",
				payload.Summary.ObjectsCreated, payload.Summary.ObjectsReplaced)))
		case session.ImportFailed:
			fmt.Fprintln(out, style.line("Import", statusError, fmt.Sprint(payload.Err)))
		}
	}
}
