package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scout/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, status)
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				for _, line := range renderSectionHeader("Daemon", colorize) {
					fmt.Fprintln(stdout, line)
				}
				runningKind := statusWarn
				if status.Running {
					runningKind = statusOK
				}
				fmt.Fprintln(stdout, renderStatusLine("Running", runningKind, yesNo(status.Running), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Version", statusInfo, status.Version, colorize))
				fmt.Fprintln(stdout, renderStatusLine("PID", statusInfo, fmt.Sprintf("%d", status.PID), colorize))
				if status.StartedAt != "" {
					fmt.Fprintln(stdout, renderStatusLine("Started", statusInfo, status.StartedAt, colorize))
				}
				if status.APIAddr != "" {
					fmt.Fprintln(stdout, renderStatusLine("API", statusInfo, status.APIAddr, colorize))
				}
				fmt.Fprintln(stdout, renderStatusLine("Journal", statusInfo, status.JournalPath, colorize))
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Sessions", colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("Active", statusInfo, fmt.Sprintf("%d", status.ActiveSessions), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Subscribers", statusInfo, fmt.Sprintf("%d", status.Subscribers), colorize))

				if len(status.Dependencies) > 0 {
					fmt.Fprintln(stdout)
					for _, line := range renderSectionHeader("Dependencies", colorize) {
						fmt.Fprintln(stdout, line)
					}
					for _, dep := range status.Dependencies {
						if dep.Available {
							message := "ready"
							if dep.Command != "" {
								message = fmt.Sprintf("ready (%s)", dep.Command)
							}
							fmt.Fprintln(stdout, renderStatusLine(dep.Name, statusOK, message, colorize))
							continue
						}
						detail := dep.Detail
						if detail == "" {
							detail = "not available"
						}
						fmt.Fprintln(stdout, renderStatusLine(dep.Name, statusWarn, detail, colorize))
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine readable output")
	return cmd
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the scout daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stop()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if resp.Stopped {
					fmt.Fprintln(stdout, "Daemon stopped")
				} else {
					fmt.Fprintln(stdout, "Stop request sent")
				}
				return nil
			})
		},
	}
}
