package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scout/internal/ipc"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var email string
	var field string
	var specialties []string
	var asJSON bool
	var follow bool

	cmd := &cobra.Command{
		Use:   "search <name>",
		Short: "Start a scraping session for an academic name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(strings.Join(args, " "))
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Search(ipc.SearchRequest{
					Name:        name,
					Email:       email,
					Field:       field,
					Specialties: specialties,
				})
				if err != nil {
					return err
				}
				if asJSON && !follow {
					return writeJSON(cmd, resp.Session)
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Session %s started for %q\n", resp.Session.ID, name)
				if follow {
					return watchSession(cmd, client, resp.Session.ID, asJSON)
				}
				fmt.Fprintf(stdout, "Follow progress with `scout watch %s`\n", resp.Session.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email hint for fast matching")
	cmd.Flags().StringVar(&field, "field", "", "Academic field filter")
	cmd.Flags().StringSliceVar(&specialties, "specialty", nil, "Specialty filter, repeatable (requires --field)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine readable output")
	cmd.Flags().BoolVarP(&follow, "watch", "w", false, "Stream session events until completion")
	return cmd
}

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List known sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Sessions()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Sessions)
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Sessions) == 0 {
					fmt.Fprintln(stdout, "No sessions")
					return nil
				}
				rows := make([][]string, 0, len(resp.Sessions))
				for _, snap := range resp.Sessions {
					rows = append(rows, []string{
						snap.ID,
						string(snap.State),
						snap.Request.Name,
						strconv.Itoa(snap.PrimaryCount),
						strconv.Itoa(snap.SecondaryCount),
						snap.CreatedAt.Local().Format(time.DateTime),
					})
				}
				table := renderTable(
					[]string{"ID", "State", "Name", "Profiles", "Collaborators", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				)
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine readable output")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session's state, artifacts, and scraped results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Describe(args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)
				snap := resp.Session

				for _, line := range renderSectionHeader("Session "+snap.ID, colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("State", statusInfo, string(snap.State), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Name", statusInfo, snap.Request.Name, colorize))
				if snap.Request.Email != "" {
					fmt.Fprintln(stdout, renderStatusLine("Email", statusInfo, snap.Request.Email, colorize))
				}
				if snap.Request.Field != "" {
					detail := snap.Request.Field
					if len(snap.Request.Specialties) > 0 {
						detail += " (" + strings.Join(snap.Request.Specialties, ", ") + ")"
					}
					fmt.Fprintln(stdout, renderStatusLine("Field", statusInfo, detail, colorize))
				}
				fmt.Fprintln(stdout, renderStatusLine("Profiles", statusInfo, strconv.Itoa(snap.PrimaryCount), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Collaborators", statusInfo, strconv.Itoa(snap.SecondaryCount), colorize))
				if snap.SelectedIndex >= 0 {
					fmt.Fprintln(stdout, renderStatusLine("Selected", statusInfo, strconv.Itoa(snap.SelectedIndex), colorize))
				}
				if snap.ErrorMessage != "" {
					fmt.Fprintln(stdout, renderStatusLine("Error", statusWarn, snap.ErrorMessage, colorize))
				}
				fmt.Fprintln(stdout, renderStatusLine("Expires", statusInfo, snap.ExpiresAt.Local().Format(time.DateTime), colorize))

				fmt.Fprintln(stdout)
				for _, line := range renderSectionHeader("Artifacts", colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("Primary result", statusInfo, yesNo(resp.Artifacts.PrimaryResult), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Primary done", statusInfo, yesNo(resp.Artifacts.PrimaryDone), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Collaborators", statusInfo, yesNo(resp.Artifacts.SecondaryResult), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Collaborators done", statusInfo, yesNo(resp.Artifacts.SecondaryDone), colorize))

				if len(resp.Profiles) > 0 {
					fmt.Fprintln(stdout)
					for _, line := range renderSectionHeader("Profiles", colorize) {
						fmt.Fprintln(stdout, line)
					}
					rows := make([][]string, 0, len(resp.Profiles))
					for i, profile := range resp.Profiles {
						rows = append(rows, []string{
							strconv.Itoa(i),
							profile.Name,
							profile.Title,
							profile.Institution,
							profile.Field,
						})
					}
					fmt.Fprintln(stdout, renderTable(
						[]string{"#", "Name", "Title", "Institution", "Field"},
						rows,
						[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
					))
				}
				if len(resp.Collaborators) > 0 {
					fmt.Fprintln(stdout)
					for _, line := range renderSectionHeader("Collaborators", colorize) {
						fmt.Fprintln(stdout, line)
					}
					rows := make([][]string, 0, len(resp.Collaborators))
					for _, collab := range resp.Collaborators {
						rows = append(rows, []string{collab.Name, collab.Institution})
					}
					fmt.Fprintln(stdout, renderTable(
						[]string{"Name", "Institution"},
						rows,
						[]columnAlignment{alignLeft, alignLeft},
					))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine readable output")
	return cmd
}

func newSelectCommand(ctx *commandContext) *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "select <session-id> <index>",
		Short: "Pick a profile from a multi-result session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid profile index %q", args[1])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Select(args[0], index)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Selected profile %d; collaborator scraping started\n", index)
				if follow {
					return watchSession(cmd, client, resp.Session.ID, false)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&follow, "watch", "w", false, "Stream session events until completion")
	return cmd
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <session-id>",
		Short: "Cancel a session and remove its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Cancel(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Session %s cancelled\n", args[0])
				return nil
			})
		},
	}
}
