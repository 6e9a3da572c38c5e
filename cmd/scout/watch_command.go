package main

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"scout/internal/event"
	"scout/internal/ipc"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "watch <session-id>",
		Short: "Stream a session's events until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				return watchSession(cmd, client, args[0], asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit raw event JSON, one object per line")
	return cmd
}

// watchSession attaches to the daemon's websocket event stream and renders
// events until the server closes the stream.
func watchSession(cmd *cobra.Command, client *ipc.Client, id string, asJSON bool) error {
	status, err := client.Status()
	if err != nil {
		return err
	}
	if status.APIAddr == "" {
		return fmt.Errorf("event streaming requires the daemon HTTP API; set api_bind in the configuration")
	}

	url := "ws://" + status.APIAddr + "/api/sessions/" + id + "/events"
	conn, resp, err := websocket.DefaultDialer.DialContext(cmd.Context(), url, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return fmt.Errorf("connect to event stream: %w", err)
	}
	defer conn.Close()

	stdout := cmd.OutOrStdout()
	for {
		var evt event.Event
		if err := conn.ReadJSON(&evt); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			if cmd.Context().Err() != nil {
				return cmd.Context().Err()
			}
			return fmt.Errorf("event stream: %w", err)
		}
		if asJSON {
			data, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			fmt.Fprintln(stdout, string(data))
			continue
		}
		if line := renderEvent(evt); line != "" {
			fmt.Fprintln(stdout, line)
		}
	}
}

func renderEvent(evt event.Event) string {
	switch evt.Type {
	case event.TypeHeartbeat:
		return ""
	case event.TypeSessionStarted:
		return fmt.Sprintf("[%d] session started", evt.Sequence)
	case event.TypeProgressUpdate:
		var payload event.ProgressPayload
		if err := json.Unmarshal(evt.Data, &payload); err != nil {
			break
		}
		return fmt.Sprintf("[%d] %s: %d found (+%d)", evt.Sequence, payload.Stage, payload.Found, payload.Delta)
	case event.TypeResultFound:
		var payload event.ResultPayload
		if err := json.Unmarshal(evt.Data, &payload); err != nil {
			break
		}
		return fmt.Sprintf("[%d] result: %s (%d profiles)", evt.Sequence, payload.Outcome, payload.Count)
	case event.TypeSelectionRequired:
		var payload event.SelectionPayload
		if err := json.Unmarshal(evt.Data, &payload); err != nil {
			break
		}
		return fmt.Sprintf("[%d] selection required among %d profiles; run `scout select %s <index>`",
			evt.Sequence, payload.Count, evt.SessionID)
	case event.TypeStageAutoAdvanced:
		var payload event.AdvancePayload
		if err := json.Unmarshal(evt.Data, &payload); err != nil {
			break
		}
		return fmt.Sprintf("[%d] advancing to %s (%s)", evt.Sequence, payload.ToStage, payload.Reason)
	case event.TypeCompleted:
		var payload event.CompletedPayload
		if err := json.Unmarshal(evt.Data, &payload); err != nil {
			break
		}
		return fmt.Sprintf("[%d] completed: %d profiles, %d collaborators",
			evt.Sequence, payload.Profiles, payload.Collaborators)
	case event.TypeTimeoutWarning:
		var payload event.TimeoutPayload
		if err := json.Unmarshal(evt.Data, &payload); err != nil {
			break
		}
		return fmt.Sprintf("[%d] timeout in %s stage; %d partial results kept",
			evt.Sequence, payload.Stage, payload.Partial)
	case event.TypeError:
		var payload event.ErrorPayload
		if err := json.Unmarshal(evt.Data, &payload); err != nil {
			break
		}
		return fmt.Sprintf("[%d] error: %s", evt.Sequence, payload.Message)
	}
	return fmt.Sprintf("[%d] %s", evt.Sequence, evt.Type)
}
