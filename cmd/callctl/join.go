package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/thereayou/talk-signaling/pkg/signaling"
)

var flagHello bool

var joinCmd = &cobra.Command{
	Use:   "join <room-token>",
	Short: "Join a call and stream its signaling events",
	Long: `Join the call of a room, print the peers this session has to contact,
then print every roster update and signaling message until interrupted.

Examples:
  callctl join abcd1234
  callctl join abcd1234 --hello --token $TALK_TOKEN`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJoin(cmd.Context(), args[0], os.Stdout)
	},
}

func init() {
	joinCmd.Flags().BoolVar(&flagHello, "hello", false, "send a custom hello message to every contact")
}

func runJoin(ctx context.Context, roomToken string, out io.Writer) error {
	client, err := signaling.New(clientConfig())
	if err != nil {
		return err
	}
	defer client.Close()

	events, cancel := client.Subscribe(64)
	defer cancel()

	sid, contacts, err := client.Join(ctx, roomToken)
	if err != nil {
		return fmt.Errorf("join %s: %w", roomToken, err)
	}
	fmt.Fprintf(out, "joined %s as %s\n", roomToken, short(sid))
	renderContacts(out, contacts)

	if flagHello {
		for peer := range contacts {
			client.Send(signaling.Message{
				To:      peer,
				Type:    signaling.TypeCustom,
				Payload: json.RawMessage(`{"hello":true}`),
			})
		}
	}

	for {
		select {
		case <-ctx.Done():
			leaveCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return client.Leave(leaveCtx)

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if printEvent(out, ev) {
				return nil
			}
		}
	}
}

// printEvent writes ev and reports whether the call is over.
func printEvent(out io.Writer, ev signaling.Event) bool {
	switch ev.Kind {
	case signaling.EventUsersInRoom:
		renderPeers(out, ev.Users)
	case signaling.EventMessage:
		fmt.Fprintf(out, "%s  %-9s from %s: %s\n",
			time.Now().Format(time.TimeOnly), ev.Message.Type, short(ev.Message.From), ev.Message.Payload)
	case signaling.EventRooms:
		renderRooms(out, ev.Rooms)
	case signaling.EventCallLeft:
		fmt.Fprintf(out, "call ended: %s\n", ev.Reason)
		return true
	}
	return false
}

func sortedContacts(contacts signaling.PeerContactList) []string {
	ids := make([]string, 0, len(contacts))
	for id := range contacts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func short(sid string) string {
	if len(sid) <= 12 {
		return sid
	}
	return sid[:12] + "…"
}
