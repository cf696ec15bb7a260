package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var peersCmd = &cobra.Command{
	Use:   "peers <room-token>",
	Short: "List the sessions currently in a call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		peers, err := newAPI().Peers(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("peers %s: %w", args[0], err)
		}
		renderPeers(os.Stdout, peers)
		return nil
	},
}

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List the rooms of the authenticated user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagToken == "" {
			return fmt.Errorf("rooms needs --token")
		}
		rooms, err := newAPI().Rooms(cmd.Context())
		if err != nil {
			return err
		}
		renderRooms(os.Stdout, rooms)
		return nil
	},
}
