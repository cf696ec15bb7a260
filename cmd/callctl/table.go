package main

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/thereayou/talk-signaling/pkg/signaling"
)

func newTable(out io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title)
	return t
}

func renderPeers(out io.Writer, peers []signaling.Peer) {
	t := newTable(out, "In call")
	t.AppendHeader(table.Row{"Session", "User", "Last ping"})
	for _, p := range peers {
		user := p.UserID
		if user == "" {
			user = "(guest)"
		}
		t.AppendRow(table.Row{short(p.SessionID), user, time.Unix(p.LastPing, 0).Format(time.TimeOnly)})
	}
	t.AppendFooter(table.Row{"", "Total", len(peers)})
	t.Render()
}

func renderContacts(out io.Writer, contacts signaling.PeerContactList) {
	t := newTable(out, "To contact")
	t.AppendHeader(table.Row{"Session", "Video"})
	for _, id := range sortedContacts(contacts) {
		t.AppendRow(table.Row{short(id), contacts[id].Video})
	}
	t.Render()
}

func renderRooms(out io.Writer, rooms []signaling.Room) {
	t := newTable(out, "Rooms")
	t.AppendHeader(table.Row{"Token", "Name", "Type", "In call"})
	for _, r := range rooms {
		t.AppendRow(table.Row{r.Token, r.Name, r.Type, r.InCall})
	}
	t.Render()
}
