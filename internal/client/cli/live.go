package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/server/presence"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

var errAlreadyListening = errors.New("live channel is already open")

type liveFrame struct {
	Type    presence.EventType `json:"type"`
	Payload json.RawMessage    `json:"payload"`
}

// Listen opens the live channel, joins as the logged-in user and prints
// presence changes and incoming messages until logout or exit.
func (a *App) Listen(ctx context.Context) error {
	a.mu.Lock()
	open := a.live != nil
	a.mu.Unlock()
	if open {
		return errAlreadyListening
	}

	hdr := http.Header{"Authorization": []string{"Bearer " + a.token}}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, a.config.LiveURL, hdr)
	if err != nil {
		return err
	}

	join := presence.Event{Type: presence.EventJoin, Payload: map[string]int64{"userId": a.userID}}
	if err := conn.WriteJSON(join); err != nil {
		_ = conn.Close()
		return err
	}

	a.mu.Lock()
	a.live = conn
	a.mu.Unlock()

	go a.readLive(conn)
	a.println("Listening for messages")
	return nil
}

func (a *App) readLive(conn *websocket.Conn) {
	for {
		var f liveFrame
		if err := conn.ReadJSON(&f); err != nil {
			a.mu.Lock()
			current := a.live == conn
			if current {
				a.live = nil
			}
			a.mu.Unlock()
			if current {
				a.println("Live channel closed")
			}
			return
		}
		if line := a.formatLive(f); line != "" {
			a.println(line)
		}
	}
}

func (a *App) formatLive(f liveFrame) string {
	switch f.Type {
	case presence.EventOnlineUsers:
		var p presence.OnlineUsersPayload
		if json.Unmarshal(f.Payload, &p) != nil {
			return ""
		}
		others := lo.Filter(p.UserIDs, func(id int64, _ int) bool { return id != a.userID })
		if len(others) == 0 {
			return "* nobody else is online"
		}
		ids := lo.Map(others, func(id int64, _ int) string { return strconv.FormatInt(id, 10) })
		return "* online: " + strings.Join(ids, ", ")
	case presence.EventDeliver:
		var p presence.MessagePayload
		if json.Unmarshal(f.Payload, &p) != nil {
			return ""
		}
		return fmt.Sprintf("<- %d: %s", p.SenderID, p.Content)
	case presence.EventError:
		var p presence.ErrorPayload
		if json.Unmarshal(f.Payload, &p) != nil {
			return ""
		}
		return fmt.Sprintf("! %s: %s", p.Code, p.Message)
	}
	return ""
}

func (a *App) stopLive() {
	a.mu.Lock()
	conn := a.live
	a.live = nil
	a.mu.Unlock()

	if conn != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}
}
