package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	gs "github.com/dmitrijs2005/gophchat/internal/server/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const historyPageSize = 20

// callContext bounds a request by the configured timeout and attaches the
// access token when logged in.
func (a *App) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	cancel := context.CancelFunc(func() {})
	if a.config != nil && a.config.RequestTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, a.config.RequestTimeout)
	}
	if a.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, a.token)
	}
	return ctx, cancel
}

// describe turns a gRPC status into the server's message.
func describe(err error) string {
	if s, ok := status.FromError(err); ok {
		return s.Message()
	}
	return err.Error()
}

func parseID(args []string, i int, what string) (int64, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("%s is required", what)
	}
	id, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive number", what)
	}
	return id, nil
}

func text(args []string, from int) (string, error) {
	if len(args) <= from {
		return "", errors.New("text is required")
	}
	return strings.Join(args[from:], " "), nil
}

func (a *App) Users(ctx context.Context) error {
	ctx, cancel := a.callContext(ctx)
	defer cancel()

	res, err := a.api.ListUsers(ctx, &gs.ListUsersRequest{})
	if err != nil {
		return err
	}

	if len(res.Users) == 0 {
		a.println("No other users yet")
	}
	for _, u := range res.Users {
		a.printf("%d\t%s\t%s\n", u.ID, u.Name, u.Email)
	}
	return nil
}

// Send usage: send <userId> <text...>
func (a *App) Send(ctx context.Context, args []string) error {
	to, err := parseID(args, 0, "userId")
	if err != nil {
		return err
	}
	content, err := text(args, 1)
	if err != nil {
		return err
	}

	ctx, cancel := a.callContext(ctx)
	defer cancel()

	res, err := a.api.SendMessage(ctx, &gs.SendMessageRequest{ReceiverID: to, Content: content})
	if err != nil {
		return err
	}

	outcome := "stored, recipient offline"
	if res.Delivered {
		outcome = "delivered"
	}
	a.printf("Message #%d %s\n", res.Message.ID, outcome)
	return nil
}

// History usage: history <userId> [page]
func (a *App) History(ctx context.Context, args []string) error {
	peer, err := parseID(args, 0, "userId")
	if err != nil {
		return err
	}
	page := 1
	if len(args) > 1 {
		p, err := parseID(args, 1, "page")
		if err != nil {
			return err
		}
		page = int(p)
	}

	ctx, cancel := a.callContext(ctx)
	defer cancel()

	res, err := a.api.GetHistory(ctx, &gs.GetHistoryRequest{PeerID: peer, Page: page, PageSize: historyPageSize, Sort: "asc"})
	if err != nil {
		return err
	}

	a.printPage(res)
	return nil
}

// Search usage: search <userId> <text...>
func (a *App) Search(ctx context.Context, args []string) error {
	peer, err := parseID(args, 0, "userId")
	if err != nil {
		return err
	}
	q, err := text(args, 1)
	if err != nil {
		return err
	}

	ctx, cancel := a.callContext(ctx)
	defer cancel()

	res, err := a.api.SearchMessages(ctx, &gs.SearchMessagesRequest{PeerID: peer, Text: q, PageSize: historyPageSize, Sort: "asc"})
	if err != nil {
		return err
	}

	a.printPage(res)
	return nil
}

// Edit usage: edit <messageId> <text...>
func (a *App) Edit(ctx context.Context, args []string) error {
	id, err := parseID(args, 0, "messageId")
	if err != nil {
		return err
	}
	content, err := text(args, 1)
	if err != nil {
		return err
	}

	ctx, cancel := a.callContext(ctx)
	defer cancel()

	if _, err := a.api.EditMessage(ctx, &gs.EditMessageRequest{MessageID: id, Content: content}); err != nil {
		return err
	}
	a.printf("Message #%d edited\n", id)
	return nil
}

// Delete usage: delete <messageId>
func (a *App) Delete(ctx context.Context, args []string) error {
	id, err := parseID(args, 0, "messageId")
	if err != nil {
		return err
	}

	ctx, cancel := a.callContext(ctx)
	defer cancel()

	if _, err := a.api.DeleteMessage(ctx, &gs.DeleteMessageRequest{MessageID: id}); err != nil {
		return err
	}
	a.printf("Message #%d deleted\n", id)
	return nil
}

func (a *App) printPage(p *gs.MessagePageResponse) {
	if len(p.Messages) == 0 {
		a.println("No messages")
		return
	}
	for _, m := range p.Messages {
		a.println(formatMessage(m, a.userID))
	}
	a.printf("page %d of %d\n", p.CurrentPage, p.TotalPages)
}

func formatMessage(m gs.Message, self int64) string {
	from := strconv.FormatInt(m.SenderID, 10)
	if m.SenderID == self {
		from = "me"
	}
	line := fmt.Sprintf("#%d [%s] %s: %s", m.ID, m.CreatedAt.Local().Format(time.DateTime), from, m.Content)
	if m.UpdatedAt.After(m.CreatedAt) {
		line += " (edited)"
	}
	return line
}
