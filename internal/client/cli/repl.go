package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Users(ctx context.Context) error
	Send(ctx context.Context, args []string) error
	History(ctx context.Context, args []string) error
	Search(ctx context.Context, args []string) error
	Edit(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Listen(ctx context.Context) error
}

// runREPL reads one command per line and dispatches it to a until EOF,
// "exit" or "quit". Command errors are reported and the loop continues.
//
//	Not logged in: help, register, login, exit
//	Logged in:     help, users, send <userId> <text>, history <userId> [page],
//	               search <userId> <text>, edit <messageId> <text>,
//	               delete <messageId>, listen, logout, exit
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("gophchat %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: users, send, history, search, edit, delete, listen, logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}
		case "register":
			err = a.Register(ctx)
		case "login":
			err = a.Login(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			if !isSessionCommand(cmd) {
				printlnFn("Unknown command:", cmd)
				continue
			}
			if !a.isLoggedIn() {
				printlnFn("Please login first")
				continue
			}
			err = dispatch(ctx, a, cmd, args)
		}

		if err != nil {
			printlnFn("Error:", describe(err))
		}
	}
}

func isSessionCommand(cmd string) bool {
	switch cmd {
	case "users", "send", "history", "search", "edit", "delete", "listen", "logout":
		return true
	}
	return false
}

func dispatch(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "users":
		return a.Users(ctx)
	case "send":
		return a.Send(ctx, args)
	case "history":
		return a.History(ctx, args)
	case "search":
		return a.Search(ctx, args)
	case "edit":
		return a.Edit(ctx, args)
	case "delete":
		return a.Delete(ctx, args)
	case "listen":
		return a.Listen(ctx)
	default:
		return a.Logout(ctx)
	}
}
