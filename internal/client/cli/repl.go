package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL dispatches to. App implements
// it; tests provide a stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) error
	Whoami(ctx context.Context) error
	Tokens(ctx context.Context) error
	Revoke(ctx context.Context, tokenID string) error
	RevokeAll(ctx context.Context) error
	Ping(ctx context.Context) error
}

// runREPL reads commands from reader until EOF, "exit" or "quit".
//
//	Not logged in:  help, register, login, ping, exit
//	Logged in:      help, whoami, tokens, revoke <jti>, revoke-all, refresh, logout, ping, exit
//
// Command handlers report their own errors, so they are ignored here.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		fmt.Fprintf(w, "jwtctl %s> ", statusFn())

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(w, "Available commands: whoami, tokens, revoke <jti>, revoke-all, refresh, logout, ping, exit")
			} else {
				fmt.Fprintln(w, "Available commands: register, login, ping, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "refresh":
			_ = a.Refresh(ctx)

		case "whoami":
			_ = a.Whoami(ctx)

		case "tokens", "ls":
			_ = a.Tokens(ctx)

		case "revoke":
			if len(args) != 1 {
				fmt.Fprintln(w, "Usage: revoke <jti>")
				continue
			}
			_ = a.Revoke(ctx, args[0])

		case "revoke-all":
			_ = a.RevokeAll(ctx)

		case "ping":
			_ = a.Ping(ctx)

		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return

		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}
	}
}
