package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for REPL output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Log(ctx context.Context, args []string) error
	List(ctx context.Context) error
	More(ctx context.Context) error
	Delete(ctx context.Context, args []string) error
	Refresh(ctx context.Context) error
	Profile(ctx context.Context) error
	Price(ctx context.Context, args []string) error
	Currency(ctx context.Context, args []string) error
	Stats(ctx context.Context) error
}

const (
	helpSignedOut = "Available commands: register, login, exit"
	helpSignedIn  = "Available commands: log [reason], (l)ist, more, delete <n|id>, refresh, " +
		"profile, price [amount|recommended], currency [code], stats, logout, exit"
)

// runREPL starts a simple read–eval–print loop for the PuffPass CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Commands that need a session are refused
// while signed out. The loop exits on EOF or when the user types "exit" or
// "quit".
//
// Errors returned by command handlers are ignored here; handlers print
// their own messages. This keeps the loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("puff (%s)> ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
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
				printlnFn(helpSignedIn)
			} else {
				printlnFn(helpSignedOut)
			}
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		case "register":
			_ = a.Register(ctx)
			continue
		case "login":
			_ = a.Login(ctx)
			continue
		}

		if !a.isLoggedIn() {
			if isKnown(cmd) {
				printlnFn("Please log in first.")
			} else {
				printlnFn("Unknown command:", cmd)
			}
			continue
		}

		switch cmd {
		case "logout":
			_ = a.Logout(ctx)
		case "log":
			_ = a.Log(ctx, args)
		case "l", "list":
			_ = a.List(ctx)
		case "more":
			_ = a.More(ctx)
		case "delete":
			_ = a.Delete(ctx, args)
		case "refresh":
			_ = a.Refresh(ctx)
		case "profile":
			_ = a.Profile(ctx)
		case "price":
			_ = a.Price(ctx, args)
		case "currency":
			_ = a.Currency(ctx, args)
		case "stats":
			_ = a.Stats(ctx)
		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func isKnown(cmd string) bool {
	switch cmd {
	case "logout", "log", "l", "list", "more", "delete", "refresh",
		"profile", "price", "currency", "stats":
		return true
	}
	return false
}
