package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	LogoutAll(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	ListPosts(ctx context.Context) error
	ShowPost(ctx context.Context) error
	AddPost(ctx context.Context) error
	EditPost(ctx context.Context) error
	LikePost(ctx context.Context) error
	DeletePost(ctx context.Context) error
}

// runREPL reads commands from reader and dispatches them to a until EOF,
// "exit" or "quit". Commands prompt through the same reader, so no input is
// buffered away from them.
//
//	Always:
//	  - help           show available commands
//	  - posts | l      list posts
//	  - show           show a single post
//	  - exit | quit    leave the program
//
//	Not logged in:
//	  - register       create an account
//	  - login          authenticate
//
//	Logged in:
//	  - whoami         reload the profile from the server
//	  - addpost        publish a post
//	  - edit           edit a post
//	  - like           like a post
//	  - delete         delete a post
//	  - logout         end this session
//	  - logoutall      end every session of the account
//
// Command errors are reported by the handlers themselves.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("gf %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		if ctx.Err() != nil {
			return
		}

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: (l)posts, show, addpost, edit, like, delete, whoami, logout, logoutall, exit")
			} else {
				printlnFn("Available commands: register, login, (l)posts, show, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "l", "posts":
			_ = a.ListPosts(ctx)

		case "show":
			_ = a.ShowPost(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		case "whoami", "addpost", "edit", "like", "delete", "logout", "logoutall":
			if !a.isLoggedIn() {
				printlnFn("Please log in first")
				continue
			}
			runProtected(ctx, a, cmd)

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func runProtected(ctx context.Context, a execIface, cmd string) {
	switch cmd {
	case "whoami":
		_ = a.WhoAmI(ctx)
	case "addpost":
		_ = a.AddPost(ctx)
	case "edit":
		_ = a.EditPost(ctx)
	case "like":
		_ = a.LikePost(ctx)
	case "delete":
		_ = a.DeletePost(ctx)
	case "logout":
		_ = a.Logout(ctx)
	case "logoutall":
		_ = a.LogoutAll(ctx)
	}
}
