package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) error
	Update(ctx context.Context) error
	Scenarios(ctx context.Context) error
	Compile(ctx context.Context, rowsFile, outFile string) error
	Build(ctx context.Context, rowsFile, accountsFile, family string) error
	Results(ctx context.Context, runID string) error
}

// runREPL starts a simple read–eval–print loop for the AutoMailPro CLI.
//
// It reads a line from in, parses the first token as the command, and
// dispatches to methods on 'a'. Unknown commands are reported back to the
// user. The loop exits on EOF, when ctx is done, or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Always:
//	  - help                                   show available commands
//	  - status                                 session and update state
//	  - update                                 check for and apply updates
//	  - compile <rows.json> [out.json]         compile editor rows
//	  - exit | quit                            leave the program
//
//	Not logged in:
//	  - login                                  authenticate
//
//	Logged in:
//	  - scenarios                              list saved scenarios
//	  - build <rows.json> <accounts.json> [chromium|firefox]
//	                                           build and install extensions
//	  - results [runID]                        show results of a run
//	  - logout                                 log out
//
// Handler errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, in *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("amp %s> ", statusFn()))
		line, err := in.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: status, update, scenarios, compile, build, results, logout, exit")
			} else {
				printlnFn("Available commands: login, status, update, compile, exit")
			}

		case "login":
			cmdErr = a.Login(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "status":
			cmdErr = a.Status(ctx)

		case "update":
			cmdErr = a.Update(ctx)

		case "scenarios":
			cmdErr = a.Scenarios(ctx)

		case "compile":
			if len(args) == 0 {
				printlnFn("Usage: compile <rows.json> [out.json]")
				continue
			}
			cmdErr = a.Compile(ctx, args[0], arg(args, 1))

		case "build":
			if len(args) < 2 {
				printlnFn("Usage: build <rows.json> <accounts.json> [chromium|firefox]")
				continue
			}
			cmdErr = a.Build(ctx, args[0], args[1], arg(args, 2))

		case "results":
			cmdErr = a.Results(ctx, arg(args, 0))

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
	}
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
