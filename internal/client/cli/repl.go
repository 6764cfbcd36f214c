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
	isConnected() bool
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	List(ctx context.Context) error
	Templates(ctx context.Context) error
	Open(ctx context.Context, arg string) error
	CloseDocument(ctx context.Context, arg string) error
	Show(ctx context.Context, arg string) error
	Add(ctx context.Context) error
	Edit(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
	Pretext(ctx context.Context) error
	New(ctx context.Context, name string) error
	Delete(ctx context.Context, arg string) error
	Tags(ctx context.Context, arg string) error
	Tagged(ctx context.Context, tag string) error
}

// runREPL starts a read-eval-print loop for the flogger CLI.
//
// It reads a line from reader, parses the first token as the command and
// the rest of the line as its argument, and dispatches to methods on 'a'.
// The loop exits on EOF or when the user types "exit" or "quit".
//
//	Not connected:
//	  - help           show available commands
//	  - connect        link the storage account
//	  - exit | quit    leave the program
//
//	Connected:
//	  - list, templates            list documents
//	  - open <n|path>, close [p]   manage open documents
//	  - show [path]                print the current document
//	  - add, edit <n>, rm <n>      change entries of the current document
//	  - pretext                    replace the text above the entries
//	  - new [name], delete <path>  create or remove documents
//	  - tags [path], tagged <tag>  query the tag index
//	  - whoami, disconnect
//
// Commands report their own errors; the loop keeps going.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("flogger (%s)> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		arg = strings.TrimSpace(arg)
		if cmd == "" {
			continue
		}

		switch cmd {
		case "help":
			if a.isConnected() {
				printlnFn("Available commands: (l)ist, templates, open, close, show, add, edit, rm, pretext, new, delete, tags, tagged, whoami, disconnect, exit")
			} else {
				printlnFn("Available commands: connect, exit")
			}

		case "connect":
			_ = a.Connect(ctx)

		case "disconnect":
			_ = a.Disconnect(ctx)

		case "whoami":
			_ = a.WhoAmI(ctx)

		case "l", "list":
			_ = a.List(ctx)

		case "templates":
			_ = a.Templates(ctx)

		case "open":
			if arg == "" {
				printlnFn("Usage: open <number|path>")
				continue
			}
			_ = a.Open(ctx, arg)

		case "close":
			_ = a.CloseDocument(ctx, arg)

		case "show":
			_ = a.Show(ctx, arg)

		case "add":
			_ = a.Add(ctx)

		case "edit":
			if arg == "" {
				printlnFn("Usage: edit <entry>")
				continue
			}
			_ = a.Edit(ctx, arg)

		case "rm":
			if arg == "" {
				printlnFn("Usage: rm <entry>")
				continue
			}
			_ = a.Remove(ctx, arg)

		case "pretext":
			_ = a.Pretext(ctx)

		case "new":
			_ = a.New(ctx, arg)

		case "delete":
			if arg == "" {
				printlnFn("Usage: delete <number|path>")
				continue
			}
			_ = a.Delete(ctx, arg)

		case "tags":
			_ = a.Tags(ctx, arg)

		case "tagged":
			if arg == "" {
				printlnFn("Usage: tagged <tag>")
				continue
			}
			_ = a.Tagged(ctx, arg)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if errors.Is(err, io.EOF) {
			return
		}
	}
}
