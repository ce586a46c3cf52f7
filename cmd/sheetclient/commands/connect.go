package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	sheetnet "github.com/blutspende/go-sheetnet"
)

var (
	connectHost        string
	connectIP          string
	connectPort        int
	connectUser        string
	connectSpreadsheet string
	connectProxyV2     bool
	connectSocks       string
)

func addConnectFlags() {
	connectCmd.Flags().StringVar(&connectHost, "host", "", "server host name, overrides server.host")
	connectCmd.Flags().StringVar(&connectIP, "ip", "", "server ip address, takes precedence over --host")
	connectCmd.Flags().IntVar(&connectPort, "port", 0, "server port, overrides server.port")
	connectCmd.Flags().StringVar(&connectUser, "user", "", "user name, overrides session.user")
	connectCmd.Flags().StringVar(&connectSpreadsheet, "spreadsheet", "", "spreadsheet to join, overrides session.spreadsheet")
	connectCmd.Flags().BoolVar(&connectProxyV2, "proxy-v2", false, "send a PROXY protocol v2 header")
	connectCmd.Flags().StringVar(&connectSocks, "socks", "", "dial through this SOCKS5 proxy (host:port)")
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "joins a spreadsheet and edits it from the terminal",
	Long: `Joins a spreadsheet and reads commands from stdin:

  cell <name> <contents>   change a cell
  undo                     undo the last change of the spreadsheet
  register <user>          register another user
  cells                    print all known cells
  inject <line>            handle <line> as if the server had sent it
  quit                     leave`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		server := cfg.Server
		if connectHost != "" {
			server.Host = connectHost
			server.IP = ""
		}
		if connectIP != "" {
			server.IP = connectIP
		}
		if connectPort != 0 {
			server.Port = connectPort
		}
		session := cfg.Session
		if connectUser != "" {
			session.User = connectUser
		}
		if connectSpreadsheet != "" {
			session.Spreadsheet = connectSpreadsheet
		}
		client := cfg.Client
		if connectProxyV2 {
			client.SendProxyV2 = true
		}
		if connectSocks != "" {
			client.SocksProxy = connectSocks
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		terminal := newTerminal(cmd.OutOrStdout())
		sheet := sheetnet.NewSession(terminal, client.ClientConfiguration())
		defer sheet.Close()

		if err := sheet.Open(ctx, session.User, session.Spreadsheet, server.Host, server.IP, server.Port); err != nil {
			return err
		}
		return runTerminal(ctx, sheet, cmd.InOrStdin(), terminal)
	},
}

// terminal prints server events. Events arrive on the receive goroutine while the
// command loop prints on its own, so writes are serialized.
type terminal struct {
	mu  sync.Mutex
	out io.Writer
}

func newTerminal(out io.Writer) *terminal {
	return &terminal{out: out}
}

func (t *terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

func (t *terminal) OnConnected(cellCount int) {
	t.printf("joined, %d cells\n", cellCount)
}

func (t *terminal) OnCellUpdate(name string, contents string) {
	t.printf("%s = %s\n", name, contents)
}

func (t *terminal) OnError(code int, message string) {
	switch code {
	case sheetnet.ErrorCodeBadCellChange:
		t.printf("change refused: %s\n", message)
	case sheetnet.ErrorCodeInvalidCommand:
		t.printf("invalid command: %s\n", message)
	case sheetnet.ErrorCodeInvalidState:
		t.printf("not possible now: %s\n", message)
	case sheetnet.ErrorCodeInvalidUsername:
		t.printf("invalid user name: %s\n", message)
	default:
		t.printf("error %d: %s\n", code, message)
	}
}

func (t *terminal) OnInvalid(rawLine string, reason string) {
	t.printf("unreadable line '%s': %s\n", rawLine, reason)
}

func (t *terminal) OnCrash() {
	t.printf("connection lost\n")
}

// runTerminal executes commands read from in until quit, end of input or ctx is done
func runTerminal(ctx context.Context, sheet *sheetnet.Session, in io.Reader, t *terminal) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := execute(sheet, line, t); quit {
				return nil
			}
		}
	}
}

func execute(sheet *sheetnet.Session, line string, t *terminal) (quit bool) {
	command, rest, _ := strings.Cut(strings.TrimSpace(line), " ")

	var err error
	switch command {
	case "":
	case "quit", "exit":
		return true
	case "cell":
		name, contents, _ := strings.Cut(rest, " ")
		if name == "" {
			t.printf("usage: cell <name> <contents>\n")
			return false
		}
		err = sheet.Edit(name, contents)
	case "undo":
		err = sheet.Undo()
	case "register":
		if rest == "" {
			t.printf("usage: register <user>\n")
			return false
		}
		err = sheet.Register(rest)
	case "cells":
		cells := sheet.Cells()
		names := make([]string, 0, len(cells))
		for name := range cells {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			t.printf("%s = %s\n", name, cells[name])
		}
	case "inject":
		sheet.Inject(rest)
	default:
		t.printf("unknown command '%s'\n", command)
	}

	if err != nil {
		t.printf("%s\n", err)
	}
	return false
}
