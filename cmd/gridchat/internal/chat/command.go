// Package chat implements the interactive terminal chat command: it wires
// config, state, the REST client, the frame bus, the connection manager
// and the sync engine together, then runs a readline REPL over the result.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/tinyland-inc/gridchat/cmd/gridchat/internal"
	"github.com/tinyland-inc/gridchat/pkg/api"
	"github.com/tinyland-inc/gridchat/pkg/bus"
	"github.com/tinyland-inc/gridchat/pkg/chat"
	"github.com/tinyland-inc/gridchat/pkg/conn"
	"github.com/tinyland-inc/gridchat/pkg/engine"
	"github.com/tinyland-inc/gridchat/pkg/logger"
	"github.com/tinyland-inc/gridchat/pkg/state"
)

func NewChatCommand() *cobra.Command {
	var debug bool
	var token string

	cmd := &cobra.Command{
		Use:     "chat",
		Short:   "Connect to the chat service and talk from the terminal",
		Example: "gridchat chat --token <token>",
		RunE: func(cmd *cobra.Command, args []string) error {
			return chatCmd(debug, token)
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.Flags().StringVar(&token, "token", "", "auth token (overrides config and saved state)")
	return cmd
}

// session holds the wired-up chat stack plus the latest polled roster.
type session struct {
	eng *engine.Engine
	mgr *conn.Manager

	mu     sync.Mutex
	roster []api.Player
}

func (s *session) setRoster(players []api.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roster = players
}

func (s *session) players() []api.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.Player(nil), s.roster...)
}

func chatCmd(debug bool, tokenFlag string) error {
	if debug {
		logger.SetLevel(logger.DEBUG)
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	st := state.NewManager(cfg.WorkspacePath())
	token := tokenFlag
	if token == "" {
		token = cfg.Token
	}
	if token == "" {
		token = st.Token()
	}
	if token != "" && token != st.Token() {
		st.SetToken(token)
	}

	fb := bus.NewFrameBus()
	eng := engine.New(fb)
	eng.SetSelectionRecorder(st)
	eng.SetFallbackSelf(st.LastPeer())

	playerID := ""
	if u := st.User(); u != nil {
		playerID = u.ID
		eng.SetSelf(u.ID)
	}

	client := api.NewClient(cfg.ServerURL)

	// Resolve identity and seed unread counters. Both are best-effort;
	// the socket still works from cached identity.
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if id, err := client.WhoAmI(bootCtx, token); err == nil {
		playerID = id
		eng.SetSelf(id)
	} else if !errors.Is(err, api.ErrNotAuthenticated) {
		logger.WarnCF("chat", "whoami failed", map[string]any{"error": err.Error()})
	}
	if counts, err := client.UnreadSummary(bootCtx, token); err == nil {
		eng.BootstrapUnread(counts)
	}
	bootCancel()

	socketURL, err := cfg.SocketURL()
	if err != nil {
		return err
	}

	mgr := conn.NewManager(conn.Config{
		URL:            socketURL,
		Token:          token,
		PlayerID:       playerID,
		ClientID:       st.ClientID(),
		ReconnectDelay: cfg.ReconnectDelay(),
	}, fb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess := &session{eng: eng, mgr: mgr}

	go eng.Run(ctx)
	go mgr.RunOutbound(ctx)
	go api.NewPoller(client, cfg.PollInterval(), sess.setRoster).Run(ctx)

	mgr.Connect(ctx)

	fmt.Printf("gridchat %s - /help for commands, /quit to exit\n", internal.GetVersion())
	if playerID != "" {
		fmt.Printf("signed in as %s\n", playerID)
	}

	err = runREPL(sess)

	cancel()
	mgr.Teardown()
	fb.Close()
	return err
}

func runREPL(s *session) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			if s.eng.Selected() == "" {
				fmt.Println("no conversation selected; /select <peer> first")
				continue
			}
			s.eng.SendMessage(line, "")
			continue
		}
		if quit := handleCommand(s, line); quit {
			return nil
		}
	}
}

// handleCommand dispatches one /command line and reports whether the REPL
// should exit.
func handleCommand(s *session, line string) bool {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Print(helpText)

	case "/select":
		if len(args) != 1 {
			fmt.Println("usage: /select <peer>")
			break
		}
		s.eng.SelectPeer(args[0])
		fmt.Printf("talking to %s\n", args[0])

	case "/peers":
		players := s.players()
		if len(players) == 0 {
			fmt.Println("no active players")
			break
		}
		for _, p := range players {
			marker := " "
			if p.IsConnected {
				marker = "*"
			}
			fmt.Printf("%s %s (%s)\n", marker, p.ID, p.Username)
		}

	case "/unread":
		counts := s.eng.UnreadCounts()
		if len(counts) == 0 {
			fmt.Println("all caught up")
			break
		}
		for peer, n := range counts {
			if n > 0 {
				fmt.Printf("%s: %d\n", peer, n)
			}
		}

	case "/read":
		if len(args) != 1 {
			fmt.Println("usage: /read <peer>")
			break
		}
		s.eng.MarkRead(args[0])

	case "/react":
		if len(args) != 2 {
			fmt.Println("usage: /react <message-id> up|down")
			break
		}
		s.eng.React(args[0], chat.Reaction(args[1]))

	case "/delete":
		if len(args) != 1 {
			fmt.Println("usage: /delete <message-id>")
			break
		}
		s.eng.Delete(args[0])

	case "/quote":
		if len(args) < 2 {
			fmt.Println("usage: /quote <message-id> <text>")
			break
		}
		if s.eng.Selected() == "" {
			fmt.Println("no conversation selected; /select <peer> first")
			break
		}
		s.eng.SendMessage(strings.Join(args[1:], " "), args[0])

	case "/history":
		peer := s.eng.Selected()
		if len(args) == 1 {
			peer = args[0]
		}
		if peer == "" {
			fmt.Println("usage: /history [peer]")
			break
		}
		printConversation(s, peer)

	case "/status":
		fmt.Printf("connection: %s, self: %s, selected: %s\n",
			s.mgr.State(), s.eng.Self(), s.eng.Selected())

	default:
		fmt.Printf("unknown command %s; /help for commands\n", cmd)
	}
	return false
}

func printConversation(s *session, peer string) {
	msgs := s.eng.Conversation(peer)
	for i := range msgs {
		m := &msgs[i]
		text := m.Text
		if m.Deleted {
			text = "(message deleted)"
		}
		prefix := ""
		if m.Kind == chat.KindBroadcast {
			prefix = "[broadcast] "
		}
		fmt.Printf("%s %s: %s%s", m.Timestamp, m.From, prefix, text)
		if m.Quoted != nil {
			fmt.Printf("  (replying to %s: %q)", m.Quoted.From, m.Quoted.Text)
		}
		if m.Reaction != chat.ReactionNone {
			fmt.Printf("  [%s]", m.Reaction)
		}
		fmt.Println()
	}
}

const helpText = `commands:
  /select <peer>          open a conversation
  /peers                  list active players (* = connected)
  /unread                 show unread counts
  /read <peer>            mark a thread read
  /react <id> up|down     toggle a private reaction
  /delete <id>            soft-delete one of your messages
  /quote <id> <text>      reply quoting a message
  /history [peer]         print a conversation
  /status                 connection and selection state
  /quit                   exit
anything else is sent to the selected peer.
`
