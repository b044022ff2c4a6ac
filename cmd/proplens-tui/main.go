// ABOUTME: Terminal client for the PropLens property-sales assistant.
// ABOUTME: Streams assistant replies live, with local history and HTML transcript export.

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/GrasiaMeliolla/property-sales-agentic-assistant/internal/api"
	"github.com/GrasiaMeliolla/property-sales-agentic-assistant/internal/config"
	"github.com/GrasiaMeliolla/property-sales-agentic-assistant/internal/session"
	"github.com/GrasiaMeliolla/property-sales-agentic-assistant/internal/store"
	"github.com/GrasiaMeliolla/property-sales-agentic-assistant/internal/transcript"
)

// Version is set by goreleaser at build time.
var version = "dev"

var (
	userColor  = color.New(color.FgBlue, color.Bold)
	replyColor = color.New(color.FgGreen)
	cardColor  = color.New(color.FgYellow)
	errColor   = color.New(color.FgRed)
	dimColor   = color.New(color.Faint)
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "Path to client config file")
	server := flag.String("server", "", "Backend URL (overrides config)")
	once := flag.String("once", "", "Send one message without streaming and exit")
	noHistory := flag.Bool("no-history", false, "Disable local history persistence")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("proplens-tui %s\n", version)
		return
	}

	cfg := loadConfig(*configPath)
	if *server != "" {
		cfg.Backend.URL = *server
	}
	if *noHistory {
		cfg.History.Enabled = false
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger, *once); err != nil {
		errColor.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to defaults when it
// does not exist.
func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config.Default()
		}
		errColor.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, once string) error {
	client := api.NewClient(cfg.Backend.URL, &http.Client{Timeout: cfg.Backend.RequestTimeout}, logger)

	fmt.Printf("proplens-tui connected to %s\n", cfg.Backend.URL)
	if err := client.Health(ctx); err != nil {
		dimColor.Printf("(backend health check failed: %v)\n", err)
	}

	sess := session.New(&backendAdapter{client: client}, logger)
	if err := sess.Start(ctx); err != nil {
		return fmt.Errorf("starting conversation: %w", err)
	}
	dimColor.Printf("conversation %s\n", sess.ConversationID())

	// One-shot mode uses the non-streaming endpoint and exits.
	if once != "" {
		result, err := client.Chat(ctx, sess.ConversationID(), once)
		if err != nil {
			return err
		}
		replyColor.Println(result.Response)
		for _, p := range result.RecommendedProjects {
			cardColor.Printf("  • %s\n", p)
		}
		return nil
	}

	var history *store.SQLiteStore
	if cfg.History.Enabled {
		var err error
		history, err = store.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			dimColor.Printf("(history disabled: %v)\n", err)
		} else {
			defer history.Close()
			recordConversation(ctx, history, sess.ConversationID())
		}
	}

	fmt.Println("Type a message and press Enter. /help for commands. Ctrl+C to quit.")
	fmt.Println()

	if err := interact(ctx, client, sess, history); err != nil {
		return err
	}

	fmt.Println("\nGoodbye!")
	return nil
}

func interact(ctx context.Context, client *api.Client, sess *session.Session, history *store.SQLiteStore) error {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")

		// Read input with context awareness
		inputCh := make(chan string, 1)
		errCh := make(chan error, 1)

		go func() {
			if scanner.Scan() {
				inputCh <- scanner.Text()
			} else {
				if err := scanner.Err(); err != nil {
					errCh <- err
				} else {
					errCh <- io.EOF
				}
			}
		}()

		var input string
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		case input = <-inputCh:
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if input == "/quit" || input == "/exit" || input == "/q" {
			return nil
		}

		if input == "/help" {
			printHelp()
			fmt.Println()
			continue
		}

		if input == "/history" {
			showHistory(ctx, history, sess.ConversationID())
			fmt.Println()
			continue
		}

		if strings.HasPrefix(input, "/export") {
			path := strings.TrimSpace(strings.TrimPrefix(input, "/export"))
			if path == "" {
				path = fmt.Sprintf("proplens-%s.html", time.Now().Format("20060102-150405"))
			}
			exportTranscript(sess, path)
			fmt.Println()
			continue
		}

		if strings.HasPrefix(input, "/") {
			fmt.Println("Unknown command. /help for commands.")
			fmt.Println()
			continue
		}

		exchange(ctx, sess, input)
		persistExchange(ctx, history, sess)
		fmt.Println()
	}
}

// exchange runs one send-and-stream round, printing assistant text as it
// accretes and property cards once they attach.
func exchange(ctx context.Context, sess *session.Session, text string) {
	var printed int
	var cardsShown bool

	sess.OnUpdate = func() {
		log := sess.Log()
		if len(log) == 0 {
			return
		}
		last := log[len(log)-1]
		if last.Role != session.RoleAssistant {
			return
		}
		if len(last.Content) > printed {
			replyColor.Print(last.Content[printed:])
			printed = len(last.Content)
		}
		if !cardsShown && len(last.Properties) > 0 {
			fmt.Println()
			for _, p := range last.Properties {
				cardColor.Printf("  • %s\n", p)
			}
			cardsShown = true
		}
	}
	defer func() { sess.OnUpdate = nil }()

	sess.Send(ctx, text)
	fmt.Println()

	if msg := sess.LastError(); msg != "" {
		errColor.Printf("[error] %s\n", msg)
	}
}

// persistExchange saves the newest completed user/assistant pair.
func persistExchange(ctx context.Context, history *store.SQLiteStore, sess *session.Session) {
	if history == nil {
		return
	}

	log := sess.Log()
	if len(log) < 2 {
		return
	}
	// The last two entries are this exchange, unless the placeholder was
	// retracted on failure.
	tail := log[len(log)-2:]
	if tail[0].Role != session.RoleUser || tail[1].Role != session.RoleAssistant || tail[1].Streaming {
		return
	}

	now := time.Now()
	for _, m := range tail {
		err := history.SaveMessage(ctx, &store.Message{
			ID:             m.ID,
			ConversationID: sess.ConversationID(),
			Role:           string(m.Role),
			Content:        m.Content,
			Properties:     m.Properties,
			CreatedAt:      now,
		})
		if err != nil {
			slog.Debug("failed to persist message", "error", err)
		}
		now = now.Add(time.Millisecond) // keep chronological order stable
	}
	recordConversation(ctx, history, sess.ConversationID())
}

func recordConversation(ctx context.Context, history *store.SQLiteStore, conversationID string) {
	now := time.Now()
	err := history.SaveConversation(ctx, &store.Conversation{
		ID:        conversationID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		slog.Debug("failed to persist conversation", "error", err)
	}
}

// showHistory prints earlier messages of this conversation from the
// local store.
func showHistory(ctx context.Context, history *store.SQLiteStore, conversationID string) {
	if history == nil {
		fmt.Println("History is disabled.")
		return
	}

	messages, err := history.GetMessages(ctx, conversationID, 50)
	if err != nil {
		errColor.Printf("[error] %v\n", err)
		return
	}
	if len(messages) == 0 {
		fmt.Println("No stored history for this conversation.")
		return
	}

	fmt.Println(strings.Repeat("-", 60))
	for _, msg := range messages {
		if msg.Role == "user" {
			userColor.Printf("you: ")
			fmt.Println(msg.Content)
		} else {
			replyColor.Println(msg.Content)
			for _, p := range msg.Properties {
				cardColor.Printf("  • %s\n", p)
			}
		}
	}
	fmt.Println(strings.Repeat("-", 60))
}

func exportTranscript(sess *session.Session, path string) {
	f, err := os.Create(path)
	if err != nil {
		errColor.Printf("[error] %v\n", err)
		return
	}
	defer f.Close()

	if err := transcript.ExportHTML(f, sess.ConversationID(), sess.Log()); err != nil {
		errColor.Printf("[error] %v\n", err)
		return
	}
	fmt.Printf("Transcript written to %s\n", path)
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /history          Show stored messages for this conversation")
	fmt.Println("  /export [path]    Write an HTML transcript")
	fmt.Println("  /help             Show this help")
	fmt.Println("  /quit             Exit")
}

// backendAdapter narrows api.Client to what the session needs.
type backendAdapter struct {
	client *api.Client
}

func (b *backendAdapter) CreateConversation(ctx context.Context) (string, error) {
	conv, err := b.client.CreateConversation(ctx)
	if err != nil {
		return "", err
	}
	return conv.ID, nil
}

func (b *backendAdapter) StreamChat(ctx context.Context, conversationID, message string) (session.EventStream, error) {
	es, err := b.client.StreamChat(ctx, conversationID, message)
	if err != nil {
		return nil, err
	}
	return es, nil
}
