package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"chatdesk/internal/store"
	"chatdesk/internal/sync"
	"chatdesk/internal/ui"
)

var (
	apiURL   string
	relayURL string
	tenant   string
	username string
	password string
)

func main() {
	root := &cobra.Command{
		Use:   "monitor",
		Short: "Terminal dashboard for reviewing chatbot conversations",
		Long: `Monitor streams conversation activity from the chatdesk API and relay.
Sessions update live over the relay websocket; when the relay is
unreachable the monitor falls back to polling.`,
		RunE: runMonitor,
	}

	root.PersistentFlags().StringVar(&apiURL, "api", envOr("CHATDESK_API_URL", "http://localhost:8787"), "dashboard API base URL")
	root.PersistentFlags().StringVar(&tenant, "tenant", "al-azhar", "tenant to open (al-azhar or lestari)")
	root.PersistentFlags().StringVar(&username, "username", os.Getenv("DASHBOARD_USERNAME"), "dashboard username")
	root.PersistentFlags().StringVar(&password, "password", os.Getenv("DASHBOARD_PASSWORD"), "dashboard password")
	root.Flags().StringVar(&relayURL, "relay", envOr("RELAY_URL", "ws://localhost:4000/ws"), "push relay websocket URL")

	exportCmd := &cobra.Command{
		Use:   "export [session-id]",
		Short: "Download a CSV export of one session or the whole tenant",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExport,
	}
	root.AddCommand(exportCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func login(ctx context.Context) (*sync.Client, error) {
	client, err := sync.NewClient(apiURL)
	if err != nil {
		return nil, err
	}
	if err := client.Login(ctx, username, password); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return client, nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := login(ctx)
	if err != nil {
		return err
	}

	provider := sync.NewWebSocketProvider(relayURL)
	engine := sync.NewEngine(client, provider, store.ParseTenant(tenant))
	defer engine.Close()
	engine.Start(ctx)

	// Command input: one instruction per line.
	commands := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			commands <- scanner.Text()
		}
		close(commands)
	}()

	search := ""
	redraw := func() {
		fmt.Print("\033[2J\033[H")
		fmt.Println(ui.Render(engine.Snapshot(), search, time.Now()))
		fmt.Println("commands: tenant <name> | select <id> | search <text> | refresh | export [id] | quit")
	}
	redraw()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-engine.Updates():
			redraw()
		case line, ok := <-commands:
			if !ok {
				return nil
			}
			if done := handleCommand(ctx, engine, client, line, &search); done {
				return nil
			}
			redraw()
		}
	}
}

func handleCommand(ctx context.Context, engine *sync.Engine, client *sync.Client, line string, search *string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	arg := ""
	if len(fields) > 1 {
		arg = strings.Join(fields[1:], " ")
	}

	switch fields[0] {
	case "tenant":
		engine.SwitchTenant(store.ParseTenant(arg))
		if err := engine.RefreshNow(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "refresh failed: %v\n", err)
		}
	case "select":
		engine.SelectSession(arg)
		if err := engine.RefreshNow(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "refresh failed: %v\n", err)
		}
	case "search":
		*search = arg
	case "refresh":
		if err := engine.RefreshNow(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "refresh failed: %v\n", err)
		}
	case "export":
		if err := downloadExport(ctx, client, engine.Snapshot().Tenant, arg); err != nil {
			fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
		}
	case "quit", "exit", "q":
		return true
	}
	return false
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := login(ctx)
	if err != nil {
		return err
	}

	sessionID := ""
	if len(args) == 1 {
		sessionID = args[0]
	}
	return downloadExport(ctx, client, store.ParseTenant(tenant), sessionID)
}

func downloadExport(ctx context.Context, client *sync.Client, tenant store.Tenant, sessionID string) error {
	filename, data, err := client.DownloadExport(ctx, tenant, sessionID)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d bytes)\n", filename, len(data))
	return nil
}
