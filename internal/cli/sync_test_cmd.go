package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/entities"
	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/koreader"
)

// SyncTestCommand checks sync server credentials from the command line.
type SyncTestCommand struct {
	URL      string
	Username string
	Password string
}

// NewSyncTestCommand creates a new SyncTestCommand
func NewSyncTestCommand() *SyncTestCommand {
	return &SyncTestCommand{}
}

// ParseFlags parses command line flags
func (cmd *SyncTestCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("sync-test", flag.ExitOnError)

	fs.StringVar(&cmd.URL, "url", os.Getenv("SYNC_SERVER_URL"), "Sync server base URL")
	fs.StringVar(&cmd.Username, "username", os.Getenv("SYNC_SERVER_USERNAME"), "Sync server username")
	fs.StringVar(&cmd.Password, "password", os.Getenv("SYNC_SERVER_PASSWORD"), "Sync server password")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s sync-test [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Check credentials against a KOReader-compatible progress sync server.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s sync-test -url https://sync.koreader.rocks -username alice -password secret\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.URL == "" || cmd.Username == "" || cmd.Password == "" {
		fs.Usage()
		return fmt.Errorf("url, username and password are required")
	}
	return nil
}

// Run executes the credential check
func (cmd *SyncTestCommand) Run() error {
	client := koreader.NewClient()
	server := &entities.SyncServer{
		URL:      cmd.URL,
		Username: cmd.Username,
		Password: cmd.Password,
	}

	ok, err := client.TestConnection(context.Background(), server)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("server reachable but credentials were rejected")
	}

	fmt.Printf("Authenticated against %s as %s\n", cmd.URL, cmd.Username)
	return nil
}
