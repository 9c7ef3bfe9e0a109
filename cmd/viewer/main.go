// Command viewer prints the stored chat history of one group as a table.
// It opens the store read-only, so it can run next to a live server.
package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"

	"hobbyhub/domain"
	"hobbyhub/repositories"
)

type Config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" required:"true"`
	GroupID        string `envconfig:"GROUP_ID" required:"true"`
	Limit          int    `envconfig:"VIEWER_LIMIT" default:"50"`
}

func main() {
	_ = godotenv.Load()
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// BypassLockGuard allows opening while the server holds the lock
	opts := badger.DefaultOptions(cfg.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	repository := repositories.NewMessageRepository(db, slog.Default(), &cfg.Limit)
	messages, _, err := repository.ListByGroup(cfg.GroupID, nil)
	if err != nil {
		log.Fatalf("Failed to list messages: %v", err)
	}

	color.Bold.Printf("Group %s — %d message(s)\n\n", cfg.GroupID, len(messages))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Time", "Sender", "Kind", "Content", "Votes"})
	for _, m := range messages {
		table.Append([]string{
			m.CreatedAt.Format("2006-01-02 15:04:05"),
			m.Sender,
			string(m.Kind),
			label(m),
			fmt.Sprintf("%d", m.VoteCount()),
		})
	}
	table.Render()
}

func label(m domain.Message) string {
	if m.Kind == domain.KindPoll {
		return color.Yellow.Sprint(m.PollQuestion)
	}
	return m.Content
}
