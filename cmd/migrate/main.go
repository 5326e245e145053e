package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"amoura-chat/config"
	"amoura-chat/internal/domain"
	"amoura-chat/pkg/database"

	"github.com/google/uuid"
)

const usage = `
Amoura Chat - Database CLI Tool

Usage:
  migrate [command]

Commands:
  up          Apply the schema migrations
  status      Show database connection status
  seed-dev    Seed with development/test data
  reset       Drop all chat tables and re-run migrations (DANGEROUS)

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go seed-dev
`

func main() {
	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg := config.LoadConfig()
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	switch flag.Arg(0) {
	case "up":
		runMigrationsUp()
	case "status":
		showStatus()
	case "seed-dev":
		runSeedDevelopment()
	case "reset":
		runReset()
	default:
		fmt.Printf("Unknown command: %s\n", flag.Arg(0))
		flag.Usage()
		os.Exit(1)
	}
}

func runMigrationsUp() {
	if err := database.Migrate(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	fmt.Println("Migrations applied")
}

func showStatus() {
	if err := database.HealthCheck(); err != nil {
		log.Fatalf("Database unreachable: %v", err)
	}
	fmt.Println("Database connection OK")
}

func runReset() {
	if err := database.DB.Migrator().DropTable(&domain.Message{}, &domain.Conversation{}); err != nil {
		log.Fatalf("Drop failed: %v", err)
	}
	runMigrationsUp()
	fmt.Println("Database reset")
}

// runSeedDevelopment creates two users' worth of conversations with a few
// messages so the API has something to serve locally.
func runSeedDevelopment() {
	runMigrationsUp()

	alice := uuid.New()
	bob := uuid.New()
	now := time.Now()

	conv := domain.Conversation{
		ID:        uuid.New(),
		User1ID:   alice,
		User2ID:   bob,
		Status:    domain.ConversationActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := database.DB.Create(&conv).Error; err != nil {
		log.Fatalf("Seed failed: %v", err)
	}

	messages := []domain.Message{
		{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			SenderID:       alice,
			ReceiverID:     bob,
			Content:        "Hey! Your profile made me smile. How's your day going?",
			MessageType:    domain.MessageText,
			CreatedAt:      now.Add(-2 * time.Minute),
			UpdatedAt:      now.Add(-2 * time.Minute),
		},
		{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			SenderID:       bob,
			ReceiverID:     alice,
			Content:        "Pretty good, thanks! Yours?",
			MessageType:    domain.MessageText,
			CreatedAt:      now.Add(-1 * time.Minute),
			UpdatedAt:      now.Add(-1 * time.Minute),
		},
	}
	for i := range messages {
		if err := database.DB.Create(&messages[i]).Error; err != nil {
			log.Fatalf("Seed failed: %v", err)
		}
	}

	last := messages[len(messages)-1]
	updates := map[string]interface{}{
		"last_message_id":    last.ID,
		"last_message_at":    last.CreatedAt,
		"user1_unread_count": 1,
		"user2_read_count":   1,
		"user2_unread_count": 1,
		"user1_read_count":   1,
	}
	if err := database.DB.Model(&domain.Conversation{}).Where("id = ?", conv.ID).Updates(updates).Error; err != nil {
		log.Fatalf("Seed failed: %v", err)
	}

	fmt.Printf("Seeded conversation %s between %s and %s\n", conv.ID, alice, bob)
}
