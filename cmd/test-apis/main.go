package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/socialpulse/mentions-bot/internal/config"
	"github.com/socialpulse/mentions-bot/internal/sources"
)

func main() {
	fmt.Println("🔍 Mentions Bot - Source Connectivity Test")
	fmt.Println("==========================================")

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Printf("\n📡 Testing sources for entities: %s\n", strings.Join(cfg.Entities, ", "))
	fmt.Println(strings.Repeat("-", 40))

	testSource(ctx, "Google Search", sources.NewGoogleSearchSource(cfg.SerpAPIKey), cfg.Entities)
	testSource(ctx, "Hacker News", sources.NewHackerNewsSource(), cfg.Entities)
	testSource(ctx, "Twitter/X", sources.NewTwitterSource(cfg.TwitterBearerToken), cfg.Entities)

	fmt.Println("\n✅ Source connectivity test completed!")
	fmt.Println("\n💡 Next steps:")
	fmt.Println("   • Configure missing API keys in .env file")
	fmt.Println("   • Run the bot with: go run ./cmd/bot")
}

func testSource(ctx context.Context, name string, source sources.Source, entities []string) {
	fmt.Printf("🔸 Testing %s... ", name)

	if !source.IsEnabled() {
		fmt.Printf("⚠️  DISABLED (missing API key)\n")
		return
	}

	items, err := source.FetchItems(ctx, entities, 24*time.Hour)
	if err != nil {
		fmt.Printf("❌ ERROR: %v\n", err)
		return
	}

	fmt.Printf("✅ SUCCESS (%d items found)\n", len(items))

	if len(items) > 0 {
		sample := items[0].Text
		if idx := strings.IndexByte(sample, '\n'); idx >= 0 {
			sample = sample[:idx]
		}
		fmt.Printf("   📝 Sample: %q\n", sample)
	}
}
