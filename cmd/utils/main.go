package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/kitchenboard/cmd/utils/internal/commands"
)

const (
	appName    = "kitchenboard-utils"
	appVersion = "0.1.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	config, err := apt.LoadConfig("UTILS", os.Args[2:])
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	logLevel, _ := config.GetString("log.level")
	if logLevel == "" {
		logLevel = "info"
	}
	logger := apt.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := os.Args[1]

	switch command {
	case "publish-demo":
		if err := commands.PublishDemo(ctx, config, logger); err != nil {
			log.Fatalf("❌ Demo publishing failed: %v", err)
		}
		logger.Info("✅ Demo events published successfully")

	case "version":
		fmt.Printf("%s version %s\n", appName, appVersion)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - Kitchen board utility commands

Usage:
  %s <command> [options]

Commands:
  publish-demo  Publish a demo service (snapshot, status changes, sold out dish, removal)
  version       Print version information
  help          Show this help message

Environment Variables:
  UTILS_NATS_URL             NATS connection URL (default: nats://localhost:4222)
  UTILS_NATS_TOKEN           NATS auth token (default: none)
  UTILS_NATS_TOPIC           Board subject (default: kitchen.board)
  UTILS_NATS_STREAM_ENABLED  Publish through JetStream so boards can replay (default: false)
  UTILS_DEMO_TICKETS         Tickets in the demo snapshot (default: 8)
  UTILS_DEMO_DELAY           Pause between events (default: 1s)
  UTILS_LOG_LEVEL            Log level: debug, info, warn, error (default: info)

Examples:
  %s publish-demo
  UTILS_DEMO_DELAY=200ms %s publish-demo
  UTILS_NATS_STREAM_ENABLED=true %s publish-demo

`, appName, appName, appName, appName, appName)
}
