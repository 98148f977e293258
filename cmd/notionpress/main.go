package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/eringen/notionpress"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("notionpress %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServe(args []string) error {
	flags := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := flags.String("config", "", "path to a config file (yaml, toml or json)")
	envFile := flags.String("env", ".env", "path to a .env file; missing files are ignored")
	staticDir := flags.String("static", "public", "directory served under /public")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if err := loadEnv(*envFile); err != nil {
		return err
	}

	cfg, err := notionpress.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := notionpress.New(cfg, notionpress.WithStaticDir(*staticDir))
	defer app.Close()
	return app.Start(ctx)
}

// loadEnv loads path into the environment without overriding variables that
// are already set.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func printUsage() {
	fmt.Println(`notionpress - A blog served from a Notion database, built with Go, Echo, and templ

Usage:
  notionpress <command> [arguments]

Commands:
  serve         Start the web server
  version       Print the notionpress version
  help          Show this help message

Serve flags:
  -config <path>   Config file (values are overridden by environment variables)
  -env <path>      .env file to load (default ".env")
  -static <dir>    Static assets directory (default "public")

Required environment:
  NOTION_API_KEY, NOTION_DATABASE_ID, SESSION_SECRET

Examples:
  notionpress serve
  notionpress serve -config config.yaml`)
}
