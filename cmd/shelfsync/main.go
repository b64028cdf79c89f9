package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"shelfsync/internal/config"
	"shelfsync/internal/ctire"
	"shelfsync/internal/logsink"
	"shelfsync/internal/store"
	"shelfsync/internal/sync"
)

func main() {
	var configPath string
	var siteName string
	var workers int
	var verbose bool
	var help bool

	flag.StringVar(&configPath, "config", "sites.yaml", "Path to the site configuration file")
	flag.StringVar(&configPath, "c", "sites.yaml", "Path to the site configuration file (short form)")
	flag.StringVar(&siteName, "site", "", "Sync only the named site")
	flag.IntVar(&workers, "workers", 1, "Concurrent product-detail fetches per page")
	flag.BoolVar(&verbose, "v", false, "Enable debug logging")
	flag.BoolVar(&help, "help", false, "Show help message")
	flag.BoolVar(&help, "h", false, "Show help message")
	flag.Parse()

	if help {
		showHelp()
		return
	}

	_ = godotenv.Load()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	st, err := store.FromEnv(ctx)
	if err != nil {
		log.Fatalf("failed to create store: %v", err)
	}

	for _, site := range cfg.Sites {
		if siteName != "" && site.Name != siteName {
			continue
		}
		if err := runSite(ctx, st, site, workers, level); err != nil {
			log.Fatalf("sync of %s failed: %v", site.Name, err)
		}
	}
}

func runSite(ctx context.Context, st store.Store, site config.Site, workers int, level slog.Level) error {
	if account, ok := os.LookupEnv("AZURE_STORAGE_ACCOUNT_NAME"); ok {
		sink, err := logsink.New(ctx, logsink.Config{
			AccountName: account,
			AccountKey:  os.Getenv("AZURE_STORAGE_PRIMARY_ACCOUNT_KEY"),
			Container:   "synclogs",
			Site:        site.Name,
			Level:       level,
		})
		if err != nil {
			return fmt.Errorf("create log sink: %w", err)
		}
		defer func() { _ = sink.Close() }()
		slog.SetDefault(slog.New(sink))
	}

	client, err := ctire.NewClient(site)
	if err != nil {
		return fmt.Errorf("create upstream client: %w", err)
	}

	stats, err := sync.New(client, st, sync.Options{DetailWorkers: workers}).Run(ctx, site)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d categories seen (%d new), %d products created, %d skipped, %d deals refreshed\n",
		site.Name, stats.CategoriesSeen, stats.CategoriesCreated,
		stats.ProductsCreated, stats.ProductsSkipped, stats.DealsRefreshed)
	return nil
}

func showHelp() {
	fmt.Println("Shelfsync - retailer catalog synchronizer")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  shelfsync -config sites.yaml [-site <name>]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -config, -c     Site configuration file (default sites.yaml)")
	fmt.Println("  -site           Sync only the named site")
	fmt.Println("  -workers        Concurrent product-detail fetches per page (default 1)")
	fmt.Println("  -v              Debug logging")
	fmt.Println("  -help, -h       Show this help message")
}
