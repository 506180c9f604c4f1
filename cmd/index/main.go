// Command index builds the similarity index for the configured dataset and
// writes it to blob storage, so the server can start from the cache.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JaimeStill/book-search/internal/catalog"
	"github.com/JaimeStill/book-search/internal/config"
	"github.com/JaimeStill/book-search/internal/index"
	"github.com/JaimeStill/book-search/pkg/lifecycle"
	"github.com/JaimeStill/book-search/pkg/logging"
	"github.com/JaimeStill/book-search/pkg/storage"
)

func main() {
	var (
		configPath = flag.String("config", config.BaseConfigFile, "path to the base configuration file")
		force      = flag.Bool("force", false, "rebuild even when a cached index exists")
	)
	flag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if cfg.Index.DisableCache {
		log.Fatal("index cache is disabled; nothing to build")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *force); err != nil {
		log.Fatalf("index failed: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, force bool) error {
	logger := logging.New(&cfg.Logging)
	lc := lifecycle.New()
	defer lc.Shutdown(5 * time.Second)

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("storage init failed: %w", err)
	}
	if err := store.Start(lc); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}

	c, err := catalog.Open(ctx, cfg.Dataset.Dir, cfg.Dataset.Manifest, logger)
	if err != nil {
		return fmt.Errorf("catalog open failed: %w", err)
	}

	idx, err := index.New(c, store, index.OptionsFromConfig(&cfg.Index), logger, "", nil).Save(ctx, force)
	if err != nil {
		return err
	}

	fmt.Printf("indexed %d books: %d terms, %d document components", c.Len(), idx.Documents.VocabularySize(), idx.Documents.K())
	if idx.Images != nil {
		fmt.Printf(", %d covers, %d image components", idx.Images.Len(), idx.Images.K())
	}
	fmt.Println()
	return nil
}
