package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shinyyama/marketplace-backend/internal/config"
	"github.com/shinyyama/marketplace-backend/internal/db"
	"github.com/shinyyama/marketplace-backend/internal/media"
	"github.com/shinyyama/marketplace-backend/internal/repository"
	"github.com/spf13/cobra"
)

var (
	envFile    string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "catalogctl",
	Short: "Operator tasks for the product catalog",
	Long: `catalogctl provisions the catalog schema, removes unreferenced media
and loads sample listings. Connection settings come from the same
environment variables as the API server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			return godotenv.Load(envFile)
		}
		_ = godotenv.Load()
		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment from this file instead of ./.env")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

// catalog bundles what every subcommand needs.
type catalog struct {
	cfg   *config.Config
	pool  *db.Pool
	repo  repository.ProductRepository
	store media.Store
}

func openCatalog(ctx context.Context, withMedia bool) (*catalog, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	c := &catalog{cfg: cfg, pool: db.NewPool(gdb, cfg.DBMaxConnections, cfg.DBAcquireTimeout)}
	c.repo = repository.NewProductRepository(c.pool)
	if withMedia {
		c.store, err = media.Open(ctx, cfg)
		if err != nil {
			c.close()
			return nil, fmt.Errorf("open media: %w", err)
		}
	}
	return c, nil
}

func (c *catalog) close() {
	if cl, ok := c.store.(io.Closer); ok {
		_ = cl.Close()
	}
	_ = c.pool.Close()
}
