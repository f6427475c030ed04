package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/shinyyama/marketplace-backend/internal/service"
	"github.com/spf13/cobra"
)

var (
	seedDir      string
	seedCategory string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create sample listings from a directory of images",
	Long: `Create one listing per image in --dir. The listing name is derived
from the file name; names that already exist in the catalog are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCatalog(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer c.close()

		svc := service.NewProductService(c.repo, c.store)
		inserted, skipped, err := seedListings(cmd.Context(), svc, seedDir, seedCategory)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seed complete: inserted=%d skipped=%d\n", inserted, skipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVar(&seedDir, "dir", "sample-items", "Directory containing sample images")
	seedCmd.Flags().StringVar(&seedCategory, "category", "sample", "Category for created listings")
}

func sampleImages(dir string) ([]string, error) {
	var paths []string
	for _, ext := range []string{"*.webp", "*.png", "*.jpg", "*.jpeg"} {
		m, err := filepath.Glob(filepath.Join(dir, ext))
		if err != nil {
			return nil, fmt.Errorf("glob sample items: %w", err)
		}
		paths = append(paths, m...)
	}
	sort.Strings(paths)
	return paths, nil
}

func seedListings(ctx context.Context, svc service.ProductService, dir, category string) (inserted, skipped int, err error) {
	paths, err := sampleImages(dir)
	if err != nil {
		return 0, 0, err
	}
	if len(paths) == 0 {
		log.Printf("[seed] dir=%s stage=empty", dir)
		return 0, 0, nil
	}

	existing, err := svc.ListProducts(ctx, service.ListFilter{})
	if err != nil {
		return 0, 0, fmt.Errorf("list products: %w", err)
	}
	names := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		names[p.Name] = struct{}{}
	}

	for idx, p := range paths {
		filename := filepath.Base(p)
		title := toTitle(strings.TrimSuffix(filename, filepath.Ext(filename)))
		if _, ok := names[title]; ok {
			skipped++
			continue
		}
		if err := seedOne(ctx, svc, p, service.ListingInput{
			Name:        title,
			Description: fmt.Sprintf("%s - sample listing.", title),
			Category:    category,
			Price:       samplePrice(idx),
		}); err != nil {
			return inserted, skipped, fmt.Errorf("insert %s: %w", filename, err)
		}
		names[title] = struct{}{}
		inserted++
	}
	return inserted, skipped, nil
}

func seedOne(ctx context.Context, svc service.ProductService, path string, in service.ListingInput) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = svc.CreateListing(ctx, in, &service.Upload{Filename: filepath.Base(path), Body: f})
	return err
}

func samplePrice(idx int) string {
	return fmt.Sprintf("%d.00", 20+(idx*5)%50)
}

func toTitle(base string) string {
	normalized := strings.NewReplacer("-", " ", "_", " ").Replace(base)
	parts := strings.Fields(normalized)
	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	for i := 1; i < len(runes); i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}
