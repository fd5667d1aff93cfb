package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"digital-checkout/internal/domain/model"
	"digital-checkout/internal/domain/ports/repository"
	pg "digital-checkout/internal/infra/db/postgres"
)

func init() {
	rootCmd.AddCommand(productsCmd)
	productsCmd.Flags().StringP("file", "f", "", "YAML catalog to load instead of the sample catalog")
}

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Upsert the product catalog",
	Long: `Upsert products into the catalog. Without --file a small sample catalog is
written. Existing products with the same id are overwritten.`,
	Args: cobra.NoArgs,
	RunE: runProducts,
}

type catalogEntry struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	CashPrice   int64  `yaml:"cash_price"`
	CreditPrice int64  `yaml:"credit_price"`
	DownloadURL string `yaml:"download_url"`
}

var sampleCatalog = []catalogEntry{
	{ID: "ebook-go-patterns", Title: "Go Patterns in Production", Category: "ebook", CashPrice: 1999, CreditPrice: 50, DownloadURL: "/files/ebook-go-patterns.pdf"},
	{ID: "course-concurrency", Title: "Concurrency Deep Dive", Category: "course", CashPrice: 4999, CreditPrice: 120},
	{ID: "template-invoice", Title: "Invoice Template Pack", Category: "template", CashPrice: 799, CreditPrice: 20},
}

func loadCatalog(path string) ([]catalogEntry, error) {
	if path == "" {
		return sampleCatalog, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var out []catalogEntry
	if err := yaml.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return out, nil
}

func runProducts(cmd *cobra.Command, _ []string) error {
	e, cancel, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	file, _ := cmd.Flags().GetString("file")
	entries, err := loadCatalog(file)
	if err != nil {
		return err
	}

	pool, err := e.connect()
	if err != nil {
		return err
	}
	defer pool.Close()
	repo := pg.NewPostgresProductRepo(pool)

	now := time.Now().UTC()
	for _, c := range entries {
		p := &model.Product{
			ID:          c.ID,
			Title:       c.Title,
			Description: c.Description,
			Category:    c.Category,
			CashPrice:   c.CashPrice,
			CreditPrice: c.CreditPrice,
			DownloadURL: c.DownloadURL,
			Active:      true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := repo.Save(e.ctx, repository.NoTX, p); err != nil {
			return fmt.Errorf("save product %q: %w", c.ID, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded: %s (cash=%d, credits=%d)\n", p.ID, p.CashPrice, p.CreditPrice)
	}
	e.log.Info().Int("count", len(entries)).Msg("catalog seeded")
	return nil
}
