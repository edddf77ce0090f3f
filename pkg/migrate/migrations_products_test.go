package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestProductsMigrationContainsSchemas(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_products_table.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no product migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS products",
		"CREATE TABLE IF NOT EXISTS product_sizes",
		"FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE",
		"CHECK (quantity >= 0)",
		"CHECK (selling_price >= 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_product_sizes_product_label",
		"DROP TABLE IF EXISTS product_sizes",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
