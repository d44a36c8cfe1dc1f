package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedDistributors(db)
	seedProducts(db)

	log.Println("Seeding completed successfully!")
}

func seedDistributors(db *sql.DB) {
	distributors := []struct {
		Code    string
		Name    string
		RuleTag string
	}{
		{"ep", "EP Zentrale", "ep_formula"},
		{"alltron", "Alltron AG", "default"},
		{"engel", "Engel Licht AG", "simple_diff"},
		{"semi", "Semi Distribution", "default"},
		{"ggv", "GGV Handels AG", "default"},
	}

	fmt.Println("Seeding Distributors...")
	for _, d := range distributors {
		_, err := db.Exec(`
			INSERT INTO distributors (code, name, rule_tag, active)
			VALUES ($1, $2, $3, TRUE)
			ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, rule_tag = EXCLUDED.rule_tag
		`, d.Code, d.Name, d.RuleTag)
		if err != nil {
			log.Fatalf("Failed to seed distributor %s: %v", d.Code, err)
		}
	}
}

func seedProducts(db *sql.DB) {
	products := []struct {
		SKU      string
		Name     string
		Category string
		Retail   float64
		VRG      float64
		Invoice  float64
		Allowed  []string
	}{
		{"TV-55Q80", "55\" QLED TV", "tv", 999, 2.5, 612, []string{"ep", "alltron"}},
		{"TV-65Q80", "65\" QLED TV", "tv", 1499, 2.5, 918, []string{"ep", "alltron"}},
		{"SB-Q900", "Soundbar Q900", "soundbar", 899, 1.0, 540, []string{"ep"}},
		{"HT-DW600", "Dishwasher DW600", "ht", 1299, 0, 820, []string{"ep", "ggv"}},
		{"DIM-LED10", "LED Dimmer 10A", "dim", 89, 0, 48, []string{"engel"}},
		{"PA-MX12", "12 Channel Mixer", "pa", 649, 0, 402, []string{"semi"}},
	}

	fmt.Println("Seeding Products...")
	for _, p := range products {
		var productID int64
		err := db.QueryRow(`
			INSERT INTO products (sku, name, category, retail_price, vrg, price_on_invoice, active)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE)
			ON CONFLICT (sku) DO UPDATE SET name = EXCLUDED.name, retail_price = EXCLUDED.retail_price,
				price_on_invoice = EXCLUDED.price_on_invoice
			RETURNING id
		`, p.SKU, p.Name, p.Category, p.Retail, p.VRG, p.Invoice).Scan(&productID)
		if err != nil {
			log.Fatalf("Failed to seed product %s: %v", p.SKU, err)
		}
		for _, code := range p.Allowed {
			_, err := db.Exec(`
				INSERT INTO product_distributors (product_id, distributor_id)
				SELECT $1, id FROM distributors WHERE code = $2
				ON CONFLICT DO NOTHING
			`, productID, code)
			if err != nil {
				log.Fatalf("Failed to link product %s to %s: %v", p.SKU, code, err)
			}
		}
	}
}
