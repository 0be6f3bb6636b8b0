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

	seedCatalog(db)
	seedCustomers(db)
	seedEmployees(db)

	log.Println("Seeding completed successfully!")
}

func seedCatalog(db *sql.DB) {
	// prices are stored in minor units (poisha)
	products := []struct {
		Name      string
		SKU       string
		SellPrice int64
		BuyPrice  int64
		Stock     int
		Variants  []struct {
			Name      string
			SellPrice int64
			BuyPrice  int64
			Stock     int
		}
	}{
		{
			Name: "Cotton T-Shirt", SKU: "TSHIRT-001", SellPrice: 50000, BuyPrice: 30000, Stock: 40,
			Variants: []struct {
				Name      string
				SellPrice int64
				BuyPrice  int64
				Stock     int
			}{
				{"Small", 50000, 30000, 15},
				{"Medium", 52000, 31000, 15},
				{"Large", 55000, 32000, 10},
			},
		},
		{Name: "Denim Jeans", SKU: "JEANS-001", SellPrice: 180000, BuyPrice: 120000, Stock: 25},
		{Name: "Leather Belt", SKU: "BELT-001", SellPrice: 60000, BuyPrice: 35000, Stock: 60},
		{Name: "Sports Cap", SKU: "CAP-001", SellPrice: 35000, BuyPrice: 18000, Stock: 80},
		{Name: "Canvas Shoes", SKU: "SHOES-001", SellPrice: 220000, BuyPrice: 150000, Stock: 30},
	}

	fmt.Println("Seeding Catalog...")
	for _, p := range products {
		var productID string
		err := db.QueryRow(`
			INSERT INTO products (name, sku, sell_price, buy_price, stock)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (sku) DO UPDATE SET
				name = EXCLUDED.name,
				sell_price = EXCLUDED.sell_price,
				buy_price = EXCLUDED.buy_price,
				stock = EXCLUDED.stock
			RETURNING id;
		`, p.Name, p.SKU, p.SellPrice, p.BuyPrice, p.Stock).Scan(&productID)
		if err != nil {
			log.Fatalf("Failed to seed product %s: %v", p.SKU, err)
		}
		for _, v := range p.Variants {
			_, err := db.Exec(`
				INSERT INTO product_variants (product_id, name, sell_price, buy_price, stock)
				SELECT $1, $2, $3, $4, $5
				WHERE NOT EXISTS (
					SELECT 1 FROM product_variants WHERE product_id = $1 AND name = $2
				);
			`, productID, v.Name, v.SellPrice, v.BuyPrice, v.Stock)
			if err != nil {
				log.Fatalf("Failed to seed variant %s/%s: %v", p.SKU, v.Name, err)
			}
		}
	}
}

func seedCustomers(db *sql.DB) {
	customers := []struct {
		Name        string
		Email       string
		Phone       string
		Address     string
		PreviousDue int64
	}{
		{"Rahim Uddin", "rahim@example.com", "01711000001", "Mirpur, Dhaka", 0},
		{"Karim Hossain", "karim@example.com", "01711000002", "Uttara, Dhaka", 150000},
		{"Fatema Begum", "fatema@example.com", "01711000003", "Chawkbazar, Chattogram", 0},
		{"Jamal Sheikh", "jamal@example.com", "01711000004", "Zindabazar, Sylhet", 42000},
		{"Nusrat Jahan", "nusrat@example.com", "01711000005", "Shibbari, Khulna", 0},
	}

	fmt.Println("Seeding Customers...")
	for _, c := range customers {
		_, err := db.Exec(`
			INSERT INTO customers (name, email, phone, address, previous_due)
			SELECT $1, $2, $3, $4, $5
			WHERE NOT EXISTS (SELECT 1 FROM customers WHERE email = $2);
		`, c.Name, c.Email, c.Phone, c.Address, c.PreviousDue)
		if err != nil {
			log.Fatalf("Failed to seed customer %s: %v", c.Email, err)
		}
	}
}

func seedEmployees(db *sql.DB) {
	employees := []struct {
		Name       string
		Department string
		Email      string
	}{
		{"Sumon Ahmed", "sales", "sumon@pos.local"},
		{"Lipi Akter", "sales", "lipi@pos.local"},
		{"Rafiq Islam", "inventory", "rafiq@pos.local"},
		{"Shimu Khatun", "accounts", "shimu@pos.local"},
	}

	fmt.Println("Seeding Employees...")
	for _, e := range employees {
		_, err := db.Exec(`
			INSERT INTO employees (name, department, email)
			SELECT $1, $2, $3
			WHERE NOT EXISTS (SELECT 1 FROM employees WHERE email = $3);
		`, e.Name, e.Department, e.Email)
		if err != nil {
			log.Fatalf("Failed to seed employee %s: %v", e.Email, err)
		}
	}
}
