package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/ledgerpay/user-service/config"
	"github.com/ledgerpay/user-service/pkg/helpers"
)

type seedUser struct {
	name    string
	email   string
	address string
	agency  string
	account string
	balance float64
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	password := "password123"
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	users := []seedUser{
		{"Alice Demo", "alice@example.com", "1 Demo Street", "0001", "12345-6", 1000},
		{"Bob Demo", "bob@example.com", "2 Demo Street", "0001", "65432-1", 250},
		{"Carol Demo", "carol@example.com", "", "0002", "11111-1", 0},
	}

	for _, u := range users {
		var bankingID string
		err := db.QueryRow(`
			INSERT INTO banking_details (agency, account_number, balance)
			VALUES ($1, $2, $3)
			RETURNING id
		`, u.agency, u.account, u.balance).Scan(&bankingID)
		if err != nil {
			log.Fatalf("failed to seed banking details for %s: %v", u.email, err)
		}

		var id string
		err = db.QueryRow(`
			INSERT INTO users (name, email, address, profile_picture_url, banking_details_id)
			VALUES ($1, $2, NULLIF($3, ''), NULL, $4)
			ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, u.name, u.email, u.address, bankingID).Scan(&id)
		if err != nil {
			log.Fatalf("failed to seed user %s: %v", u.email, err)
		}

		if _, err := db.Exec(`
			INSERT INTO credentials (user_id, email, password_hash, confirmed)
			VALUES ($1, $2, $3, TRUE)
			ON CONFLICT (user_id) DO NOTHING
		`, id, u.email, hash); err != nil {
			log.Fatalf("failed to seed credentials for %s: %v", u.email, err)
		}

		fmt.Printf("seeded user: id=%s email=%s balance=%.2f password=%s\n", id, u.email, u.balance, password)
	}
}
