package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// Recomputes accounts.total_referrals from the valid referral edges. Run after
// bulk invalidations done directly in the database.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		os.Getenv("DB_HOST"), os.Getenv("DB_PORT"), os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"), os.Getenv("DB_NAME"))

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	log.Println("Connected to database successfully")

	var drifted int
	err = db.QueryRow(`
		SELECT COUNT(*) FROM accounts a
		WHERE a.total_referrals <> (
			SELECT COUNT(*) FROM referral_edges e
			WHERE e.referrer_id = a.id AND e.valid = TRUE
		)`).Scan(&drifted)
	if err != nil {
		log.Fatalf("Failed to count drifted accounts: %v", err)
	}
	log.Printf("Accounts with drifted referral counts: %d", drifted)
	if drifted == 0 {
		return
	}

	res, err := db.Exec(`
		UPDATE accounts a
		SET total_referrals = sub.cnt, updated_at = NOW()
		FROM (
			SELECT acc.id, COUNT(e.id) AS cnt
			FROM accounts acc
			LEFT JOIN referral_edges e ON e.referrer_id = acc.id AND e.valid = TRUE
			GROUP BY acc.id
		) sub
		WHERE a.id = sub.id AND a.total_referrals <> sub.cnt`)
	if err != nil {
		log.Fatalf("Failed to recount referrals: %v", err)
	}

	updated, _ := res.RowsAffected()
	log.Printf("Recounted referrals for %d accounts", updated)
}
