package repository

import (
	"database/sql"
	"fmt"
)

const createTicketsTableSQL = `
CREATE TABLE IF NOT EXISTS tickets (
    id BIGSERIAL PRIMARY KEY,
    title TEXT NOT NULL,
    price NUMERIC(12,2) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    artifact_ref TEXT NOT NULL,
    pnr_number VARCHAR(50) NOT NULL,
    from_location VARCHAR(100) NOT NULL,
    to_location VARCHAR(100) NOT NULL,
    travel_date DATE NOT NULL,
    train_number VARCHAR(50) NOT NULL,
    passenger_name VARCHAR(100) NOT NULL,
    seller_id BIGINT NOT NULL DEFAULT 0,
    is_expired BOOLEAN NOT NULL DEFAULT FALSE,
    payment_status VARCHAR(20) NOT NULL DEFAULT '',
    buyer_email VARCHAR(120) NOT NULL DEFAULT '',
    checkout_session_id VARCHAR(120) NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createSoldTicketsTableSQL = `
CREATE TABLE IF NOT EXISTS sold_tickets (
    id BIGSERIAL PRIMARY KEY,
    pnr_number VARCHAR(50) NOT NULL UNIQUE,
    from_location VARCHAR(100) NOT NULL,
    to_location VARCHAR(100) NOT NULL,
    travel_date DATE NOT NULL,
    train_number VARCHAR(50) NOT NULL,
    buyer_email VARCHAR(120) NOT NULL DEFAULT '',
    payment_id VARCHAR(120) NOT NULL DEFAULT '',
    seller_id BIGINT NOT NULL DEFAULT 0,
    from_ticket_id BIGINT NOT NULL DEFAULT 0,
    sold_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createMessagesTableSQL = `
CREATE TABLE IF NOT EXISTS messages (
    id BIGSERIAL PRIMARY KEY,
    ticket_id BIGINT NOT NULL REFERENCES tickets(id),
    sender_type VARCHAR(10) NOT NULL,
    message_text TEXT NOT NULL,
    is_ticket_shared BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createSellerWalletsTableSQL = `
CREATE TABLE IF NOT EXISTS seller_wallets (
    id BIGSERIAL PRIMARY KEY,
    seller_id BIGINT NOT NULL UNIQUE,
    balance NUMERIC(12,2) NOT NULL DEFAULT 0,
    currency VARCHAR(3) NOT NULL DEFAULT 'INR',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createWalletTransactionsTableSQL = `
CREATE TABLE IF NOT EXISTS wallet_transactions (
    id BIGSERIAL PRIMARY KEY,
    wallet_id BIGINT NOT NULL REFERENCES seller_wallets(id),
    amount NUMERIC(12,2) NOT NULL,
    transaction_type VARCHAR(10) NOT NULL,
    description VARCHAR(255) NOT NULL DEFAULT '',
    payment_id VARCHAR(120) NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// RunMigrations creates the five marketplace relations. Tables are ordered so
// foreign keys resolve.
func RunMigrations(db *sql.DB) error {
	migrations := []struct {
		name string
		sql  string
	}{
		{"tickets", createTicketsTableSQL},
		{"sold_tickets", createSoldTicketsTableSQL},
		{"messages", createMessagesTableSQL},
		{"seller_wallets", createSellerWalletsTableSQL},
		{"wallet_transactions", createWalletTransactionsTableSQL},
	}
	for _, m := range migrations {
		if _, err := db.Exec(m.sql); err != nil {
			return fmt.Errorf("error running %s table migration: %w", m.name, err)
		}
	}
	return nil
}
