package repository

// Schema creates the wallets table. The column precision matches
// models.BalanceIntDigits and models.BalanceScale.
const Schema = `
	CREATE TABLE IF NOT EXISTS wallets (
		id UUID PRIMARY KEY,
		balance NUMERIC(20,2) NOT NULL DEFAULT 0 CHECK (balance >= 0)
	);
`
