package deposit

var (
	depositTable = `CREATE TABLE IF NOT EXISTS deposit (
		address VARCHAR(90) PRIMARY KEY NOT NULL,
		receipt BLOB NOT NULL,
		witness BOOLEAN NOT NULL,
		network VARCHAR(10) NOT NULL,
		fundingTxHash CHAR(64),
		fundingIdx INT,
		fundingValue BIGINT,
		createdAt TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT chk_network CHECK (network IN ('mainnet', 'testnet')),
		CONSTRAINT chk_fundingIdx CHECK (fundingIdx IS NULL OR fundingIdx >= 0),
		CONSTRAINT chk_fundingValue CHECK (fundingValue IS NULL OR fundingValue > 0)
	);`

	queryInsertDeposit = `INSERT INTO deposit (address, receipt, witness, network) VALUES (?, ?, ?, ?);`
	querySelectDeposit = `SELECT address, receipt, witness, network, fundingTxHash, fundingIdx, fundingValue, createdAt FROM deposit`
	queryGetDeposit    = querySelectDeposit + ` WHERE address = ?;`
	queryGetUnfunded   = querySelectDeposit + ` WHERE fundingTxHash IS NULL ORDER BY createdAt ASC;`
	querySetFunding    = `UPDATE deposit SET fundingTxHash = ?, fundingIdx = ?, fundingValue = ? WHERE address = ?;`
)
