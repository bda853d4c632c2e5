package domain

import "time"

// Wallet is a configured account to aggregate. For on-chain networks Address
// holds the chain address; for the exchange network it holds the credential
// reference name under which API keys are configured.
//
// Wallets are created and edited by configuration and are read-only to the
// engine. LastSyncAt is the only field the engine mutates, once per
// successful run, owned exclusively by the run orchestrator.
type Wallet struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Network    Network    `json:"network"`
	Address    string     `json:"address"`
	Active     bool       `json:"active"`
	LastSyncAt *time.Time `json:"lastSyncAt,omitempty"`
}
