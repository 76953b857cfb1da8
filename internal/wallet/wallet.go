// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"github.com/rovshanmuradov/whirlpool-positions/internal/authority"
	"github.com/rovshanmuradov/whirlpool-positions/internal/ledger"
)

// Wallet is a Solana keypair that funds and signs lifecycle transactions.
type Wallet struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey

	mu       sync.Mutex
	ataCache map[solana.PublicKey]solana.PublicKey // Token-2022 ATAs by mint
}

// NewWallet creates a wallet from a base58-encoded 64-byte private key.
func NewWallet(privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(privateKeyBytes))
	}
	return fromPrivateKey(solana.PrivateKey(privateKeyBytes)), nil
}

// NewRandomWallet creates a wallet with a fresh keypair.
func NewRandomWallet() (*Wallet, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate keypair: %w", err)
	}
	return fromPrivateKey(key), nil
}

func fromPrivateKey(key solana.PrivateKey) *Wallet {
	return &Wallet{
		PrivateKey: key,
		PublicKey:  key.PublicKey(),
		ataCache:   make(map[solana.PublicKey]solana.PublicKey),
	}
}

// LoadWallets loads wallets from a CSV file with columns [Name, PrivateKeyBase58].
func LoadWallets(path string) (map[string]*Wallet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSV file is empty or missing data")
	}

	wallets := make(map[string]*Wallet)
	for n, record := range records[1:] {
		if len(record) != 2 {
			return nil, fmt.Errorf("line %d: expected 2 columns, got %d", n+2, len(record))
		}
		w, err := NewWallet(record[1])
		if err != nil {
			return nil, fmt.Errorf("wallet %q: %w", record[0], err)
		}
		wallets[record[0]] = w
	}
	return wallets, nil
}

// Signer returns the wallet's signature proof for ledger operations.
func (w *Wallet) Signer() authority.Signer {
	return authority.Keypair(w.PublicKey)
}

// SignTransaction signs the slots of tx that belong to the wallet.
func (w *Wallet) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.Sign(w.PrivateKeyGetter())
	return err
}

// PrivateKeyGetter returns the key lookup used by solana.Transaction.Sign.
func (w *Wallet) PrivateKeyGetter() func(solana.PublicKey) *solana.PrivateKey {
	return func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.PublicKey) {
			return &w.PrivateKey
		}
		return nil
	}
}

// GetATA returns the wallet's Token-2022 associated token account for mint.
func (w *Wallet) GetATA(mint solana.PublicKey) (solana.PublicKey, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ata, ok := w.ataCache[mint]; ok {
		return ata, nil
	}
	ata, err := ledger.FindAssociatedTokenAddress(w.PublicKey, mint, ledger.Token2022ProgramID)
	if err != nil {
		return solana.PublicKey{}, err
	}
	w.ataCache[mint] = ata
	return ata, nil
}

func (w *Wallet) String() string {
	return w.PublicKey.String()
}
