// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Token2022ProgramID is the SPL Token-2022 program, used by an
// increasing share of newly listed mints in place of the original SPL
// Token program.
var Token2022ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")

var associatedTokenProgramID = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")

// Wallet is the engine's single signer.
type Wallet struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey
	ATACache   map[string]solana.PublicKey // keyed by mint, or "mint:tokenProgram" for a non-standard program
}

// NewWallet builds a Wallet from a base58-encoded 64-byte private key.
func NewWallet(privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(privateKeyBytes))
	}
	privateKey := solana.PrivateKey(privateKeyBytes)
	publicKey := privateKey.PublicKey()
	return &Wallet{
		PrivateKey: privateKey,
		PublicKey:  publicKey,
		ATACache:   make(map[string]solana.PublicKey),
	}, nil
}

// SignTransaction signs tx with the wallet's key.
func (w *Wallet) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.PublicKey) {
			return &w.PrivateKey
		}
		return nil
	})
	return err
}

// GetATA returns the wallet's associated token account for mint under
// the standard SPL Token program, caching the derivation.
func (w *Wallet) GetATA(mint solana.PublicKey) (solana.PublicKey, error) {
	mintStr := mint.String()
	if ata, ok := w.ATACache[mintStr]; ok {
		return ata, nil
	}
	ata, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	w.ATACache[mintStr] = ata
	return ata, nil
}

// GetATAForProgram is GetATA generalized to an arbitrary token program,
// needed for mints owned by Token-2022 rather than the original SPL
// Token program.
func (w *Wallet) GetATAForProgram(mint, tokenProgram solana.PublicKey) (solana.PublicKey, error) {
	if tokenProgram.Equals(solana.TokenProgramID) {
		return w.GetATA(mint)
	}
	cacheKey := mint.String() + ":" + tokenProgram.String()
	if ata, ok := w.ATACache[cacheKey]; ok {
		return ata, nil
	}
	ata, _, err := deriveAssociatedTokenAddress(w.PublicKey, mint, tokenProgram)
	if err != nil {
		return solana.PublicKey{}, err
	}
	w.ATACache[cacheKey] = ata
	return ata, nil
}

func deriveAssociatedTokenAddress(owner, mint, tokenProgram solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{
		owner[:],
		tokenProgram[:],
		mint[:],
	}, associatedTokenProgramID)
}

// PrecomputeATAs resolves and caches the standard-program ATA for every
// mint in mints, so the hot path never derives one under load.
func (w *Wallet) PrecomputeATAs(mints []solana.PublicKey) error {
	for _, mint := range mints {
		if _, err := w.GetATA(mint); err != nil {
			return fmt.Errorf("failed to precompute ATA for mint %s: %w", mint.String(), err)
		}
	}
	return nil
}

// CreateAssociatedTokenAccountIdempotentInstruction builds a create-ATA
// instruction under the standard SPL Token program that no-ops if the
// account already exists.
func (w *Wallet) CreateAssociatedTokenAccountIdempotentInstruction(payer, owner, mint solana.PublicKey) solana.Instruction {
	return w.CreateAssociatedTokenAccountIdempotentInstructionForProgram(payer, owner, mint, solana.TokenProgramID)
}

// CreateAssociatedTokenAccountIdempotentInstructionForProgram is
// CreateAssociatedTokenAccountIdempotentInstruction generalized to an
// arbitrary token program.
func (w *Wallet) CreateAssociatedTokenAccountIdempotentInstructionForProgram(payer, owner, mint, tokenProgram solana.PublicKey) solana.Instruction {
	ata, _, _ := deriveAssociatedTokenAddress(owner, mint, tokenProgram)

	return solana.NewInstruction(
		associatedTokenProgramID,
		[]*solana.AccountMeta{
			{PublicKey: payer, IsWritable: true, IsSigner: true},
			{PublicKey: ata, IsWritable: true, IsSigner: false},
			{PublicKey: owner, IsWritable: false, IsSigner: false},
			{PublicKey: mint, IsWritable: false, IsSigner: false},
			{PublicKey: solana.SystemProgramID, IsWritable: false, IsSigner: false},
			{PublicKey: tokenProgram, IsWritable: false, IsSigner: false},
			{PublicKey: solana.SysVarRentPubkey, IsWritable: false, IsSigner: false},
		},
		[]byte{1}, // instruction code 1: CreateIdempotent
	)
}

// String returns the wallet's public key.
func (w *Wallet) String() string {
	return w.PublicKey.String()
}
