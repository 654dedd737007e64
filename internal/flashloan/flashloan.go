// Package flashloan builds borrow/repay instructions against the engine's
// flash-loan program: raw Anchor instructions (discriminator + borsh args)
// with no dependency on the Anchor client SDK.
package flashloan

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	solclient "github.com/solarb/flashbot/internal/solana"
)

var tokenProgramID = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

var (
	borrowDiscriminator = [8]byte{64, 203, 133, 3, 2, 181, 8, 180}
	repayDiscriminator  = [8]byte{119, 239, 18, 45, 194, 107, 31, 238}
)

var (
	lendingPoolSeed      = []byte("lending_pool")
	poolVaultSeed        = []byte("pool_vault")
	flashLoanReceiptSeed = []byte("flash_loan_receipt")
)

// PoolState mirrors the on-chain account layout of the lending pool,
// following its 8-byte Anchor discriminator.
type PoolState struct {
	Admin           solana.PublicKey
	TokenMint       solana.PublicKey
	Vault           solana.PublicKey
	TotalDeposits   uint64
	TotalShares     uint64
	TotalFeesEarned uint64
	FeeBps          uint16
	Bump            uint8
	VaultBump       uint8
	IsActive        bool
}

// Client derives the pool/vault PDAs for one (program, token mint) pair and
// builds the borrow/repay instruction pair against them.
type Client struct {
	client    *solclient.Client
	programID solana.PublicKey
	tokenMint solana.PublicKey

	PoolPDA   solana.PublicKey
	PoolBump  uint8
	VaultPDA  solana.PublicKey
	VaultBump uint8

	logger *zap.Logger
}

// New derives the pool and vault PDAs for the given program/mint pair.
func New(client *solclient.Client, programID, tokenMint solana.PublicKey, logger *zap.Logger) (*Client, error) {
	poolPDA, poolBump, err := solana.FindProgramAddress([][]byte{lendingPoolSeed, tokenMint.Bytes()}, programID)
	if err != nil {
		return nil, fmt.Errorf("deriving pool PDA: %w", err)
	}
	vaultPDA, vaultBump, err := solana.FindProgramAddress([][]byte{poolVaultSeed, poolPDA.Bytes()}, programID)
	if err != nil {
		return nil, fmt.Errorf("deriving vault PDA: %w", err)
	}

	log := logger.Named("flashloan")
	log.Info("flash-loan PDAs derived", zap.String("pool", poolPDA.String()), zap.String("vault", vaultPDA.String()))

	return &Client{
		client:    client,
		programID: programID,
		tokenMint: tokenMint,
		PoolPDA:   poolPDA,
		PoolBump:  poolBump,
		VaultPDA:  vaultPDA,
		VaultBump: vaultBump,
		logger:    log,
	}, nil
}

// DeriveReceiptPDA returns the single-outstanding-borrow receipt PDA for a
// given borrower, enforcing that one signer can only have one flash loan in
// flight at a time.
func (c *Client) DeriveReceiptPDA(borrower solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{flashLoanReceiptSeed, c.PoolPDA.Bytes(), borrower.Bytes()}, c.programID)
}

// GetPoolState fetches and decodes the lending pool account.
func (c *Client) GetPoolState(ctx context.Context) (*PoolState, error) {
	info, err := c.client.GetAccountInfo(ctx, c.PoolPDA)
	if err != nil {
		return nil, fmt.Errorf("fetching pool account: %w", err)
	}
	if info == nil || info.Value == nil {
		return nil, fmt.Errorf("pool account not found: %s", c.PoolPDA)
	}
	return decodePoolState(info.Value.Data.GetBinary())
}

func decodePoolState(data []byte) (*PoolState, error) {
	const headerLen = 8 + 32 + 32 + 32 + 8 + 8 + 8 + 2 + 1 + 1 + 1
	if len(data) < headerLen {
		return nil, fmt.Errorf("pool account data too short: %d bytes", len(data))
	}

	offset := 8 // skip Anchor discriminator
	var state PoolState
	copy(state.Admin[:], data[offset:offset+32])
	offset += 32
	copy(state.TokenMint[:], data[offset:offset+32])
	offset += 32
	copy(state.Vault[:], data[offset:offset+32])
	offset += 32
	state.TotalDeposits = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	state.TotalShares = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	state.TotalFeesEarned = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	state.FeeBps = binary.LittleEndian.Uint16(data[offset : offset+2])
	offset += 2
	state.Bump = data[offset]
	offset++
	state.VaultBump = data[offset]
	offset++
	state.IsActive = data[offset] != 0

	return &state, nil
}

// BuildBorrowInstruction constructs the borrow_flash_loan instruction:
// discriminator + amount (u64 LE) as Anchor args.
func (c *Client) BuildBorrowInstruction(borrower, borrowerTokenAccount solana.PublicKey, amount uint64) (solana.Instruction, error) {
	receiptPDA, _, err := c.DeriveReceiptPDA(borrower)
	if err != nil {
		return nil, fmt.Errorf("deriving receipt PDA: %w", err)
	}

	data := make([]byte, 0, 16)
	data = append(data, borrowDiscriminator[:]...)
	amountBuf := make([]byte, 8)
	binary.LittleEndian.PutUint64(amountBuf, amount)
	data = append(data, amountBuf...)

	accounts := []*solana.AccountMeta{
		{PublicKey: c.PoolPDA, IsSigner: false, IsWritable: true},
		{PublicKey: receiptPDA, IsSigner: false, IsWritable: true},
		{PublicKey: c.VaultPDA, IsSigner: false, IsWritable: true},
		{PublicKey: borrowerTokenAccount, IsSigner: false, IsWritable: true},
		{PublicKey: borrower, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: tokenProgramID, IsSigner: false, IsWritable: false},
	}
	return solana.NewInstruction(c.programID, accounts, data), nil
}

// BuildRepayInstruction constructs the repay_flash_loan instruction:
// discriminator only, no args.
func (c *Client) BuildRepayInstruction(borrower, borrowerTokenAccount solana.PublicKey) (solana.Instruction, error) {
	receiptPDA, _, err := c.DeriveReceiptPDA(borrower)
	if err != nil {
		return nil, fmt.Errorf("deriving receipt PDA: %w", err)
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: c.PoolPDA, IsSigner: false, IsWritable: true},
		{PublicKey: receiptPDA, IsSigner: false, IsWritable: true},
		{PublicKey: c.VaultPDA, IsSigner: false, IsWritable: true},
		{PublicKey: borrowerTokenAccount, IsSigner: false, IsWritable: true},
		{PublicKey: borrower, IsSigner: true, IsWritable: true},
		{PublicKey: tokenProgramID, IsSigner: false, IsWritable: false},
	}
	return solana.NewInstruction(c.programID, accounts, borrowDiscriminatorSlice(repayDiscriminator)), nil
}

func borrowDiscriminatorSlice(d [8]byte) []byte {
	return d[:]
}

// FeeForBorrow computes the flash-loan fee owed on a borrow of amount,
// rounding up per the program's ceiling-division fee model.
func FeeForBorrow(amount uint64, feeBps uint16) uint64 {
	return (amount*uint64(feeBps) + 9999) / 10000
}
