// internal/solana/builder.go
package solana

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"

	"github.com/solarb/flashbot/internal/solana/computebudget"
)

// Builder assembles an atomic sequence of instructions — compute-budget
// directives, flash-loan borrow, swap legs, flash-loan repay and an
// optional tip transfer — into one signed v0 transaction, optionally
// compiled against address lookup tables.
type Builder struct {
	instructions []solana.Instruction
	signers      []solana.PrivateKey
	tables       map[solana.PublicKey]solana.PublicKeySlice
	budget       computebudget.Config
}

// NewBuilder starts a fresh instruction sequence with the given
// compute-budget profile (unit limit and priority fee in micro-lamports).
func NewBuilder(budget computebudget.Config) *Builder {
	return &Builder{budget: budget}
}

func (b *Builder) AddInstruction(ix solana.Instruction) *Builder {
	b.instructions = append(b.instructions, ix)
	return b
}

func (b *Builder) AddInstructions(ixs ...solana.Instruction) *Builder {
	b.instructions = append(b.instructions, ixs...)
	return b
}

func (b *Builder) AddSigner(signer solana.PrivateKey) *Builder {
	b.signers = append(b.signers, signer)
	return b
}

// WithLookupTable compiles the message against the given table's known
// addresses, shrinking the wire size of a multi-leg transaction.
func (b *Builder) WithLookupTable(tableAddr solana.PublicKey, addresses []solana.PublicKey) *Builder {
	if b.tables == nil {
		b.tables = make(map[solana.PublicKey]solana.PublicKeySlice)
	}
	b.tables[tableAddr] = addresses
	return b
}

// Build fetches a recent blockhash, prepends compute-budget instructions,
// compiles a v0 message and signs it with every registered signer. The
// blockhash result is returned alongside the transaction so a caller that
// needs to confirm against the exact same reference (the composer) doesn't
// have to fetch it a second time.
func (b *Builder) Build(ctx context.Context, client *Client) (*solana.Transaction, *solanarpc.GetLatestBlockhashResult, error) {
	if len(b.signers) == 0 {
		return nil, nil, fmt.Errorf("no signers provided")
	}

	latest, err := client.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching recent blockhash: %w", err)
	}

	tx, err := b.buildWithBlockhash(latest.Value.Blockhash)
	if err != nil {
		return nil, nil, err
	}
	return tx, latest, nil
}

func (b *Builder) buildWithBlockhash(blockhash solana.Hash) (*solana.Transaction, error) {
	budgetIxs, err := computebudget.BuildInstructions(b.budget)
	if err != nil {
		return nil, fmt.Errorf("building compute budget instructions: %w", err)
	}

	instructions := make([]solana.Instruction, 0, len(budgetIxs)+len(b.instructions))
	instructions = append(instructions, budgetIxs...)
	instructions = append(instructions, b.instructions...)

	txBuilder := solana.NewTransactionBuilder().
		SetFeePayer(b.signers[0].PublicKey()).
		SetRecentBlockHash(blockhash)
	for _, ix := range instructions {
		txBuilder.AddInstruction(ix)
	}
	if len(b.tables) > 0 {
		txBuilder.WithOpt(solana.TransactionAddressTables(b.tables))
	}

	tx, err := txBuilder.Build()
	if err != nil {
		return nil, fmt.Errorf("building transaction: %w", err)
	}

	signerSet := b.signers
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for _, signer := range signerSet {
			if signer.PublicKey().Equals(key) {
				s := signer
				return &s
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}

	return tx, nil
}
