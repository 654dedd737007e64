// internal/solana/computebudget/computebudget.go
package computebudget

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var ProgramID = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")

const (
	instructionRequestUnitsDeprecated uint8 = 0
	instructionRequestHeapFrame       uint8 = 1
	instructionSetComputeUnitLimit    uint8 = 2
	instructionSetComputeUnitPrice    uint8 = 3
)

// Config pins down the compute unit limit and per-unit priority fee for one
// transaction.
type Config struct {
	Units         uint32
	MicroLamports uint64
}

// BuildInstructions returns the SetComputeUnitLimit instruction, and a
// SetComputeUnitPrice instruction when a nonzero priority fee is set.
func BuildInstructions(cfg Config) ([]solana.Instruction, error) {
	var instructions []solana.Instruction

	limitIx, err := buildSetComputeUnitLimit(cfg.Units)
	if err != nil {
		return nil, fmt.Errorf("building compute unit limit instruction: %w", err)
	}
	instructions = append(instructions, limitIx)

	if cfg.MicroLamports > 0 {
		priceIx, err := buildSetComputeUnitPrice(cfg.MicroLamports)
		if err != nil {
			return nil, fmt.Errorf("building compute unit price instruction: %w", err)
		}
		instructions = append(instructions, priceIx)
	}

	return instructions, nil
}

func buildSetComputeUnitLimit(units uint32) (solana.Instruction, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, instructionSetComputeUnitLimit); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, units); err != nil {
		return nil, err
	}
	return solana.NewInstruction(ProgramID, []*solana.AccountMeta{}, buf.Bytes()), nil
}

func buildSetComputeUnitPrice(microLamports uint64) (solana.Instruction, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, instructionSetComputeUnitPrice); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, microLamports); err != nil {
		return nil, err
	}
	return solana.NewInstruction(ProgramID, []*solana.AccountMeta{}, buf.Bytes()), nil
}
