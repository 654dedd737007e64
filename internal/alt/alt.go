// Package alt maintains an on-chain Address Lookup Table so that a
// multi-leg arbitrage transaction's ~25-30 accounts fit under the
// 1232-byte wire limit. Each account moved into the table shrinks a
// reference from a 32-byte pubkey to a 1-byte index.
package alt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/solarb/flashbot/internal/solana/computebudget"
	solclient "github.com/solarb/flashbot/internal/solana"
)

var (
	ProgramID       = solana.MustPublicKeyFromBase58("AddressLookupTab1e1111111111111111111111111")
	systemProgramID = solana.MustPublicKeyFromBase58("11111111111111111111111111111111")
)

const (
	instructionCreateLookupTable = uint32(0)
	instructionExtendLookupTable = uint32(2)

	// extendBatchSize is conservative: the program accepts more, but this
	// keeps a single extend transaction well under the account cap.
	extendBatchSize = 20
)

// Table is the decoded content of an on-chain lookup table.
type Table struct {
	Address   solana.PublicKey
	Addresses []solana.PublicKey
}

type persistedState struct {
	Address string `json:"address"`
}

// Manager creates, persists and extends a single lookup table owned by the
// engine's signer.
type Manager struct {
	client    *solclient.Client
	authority solana.PrivateKey
	statePath string
	logger    *zap.Logger

	tableAddr solana.PublicKey
	known     map[solana.PublicKey]bool
	table     *Table
}

// New builds a Manager whose table address is persisted at statePath so it
// survives engine restarts, mirroring the .alt_state.json sidecar file.
func New(client *solclient.Client, authority solana.PrivateKey, statePath string, logger *zap.Logger) *Manager {
	return &Manager{
		client:    client,
		authority: authority,
		statePath: statePath,
		logger:    logger.Named("alt"),
		known:     make(map[solana.PublicKey]bool),
	}
}

// EnsureTable loads the cached table if one exists, creating it on-chain
// otherwise, then extends it with any of addresses not already present.
func (m *Manager) EnsureTable(ctx context.Context, addresses []solana.PublicKey) (*Table, error) {
	if m.tableAddr.Equals(solana.PublicKey{}) {
		if err := m.loadOrCreate(ctx); err != nil {
			return nil, err
		}
	}
	if err := m.extend(ctx, addresses); err != nil {
		return nil, fmt.Errorf("extending lookup table: %w", err)
	}
	return m.table, nil
}

func (m *Manager) loadOrCreate(ctx context.Context) error {
	if state, err := m.readState(); err == nil {
		m.tableAddr = state
		table, loadErr := m.loadTable(ctx)
		if loadErr == nil && table != nil {
			m.table = table
			for _, a := range table.Addresses {
				m.known[a] = true
			}
			m.logger.Info("lookup table loaded", zap.String("address", state.String()), zap.Int("addresses", len(table.Addresses)))
			return nil
		}
		m.logger.Warn("saved lookup table not found on-chain, creating new", zap.Error(loadErr))
	}
	return m.create(ctx)
}

func (m *Manager) create(ctx context.Context) error {
	slot, err := m.client.GetSlot(ctx)
	if err != nil {
		return fmt.Errorf("fetching slot: %w", err)
	}

	tableAddr, bump, err := deriveLookupTableAddress(m.authority.PublicKey(), slot)
	if err != nil {
		return fmt.Errorf("deriving lookup table address: %w", err)
	}

	ix := buildCreateInstruction(tableAddr, m.authority.PublicKey(), m.authority.PublicKey(), slot, bump)

	builder := solclient.NewBuilder(computebudget.Config{Units: 50_000, MicroLamports: 25_000}).
		AddInstruction(ix).
		AddSigner(m.authority)

	tx, _, err := builder.Build(ctx, m.client)
	if err != nil {
		return fmt.Errorf("building create-table transaction: %w", err)
	}

	sig, err := m.client.SendTransaction(ctx, tx)
	if err != nil {
		return fmt.Errorf("sending create-table transaction: %w", err)
	}
	m.logger.Info("lookup table create tx sent", zap.String("signature", sig.String()), zap.String("table", tableAddr.String()))

	m.tableAddr = tableAddr
	m.known = make(map[solana.PublicKey]bool)
	if err := m.writeState(tableAddr); err != nil {
		m.logger.Warn("failed to persist lookup table state", zap.Error(err))
	}

	table, err := m.loadTable(ctx)
	if err != nil {
		return fmt.Errorf("loading newly created table: %w", err)
	}
	m.table = table
	return nil
}

func (m *Manager) extend(ctx context.Context, addresses []solana.PublicKey) error {
	var fresh []solana.PublicKey
	for _, addr := range addresses {
		if addr.Equals(m.authority.PublicKey()) || m.known[addr] {
			continue
		}
		fresh = append(fresh, addr)
	}
	if len(fresh) == 0 {
		return nil
	}

	for start := 0; start < len(fresh); start += extendBatchSize {
		end := start + extendBatchSize
		if end > len(fresh) {
			end = len(fresh)
		}
		batch := fresh[start:end]

		ix := buildExtendInstruction(m.tableAddr, m.authority.PublicKey(), m.authority.PublicKey(), batch)
		builder := solclient.NewBuilder(computebudget.Config{Units: 100_000, MicroLamports: 25_000}).
			AddInstruction(ix).
			AddSigner(m.authority)

		tx, _, err := builder.Build(ctx, m.client)
		if err != nil {
			return fmt.Errorf("building extend transaction: %w", err)
		}
		if _, err := m.client.SendTransaction(ctx, tx); err != nil {
			return fmt.Errorf("sending extend transaction: %w", err)
		}
		for _, addr := range batch {
			m.known[addr] = true
		}
		m.logger.Debug("lookup table extended", zap.Int("added", len(batch)))
	}

	table, err := m.loadTable(ctx)
	if err != nil {
		return err
	}
	m.table = table
	return nil
}

func (m *Manager) loadTable(ctx context.Context) (*Table, error) {
	return Load(ctx, m.client, m.tableAddr)
}

// Load fetches and decodes an arbitrary lookup table by address, not just
// the engine's own managed table. The composer uses this to resolve the
// lookup tables named by a venue's swap-instruction bundle.
func Load(ctx context.Context, client *solclient.Client, address solana.PublicKey) (*Table, error) {
	info, err := client.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, err
	}
	if info == nil || info.Value == nil {
		return nil, fmt.Errorf("lookup table account not found: %s", address)
	}
	return decodeTable(address, info.Value.Data.GetBinary())
}

func (m *Manager) readState() (solana.PublicKey, error) {
	data, err := os.ReadFile(m.statePath)
	if err != nil {
		return solana.PublicKey{}, err
	}
	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBase58(state.Address)
}

func (m *Manager) writeState(addr solana.PublicKey) error {
	if dir := filepath.Dir(m.statePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.Marshal(persistedState{Address: addr.String()})
	if err != nil {
		return err
	}
	return os.WriteFile(m.statePath, data, 0o644)
}

// deriveLookupTableAddress mirrors the program's PDA derivation from the
// authority pubkey and a recent slot.
func deriveLookupTableAddress(authority solana.PublicKey, recentSlot uint64) (solana.PublicKey, uint8, error) {
	seeds := [][]byte{authority.Bytes(), uint64LEBytes(recentSlot)}
	return solana.FindProgramAddress(seeds, ProgramID)
}

func buildCreateInstruction(table, authority, payer solana.PublicKey, recentSlot uint64, bump uint8) solana.Instruction {
	data := make([]byte, 0, 13)
	data = append(data, uint32LEBytes(instructionCreateLookupTable)...)
	data = append(data, uint64LEBytes(recentSlot)...)
	data = append(data, bump)

	accounts := []*solana.AccountMeta{
		{PublicKey: table, IsSigner: false, IsWritable: true},
		{PublicKey: authority, IsSigner: true, IsWritable: false},
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: systemProgramID, IsSigner: false, IsWritable: false},
	}
	return solana.NewInstruction(ProgramID, accounts, data)
}

func buildExtendInstruction(table, authority, payer solana.PublicKey, newAddresses []solana.PublicKey) solana.Instruction {
	data := make([]byte, 0, 12+32*len(newAddresses))
	data = append(data, uint32LEBytes(instructionExtendLookupTable)...)
	data = append(data, uint64LEBytes(uint64(len(newAddresses)))...)
	for _, addr := range newAddresses {
		data = append(data, addr.Bytes()...)
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: table, IsSigner: false, IsWritable: true},
		{PublicKey: authority, IsSigner: true, IsWritable: false},
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: systemProgramID, IsSigner: false, IsWritable: false},
	}
	return solana.NewInstruction(ProgramID, accounts, data)
}

// decodeTable parses the 56-byte ALT account header followed by a flat
// array of 32-byte addresses.
func decodeTable(key solana.PublicKey, data []byte) (*Table, error) {
	if len(data) < 56 {
		return nil, fmt.Errorf("lookup table account data too short: %d bytes", len(data))
	}
	addrData := data[56:]
	count := len(addrData) / 32
	addresses := make([]solana.PublicKey, count)
	for i := 0; i < count; i++ {
		copy(addresses[i][:], addrData[i*32:(i+1)*32])
	}
	return &Table{Address: key, Addresses: addresses}, nil
}

func uint32LEBytes(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func uint64LEBytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}
