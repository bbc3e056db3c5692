// Package state persists every ledger record as a discriminated payload keyed
// by its derived address, and stages the writes of one request so they land
// in a single batch.
package state

import (
	"errors"
	"sync"

	"github.com/gagliardetto/solana-go"

	"depinledger/storage"
)

var (
	errTxClosed  = errors.New("state: transaction already closed")
	recordPrefix = []byte("record/")
)

func recordKey(addr solana.PublicKey) []byte {
	buf := make([]byte, len(recordPrefix)+solana.PublicKeyLength)
	copy(buf, recordPrefix)
	copy(buf[len(recordPrefix):], addr[:])
	return buf
}

// Manager owns the record store for one program.
type Manager struct {
	db      storage.Database
	program solana.PublicKey
	// mu serialises commits so a Tx never interleaves with another writer.
	mu sync.Mutex
}

// NewManager binds a manager to db and the program that owns its records.
func NewManager(db storage.Database, program solana.PublicKey) *Manager {
	return &Manager{db: db, program: program}
}

// Program returns the owning program id.
func (m *Manager) Program() solana.PublicKey { return m.program }

// Begin opens a write overlay.
func (m *Manager) Begin() *Tx {
	return &Tx{m: m, pending: make(map[string][]byte)}
}

// View runs fn against a transaction that is always discarded.
func (m *Manager) View(fn func(tx *Tx) error) error {
	tx := m.Begin()
	defer tx.Discard()
	return fn(tx)
}

// Update runs fn and commits its writes when it returns nil. Nothing is
// written when fn fails.
func (m *Manager) Update(fn func(tx *Tx) error) error {
	tx := m.Begin()
	if err := fn(tx); err != nil {
		tx.Discard()
		return err
	}
	return tx.Commit()
}

// Tx reads through to the database and buffers writes until Commit.
type Tx struct {
	m       *Manager
	pending map[string][]byte
	order   []string
	closed  bool
}

// Program returns the owning program id.
func (tx *Tx) Program() solana.PublicKey { return tx.m.program }

func (tx *Tx) get(addr solana.PublicKey) ([]byte, error) {
	if tx.closed {
		return nil, errTxClosed
	}
	key := recordKey(addr)
	if value, ok := tx.pending[string(key)]; ok {
		return value, nil
	}
	value, err := tx.m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return value, err
}

func (tx *Tx) put(addr solana.PublicKey, value []byte) error {
	if tx.closed {
		return errTxClosed
	}
	key := string(recordKey(addr))
	if _, seen := tx.pending[key]; !seen {
		tx.order = append(tx.order, key)
	}
	tx.pending[key] = value
	return nil
}

// Exists reports whether any record is stored at addr.
func (tx *Tx) Exists(addr solana.PublicKey) (bool, error) {
	data, err := tx.get(addr)
	if err != nil {
		return false, err
	}
	return data != nil, nil
}

// Dirty returns the number of staged records.
func (tx *Tx) Dirty() int { return len(tx.order) }

// Commit writes every staged record in one batch.
func (tx *Tx) Commit() error {
	if tx.closed {
		return errTxClosed
	}
	tx.closed = true
	if len(tx.order) == 0 {
		return nil
	}
	batch := storage.NewBatch()
	for _, key := range tx.order {
		batch.Put([]byte(key), tx.pending[key])
	}
	tx.m.mu.Lock()
	defer tx.m.mu.Unlock()
	return tx.m.db.Write(batch)
}

// Discard drops every staged write. It is safe to call after Commit.
func (tx *Tx) Discard() {
	tx.closed = true
	tx.pending = nil
	tx.order = nil
}
