package receipt

import (
	"fmt"
	"sync"
)

// MemoryDB implements the DB interface with an in-process map. Records go
// in and come out as deep copies, so the status and extracted data of a
// stored receipt only ever change together under the lock.
type MemoryDB struct {
	mu       sync.RWMutex
	receipts map[string]*Receipt
}

// NewMemoryDB creates an empty in-memory receipt store.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{receipts: make(map[string]*Receipt)}
}

// SaveReceipt stores a copy of the receipt, replacing any previous version.
func (m *MemoryDB) SaveReceipt(receipt *Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts[receipt.ID] = receipt.Clone()
	return nil
}

// GetReceipt retrieves a copy of a receipt by ID.
func (m *MemoryDB) GetReceipt(id string) (*Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	receipt, ok := m.receipts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return receipt.Clone(), nil
}

// UpdateReceipt applies fn to the stored receipt while holding the write
// lock, so no delete or save can slip between the read and the write.
func (m *MemoryDB) UpdateReceipt(id string, fn func(*Receipt) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	receipt, ok := m.receipts[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	updated := receipt.Clone()
	if err := fn(updated); err != nil {
		return err
	}
	m.receipts[id] = updated
	return nil
}

// ListReceipts returns copies of all receipts.
func (m *MemoryDB) ListReceipts() ([]*Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	receipts := make([]*Receipt, 0, len(m.receipts))
	for _, r := range m.receipts {
		receipts = append(receipts, r.Clone())
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt.
func (m *MemoryDB) DeleteReceipt(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.receipts[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.receipts, id)
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryDB) Close() error {
	return nil
}
