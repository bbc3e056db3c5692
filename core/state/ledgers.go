package state

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"depinledger/core/address"
	"depinledger/native/periods"
	"depinledger/native/rewards"
)

// PeriodLedger loads the checker-count ring, nil when not yet created.
func (tx *Tx) PeriodLedger() (*periods.Ledger, error) {
	addr, err := address.PeriodLedger(tx.Program())
	if err != nil {
		return nil, err
	}
	data, err := tx.get(addr)
	if err != nil || data == nil {
		return nil, err
	}
	var stored storedPeriodLedger
	if err := decodeRecord(RecordPeriodLedger, data, &stored); err != nil {
		return nil, err
	}
	if len(stored.Entries) != periods.Capacity {
		return nil, fmt.Errorf("%w: period ledger has %d entries", ErrMalformedRecord, len(stored.Entries))
	}
	ledger := &periods.Ledger{Cursor: stored.Cursor}
	copy(ledger.Entries[:], stored.Entries)
	if err := ledger.Validate(); err != nil {
		return nil, err
	}
	return ledger, nil
}

// PutPeriodLedger stages the ring.
func (tx *Tx) PutPeriodLedger(ledger *periods.Ledger) error {
	addr, err := address.PeriodLedger(tx.Program())
	if err != nil {
		return err
	}
	stored := storedPeriodLedger{Entries: append([]uint64(nil), ledger.Entries[:]...), Cursor: ledger.Cursor}
	data, err := encodeRecord(RecordPeriodLedger, &stored)
	if err != nil {
		return err
	}
	return tx.put(addr, data)
}

// RewardsLedger loads the dense checker balance array, nil when not yet
// created. The body carries no encoding beyond the discriminator.
func (tx *Tx) RewardsLedger() (*rewards.Ledger, error) {
	addr, err := address.GlobalRewards(tx.Program())
	if err != nil {
		return nil, err
	}
	data, err := tx.get(addr)
	if err != nil || data == nil {
		return nil, err
	}
	body, err := unframe(RecordGlobalRewards, data)
	if err != nil {
		return nil, err
	}
	return rewards.LedgerFromBytes(body)
}

func (tx *Tx) PutRewardsLedger(ledger *rewards.Ledger) error {
	addr, err := address.GlobalRewards(tx.Program())
	if err != nil {
		return err
	}
	return tx.put(addr, frame(RecordGlobalRewards, ledger.Bytes()))
}

// WorkerProofAddress is where the proof for (license, period) lives.
func (tx *Tx) WorkerProofAddress(license solana.PublicKey, period uint16) (solana.PublicKey, error) {
	return address.WorkerProof(tx.Program(), license, period)
}

// WorkerProof loads the proof submitted for (license, period), nil if none.
func (tx *Tx) WorkerProof(license solana.PublicKey, period uint16) (*rewards.Proof, error) {
	addr, err := tx.WorkerProofAddress(license, period)
	if err != nil {
		return nil, err
	}
	data, err := tx.get(addr)
	if err != nil || data == nil {
		return nil, err
	}
	var stored storedProof
	if err := decodeRecord(RecordWorkerProof, data, &stored); err != nil {
		return nil, err
	}
	if len(stored.Checkers) != rewards.BitmapWords {
		return nil, fmt.Errorf("%w: proof bitmap has %d words", ErrMalformedRecord, len(stored.Checkers))
	}
	proof := &rewards.Proof{
		License:   solana.PublicKeyFromBytes(stored.License[:]),
		Period:    stored.Period,
		ProofRoot: stored.ProofRoot,
		Uptime:    stored.Uptime,
		Latency:   stored.Latency,
	}
	copy(proof.Checkers[:], stored.Checkers)
	return proof, nil
}

func (tx *Tx) PutWorkerProof(proof *rewards.Proof) error {
	addr, err := tx.WorkerProofAddress(proof.License, proof.Period)
	if err != nil {
		return err
	}
	stored := storedProof{
		License:   proof.License,
		Period:    proof.Period,
		ProofRoot: proof.ProofRoot,
		Checkers:  append([]uint64(nil), proof.Checkers[:]...),
		Uptime:    proof.Uptime,
		Latency:   proof.Latency,
	}
	data, err := encodeRecord(RecordWorkerProof, &stored)
	if err != nil {
		return err
	}
	return tx.put(addr, data)
}
