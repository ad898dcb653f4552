package model

import "time"

// TransferStatus is the closed set of states of a transfer request.
// PENDING is the only non-terminal state; at most one PENDING transfer
// may exist per ticket, which the repository enforces by flipping the
// ticket to TRANSFERRING in the same transaction that inserts the row.
type TransferStatus string

const (
	TransferPending  TransferStatus = "PENDING"  // waiting for the recipient's decision
	TransferAccepted TransferStatus = "ACCEPTED" // recipient confirmed; ownership moved
	TransferRejected TransferStatus = "REJECTED" // recipient declined; ownership unchanged
)

// Terminal reports whether the transfer can no longer change state.
// Terminal transfers are retained for audit and never re-activated.
func (s TransferStatus) Terminal() bool { return s != TransferPending }

// ParseTransferStatus validates a raw string against the closed set.
func ParseTransferStatus(raw string) (TransferStatus, bool) {
	switch TransferStatus(raw) {
	case TransferPending, TransferAccepted, TransferRejected:
		return TransferStatus(raw), true
	}
	return "", false
}

// Transfer represents a row in the `ticket_transfers` table: a two-party
// handshake moving ticket ownership from FromUser to ToUser.
//
// Fields:
//
//	ID        – primary key identifier.
//	TicketID  – ticket being transferred.
//	FromUser  – current owner initiating the transfer.
//	ToUser    – designated recipient; only they may confirm or reject.
//	Status    – handshake state, see TransferStatus.
//	CreatedAt – creation timestamp.
//	UpdatedAt – last update timestamp.
type Transfer struct {
	ID        uint64         // ticket_transfers.id
	TicketID  uint64         // ticket_transfers.ticket_id
	FromUser  uint64         // ticket_transfers.from_user
	ToUser    uint64         // ticket_transfers.to_user
	Status    TransferStatus // ticket_transfers.status
	CreatedAt time.Time      // ticket_transfers.created_at
	UpdatedAt time.Time      // ticket_transfers.updated_at
}
