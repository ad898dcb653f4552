package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicketStatus_Transitions(t *testing.T) {
	cases := []struct {
		from, to TicketStatus
		ok       bool
	}{
		{TicketBooked, TicketTransferring, true},
		{TicketBooked, TicketCheckedIn, true},
		{TicketBooked, TicketCancelled, true},
		{TicketBooked, TicketTransferred, false},
		{TicketTransferring, TicketBooked, true},
		{TicketTransferring, TicketTransferred, true},
		{TicketTransferring, TicketCheckedIn, false},
		{TicketTransferring, TicketCancelled, false},
		{TicketTransferred, TicketTransferring, true},
		{TicketTransferred, TicketCheckedIn, true},
		{TicketTransferred, TicketCancelled, true},
		{TicketCheckedIn, TicketBooked, false},
		{TicketCheckedIn, TicketCancelled, false},
		{TicketCancelled, TicketBooked, false},
		{TicketCancelled, TicketCheckedIn, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTicketStatus_Terminal(t *testing.T) {
	assert.True(t, TicketCheckedIn.Terminal())
	assert.True(t, TicketCancelled.Terminal())
	assert.False(t, TicketBooked.Terminal())
	assert.False(t, TicketTransferring.Terminal())
	assert.False(t, TicketTransferred.Terminal())
}

func TestTicketStatus_CheckInable(t *testing.T) {
	assert.True(t, TicketBooked.CheckInable())
	assert.True(t, TicketTransferred.CheckInable())
	assert.False(t, TicketTransferring.CheckInable())
	assert.False(t, TicketCheckedIn.CheckInable())
	assert.False(t, TicketCancelled.CheckInable())
}

func TestParseTicketStatus(t *testing.T) {
	s, ok := ParseTicketStatus("BOOKED")
	assert.True(t, ok)
	assert.Equal(t, TicketBooked, s)

	_, ok = ParseTicketStatus("booked")
	assert.False(t, ok)

	_, ok = ParseTicketStatus("UNKNOWN")
	assert.False(t, ok)
}

func TestParsePaymentStatus(t *testing.T) {
	s, ok := ParsePaymentStatus("PAID")
	assert.True(t, ok)
	assert.Equal(t, PaymentPaid, s)

	_, ok = ParsePaymentStatus("SETTLED")
	assert.False(t, ok)
}

func TestTransferStatus_Terminal(t *testing.T) {
	assert.False(t, TransferPending.Terminal())
	assert.True(t, TransferAccepted.Terminal())
	assert.True(t, TransferRejected.Terminal())
}

func TestEvent_Free(t *testing.T) {
	assert.True(t, (&Event{PriceCents: 0}).Free())
	assert.False(t, (&Event{PriceCents: 1500}).Free())
}
