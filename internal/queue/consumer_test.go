package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAuditLine(t *testing.T) {
	line := FormatAuditLine(TicketEvent{
		Type:           TicketStatusChanged,
		TicketID:       "t1",
		OwnerID:        "u1",
		Status:         "In Progress",
		PreviousStatus: "Open",
		OccurredAt:     "2025-03-01T09:00:00.000Z",
	})
	assert.Equal(t,
		`[2025-03-01T09:00:00.000Z] ticket.status_changed | ticket_id=t1 | owner_id=u1 | status="In Progress" | previous_status="Open"`+"\n",
		line)

	line = FormatAuditLine(TicketEvent{Type: TicketCreated, TicketID: "t1", OwnerID: "u1", Status: "Open", OccurredAt: "x"})
	assert.NotContains(t, line, "previous_status")
}

func TestHandleMessage_AppendsLines(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "audit")
	a := NewAuditConsumer("", dir, nil)

	for _, ev := range []TicketEvent{
		{Type: TicketCreated, TicketID: "t1", OwnerID: "u1", Status: "Open", OccurredAt: "a"},
		{Type: TicketStatusChanged, TicketID: "t1", OwnerID: "u1", Status: "Closed", PreviousStatus: "Open", OccurredAt: "b"},
	} {
		body, err := json.Marshal(ev)
		require.NoError(t, err)
		require.NoError(t, a.HandleMessage(body))
	}

	data, err := os.ReadFile(filepath.Join(dir, "tickets.log"))
	require.NoError(t, err)
	assert.Equal(t,
		"[a] ticket.created | ticket_id=t1 | owner_id=u1 | status=\"Open\"\n"+
			"[b] ticket.status_changed | ticket_id=t1 | owner_id=u1 | status=\"Closed\" | previous_status=\"Open\"\n",
		string(data))
}

func TestHandleMessage_RejectsBadPayloads(t *testing.T) {
	a := NewAuditConsumer("", t.TempDir(), nil)
	assert.Error(t, a.HandleMessage([]byte("{not json")))
	assert.Error(t, a.HandleMessage([]byte(`{"type":"ticket.created"}`)))
}
