package campaigns

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testCampaign(status string) Campaign {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return Campaign{
		Status:   status,
		OpensAt:  base,
		ClosesAt: base.AddDate(0, 0, 14),
		ShipsAt:  base.AddDate(0, 1, 0),
	}
}

func TestNextStatus(t *testing.T) {
	c := testCampaign(StatusDraft)

	tests := []struct {
		name   string
		status string
		now    time.Time
		want   string
	}{
		{"draft before open stays draft", StatusDraft, c.OpensAt.Add(-time.Hour), StatusDraft},
		{"draft at open activates", StatusDraft, c.OpensAt, StatusActive},
		{"draft during window activates", StatusDraft, c.OpensAt.AddDate(0, 0, 7), StatusActive},
		{"draft past close goes straight to closed", StatusDraft, c.ClosesAt.Add(time.Hour), StatusClosed},
		{"active before close stays active", StatusActive, c.ClosesAt.Add(-time.Minute), StatusActive},
		{"active at close closes", StatusActive, c.ClosesAt, StatusClosed},
		{"closed stays closed", StatusClosed, c.ClosesAt.AddDate(0, 1, 0), StatusClosed},
		{"archived never moves", StatusArchived, c.OpensAt.AddDate(0, 0, 7), StatusArchived},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			campaign := testCampaign(tc.status)
			assert.Equal(t, tc.want, NextStatus(campaign, tc.now))
		})
	}
}

func TestAcceptsOrders(t *testing.T) {
	c := testCampaign(StatusActive)

	assert.True(t, AcceptsOrders(c, c.OpensAt.AddDate(0, 0, 7)))
	assert.False(t, AcceptsOrders(c, c.ClosesAt))

	// A draft campaign whose window has opened is effectively active even if
	// the scheduler has not flipped the row yet.
	draft := testCampaign(StatusDraft)
	assert.True(t, AcceptsOrders(draft, draft.OpensAt.Add(time.Hour)))
	assert.False(t, AcceptsOrders(draft, draft.OpensAt.Add(-time.Hour)))

	archived := testCampaign(StatusArchived)
	assert.False(t, AcceptsOrders(archived, archived.OpensAt.AddDate(0, 0, 7)))
}
