package campaigns

import "time"

const (
	StatusDraft    = "draft"
	StatusActive   = "active"
	StatusClosed   = "closed"
	StatusArchived = "archived"
)

// Campaign is one time-boxed group-buy window belonging to a store.
type Campaign struct {
	ID            string    `json:"id"`
	StoreID       string    `json:"store_id"`
	Slug          string    `json:"slug"`
	Name          string    `json:"name"`
	Status        string    `json:"status"`
	OpensAt       time.Time `json:"opens_at"`
	ClosesAt      time.Time `json:"closes_at"`
	ShipsAt       time.Time `json:"ships_at"`
	ShipToName    string    `json:"ship_to_name"`
	ShipToAddress string    `json:"ship_to_address"`
	ShipToPhone   string    `json:"ship_to_phone,omitempty"`
	CustomMessage string    `json:"custom_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewCampaign is the payload accepted when creating a campaign.
type NewCampaign struct {
	StoreID       string    `json:"store_id" validate:"required,uuid4"`
	Slug          string    `json:"slug" validate:"omitempty,min=2,max=100"`
	Name          string    `json:"name" validate:"required,min=3,max=200"`
	OpensAt       time.Time `json:"opens_at" validate:"required"`
	ClosesAt      time.Time `json:"closes_at" validate:"required,gtfield=OpensAt"`
	ShipsAt       time.Time `json:"ships_at" validate:"required,gtfield=ClosesAt"`
	ShipToName    string    `json:"ship_to_name" validate:"required,max=200"`
	ShipToAddress string    `json:"ship_to_address" validate:"required,max=1000"`
	ShipToPhone   string    `json:"ship_to_phone" validate:"max=50"`
	CustomMessage string    `json:"custom_message" validate:"max=5000"`
}

// UpdateCampaign carries the mutable campaign fields; nil means unchanged.
type UpdateCampaign struct {
	Name          *string    `json:"name" validate:"omitempty,min=3,max=200"`
	Status        *string    `json:"status" validate:"omitempty,oneof=draft active closed archived"`
	OpensAt       *time.Time `json:"opens_at"`
	ClosesAt      *time.Time `json:"closes_at"`
	ShipsAt       *time.Time `json:"ships_at"`
	ShipToName    *string    `json:"ship_to_name" validate:"omitempty,max=200"`
	ShipToAddress *string    `json:"ship_to_address" validate:"omitempty,max=1000"`
	ShipToPhone   *string    `json:"ship_to_phone" validate:"omitempty,max=50"`
	CustomMessage *string    `json:"custom_message" validate:"omitempty,max=5000"`
}

// NextStatus returns the status the campaign should hold at the given
// instant, applying the automatic activation and closing transitions.
// Archived campaigns never move.
func NextStatus(c Campaign, now time.Time) string {
	switch c.Status {
	case StatusDraft:
		if !now.Before(c.OpensAt) {
			if !now.Before(c.ClosesAt) {
				return StatusClosed
			}
			return StatusActive
		}
	case StatusActive:
		if !now.Before(c.ClosesAt) {
			return StatusClosed
		}
	}
	return c.Status
}

// AcceptsOrders reports whether checkout is allowed for the campaign at the
// given instant. Only an open, active campaign is purchasable.
func AcceptsOrders(c Campaign, now time.Time) bool {
	return NextStatus(c, now) == StatusActive
}
