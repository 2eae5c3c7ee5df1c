package logkey

// Shared slog attribute keys so log fields stay grep-able across packages.
const (
	TraceID    = "Trace ID"
	ERROR      = "Error"
	StoreID    = "StoreID"
	CampaignID = "CampaignID"
	ProductID  = "ProductID"
	VariantID  = "VariantID"
	OrderID    = "OrderID"
)
