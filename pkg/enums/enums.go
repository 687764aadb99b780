package enums

// ListingStatus tracks the sale lifecycle of a listing. The only legal
// transition is active -> sold.
type ListingStatus string

const (
	ListingStatusActive ListingStatus = "active"
	ListingStatusSold   ListingStatus = "sold"
)

// OrderStatus tracks the post-settlement lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPaid    OrderStatus = "paid"
	OrderStatusShipped OrderStatus = "shipped"
)

// Currency is a 3-letter ISO currency code.
type Currency string

const (
	CurrencyUSD Currency = "USD"
)

// ShipmentStatus tracks label purchase state for a shipment record.
type ShipmentStatus string

const (
	ShipmentStatusQuoted    ShipmentStatus = "quoted"
	ShipmentStatusPurchased ShipmentStatus = "purchased"
)
