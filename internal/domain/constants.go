package domain

const (
	RoleCustomer = "CUSTOMER"
	RoleAdmin    = "ADMIN"
)

// Notification types. ORDER_UPDATE rows are exempt from retention cleanup so
// order history survives.
const (
	NotificationOrderUpdate  = "ORDER_UPDATE"
	NotificationProductAlert = "PRODUCT_ALERT"
	NotificationSystemAlert  = "SYSTEM_ALERT"
)

// ValidNotificationType gates admin-supplied types.
func ValidNotificationType(t string) bool {
	switch t {
	case NotificationOrderUpdate, NotificationProductAlert, NotificationSystemAlert:
		return true
	}
	return false
}

// Stock alert kinds carried in PRODUCT_ALERT data.
const (
	StockAlertLow = "LOW_STOCK"
	StockAlertOut = "OUT_OF_STOCK"
)
