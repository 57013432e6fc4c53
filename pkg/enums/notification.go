package enums

import "fmt"

// NotificationType categorises in-app notifications.
type NotificationType string

const (
	NotificationTypeLedgerReminder   NotificationType = "ledger_reminder"
	NotificationTypeDeliveryReminder NotificationType = "delivery_reminder"
	NotificationTypeLowStock         NotificationType = "low_stock"
	NotificationTypeSystem           NotificationType = "system"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeLedgerReminder,
	NotificationTypeDeliveryReminder,
	NotificationTypeLowStock,
	NotificationTypeSystem,
}

// IsValid checks whether the value matches the canonical enum.
func (v NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
