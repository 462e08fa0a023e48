package models

import "time"

// Notification target variants.
const (
	TargetAll   = "all"
	TargetRole  = "role"
	TargetUsers = "users"
)

// NotificationTarget is a tagged variant: Type selects which of the other
// fields is meaningful.
type NotificationTarget struct {
	Type    string  `json:"type"`
	Role    string  `json:"role,omitempty"`
	UserIDs []int64 `json:"user_ids,omitempty"`
}

func TargetRoleOf(role string) NotificationTarget {
	return NotificationTarget{Type: TargetRole, Role: role}
}

func TargetUsersOf(ids ...int64) NotificationTarget {
	return NotificationTarget{Type: TargetUsers, UserIDs: ids}
}

type Notification struct {
	ID          string             `json:"id"`
	Type        string             `json:"type"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Priority    string             `json:"priority"`
	Deeplink    string             `json:"deeplink,omitempty"`
	Target      NotificationTarget `json:"target"`
	CreatedAt   time.Time          `json:"created_at"`
}

// OrderConfirmation carries what the confirmation email needs.
type OrderConfirmation struct {
	OrderID    int64       `json:"order_id"`
	Items      []OrderItem `json:"items"`
	TotalPaise int64       `json:"total_paise"`
	Currency   string      `json:"currency"`
}
