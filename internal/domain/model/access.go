package model

import (
	"time"

	"github.com/google/uuid"
)

const AccessTypePurchase = "purchase"

// ProductAccess entitles a user to a purchased product. One per (user, product).
type ProductAccess struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	ProductID     string     `json:"productId"`
	OrderID       string     `json:"orderId"`
	AccessType    string     `json:"accessType"`
	GrantedAt     time.Time  `json:"grantedAt"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"` // nil = permanent
	DownloadCount int        `json:"downloadCount"`
}

func NewPermanentAccess(userID, productID, orderID string) *ProductAccess {
	return &ProductAccess{
		ID:         uuid.NewString(),
		UserID:     userID,
		ProductID:  productID,
		OrderID:    orderID,
		AccessType: AccessTypePurchase,
		GrantedAt:  time.Now().UTC(),
	}
}

// IsValid is true iff the grant is permanent or not yet expired.
func (a *ProductAccess) IsValid(now time.Time) bool {
	return a.ExpiresAt == nil || a.ExpiresAt.After(now)
}
