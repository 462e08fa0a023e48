package models

import "github.com/uptrace/bun"

type ShippingAddress struct {
	bun.BaseModel `bun:"table:shipping_address"`

	ID      int64  `bun:"id,pk,autoincrement" json:"id"`
	UserID  int64  `bun:"user_id,notnull" json:"user_id"`
	Name    string `bun:"name,notnull" json:"name"`
	Phone   string `bun:"phone,notnull" json:"phone"`
	Line1   string `bun:"line1,notnull" json:"line1"`
	Line2   string `bun:"line2,nullzero" json:"line2,omitempty"`
	City    string `bun:"city,notnull" json:"city"`
	State   string `bun:"state,notnull" json:"state"`
	Pincode string `bun:"pincode,notnull" json:"pincode"`
}

type User struct {
	bun.BaseModel `bun:"table:user"`

	ID    int64  `bun:"id,pk,autoincrement" json:"id"`
	Email string `bun:"email,notnull,unique" json:"email"`
	Name  string `bun:"name,nullzero" json:"name,omitempty"`
}
