package models

import (
	"time"

	"github.com/uptrace/bun"
)

type SubCategory struct {
	bun.BaseModel `bun:"table:sub_category"`

	ID         int64  `bun:"id,pk,autoincrement" json:"id"`
	CategoryID int64  `bun:"category_id,notnull" json:"category_id"`
	Name       string `bun:"name,notnull" json:"name"`
}

type Product struct {
	bun.BaseModel `bun:"table:product"`

	ID            int64  `bun:"id,pk,autoincrement" json:"id"`
	SubCategoryID int64  `bun:"sub_category_id,notnull" json:"sub_category_id"`
	Name          string `bun:"name,notnull" json:"name"`
}

type Variant struct {
	bun.BaseModel `bun:"table:variant"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	ProductID   int64     `bun:"product_id,notnull" json:"product_id"`
	IsBase      bool      `bun:"is_base" json:"is_base"`
	Description string    `bun:"description" json:"description"`
	Color       string    `bun:"color,nullzero" json:"color,omitempty"`
	Size        string    `bun:"size,nullzero" json:"size,omitempty"`
	Price       float64   `bun:"price,notnull" json:"price"`
	Stock       int       `bun:"stock,notnull" json:"stock"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

type VariantImage struct {
	bun.BaseModel `bun:"table:variant_image"`

	ID        int64  `bun:"id,pk,autoincrement" json:"id"`
	VariantID int64  `bun:"variant_id,notnull" json:"variant_id"`
	Path      string `bun:"path,notnull" json:"path"`
}
