package models

import (
	"fmt"
	"time"
)

// User is stored in Redis as a JSON string and in PostgreSQL as a row
// in the users table.
type User struct {
	// Numeric identifier, allocated by the store on first save
	ID int64 `json:"id"`

	// Unique login name, also used as a secondary index key in Redis
	Username string `json:"username"`

	Email string `json:"email"`

	// When the user was first saved
	CreatedAt time.Time `json:"created_at"`
}

// NewUser creates an unsaved user. The ID is assigned by the store.
func NewUser(username, email string) *User {
	return &User{
		Username:  username,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks if the user has all required fields
func (u *User) Validate() error {
	if u.Username == "" {
		return fmt.Errorf("username is required")
	}
	if u.Email == "" {
		return fmt.Errorf("email is required")
	}
	return nil
}

// Product is stored in Redis as a hash and in PostgreSQL as a row in
// the products table. Stock is additionally mirrored into a dedicated
// Redis string key so it can be updated atomically.
type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Stock     int       `json:"stock"`
	CreatedAt time.Time `json:"created_at"`
}

// NewProduct creates an unsaved product. The ID is assigned by the store.
func NewProduct(name string, price float64, stock int) *Product {
	return &Product{
		Name:      name,
		Price:     price,
		Stock:     stock,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks if the product has all required fields
func (p *Product) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("product name is required")
	}
	if p.Price < 0 {
		return fmt.Errorf("product price cannot be negative")
	}
	if p.Stock < 0 {
		return fmt.Errorf("product stock cannot be negative")
	}
	return nil
}
