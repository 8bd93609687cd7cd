package models

import "time"

// Customer represents a customer company record.
type Customer struct {
	ID             string    `db:"id" json:"id"`
	CompanyName    string    `db:"company_name" json:"company_name"`
	ContactPerson  string    `db:"contact_person" json:"contact_person"`
	Email          string    `db:"email" json:"email"`
	Phone          string    `db:"phone" json:"phone,omitempty"`
	Address        string    `db:"address" json:"address,omitempty"`
	Country        string    `db:"country" json:"country,omitempty"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	QuotationCount int       `db:"quotation_count" json:"quotation_count"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// UserCustomer links a user to a customer they may work with.
type UserCustomer struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	CustomerID string    `db:"customer_id" json:"customer_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// CustomerCreateRequest creates a customer record.
type CustomerCreateRequest struct {
	CompanyName   string `json:"company_name" validate:"required,max=200"`
	ContactPerson string `json:"contact_person" validate:"required,max=200"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"max=50"`
	Address       string `json:"address" validate:"max=500"`
	Country       string `json:"country" validate:"max=100"`
}

// CustomerUpdateRequest updates mutable customer fields.
type CustomerUpdateRequest struct {
	CompanyName   string `json:"company_name" validate:"required,max=200"`
	ContactPerson string `json:"contact_person" validate:"required,max=200"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"max=50"`
	Address       string `json:"address" validate:"max=500"`
	Country       string `json:"country" validate:"max=100"`
	IsActive      *bool  `json:"is_active"`
}

// CustomerFilter captures filtering criteria for listing customers.
type CustomerFilter struct {
	Search   string
	Country  string
	IsActive *bool
}
