package core

import (
	"errors"
	"strings"
	"time"
)

const (
	ARS Currency = "ARS"
	USD Currency = "USD"
)

type (
	// Currency is an enumerated tag. Amounts in different currencies are
	// never converted or mixed; every aggregation is per-currency.
	Currency string

	// Item is one billable service line within a booking.
	Item struct {
		ID       string   `json:"id"`
		Name     string   `json:"name"`
		Value    Money    `json:"value"`
		Currency Currency `json:"currency"`
	}

	// Payment is one amount received against a booking. Payments are
	// append-only: there is no update or delete operation.
	Payment struct {
		ID       string    `json:"id"`
		Amount   Money     `json:"amount"`
		Currency Currency  `json:"currency"`
		Date     time.Time `json:"date"`
	}

	// Booking is one reservation grouping items and payments. Items and
	// payments are kept in append order.
	Booking struct {
		ID                string    `json:"id"`
		ReservationNumber string    `json:"reservationNumber"`
		Items             []Item    `json:"items"`
		Payments          []Payment `json:"payments"`
		CreatedAt         time.Time `json:"createdAt"`
	}
)

var (
	ErrInvalidCurrency  = errors.New("invalid currency")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrNegativeValue    = errors.New("negative item value")
	ErrEmptyItemName    = errors.New("empty item name")
	ErrEmptyReservation = errors.New("empty reservation number")
)

func (c Currency) Valid() bool {
	return c == ARS || c == USD
}

func (i Item) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyItemName
	}
	if !i.Currency.Valid() {
		return ErrInvalidCurrency
	}
	// Zero is a legal item value; only negatives are rejected.
	if i.Value.Cents < 0 {
		return ErrNegativeValue
	}
	return nil
}

func (p Payment) Validate() error {
	if !p.Currency.Valid() {
		return ErrInvalidCurrency
	}
	if p.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (b Booking) Validate() error {
	if strings.TrimSpace(b.ReservationNumber) == "" {
		return ErrEmptyReservation
	}
	return nil
}
