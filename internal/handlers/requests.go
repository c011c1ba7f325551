package handlers

import "github.com/abrezinsky/zoolo/internal/services"

// LoginRequest represents a request to open a session
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SellRequest represents a request to sell a ticket
type SellRequest struct {
	Lines []services.SaleLine `json:"lines"`
}

// ResultPostRequest represents a request to record a draw result
type ResultPostRequest struct {
	Date string `json:"date"`
	Slot string `json:"slot"`
	Code string `json:"code"`
}
