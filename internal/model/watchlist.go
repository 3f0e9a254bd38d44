package model

import "time"

// WatchlistEntry is the persisted state for a tracked company.
// Created on auto-add, mutated on every rescoring pass, deleted on
// auto-remove.
type WatchlistEntry struct {
	CompanyID     string    `json:"company_id"`
	CompanyName   string    `json:"company_name"`
	AddedAt       time.Time `json:"added_at"`
	CurrentScore  float64   `json:"current_score"`
	ScoreAtAdd    float64   `json:"score_at_add"`
	PeakScore     float64   `json:"peak_score"`
	AlertsEnabled bool      `json:"alerts_enabled"`
	AlertDelta    float64   `json:"alert_delta"`
}

// AlertNotification is emitted when a tracked company's score moves by
// at least the entry's alert delta.
type AlertNotification struct {
	ID            string    `json:"id"`
	CompanyID     string    `json:"company_id"`
	CompanyName   string    `json:"company_name"`
	PreviousScore float64   `json:"previous_score"`
	NewScore      float64   `json:"new_score"`
	Delta         float64   `json:"delta"`
	Trend         Trend     `json:"trend"`
	KeySignals    []string  `json:"key_signals,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
