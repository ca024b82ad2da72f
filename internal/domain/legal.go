package domain

import "time"

type LegalDocument struct {
	Slug        string
	Version     int
	Title       string
	PublishedAt time.Time
}

type LegalStatus struct {
	Document        string `json:"document"`
	CurrentVersion  int    `json:"current_version"`
	AcceptedVersion int    `json:"accepted_version"`
	MustAccept      bool   `json:"must_accept"`
}
