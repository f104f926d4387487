// Package history records sync runs in Postgres.
package history

import "time"

type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Files      int       `json:"files"`
	Chunks     int       `json:"chunks"`
	Points     int       `json:"points"`
}

type CollectionRun struct {
	RunID       string   `json:"run_id"`
	Name        string   `json:"name"`
	Target      string   `json:"target"`
	Store       string   `json:"store"`
	State       string   `json:"state"`
	Success     bool     `json:"success"`
	Error       string   `json:"error"`
	Files       int      `json:"files"`
	Chunks      int      `json:"chunks"`
	Written     int      `json:"written"`
	ZeroVectors int      `json:"zero_vectors"`
	Warnings    []string `json:"warnings"`
	DurationMS  int64    `json:"duration_ms"`
}
