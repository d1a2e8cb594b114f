// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Token purposes. Magic-link and email-verification tokens share one table
// and one lifecycle; the purpose keeps the two flows from crossing.
const (
	TokenPurposeMagicLink   = "magic_link"
	TokenPurposeEmailVerify = "email_verify"
)

// Token is an expiring, single-use secret bound to an email address.
// Only the SHA-256 hash of the raw token is ever stored.
type Token struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64      `db:"id" json:"id"`
	Purpose   string     `db:"purpose" json:"purpose"`
	Email     string     `db:"email" json:"email"`
	TokenHash string     `db:"token_hash" json:"-"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	UsedAt    *time.Time `db:"used_at" json:"used_at"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
}

// CronJobRun records the last completion time of a named maintenance job.
type CronJobRun struct {
	JobName   string    `db:"job_name" json:"job_name"`
	LastRunAt time.Time `db:"last_run_at" json:"last_run_at"`
}
