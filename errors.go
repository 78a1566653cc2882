/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"log"
	"time"
)

// Protocol errors. None of these are fatal; handlers downgrade them to
// dropped messages or status events so one misbehaving client cannot
// affect anyone else's session.
var (
	ErrAlreadyQueued    = errors.New("client is already searching for a match")
	ErrAlreadyInSession = errors.New("client is already in a session")
	ErrNotInSession     = errors.New("client is not a participant of that session")
	ErrNotConnected     = errors.New("client is not connected")
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}
