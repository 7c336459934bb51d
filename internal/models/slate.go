package models

import (
	"errors"
	"fmt"
	"time"
)

// SlateGame is one scheduled game on a slate.
type SlateGame struct {
	GameID string
	Date   time.Time
	Home   string
	Away   string
}

// Validate checks that all slate game fields are valid.
func (g *SlateGame) Validate() error {
	if g.GameID == "" {
		return errors.New("game ID must not be empty")
	}
	if g.Home == "" || g.Away == "" {
		return fmt.Errorf("game %s: home and away teams are required", g.GameID)
	}
	if g.Home == g.Away {
		return fmt.Errorf("game %s: home and away must differ", g.GameID)
	}
	if g.Date.IsZero() {
		return fmt.Errorf("game %s: date must be set", g.GameID)
	}
	return nil
}
