// Package ingest reads slate and game-record files written in YAML.
//
// Slate file:
//
//	date: "2025-11-04"
//	games:
//	  - game_id: "2025020190"
//	    home: FLA
//	    away: CHI
//
// Record file:
//
//	records:
//	  - game_id: "2025020150"
//	    date: "2025-10-30"
//	    team: FLA
//	    opponent: BOS
//	    side: home
//	    corsi_for: 61
//	    ...
package ingest

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rewired-gh/goi/internal/models"
)

// Slate is a parsed slate file.
type Slate struct {
	Date  time.Time
	Games []models.SlateGame
}

type slateFile struct {
	Date  string `yaml:"date"`
	Games []struct {
		GameID string `yaml:"game_id"`
		Date   string `yaml:"date"`
		Home   string `yaml:"home"`
		Away   string `yaml:"away"`
	} `yaml:"games"`
}

type recordFile struct {
	Records []recordEntry `yaml:"records"`
}

type recordEntry struct {
	Date              string `yaml:"date"`
	models.GameRecord `yaml:",inline"`
}

// LoadSlate reads and validates a slate file.
func LoadSlate(path string) (Slate, error) {
	f, err := os.Open(path)
	if err != nil {
		return Slate{}, fmt.Errorf("open slate: %w", err)
	}
	defer f.Close()
	s, err := ParseSlate(f)
	if err != nil {
		return Slate{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseSlate decodes a slate. A game without its own date takes the slate
// date. Games are not validated here: malformed games are reported as
// exclusions by the ranking instead of failing the whole file.
func ParseSlate(r io.Reader) (Slate, error) {
	var sf slateFile
	if err := decode(r, &sf); err != nil {
		return Slate{}, err
	}
	if sf.Date == "" {
		return Slate{}, fmt.Errorf("slate date is required")
	}
	date, err := models.ParseDay(sf.Date)
	if err != nil {
		return Slate{}, fmt.Errorf("slate date: %w", err)
	}

	out := Slate{Date: date, Games: make([]models.SlateGame, 0, len(sf.Games))}
	for i, g := range sf.Games {
		game := models.SlateGame{GameID: g.GameID, Date: date, Home: g.Home, Away: g.Away}
		if g.Date != "" {
			if game.Date, err = models.ParseDay(g.Date); err != nil {
				return Slate{}, fmt.Errorf("game %d: %w", i, err)
			}
		}
		out.Games = append(out.Games, game)
	}
	return out, nil
}

// LoadRecords reads and validates a record file.
func LoadRecords(path string) ([]models.GameRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open records: %w", err)
	}
	defer f.Close()
	records, err := ParseRecords(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// ParseRecords decodes a record batch and validates every record.
func ParseRecords(r io.Reader) ([]models.GameRecord, error) {
	var rf recordFile
	if err := decode(r, &rf); err != nil {
		return nil, err
	}

	out := make([]models.GameRecord, 0, len(rf.Records))
	for i, e := range rf.Records {
		rec := e.GameRecord
		if e.Date == "" {
			return nil, fmt.Errorf("record %d: date is required", i)
		}
		date, err := models.ParseDay(e.Date)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		rec.Date = date
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("record %d (%s/%s): %w", i, rec.GameID, rec.Team, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func decode(r io.Reader, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}
