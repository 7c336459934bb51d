package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rewired-gh/goi/internal/config"
	"github.com/rewired-gh/goi/internal/engine"
	"github.com/rewired-gh/goi/internal/ingest"
	"github.com/rewired-gh/goi/internal/logger"
	"github.com/rewired-gh/goi/internal/metrics"
	"github.com/rewired-gh/goi/internal/models"
	"github.com/rewired-gh/goi/internal/storage"
	"github.com/rewired-gh/goi/internal/telegram"
)

const usage = `usage: goi [-config path] <command> [flags]

commands:
  import -file records.yaml   upsert per-game team records
  rank   -slate slate.yaml    rank a day's games
  teams  -date YYYY-MM-DD     league table of adjusted power indexes
`

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

// store is what the commands need from either storage driver.
type store interface {
	engine.Source
	UpsertRecords(ctx context.Context, records []models.GameRecord) (int, error)
	Close() error
}

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	// Secrets such as GOI_TELEGRAM_BOT_TOKEN may live in a local .env
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, save, err := openStore(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "import":
		err = runImport(ctx, st, save, args)
	case "rank":
		err = runRank(ctx, cfg, st, args)
	case "teams":
		err = runTeams(ctx, cfg, st, args)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("%s failed: %v", cmd, err)
		os.Exit(1)
	}
}

// openStore opens the configured driver. save persists a memory store
// snapshot and is a no-op for sqlite.
func openStore(cfg *config.Config) (store, func() error, error) {
	switch cfg.Storage.Driver {
	case "memory":
		m := storage.NewMemoryStore(cfg.Storage.SnapshotPath)
		if err := m.Load(); err != nil {
			return nil, nil, err
		}
		return m, m.Save, nil
	default:
		s, err := storage.Open(cfg.Storage.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil
	}
}

func newEngine(cfg *config.Config, src engine.Source, rec *metrics.Recorder) (*engine.Engine, error) {
	params, err := cfg.ScoringParams()
	if err != nil {
		return nil, err
	}
	return engine.New(src, params, engine.WithMetrics(rec), engine.WithWorkers(cfg.Scoring.Workers))
}

func runImport(ctx context.Context, st store, save func() error, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	file := fs.String("file", "", "YAML file of game records")
	_ = fs.Parse(args)
	if *file == "" {
		return fmt.Errorf("-file is required")
	}

	records, err := ingest.LoadRecords(*file)
	if err != nil {
		return err
	}
	n, err := st.UpsertRecords(ctx, records)
	if err != nil {
		return err
	}
	if err := save(); err != nil {
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}
	logger.Info("Imported %d records from %s", n, *file)
	return nil
}

func runRank(ctx context.Context, cfg *config.Config, st store, args []string) error {
	fs := flag.NewFlagSet("rank", flag.ExitOnError)
	file := fs.String("slate", "", "YAML slate file")
	runID := fs.String("run-id", "", "Fixed run id for reproducible output (generated when empty)")
	_ = fs.Parse(args)
	if *file == "" {
		return fmt.Errorf("-slate is required")
	}

	sl, err := ingest.LoadSlate(*file)
	if err != nil {
		return err
	}

	var rec *metrics.Recorder
	if cfg.Metrics.Enabled {
		rec = metrics.NewRecorder()
	}
	eng, err := newEngine(cfg, st, rec)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := eng.RankSlate(ctx, engine.SlateRequest{RunID: *runID, Date: sl.Date, Games: sl.Games})
	if err != nil {
		return err
	}
	logger.Info("Ranked slate %s: %d games ranked, %d excluded in %v (run %s)",
		sl.Date.Format(models.DateLayout), len(res.Ranked), len(res.Excluded), time.Since(start), res.RunID)
	for _, ex := range res.Excluded {
		logger.Warn("%v", ex)
	}

	if err := writeJSON(res); err != nil {
		return err
	}

	if cfg.Telegram.Enabled {
		tg, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID,
			cfg.Telegram.TopK, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			return err
		}
		if err := tg.SendSlate(ctx, res); err != nil {
			logger.Warn("Failed to send slate to Telegram: %v", err)
		} else {
			logger.Info("Slate sent to Telegram")
		}
	}

	if rec != nil {
		if err := rec.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			logger.Warn("Failed to write metrics: %v", err)
		}
	}
	return nil
}

func runTeams(ctx context.Context, cfg *config.Config, st store, args []string) error {
	fs := flag.NewFlagSet("teams", flag.ExitOnError)
	date := fs.String("date", time.Now().UTC().Format(models.DateLayout), "Season through this date")
	recent := fs.Int("last", 0, "Use each team's last N games instead of the season")
	_ = fs.Parse(args)

	through, err := models.ParseDay(*date)
	if err != nil {
		return err
	}
	w := models.SeasonWindow(through)
	if *recent > 0 {
		w = models.LastNWindow(*recent, through)
	}

	eng, err := newEngine(cfg, st, nil)
	if err != nil {
		return err
	}
	rows, err := eng.RankTeams(ctx, w)
	if err != nil {
		return err
	}
	logger.Info("Ranked %d teams over %s", len(rows), w)
	return writeJSON(rows)
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
