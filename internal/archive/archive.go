// Package archive persists concluded games: one replay file and one chat
// transcript per game, keyed by the game identifier, plus a row in a
// database-backed index of completed games.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hiraku/gomoku/internal/core"
	"github.com/hiraku/gomoku/internal/game"
)

// Replay is the durable record of one completed game, consumed read-only by
// the replay viewer.
type Replay struct {
	GameID    string      `json:"game_id"`
	StartTime int64       `json:"start_time"`
	EndTime   int64       `json:"end_time"`
	Winner    string      `json:"winner"`
	Moves     []game.Move `json:"moves"`
	BoardSize int         `json:"board_size"`
}

// ChatLog is the durable chat transcript of one completed game.
type ChatLog struct {
	GameID string      `json:"game_id"`
	Chats  []game.Chat `json:"chats"`
}

// GameRecord is one row in the completed-game index.
type GameRecord struct {
	ID         uint64 `gorm:"primaryKey"`
	GameID     string `gorm:"uniqueIndex;not null"`
	Winner     string
	WinnerName string
	MoveCount  int
	StartedAt  time.Time
	EndedAt    time.Time
}

// Archive writes game conclusion artifacts.
type Archive struct {
	replaysDir  string
	chatLogsDir string
	db          *gorm.DB
	logger      *logrus.Logger
}

// New creates the artifact directories, connects to the index database, and
// runs migrations.
func New(cfg *core.Config, log *logrus.Logger) (*Archive, error) {
	for _, dir := range []string{cfg.Archive.ReplaysDir, cfg.Archive.ChatLogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("error creating archive directory %s: %w", dir, err)
		}
	}

	// By default only log errors but enable full SQL query prints-to-console
	// with debug mode.
	gormLog := logger.Default.LogMode(logger.Error)
	if cfg.Debugging.DatabaseLoggingEnabled {
		gormLog = logger.Default.LogMode(logger.Info)
	}

	var dialector gorm.Dialector
	switch cfg.Database.Engine {
	case "", "sqlite":
		dialector = sqlite.Open(cfg.Database.Filename)
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseURL())
	default:
		return nil, fmt.Errorf("unsupported database engine: %s", cfg.Database.Engine)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := db.AutoMigrate(&GameRecord{}); err != nil {
		return nil, fmt.Errorf("error auto migrating db: %w", err)
	}

	return &Archive{
		replaysDir:  cfg.Archive.ReplaysDir,
		chatLogsDir: cfg.Archive.ChatLogsDir,
		db:          db,
		logger:      log,
	}, nil
}

// Save writes the replay and chat artifacts for a concluded game and records
// it in the index. The winner label is the winning name, "draw", or the
// forced-end marker.
func (a *Archive) Save(gameID, winner, winnerName string, moves []game.Move, chats []game.Chat) error {
	endTime := time.Now().Unix()
	startTime := endTime
	if len(moves) > 0 {
		startTime = moves[0].Timestamp
	}

	replay := Replay{
		GameID:    gameID,
		StartTime: startTime,
		EndTime:   endTime,
		Winner:    winner,
		Moves:     moves,
		BoardSize: game.BoardSize,
	}
	if err := writeJSON(filepath.Join(a.replaysDir, gameID+".json"), replay); err != nil {
		return fmt.Errorf("error writing replay: %w", err)
	}

	chatLog := ChatLog{GameID: gameID, Chats: chats}
	if err := writeJSON(filepath.Join(a.chatLogsDir, gameID+".json"), chatLog); err != nil {
		return fmt.Errorf("error writing chat log: %w", err)
	}

	record := &GameRecord{
		GameID:     gameID,
		Winner:     winner,
		WinnerName: winnerName,
		MoveCount:  len(moves),
		StartedAt:  time.Unix(startTime, 0),
		EndedAt:    time.Unix(endTime, 0),
	}
	if err := a.db.Create(record).Error; err != nil {
		return fmt.Errorf("error indexing game %s: %w", gameID, err)
	}

	a.logger.Infof("archived game %s (winner: %s, %d moves)", gameID, winner, len(moves))
	return nil
}

// FindGame looks up a completed game in the index, returning nil if the
// identifier is unknown.
func (a *Archive) FindGame(gameID string) (*GameRecord, error) {
	var record GameRecord
	err := a.db.Where("game_id = ?", gameID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// Shutdown closes the index database connection.
func (a *Archive) Shutdown() error {
	database, err := a.db.DB()
	if err != nil {
		return fmt.Errorf("error while getting current connection: %w", err)
	}
	if err := database.Close(); err != nil {
		return fmt.Errorf("error while closing database connection: %w", err)
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
