package main

import (
	"fmt"
	"log"
	"os"

	"discord-invite-tracker/internal/bot"
	"discord-invite-tracker/internal/store"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type TrackerConfig struct {
	LedgerFile      string `json:"ledger_file" yaml:"ledger_file"`
	RegistryFile    string `json:"registry_file" yaml:"registry_file"`
	Milestones      []int  `json:"milestones" yaml:"milestones"`
	LeaderboardSize int    `json:"leaderboard_size" yaml:"leaderboard_size"`
}

type Config struct {
	Token   string        `json:"token" yaml:"token"`
	Tracker TrackerConfig `json:"tracker" yaml:"tracker"`
}

// loadConfig reads config.json, falling back to config.yaml.
func loadConfig() (*Config, error) {
	var config Config

	if buf, err := os.ReadFile("config.json"); err == nil {
		if err := json.Unmarshal(buf, &config); err != nil {
			return nil, fmt.Errorf("parsing config.json: %w", err)
		}
		return &config, nil
	}

	if buf, err := os.ReadFile("config.yaml"); err == nil {
		if err := yaml.Unmarshal(buf, &config); err != nil {
			return nil, fmt.Errorf("parsing config.yaml: %w", err)
		}
		return &config, nil
	}

	return nil, fmt.Errorf("no config.json or config.yaml found")
}

func main() {
	config, err := loadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	if config.Token == "" {
		log.Fatal("Error: bot token not set in config")
	}

	if config.Tracker.LedgerFile == "" {
		config.Tracker.LedgerFile = "invite_data.json"
	}
	if config.Tracker.RegistryFile == "" {
		config.Tracker.RegistryFile = "invites.json"
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}

	st := store.New(config.Tracker.LedgerFile, config.Tracker.RegistryFile, logger.Named("store"))

	b, err := bot.New(config.Token, st, logger)
	if err != nil {
		log.Fatalf("Error initializing bot: %v", err)
	}
	b.Engine.SetMilestones(config.Tracker.Milestones)
	if config.Tracker.LeaderboardSize > 0 {
		b.LeaderboardSize = config.Tracker.LeaderboardSize
	}

	log.Println("Starting Discord Invite Tracker...")
	if err := b.Start(); err != nil {
		log.Fatalf("Error running bot: %v", err)
	}
}
