// Package store persists the inviter ledger and invite registry as two
// whole JSON documents, rewritten atomically after every mutation.
package store

import (
	"errors"
	"io/fs"
	"os"

	"discord-invite-tracker/internal/metrics"
	"discord-invite-tracker/internal/models"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

type Store struct {
	ledgerPath   string
	registryPath string
	log          *zap.Logger
}

func New(ledgerPath, registryPath string, logger *zap.Logger) *Store {
	return &Store{
		ledgerPath:   ledgerPath,
		registryPath: registryPath,
		log:          logger,
	}
}

// LoadLedger reads the inviter ledger document. Missing or corrupt content
// yields an empty ledger; this never fails the caller. Records that strict
// decoding rejects are salvaged individually so one drifted record cannot
// discard the table.
func (s *Store) LoadLedger() models.Ledger {
	buf, ok := s.read(s.ledgerPath)
	if !ok {
		return models.Ledger{}
	}

	ledger := models.Ledger{}
	if err := json.Unmarshal(buf, &ledger); err == nil {
		for _, rec := range ledger {
			rec.Canonicalize()
		}
		return ledger
	}

	return s.salvageLedger(buf)
}

// LoadRegistry reads the invite registry document, defaulting to empty on
// missing or corrupt content.
func (s *Store) LoadRegistry() models.Registry {
	buf, ok := s.read(s.registryPath)
	if !ok {
		return models.Registry{}
	}

	registry := models.Registry{}
	if err := json.Unmarshal(buf, &registry); err == nil {
		return registry
	}

	return s.salvageRegistry(buf)
}

// SaveLedger rewrites the ledger document. Failures are logged and
// swallowed; in-memory state runs ahead of disk until the next save.
func (s *Store) SaveLedger(ledger models.Ledger) {
	s.write(s.ledgerPath, ledger)
}

// SaveRegistry rewrites the registry document.
func (s *Store) SaveRegistry(registry models.Registry) {
	s.write(s.registryPath, registry)
}

func (s *Store) read(path string) ([]byte, bool) {
	buf, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("document unreadable, starting empty",
				zap.String("path", path), zap.Error(err))
		}
		return nil, false
	}
	return buf, true
}

// salvageLedger recovers well-formed records from a document written by an
// older variant of the ledger schema.
func (s *Store) salvageLedger(buf []byte) models.Ledger {
	ledger := models.Ledger{}
	if !gjson.ValidBytes(buf) {
		s.log.Warn("ledger document corrupt, starting empty",
			zap.String("path", s.ledgerPath))
		return ledger
	}

	gjson.ParseBytes(buf).ForEach(func(key, value gjson.Result) bool {
		rec := &models.InviterRecord{}
		if err := json.Unmarshal([]byte(value.Raw), rec); err != nil {
			s.log.Warn("dropping unreadable ledger record",
				zap.String("user_id", key.String()), zap.Error(err))
			return true
		}
		rec.Canonicalize()
		ledger[key.String()] = rec
		return true
	})

	s.log.Warn("ledger document salvaged record-by-record",
		zap.String("path", s.ledgerPath), zap.Int("records", len(ledger)))
	return ledger
}

func (s *Store) salvageRegistry(buf []byte) models.Registry {
	registry := models.Registry{}
	parsed := gjson.ParseBytes(buf)
	if !gjson.ValidBytes(buf) || !parsed.IsArray() {
		s.log.Warn("registry document corrupt, starting empty",
			zap.String("path", s.registryPath))
		return registry
	}

	parsed.ForEach(func(_, value gjson.Result) bool {
		rec := &models.InviteRecord{}
		if err := json.Unmarshal([]byte(value.Raw), rec); err != nil || rec.Code == "" {
			return true
		}
		registry = append(registry, rec)
		return true
	})

	s.log.Warn("registry document salvaged record-by-record",
		zap.String("path", s.registryPath), zap.Int("records", len(registry)))
	return registry
}

// write rewrites the whole document via a temp file and rename so a crash
// mid-write never truncates the previously committed copy.
func (s *Store) write(path string, data interface{}) {
	buf, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		metrics.StoreWriteFailures.Inc()
		s.log.Error("failed to encode document", zap.String("path", path), zap.Error(err))
		return
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		metrics.StoreWriteFailures.Inc()
		s.log.Error("failed to write document", zap.String("path", path), zap.Error(err))
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		metrics.StoreWriteFailures.Inc()
		s.log.Error("failed to commit document", zap.String("path", path), zap.Error(err))
		return
	}

	s.log.Info("document saved", zap.String("path", path))
}
