package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog/log"
)

// Storage keys
const (
	keyPreferences    = "preferences"
	analysisKeyPrefix = "analysis/"
)

// ErrNotFound is returned when no analysis is stored for a position.
var ErrNotFound = errors.New("analysis not found")

// Preferences are engine settings remembered between runs. Command-line
// flags override them.
type Preferences struct {
	HashMB   int    `json:"hash_mb"`
	Threads  int    `json:"threads"`
	EvalFile string `json:"eval_file"`
}

// DefaultPreferences returns the preferences used when none are stored.
func DefaultPreferences() *Preferences {
	return &Preferences{
		HashMB:  16,
		Threads: 1,
	}
}

// Analysis is the stored result of searching one position.
type Analysis struct {
	FEN      string    `json:"fen"`
	BestMove string    `json:"best_move"`
	Ponder   string    `json:"ponder,omitempty"`
	Score    int       `json:"score"`
	Depth    int       `json:"depth"`
	Nodes    uint64    `json:"nodes"`
	PV       []string  `json:"pv"`
	SAN      []string  `json:"san,omitempty"`
	At       time.Time `json:"at"`
}

// AnalysisStore keeps analysis records and preferences in BadgerDB.
type AnalysisStore struct {
	db  *badger.DB
	ttl time.Duration
}

// Options configures Open.
type Options struct {
	Dir      string        // database directory; empty means GetDatabaseDir
	InMemory bool          // keep everything in memory, for tests
	TTL      time.Duration // expiry of analysis records; zero keeps them forever
}

// Open opens or creates the database.
func Open(opts Options) (*AnalysisStore, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		dir := opts.Dir
		if dir == "" {
			var err error
			if dir, err = GetDatabaseDir(); err != nil {
				return nil, err
			}
		}
		bopts = badger.DefaultOptions(dir)
	}
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open analysis database: %w", err)
	}
	return &AnalysisStore{db: db, ttl: opts.TTL}, nil
}

// Close closes the database.
func (s *AnalysisStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func analysisKey(hash uint64) []byte {
	return []byte(analysisKeyPrefix + fmt.Sprintf("%016x", hash))
}

// PutAnalysis stores a for the position with Zobrist key hash, replacing a
// shallower record. It reports whether the record was written.
func (s *AnalysisStore) PutAnalysis(hash uint64, a *Analysis) (bool, error) {
	if a.At.IsZero() {
		a.At = time.Now()
	}
	data, err := json.Marshal(a)
	if err != nil {
		return false, err
	}

	written := false
	err = s.db.Update(func(txn *badger.Txn) error {
		key := analysisKey(hash)
		old, err := getAnalysis(txn, key)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return err
		case old.FEN == a.FEN && old.Depth > a.Depth:
			return nil
		}

		e := badger.NewEntry(key, data)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		written = true
		return txn.SetEntry(e)
	})
	if err != nil {
		return false, err
	}
	log.Debug().Str("fen", a.FEN).Int("depth", a.Depth).Bool("written", written).Msg("analysis stored")
	return written, nil
}

// GetAnalysis returns the record for hash. A record stored under the same key
// for a different FEN is reported as ErrNotFound.
func (s *AnalysisStore) GetAnalysis(hash uint64, fen string) (*Analysis, error) {
	var a *Analysis
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		a, err = getAnalysis(txn, analysisKey(hash))
		return err
	})
	if err != nil {
		return nil, err
	}
	if fen != "" && a.FEN != fen {
		return nil, ErrNotFound
	}
	return a, nil
}

func getAnalysis(txn *badger.Txn, key []byte) (*Analysis, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a := &Analysis{}
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, a)
	}); err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAnalysis removes the record for hash.
func (s *AnalysisStore) DeleteAnalysis(hash uint64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(analysisKey(hash))
	})
}

// ForEachAnalysis calls fn for every stored record in key order until fn
// returns an error.
func (s *AnalysisStore) ForEachAnalysis(fn func(hash uint64, a *Analysis) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(analysisKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			hash, err := strconv.ParseUint(string(item.Key()[len(analysisKeyPrefix):]), 16, 64)
			if err != nil {
				return fmt.Errorf("bad analysis key %q: %w", item.Key(), err)
			}
			a := &Analysis{}
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, a)
			}); err != nil {
				return err
			}
			if err := fn(hash, a); err != nil {
				return err
			}
		}
		return nil
	})
}

// SavePreferences saves engine preferences.
func (s *AnalysisStore) SavePreferences(prefs *Preferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPreferences), data)
	})
}

// LoadPreferences loads engine preferences, returning defaults if none are
// stored.
func (s *AnalysisStore) LoadPreferences() (*Preferences, error) {
	prefs := DefaultPreferences()

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPreferences))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, prefs)
		})
	})

	return prefs, err
}
