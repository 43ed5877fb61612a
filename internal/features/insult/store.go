package insult

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"dicers-bot/internal/common/logger"
	"dicers-bot/internal/utils/random"
)

const (
	cacheKey = "insults"
	cacheTTL = 10 * time.Minute

	// Fallback is used while the insult file is missing or empty.
	Fallback = "Langweiler"
)

// Store reads insults from a flat file with one insult per line.
type Store struct {
	mu    sync.Mutex
	path  string
	cache *cache.Cache
	log   zerolog.Logger
}

func NewStore(path string) *Store {
	return &Store{
		path:  path,
		cache: cache.New(cacheTTL, 2*cacheTTL),
		log:   logger.Component("insult"),
	}
}

// Random returns a uniformly chosen insult.
func (s *Store) Random() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	insults, err := s.all()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to read insults")
	}
	pick, err := random.Pick(insults)
	if err != nil {
		return Fallback
	}
	return pick
}

// Add appends text unless it is already known. It reports whether the file
// changed.
func (s *Store) Add(text string) (bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	insults, err := s.all()
	if err != nil {
		return false, err
	}
	for _, known := range insults {
		if known == text {
			return false, nil
		}
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("failed to open insults: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, text); err != nil {
		return false, fmt.Errorf("failed to append insult: %w", err)
	}

	s.cache.Delete(cacheKey)
	s.log.Info().Str("insult", text).Msg("Added insult")
	return true, nil
}

// all returns the cached file content. A missing file reads as empty.
func (s *Store) all() ([]string, error) {
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.([]string), nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var insults []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			insults = append(insults, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	s.cache.SetDefault(cacheKey, insults)
	return insults, nil
}
