package members

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// rosterCapacity is the initial map size for a roster file.
const rosterCapacity = 10_000

// fileLoader implements Loader for gzipped roster files on local disk.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based roster loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "roster-loader").Logger(),
	}
}

// Load reads a gzipped roster file with one member id per line.
func (l *fileLoader) Load(ctx context.Context, path string) (Roster, error) {
	l.logger.Info().Str("file", path).Msg("loading roster file")

	file, err := os.Open(path)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to open roster file")
		return nil, fmt.Errorf("failed to open roster file %s: %w", path, err)
	}
	defer file.Close()

	roster, err := readRoster(ctx, file)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to read roster file")
		return nil, fmt.Errorf("roster file %s: %w", path, err)
	}

	l.logger.Info().
		Str("file", path).
		Int("members_loaded", roster.Size()).
		Msg("roster file loaded")

	return roster, nil
}

// readRoster decodes a gzipped stream of member ids. Blank lines are skipped.
func readRoster(ctx context.Context, r io.Reader) (*mapRoster, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	roster := newMapRoster(rosterCapacity)

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lines := 0
	for scanner.Scan() {
		if lines%100_000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		lines++

		id := strings.TrimSpace(scanner.Text())
		if id != "" {
			roster.Add(id)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading roster: %w", err)
	}

	return roster, nil
}
