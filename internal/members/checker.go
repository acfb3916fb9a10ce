package members

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// rosterChecker admits a customer listed in any of its rosters.
// Rosters are read-only after construction.
type rosterChecker struct {
	rosters []Roster
	logger  zerolog.Logger
}

// NewChecker loads every roster file concurrently. Any load failure aborts
// startup.
func NewChecker(ctx context.Context, paths []string, loader Loader, logger zerolog.Logger) (Checker, error) {
	logger = logger.With().Str("component", "member-checker").Logger()

	if len(paths) == 0 {
		return nil, fmt.Errorf("no roster files configured")
	}

	rosters := make([]Roster, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			roster, err := loader.Load(gctx, path)
			if err != nil {
				return fmt.Errorf("failed to load roster %s: %w", path, err)
			}
			rosters[i] = roster
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("failed to initialise member checker")
		return nil, err
	}

	total := 0
	for _, r := range rosters {
		total += r.Size()
	}

	logger.Info().
		Int("roster_files", len(rosters)).
		Int("total_members", total).
		Msg("member checker initialised")

	return &rosterChecker{rosters: rosters, logger: logger}, nil
}

// NewCheckerFromRosters builds a checker over already loaded rosters.
func NewCheckerFromRosters(logger zerolog.Logger, rosters ...Roster) Checker {
	return &rosterChecker{
		rosters: rosters,
		logger:  logger.With().Str("component", "member-checker").Logger(),
	}
}

func (c *rosterChecker) IsMember(ctx context.Context, customerID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	id := strings.TrimSpace(customerID)
	if id == "" {
		return false, nil
	}

	for _, r := range c.rosters {
		if r.Contains(id) {
			return true, nil
		}
	}

	c.logger.Debug().Str("customer_id", id).Msg("customer not on roster")
	return false, nil
}

func (c *rosterChecker) Close() error {
	c.rosters = nil
	c.logger.Info().Msg("member checker closed")
	return nil
}

// openChecker admits every authenticated customer.
type openChecker struct{}

// NewOpenChecker returns a Checker used when the members gate is disabled.
func NewOpenChecker() Checker {
	return openChecker{}
}

func (openChecker) IsMember(ctx context.Context, customerID string) (bool, error) {
	return customerID != "", nil
}

func (openChecker) Close() error { return nil }
