package games

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/holos-run/gamescout/internal/igdb"
)

const (
	// DefaultTTL is how long search results are cached.
	DefaultTTL = 7 * 24 * time.Hour
	// DefaultLimit caps the number of games returned per search.
	DefaultLimit = 50
)

// Querier runs queries against the upstream games collection.
type Querier interface {
	Games(ctx context.Context, q igdb.Query) ([]igdb.Game, error)
	Count(ctx context.Context, resource, where string) (int64, error)
}

// Filters selects games by any combination of platform, genre and keyword
// ids. Ids within a group match any of the listed values and groups are
// combined with AND.
type Filters struct {
	Platforms []int64
	Genres    []int64
	Keywords  []int64
	// MinRating emits a "rating > MinRating+1" clause when it is within
	// (0, 100).
	MinRating float64
	Offset    int
}

// Empty reports whether no filter group is set.
func (f Filters) Empty() bool {
	return len(f.Clauses()) == 0
}

// Clauses returns one clause per non-empty filter group.
func (f Filters) Clauses() []string {
	var clauses []string
	for _, c := range []string{
		igdb.InClause("platforms", f.Platforms),
		igdb.InClause("genres", f.Genres),
		igdb.InClause("keywords", f.Keywords),
	} {
		if c != "" {
			clauses = append(clauses, c)
		}
	}
	if f.MinRating > 0 && f.MinRating < 100 {
		clauses = append(clauses, "rating > "+strconv.FormatFloat(f.MinRating+1, 'f', -1, 64))
	}
	return clauses
}

// Result is a page of matching games and the total number of matches.
type Result struct {
	Count int64       `json:"count"`
	Games []igdb.Game `json:"games"`
}

// Config holds configuration for the games service.
type Config struct {
	// TTL is how long results are cached. Defaults to DefaultTTL.
	TTL time.Duration
	// Limit is the fixed result-size cap. Defaults to DefaultLimit.
	Limit int
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Service searches the games collection and caches results by query.
type Service struct {
	querier Querier
	results *cache.Cache
	limit   int
	logger  *slog.Logger
}

// NewService creates a new games service.
func NewService(querier Querier, config Config) *Service {
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	if config.Limit <= 0 {
		config.Limit = DefaultLimit
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Service{
		querier: querier,
		results: cache.New(config.TTL, 24*time.Hour),
		limit:   config.Limit,
		logger:  config.Logger,
	}
}

// SearchGames returns the page of games matching filters together with the
// total match count. The count request uses the same filter expression
// without paging.
func (s *Service) SearchGames(ctx context.Context, filters Filters) (*Result, error) {
	clauses := filters.Clauses()
	q := igdb.Query{
		Fields: igdb.GameFields,
		Where:  clauses,
		Limit:  s.limit,
		Offset: filters.Offset,
	}

	key := "games:" + q.String()
	if v, ok := s.results.Get(key); ok {
		s.logger.Debug("games cache hit", slog.String("query", q.String()))
		return v.(*Result), nil
	}

	var res Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		games, err := s.querier.Games(gctx, q)
		res.Games = games
		return err
	})
	g.Go(func() error {
		count, err := s.querier.Count(gctx, igdb.ResourceGames, q.WhereClause())
		res.Count = count
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if res.Games == nil {
		res.Games = []igdb.Game{}
	}

	s.logger.Info("searched games",
		slog.String("query", q.String()),
		slog.Int64("count", res.Count),
		slog.Int("returned", len(res.Games)),
	)

	s.results.Set(key, &res, cache.DefaultExpiration)
	return &res, nil
}

// SearchByName runs a free-text search over game names.
func (s *Service) SearchByName(ctx context.Context, text string) ([]igdb.Game, error) {
	key := "search:" + text
	if v, ok := s.results.Get(key); ok {
		return v.([]igdb.Game), nil
	}

	games, err := s.querier.Games(ctx, igdb.Query{
		Search: text,
		Fields: igdb.GameFields,
		Limit:  s.limit,
	})
	if err != nil {
		return nil, err
	}
	if games == nil {
		games = []igdb.Game{}
	}

	s.results.Set(key, games, cache.DefaultExpiration)
	return games, nil
}
