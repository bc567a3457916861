package quizd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/quizwire/quizwire/internal/domain"
	"github.com/quizwire/quizwire/internal/telemetry"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	Admin struct {
		Token string
	}

	Games struct {
		File string
	}

	Redis struct {
		Addrs  []string
		Pass   string
		Prefix string
	}

	Postgres struct {
		Addr string
		User string
		Pass string
		Name string
	}
}

// Server wires the session service together: games from file or postgres,
// session state in memory or redis, the gin API on top.
type Server struct {
	c Config

	infra struct {
		redis    redis.UniversalClient
		postgres *pgxpool.Pool
	}

	service *Service
	http    *http.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("quizd: init infra: %w", err)
	}

	if err := s.initService(); err != nil {
		return nil, fmt.Errorf("quizd: init service: %w", err)
	}

	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if len(s.c.Redis.Addrs) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    s.c.Redis.Addrs,
			Password: s.c.Redis.Pass,
		})

		if err := telemetry.MonitorRedis(r); err != nil {
			return fmt.Errorf("redis: %w", err)
		}

		if err := r.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}

		s.infra.redis = r
	}

	if s.c.Postgres.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s",
			s.c.Postgres.User, s.c.Postgres.Pass, s.c.Postgres.Addr, s.c.Postgres.Name))
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}

		db, err := pgxpool.NewWithConfig(ctx, cc)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}

		if err := db.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}

		s.infra.postgres = db
	}

	return nil
}

func (s *Server) initService() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var source GameSource
	switch {
	case s.infra.postgres != nil:
		source = NewPostgresGameSource(s.infra.postgres)
	case s.c.Games.File != "":
		source = FileGameSource{Path: s.c.Games.File}
	default:
		source = StaticGameSource{Games: SampleGames()}
	}

	games, err := source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load games: %w", err)
	}

	var store SessionStore = NewMemorySessionStore()
	if s.infra.redis != nil {
		store = NewRedisSessionStore(s.infra.redis, s.c.Redis.Prefix)
	}

	var archive *Archive
	if s.infra.postgres != nil {
		archive = NewArchive(s.infra.postgres)
	}

	s.service = NewService(ServiceConfig{
		Store:   store,
		Games:   games,
		Archive: archive,
	})

	return nil
}

func (s *Server) initAPI() {
	e := gin.New()
	e.Use(gin.Recovery())

	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	NewHandler(s.service, s.c.Admin.Token).Register(e)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

// Service returns the underlying service; tests mount it on their own engine.
func (s *Server) Service() *Service {
	return s.service
}

func (s *Server) Start() {
	slog.Info(fmt.Sprintf("quizd: HTTP listening on port %d", s.c.HTTP.Port))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("quizd: serve failed", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "quizd: shutdown HTTP failed", "error", err)
	}

	if s.infra.redis != nil {
		if err := s.infra.redis.Close(); err != nil {
			slog.ErrorContext(ctx, "quizd: close redis failed", "error", err)
		}
	}
	if s.infra.postgres != nil {
		s.infra.postgres.Close()
	}

	slog.InfoContext(ctx, "quizd: shutdown completed")
}

// SampleGames is the built-in content served when neither a games file nor
// postgres is configured; enough to play a full round locally.
func SampleGames() []Game {
	return []Game{
		{
			ID:   "11111111-1111-1111-1111-111111111111",
			Name: "Warmup",
			Questions: []GameQuestion{
				{
					Text:       "What is 2 + 2?",
					Type:       domain.QuestionSingle,
					Answers:    []domain.Answer{{ID: 1, Text: "3"}, {ID: 2, Text: "4"}, {ID: 3, Text: "5"}},
					CorrectIDs: []int64{2},
					Duration:   30,
					Points:     10,
				},
				{
					Text:       "The sky is blue.",
					Type:       domain.QuestionJudgement,
					Answers:    []domain.Answer{{ID: 1, Text: "True"}, {ID: 2, Text: "False"}},
					CorrectIDs: []int64{1},
					Duration:   15,
					Points:     5,
				},
			},
		},
	}
}
