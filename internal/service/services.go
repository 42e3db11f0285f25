package service

import (
	"log/slog"

	"github.com/yshvd/bookgo/internal/clock"
	redisx "github.com/yshvd/bookgo/internal/redis"
	"github.com/yshvd/bookgo/internal/repository"
	redisrepo "github.com/yshvd/bookgo/internal/repository/redis"
	"github.com/yshvd/bookgo/internal/service/events"
	"github.com/yshvd/bookgo/internal/service/organization"
	"github.com/yshvd/bookgo/internal/service/query"
	"github.com/yshvd/bookgo/internal/service/registration"
)

type Services struct {
	Events       *events.Service
	Registration *registration.Service
	Query        *query.Service
	Organization *organization.Service
}

type Config struct {
	Query query.Config
}

func NewServices(
	store repository.Store,
	cache *redisrepo.Cache,
	pubsub *redisx.EventsPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	clk clock.Clock,
	log *slog.Logger,
	cfg Config,
) *Services {
	return &Services{
		Events:       events.New(store, cache, pubsub, clk),
		Registration: registration.New(store, cache, pubsub, limiter, clk, log),
		Query:        query.New(store, cache, cfg.Query),
		Organization: organization.New(store, clk),
	}
}
