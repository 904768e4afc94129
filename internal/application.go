package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/DanDan1134/wordle-battle/internal/bus"
	"github.com/DanDan1134/wordle-battle/internal/config"
	"github.com/DanDan1134/wordle-battle/internal/event"
	"github.com/DanDan1134/wordle-battle/internal/gateway"
	"github.com/DanDan1134/wordle-battle/internal/matchmaker"
	"github.com/DanDan1134/wordle-battle/internal/repository"
	"github.com/DanDan1134/wordle-battle/internal/repository/storage"
	"github.com/DanDan1134/wordle-battle/internal/service"
	"github.com/DanDan1134/wordle-battle/internal/usecase"
	"github.com/DanDan1134/wordle-battle/internal/words"
	"github.com/DanDan1134/wordle-battle/transport/rest"
	"github.com/DanDan1134/wordle-battle/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// app holds everything both process roles share.
type app struct {
	logger *slog.Logger
	conf   *config.Config

	redis  *storage.RedisStorage
	sqlite *storage.Storage
	bus    bus.Bus

	queue   repository.QueueRepository
	rooms   repository.RoomRepository
	matches repository.MatchRepository

	emitter *event.Emitter
	session usecase.GameSession
}

// RunServe runs the client-facing HTTP and websocket gateway. With worker set it also
// runs the matchmaker and referee in the same process.
func RunServe(logger *slog.Logger, conf *config.Config, worker bool) error {
	log := logger.With("component", "app", "role", "serve")

	ctx, cancel := signalContext(log)
	defer cancel()

	a, err := newApp(ctx, logger, conf)
	if err != nil {
		return err
	}
	defer a.close()

	auth, err := service.NewAuthService(conf.JWTSecretKey)
	if err != nil {
		return fmt.Errorf("could not create auth service: %w", err)
	}

	hub := gateway.NewHub(logger, a.bus, conf.Bus.RetryBudget)
	queueService := usecase.NewQueueService(logger, a.queue, a.rooms)
	wsServer := websocket.New(ctx, logger, a.session, queueService, auth, hub)
	httpServer := rest.New(logger, rest.NewHandlers(logger, auth, a.matches), wsServer)

	// the gateway listens from startup so early match_found events are not missed
	hub.EnsureListening(ctx)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return httpServer.Start(groupCtx, conf.HTTPPort)
	})

	group.Go(func() error {
		select {
		case <-groupCtx.Done():
			return nil
		case <-hub.Done():
			if err := hub.Err(); err != nil {
				return fmt.Errorf("gateway stopped: %w", err)
			}
			return nil
		}
	})

	if worker {
		a.runWorker(groupCtx, group)
	}

	if err = group.Wait(); err != nil {
		return err
	}

	a.session.Wait()
	log.Info("shut down")

	return nil
}

// RunWorker runs the matchmaker and referee. Any number of workers may share a deployment.
func RunWorker(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app", "role", "worker")

	ctx, cancel := signalContext(log)
	defer cancel()

	a, err := newApp(ctx, logger, conf)
	if err != nil {
		return err
	}
	defer a.close()

	group, groupCtx := errgroup.WithContext(ctx)
	a.runWorker(groupCtx, group)

	if err = group.Wait(); err != nil {
		return err
	}

	a.session.Wait()
	log.Info("shut down")

	return nil
}

func (that *app) runWorker(ctx context.Context, group *errgroup.Group) {
	mm := matchmaker.New(that.logger, that.queue, that.rooms, that.emitter, matchmaker.Config{
		PollTimeout:  that.conf.Matchmaker.PollTimeout,
		RequeueDelay: that.conf.Matchmaker.RequeueDelay,
		RetryBudget:  that.conf.Matchmaker.RetryBudget,
	})

	referee := usecase.NewReferee(that.logger, that.bus, that.session, that.emitter, usecase.RefereeConfig{
		MatchDuration: that.conf.Game.MatchDuration,
		BusBudget:     that.conf.Bus.RetryBudget,
	})

	group.Go(func() error {
		return mm.Run(ctx)
	})

	group.Go(func() error {
		return referee.Run(ctx)
	})
}

func newApp(ctx context.Context, logger *slog.Logger, conf *config.Config) (*app, error) {
	log := logger.With("component", "app")

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return nil, ErrAddrNotFound
	}

	a := &app{logger: logger, conf: conf}

	var err error

	a.redis, err = storage.NewRedisStorage(ctx, storage.RedisOptions{
		Addr:     redisAddrString,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("could not connect to redis storage: %w", err)
	}

	a.sqlite, err = storage.NewSQLiteStorage(ctx, conf.SQLiteStoragePath)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("could not open sqlite storage: %w", err)
	}

	switch conf.Bus.Driver {
	case config.BusDriverNATS:
		natsBus, natsErr := bus.NewNATSBus(conf.Bus.NATSURL, logger)
		if natsErr != nil {
			a.close()
			return nil, fmt.Errorf("could not connect to event bus: %w", natsErr)
		}
		a.bus = natsBus
	default:
		a.bus = bus.NewRedisBus(a.redis.Connection)
	}

	vocab, err := words.LoadVocabulary(conf.Game.WordLength, conf.Words.AnswersFile, conf.Words.AllowedFile)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("could not load vocabulary: %w", err)
	}

	answers, allowed := vocab.Size()
	log.Info("vocabulary loaded", "answers", answers, "allowed", allowed, "bus", conf.Bus.Driver)

	a.queue = repository.NewQueueRepository(a.redis.Connection)
	a.rooms = repository.NewRoomRepository(a.redis.Connection, conf.Redis.RoomTTL)
	a.matches = repository.NewMatchRepository(a.sqlite.Connection)
	a.emitter = event.NewEmitter(a.bus)

	a.session = usecase.NewGameSession(
		logger,
		a.rooms,
		repository.NewWordRepository(a.redis.Connection, conf.Redis.RoomTTL),
		repository.NewScoreRepository(a.redis.Connection),
		vocab,
		a.emitter,
		a.matches,
		usecase.SessionConfig{
			WinScore:          conf.Game.WinScore,
			RequireDictionary: conf.Game.RequireDictionary,
		},
	)

	return a, nil
}

func (that *app) close() {
	log := that.logger.With("component", "app")

	if that.bus != nil {
		if err := that.bus.Close(); err != nil {
			log.Error("could not close event bus", "error", err)
		}
	}

	if that.sqlite != nil {
		if err := that.sqlite.Close(); err != nil {
			log.Error("could not close sqlite storage", "error", err)
		}
	}

	if that.redis != nil {
		if err := that.redis.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}
}

func signalContext(log *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigs:
			log.Info("Received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigs)
	}()

	return ctx, cancel
}
