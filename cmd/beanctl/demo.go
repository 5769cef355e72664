package main

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/junioryono/beans"
)

// Demo beans. They model a small user service with a storage package that
// has a test variant, a per-thread request tracker, and two beans that
// reference each other.

type Clock struct {
	Now time.Time
}

type Logger struct {
	Prefix string
}

func (l *Logger) Printf(format string, args ...any) string {
	return l.Prefix + fmt.Sprintf(format, args...)
}

type Database struct {
	DSN string
}

// MemoryDatabase is registered lazily, the first time it is requested.
type MemoryDatabase struct {
	DSN string
}

type UserRepository struct {
	Database *Database
}

type UserService struct {
	Repository *UserRepository
	Logger     *Logger
	Clock      *Clock
}

var trackerSeq atomic.Int64

type RequestTracker struct {
	ID int64
}

type EventBus struct {
	Notifier *Notifier
	started  bool
}

func (b *EventBus) Start() (any, error) {
	b.started = true
	return b, nil
}

// Started reports whether the bus was constructed through its factory.
func (b *EventBus) Started() bool {
	return b.started
}

type Notifier struct {
	Bus *EventBus
}

// storageModule registers the storage package with a test context variant
// of the database.
func storageModule(env string) beans.ModuleOption {
	options := []beans.ModuleOption{
		beans.AddBean(
			beans.Bean[Database]("database",
				beans.WithFactory("Open", func(db *Database) (any, error) {
					db.DSN = "postgres://localhost/beans"
					return db, nil
				}),
			),
			beans.Bean[UserRepository]("user_repository", beans.DependsOn("database")),
		),
		beans.AddLoader("fake_database", func(c beans.Collection) error {
			return c.Add(beans.Define("fake_database", func() any { return &MemoryDatabase{DSN: "memory://"} }))
		}),
	}

	if env != beans.DefaultContext {
		options = append(options,
			beans.UseContext(env),
			beans.AddBean(beans.Bean[Database]("database",
				beans.ForContext(env),
				beans.WithFactory("Open", func(db *Database) (any, error) {
					db.DSN = "memory://" + env
					return db, nil
				}),
			)),
		)
	}

	return beans.NewModule("storage", options...)
}

// newRegistry builds the demo registry for env.
func newRegistry(env string, logger *slog.Logger) (beans.Collection, error) {
	collection := beans.NewCollection()

	err := collection.Add(
		beans.Bean[Clock]("clock",
			beans.WithScope(beans.Prototype),
			beans.WithFactory("Tick", func(c *Clock) (any, error) {
				c.Now = time.Now()
				return c, nil
			}),
		),
		beans.Bean[Logger]("logger",
			beans.Retained(),
			beans.WithFactory("New", func(l *Logger) (any, error) {
				l.Prefix = "[beans] "
				return l, nil
			}),
		),
		beans.Bean[UserService]("user_service",
			beans.Inject("Repository", "user_repository", beans.RefPackage("storage")),
			beans.Inject("Logger", "logger"),
			beans.Inject("Clock", "clock"),
		),
		beans.Bean[RequestTracker]("request_tracker",
			beans.WithScope(beans.Thread),
			beans.WithFactory("Begin", func(t *RequestTracker) (any, error) {
				t.ID = trackerSeq.Add(1)
				return t, nil
			}),
		),
		beans.Bean[EventBus]("event_bus",
			beans.Inject("Notifier", "notifier"),
			beans.WithFactory("Start", (*EventBus).Start),
		),
		beans.Bean[Notifier]("notifier", beans.Inject("Bus", "event_bus")),
	)
	if err != nil {
		return nil, err
	}

	if err := collection.AddModules(storageModule(env)); err != nil {
		return nil, err
	}

	logger.Debug("demo registry ready", "definitions", collection.Count(), "env", env)
	return collection, nil
}
