// Command beanctl inspects and serves a demo bean registry.
//
// Usage:
//
//	beanctl get [-package pkg] [-context ctx] <name>
//	beanctl tree [name]
//	beanctl dot
//	beanctl validate
//	beanctl serve
//
// Settings come from the environment and an optional .env file:
// BEANS_ENV, BEANS_LOG_LEVEL, BEANS_LOG_FORMAT, BEANS_ADDR.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/dig"

	"github.com/junioryono/beans"
	"github.com/junioryono/beans/beanhttp"
	"github.com/junioryono/beans/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "beanctl:", err)
		os.Exit(1)
	}
}

// app is everything a subcommand may need, assembled by the container.
type app struct {
	dig.In

	Config     *config.Config
	Logger     *slog.Logger
	Collection beans.Collection
	Factory    *beans.BeanFactory
	Router     http.Handler
}

// newContainer wires the application graph.
func newContainer(cfg *config.Config, logOutput io.Writer) (*dig.Container, error) {
	c := dig.New()

	providers := []any{
		func() *config.Config { return cfg },
		func(cfg *config.Config) *slog.Logger { return cfg.Logger(logOutput) },
		func(cfg *config.Config, logger *slog.Logger) (beans.Collection, error) {
			return newRegistry(cfg.Env, logger)
		},
		func(collection beans.Collection, logger *slog.Logger) (*beans.BeanFactory, error) {
			return collection.Build(beans.WithLogger(logger))
		},
		func(factory *beans.BeanFactory, logger *slog.Logger) http.Handler {
			return beanhttp.NewRouter(factory, logger)
		},
	}

	for _, provide := range providers {
		if err := c.Provide(provide); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: beanctl <get|tree|dot|validate|serve> [args]")
	}

	c, err := newContainer(config.Load(), stderr)
	if err != nil {
		return err
	}

	return c.Invoke(func(a app) error {
		switch cmd, rest := args[0], args[1:]; cmd {
		case "get":
			return a.get(ctx, rest, stdout)
		case "tree":
			return a.tree(rest, stdout)
		case "dot":
			return a.Factory.WriteGraph(stdout, beans.GraphDOT)
		case "validate":
			return a.validate(stdout)
		case "serve":
			return a.serve(ctx)
		default:
			return fmt.Errorf("unknown command %q", cmd)
		}
	})
}

func (a app) get(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	pkg := fs.String("package", "", "package of the bean")
	beanContext := fs.String("context", "", "context of the bean")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: beanctl get [-package pkg] [-context ctx] <name>")
	}

	var opts []beans.LookupOption
	if *pkg != "" {
		opts = append(opts, beans.FromPackage(*pkg))
	}
	if *beanContext != "" {
		opts = append(opts, beans.InContext(*beanContext))
	}

	name := fs.Arg(0)
	bean, err := a.Factory.GetBean(ctx, name, opts...)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(stdout, "%s: %T %+v\n", name, bean, bean)
	return err
}

func (a app) tree(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return a.Factory.WriteGraph(stdout, beans.GraphTree)
	}

	def, err := a.Factory.Lookup(args[0])
	if err != nil {
		return err
	}

	g, err := a.Factory.Graph()
	if err != nil {
		return err
	}
	return g.WriteBean(stdout, def.ID())
}

func (a app) validate(stdout io.Writer) error {
	if err := a.Collection.Validate(); err != nil {
		return err
	}

	g, err := a.Factory.Graph()
	if err != nil {
		return err
	}

	if g.Acyclic() {
		order, err := g.Order()
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, "order:")
		for _, id := range order {
			fmt.Fprintf(stdout, " %s.%s", id.Package, id.Name)
		}
		fmt.Fprintln(stdout)
	}

	for _, cycle := range g.Cycles() {
		fmt.Fprint(stdout, "cycle:")
		for _, id := range cycle {
			fmt.Fprintf(stdout, " %s.%s", id.Package, id.Name)
		}
		fmt.Fprintln(stdout)
	}

	_, err = fmt.Fprintf(stdout, "%d definitions ok\n", a.Collection.Count())
	return err
}

func (a app) serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("serving bean factory", "addr", a.Config.Addr, "factory", a.Factory.ID())
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a.Logger.Info("shutting down")
	return server.Shutdown(shutdownCtx)
}
