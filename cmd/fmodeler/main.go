package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/contactkeval/fintech-modeler/internal/config"
	"github.com/contactkeval/fintech-modeler/internal/logger"
	"github.com/contactkeval/fintech-modeler/internal/modeler"
	"github.com/contactkeval/fintech-modeler/internal/publish"
)

var version = "dev"

// newPublisher is replaced in tests.
var newPublisher = publish.New

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run executes one modeler run and returns the process exit code. Deferred
// cleanup has finished by the time it returns.
func run(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("fmodeler", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to YAML config (optional)")
	verbosity := fs.String("verbosity", "", "log level: error, warn, info, debug, trace")
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintln(stdout, version)
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Errorf("config: %v", err)
		return 1
	}
	if *verbosity != "" {
		cfg.Verbosity = *verbosity
	}
	level, err := logger.ParseLevel(cfg.Verbosity)
	if err != nil {
		logger.Errorf("config: %v", err)
		return 1
	}
	logger.SetVerbosity(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prov, err := modeler.NewProvider(cfg)
	if err != nil {
		logger.Errorf("data provider: %v", err)
		return 1
	}
	logger.Infof("%s provider enabled", prov.Name())

	pub, err := newPublisher(ctx, cfg.Redis.URL, cfg.Redis.Stream)
	if err != nil {
		logger.Errorf("redis not connected: %v", err)
		pub = publish.NoopPublisher{}
	}
	defer pub.Close()

	res, err := modeler.New(cfg, prov, pub).Run(ctx)
	if err != nil {
		logger.Errorf("run failed: %v", err)
		return 1
	}

	fmt.Fprintf(stdout, "Strike\tType\tExp. [d]\tPrice\n")
	for _, q := range res.Summary.Options {
		fmt.Fprintf(stdout, "%s\t%s\t%d\t\t%s\n", q.Strike.StringFixed(2), q.Type, q.ExpiryDays, q.Price.StringFixed(2))
	}
	return 0
}
