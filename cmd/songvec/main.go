// Command songvec builds and queries an audio-embedding similarity index.
//
//	songvec [-config songvec.yaml] schema create|drop|status
//	songvec [-config songvec.yaml] ingest
//	songvec [-config songvec.yaml] query [-k 10] FILE
//	songvec [-config songvec.yaml] exists FILE
//	songvec [-config songvec.yaml] stats
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

var errUsage = errors.New("usage: songvec [-config FILE] schema|ingest|query|exists|stats ...")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "songvec:", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("songvec", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", os.Getenv("SONGVEC_CONFIG"), "YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	app, err := newApp(*configPath, stdout, stderr)
	if err != nil {
		return err
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "schema":
		return app.schema(ctx, rest)
	case "ingest":
		return app.ingest(ctx, rest)
	case "query":
		return app.query(ctx, rest)
	case "exists":
		return app.exists(ctx, rest)
	case "stats":
		return app.stats(ctx)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}
