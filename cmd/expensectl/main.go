package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/joho/godotenv"

	"expensetracker/internal/app"
	"expensetracker/internal/config"
	"expensetracker/internal/log"
	"expensetracker/internal/session"
)

var (
	errMissingCommand = errors.New("missing command")
	errNotSignedIn    = errors.New("not signed in: run 'expensectl login' first")
)

// env is what a command sees: the wired application plus the process streams.
type env struct {
	app    *app.App
	stdin  io.Reader
	in     *bufio.Reader
	stdout io.Writer
	stderr io.Writer
}

type command struct {
	usage     string
	needsAuth bool
	run       func(ctx context.Context, e *env, args []string) error
}

func main() {
	// Load .env file for local development (ignore errors in production)
	_ = godotenv.Load()

	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stderr)
		return errMissingCommand
	}
	switch args[0] {
	case "-h", "-help", "--help", "help":
		usage(stdout)
		return flag.ErrHelp
	}
	cmd, ok := commands[args[0]]
	if !ok {
		usage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentApp,
		Output:    stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if cmd.needsAuth && a.Session.State() != session.Authenticated {
		return errNotSignedIn
	}
	e := &env{app: a, stdin: stdin, in: bufio.NewReader(stdin), stdout: stdout, stderr: stderr}
	return cmd.run(ctx, e, args[1:])
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: expensectl <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-16s %s\n", name, commands[name].usage)
	}
}

// newFlagSet mirrors the top-level error handling for subcommand flags.
func newFlagSet(name string, e *env) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}
