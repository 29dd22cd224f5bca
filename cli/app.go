// Package cli is the railid command line: traveller account and booking
// commands, ticket verification on both sides, and the conductor views.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jlynch25/railid/account"
	"github.com/jlynch25/railid/config"
	"github.com/jlynch25/railid/gate"
	"github.com/jlynch25/railid/store"
	"github.com/jlynch25/railid/ticketing"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type app struct {
	in  io.Reader
	out io.Writer
	err io.Writer

	envFile string
	dataDir string

	cfg      *config.Config
	log      *logrus.Entry
	kv       *store.BadgerKV
	tickets  *store.Tickets
	accounts *account.Accounts
	manager  *ticketing.Manager

	lines *bufio.Reader
	auth  gate.Authenticator
}

// Execute runs the command line against the process's stdio.
func Execute() error {
	a := &app{in: os.Stdin, out: os.Stdout, err: os.Stderr}
	return a.rootCommand().ExecuteContext(context.Background())
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "railid",
		Short:        "Rail tickets with proximity verification",
		SilenceUsage: true,
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.err)

	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "optional dotenv file")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "local store directory (overrides RAILID_DATA_DIR)")

	root.AddCommand(
		a.signupCommand(),
		a.loginCommand(),
		a.logoutCommand(),
		a.profileCommand(),
		a.bookCommand(),
		a.ticketsCommand(),
		a.cancelCommand(),
		a.qrCommand(),
		a.advertiseCommand(),
		a.conductorLoginCommand(),
		a.verifyCommand(),
	)
	return root
}

// setup loads configuration and the logger. Commands that touch the store
// call open as well.
func (a *app) setup() error {
	if a.cfg != nil {
		return nil
	}

	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}
	if a.dataDir != "" {
		cfg.DataDir = a.dataDir
	}
	a.cfg = cfg

	logger := cfg.Logger()
	logger.SetOutput(a.err)
	a.log = logrus.NewEntry(logger)
	return nil
}

func (a *app) open() error {
	if err := a.setup(); err != nil {
		return err
	}
	if a.kv != nil {
		return nil
	}

	policy, err := store.ParseCorruptPolicy(a.cfg.CorruptPolicy)
	if err != nil {
		return err
	}
	hasher, err := account.NewPasswordHasher(a.cfg.PasswordScheme, a.cfg.BcryptCost)
	if err != nil {
		return err
	}

	kv, err := store.OpenBadger(a.cfg.DataDir, a.log)
	if err != nil {
		return err
	}
	a.kv = kv
	a.tickets = store.NewTickets(kv, store.WithCorruptPolicy(policy), store.WithLogger(a.log))
	a.accounts = account.New(kv, account.WithHasher(hasher), account.WithLogger(a.log))
	a.manager = ticketing.NewManager(a.tickets, ticketing.WithLogger(a.log))
	return nil
}

func (a *app) close() error {
	if a.kv == nil {
		return nil
	}
	err := a.kv.Close()
	a.kv = nil
	return err
}

// withStore wraps a RunE so the store is open while it runs.
func (a *app) withStore(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.open(); err != nil {
			return err
		}
		defer a.close()
		return run(cmd, args)
	}
}

func (a *app) authenticator() gate.Authenticator {
	if a.auth != nil {
		return a.auth
	}
	return gate.NewTerminalAuthenticator(a.cfg.DevicePIN)
}

// readLine prompts and reads one line of input.
func (a *app) readLine(prompt string) (string, error) {
	fmt.Fprint(a.out, prompt)
	if a.lines == nil {
		a.lines = bufio.NewReader(a.in)
	}

	line, err := a.lines.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readSecret reads without echo on a terminal and falls back to readLine.
func (a *app) readSecret(prompt string) (string, error) {
	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(a.out, prompt)
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.out)
		return string(secret), err
	}
	return a.readLine(prompt)
}

// notice prints a user-facing message and logs it.
func (a *app) notice(msg string) {
	fmt.Fprintln(a.out, msg)
	a.log.WithField("notice", msg).Debug("user notified")
}
