package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	grpcadapter "github.com/Yess-prog/PI-myBank-app/internal/adapter/grpc"
	"github.com/Yess-prog/PI-myBank-app/internal/adapter/console"
	"github.com/Yess-prog/PI-myBank-app/internal/adapter/httpapi"
	"github.com/Yess-prog/PI-myBank-app/internal/adapter/session"
	"github.com/Yess-prog/PI-myBank-app/internal/config"
	"github.com/Yess-prog/PI-myBank-app/internal/domain"
	"github.com/Yess-prog/PI-myBank-app/internal/logging"
	"github.com/Yess-prog/PI-myBank-app/internal/usecase/auth"
	"github.com/Yess-prog/PI-myBank-app/internal/usecase/confirmation"
	"github.com/Yess-prog/PI-myBank-app/internal/usecase/report"
	"github.com/Yess-prog/PI-myBank-app/internal/usecase/resolver"
	"github.com/Yess-prog/PI-myBank-app/internal/usecase/transfer"
)

const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	exitUnknown = 3
)

const usage = `usage: mybank <command> [flags]

commands:
  login    --email EMAIL --password PASSWORD
  logout
  send     --rib RIB --amount AMOUNT [--description TEXT]
  request  --email EMAIL --amount AMOUNT [--description TEXT]
`

func main() {
	// SIGINT cancels anything before the mutating call; once sent, the call is waited for
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app holds the wired dependencies of one invocation
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	api     domain.BankAPI
	store   *session.FileStore
	closeFn func() error
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}
	command, rest := args[0], args[1:]

	fs := pflag.NewFlagSet(command, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	config.RegisterFlags(fs)

	var email, password, rib, amount, description string
	switch command {
	case "login":
		fs.StringVar(&email, "email", "", "account email")
		fs.StringVar(&password, "password", "", "account password")
	case "logout":
	case "send":
		fs.StringVar(&rib, "rib", "", "recipient RIB")
		fs.StringVar(&amount, "amount", "", "amount to send")
		fs.StringVar(&description, "description", "", "optional description")
	case "request":
		fs.StringVar(&email, "email", "", "email of the user asked to pay")
		fs.StringVar(&amount, "amount", "", "amount to request")
		fs.StringVar(&description, "description", "", "optional description")
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", command, usage)
		return exitUsage
	}
	if err := fs.Parse(rest); err != nil {
		return exitUsage
	}

	a, err := newApp(fs)
	if err != nil {
		fmt.Fprintf(stderr, "mybank: %v\n", err)
		return exitFailed
	}
	defer a.close()

	switch command {
	case "login":
		return a.login(ctx, email, password, stdout, stderr)
	case "logout":
		return a.logout(ctx, stdout, stderr)
	}

	// 1. Wire the workflow
	confirmer := console.NewConfirmer(stdin, stdout)
	defer confirmer.Close()
	gate := confirmation.NewGate(confirmer)
	service := transfer.NewService(
		a.store,
		resolver.NewResolver(a.api, a.api),
		a.api,
		gate,
		a.cfg.SubmitTimeout,
	)

	// 2. Run the flow
	var intent *domain.TransferIntent
	if command == "send" {
		intent, err = service.SendMoney(ctx, transfer.SendMoneyInput{RecipientRIB: rib, Amount: amount, Description: description})
	} else {
		intent, err = service.RequestMoney(ctx, transfer.RequestMoneyInput{RecipientEmail: email, Amount: amount, Description: description})
	}

	// 3. Report
	outcome := report.Report(intent, err)
	fields := []zap.Field{
		zap.String("intent_id", intent.ID.String()),
		zap.String("flow", string(intent.Flow)),
		zap.String("status", string(intent.Status)),
	}
	if err != nil {
		a.logger.Info("intent failed", append(fields, zap.String("kind", string(domain.KindOf(err))), zap.Error(err))...)
	} else {
		a.logger.Info("intent completed", fields...)
	}
	console.PrintOutcome(stdout, outcome)

	switch outcome.Status {
	case report.StatusSucceeded:
		return exitOK
	case report.StatusUnknown:
		return exitUnknown
	default:
		return exitFailed
	}
}

func newApp(fs *pflag.FlagSet) (*app, error) {
	cfg, err := config.Load(fs)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogLevel, logging.Format(cfg.LogFormat))
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		store:   session.NewFileStore(cfg.SessionFile, logging.Component(logger, "session")),
		closeFn: func() error { return nil },
	}

	switch cfg.Transport {
	case config.TransportGRPC:
		client, conn, err := grpcadapter.Dial(cfg.GRPCAddr, grpcadapter.DialOptions{
			TLS:           cfg.GRPCTLS,
			LookupTimeout: cfg.HTTPTimeout,
			Logger:        logger,
		})
		if err != nil {
			return nil, err
		}
		a.api = client
		a.closeFn = conn.Close
	default:
		a.api = httpapi.NewClient(cfg.APIBaseURL, httpapi.Options{
			LookupTimeout:      cfg.HTTPTimeout,
			BreakerMaxFailures: cfg.BreakerMaxFailures,
			BreakerOpenTimeout: cfg.BreakerOpenTimeout,
			Logger:             logger,
		})
	}

	logger.Debug("configured",
		zap.String("transport", string(cfg.Transport)),
		zap.String("session_file", cfg.SessionFile))
	return a, nil
}

func (a *app) close() {
	if err := a.closeFn(); err != nil {
		a.logger.Warn("failed to close connection", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func (a *app) login(ctx context.Context, email, password string, stdout, stderr io.Writer) int {
	record, err := auth.NewService(a.api, a.store).Login(ctx, email, password)
	if err != nil {
		var loginErr *auth.LoginError
		if errors.As(err, &loginErr) {
			fmt.Fprintln(stderr, loginErr.Message)
		} else {
			fmt.Fprintf(stderr, "mybank: %v\n", err)
		}
		return exitFailed
	}
	fmt.Fprintf(stdout, "Welcome, %s!\n", record.FirstName)
	return exitOK
}

func (a *app) logout(ctx context.Context, stdout, stderr io.Writer) int {
	if err := auth.NewService(a.api, a.store).Logout(ctx); err != nil {
		fmt.Fprintf(stderr, "mybank: %v\n", err)
		return exitFailed
	}
	fmt.Fprintln(stdout, "Logged out")
	return exitOK
}
