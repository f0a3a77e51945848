package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/polkiloo/refundstatus/internal/adapter/refundapi"
	"github.com/polkiloo/refundstatus/internal/refund"
)

const (
	envServer    = "REFUNDCTL_SERVER"
	envTokenFile = "REFUNDCTL_TOKEN_FILE"
	envPassword  = "REFUNDCTL_PASSWORD"

	defaultServer = "http://localhost:8080"
)

var errNotLoggedIn = errors.New("not logged in: run `refundctl login` first")

type options struct {
	server    string
	tokenFile string
	year      int
	stdout    io.Writer
	stderr    io.Writer
}

func defaultTokenFile() string {
	if v := os.Getenv(envTokenFile); v != "" {
		return v
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".refundctl-token"
	}
	return filepath.Join(dir, "refundctl", "token")
}

func defaultServerURL() string {
	if v := os.Getenv(envServer); v != "" {
		return v
	}
	return defaultServer
}

func (o *options) logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(o.stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func (o *options) readToken() (string, error) {
	data, err := os.ReadFile(o.tokenFile)
	if errors.Is(err, os.ErrNotExist) {
		return "", errNotLoggedIn
	}
	if err != nil {
		return "", fmt.Errorf("reading token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", errNotLoggedIn
	}
	return token, nil
}

func (o *options) saveToken(token string) error {
	if err := os.MkdirAll(filepath.Dir(o.tokenFile), 0o700); err != nil {
		return fmt.Errorf("creating token dir: %w", err)
	}
	if err := os.WriteFile(o.tokenFile, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}

func (o *options) removeToken() error {
	if err := os.Remove(o.tokenFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing token file: %w", err)
	}
	return nil
}

func (o *options) anonymousClient() (*refundapi.Client, error) {
	return refundapi.NewClient(o.server, refundapi.WithLogger(o.logger()))
}

func (o *options) authorizedClient() (*refundapi.Client, error) {
	token, err := o.readToken()
	if err != nil {
		return nil, err
	}
	return refundapi.NewClient(o.server, refundapi.WithToken(token), refundapi.WithLogger(o.logger()))
}

// stderrReporter prints one line per failed store operation.
func (o *options) stderrReporter() refund.ErrorReporter {
	return refund.ReporterFunc(func(message string) {
		printError(o.stderr, "%s", message)
	})
}

// openStore builds a store over the API using the lifecycle the server advertises.
func (o *options) openStore(ctx context.Context) (*refund.Store, error) {
	client, err := o.authorizedClient()
	if err != nil {
		return nil, err
	}

	lifecycle, err := client.Lifecycle(ctx)
	if err != nil {
		o.logger().Warn("using default refund lifecycle", slog.String("error", err.Error()))
		lifecycle = refund.DefaultLifecycle()
	}

	return refund.NewStore(client, o.stderrReporter(),
		refund.WithLifecycle(lifecycle),
		refund.WithTaxYear(o.year),
	), nil
}
