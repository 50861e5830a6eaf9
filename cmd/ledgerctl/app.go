package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"ledgerdesk/internal/client/account"
	"ledgerdesk/internal/client/api"
	"ledgerdesk/internal/client/config"
	"ledgerdesk/internal/client/credentials"
	"ledgerdesk/internal/client/sessions"
	"ledgerdesk/internal/client/wallet"
	"ledgerdesk/internal/pkg/validate"

	"go.uber.org/zap"
)

// app is everything a command needs, built once per run.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	creds   *credentials.Store
	api     *api.Client
	account *account.Service
	views   *sessions.View
	wallet  *wallet.Service
}

type globalFlags struct {
	configPath string
	apiURL     string
	credsPath  string
	verbose    bool
}

func newApp(g globalFlags) (*app, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.apiURL != "" {
		cfg.APIURL = g.apiURL
	}
	if g.credsPath != "" {
		cfg.CredentialsFile = g.credsPath
	}
	if cfg.CredentialsFile == "" {
		cfg.CredentialsFile = credentials.DefaultPath()
	}

	logger := zap.NewNop()
	if g.verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, err
		}
	}

	creds, err := credentials.Open(credentials.FileBackend{Path: cfg.CredentialsFile})
	if err != nil {
		return nil, err
	}
	client := api.New(cfg.APIURL, creds, logger.Named("api"), api.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}))

	return &app{
		cfg:     cfg,
		logger:  logger,
		creds:   creds,
		api:     client,
		account: account.NewService(client, creds, logger.Named("account")),
		views:   sessions.NewView(client, logger.Named("sessions")),
		wallet:  wallet.NewService(client, creds, logger.Named("wallet")),
	}, nil
}

// requireLogin fails early when no credentials are stored.
func (a *app) requireLogin() (credentials.User, error) {
	u, err := a.creds.User()
	if errors.Is(err, credentials.ErrNotSignedIn) {
		return u, errors.New("not signed in; run 'ledgerctl login'")
	}
	return u, err
}

// explain prints field errors one per line; other errors pass through.
func explain(err error) error {
	var fe validate.FieldErrors
	if errors.As(err, &fe) {
		for _, f := range fe {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", f.Field, f.Message)
		}
		return errors.New("please fix the fields above")
	}
	if api.IsStatus(err, http.StatusUnauthorized) {
		return fmt.Errorf("%w\nyour session has ended; run 'ledgerctl login'", err)
	}
	return err
}
