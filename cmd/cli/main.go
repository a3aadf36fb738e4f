package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/automailpro/internal/buildinfo"
	"github.com/dmitrijs2005/automailpro/internal/client/cli"
	"github.com/dmitrijs2005/automailpro/internal/client/client"
	"github.com/dmitrijs2005/automailpro/internal/client/config"
	"github.com/dmitrijs2005/automailpro/internal/client/services"
	"github.com/dmitrijs2005/automailpro/internal/extension"
	"github.com/dmitrijs2005/automailpro/internal/filex"
	"github.com/dmitrijs2005/automailpro/internal/logging"
	"github.com/dmitrijs2005/automailpro/internal/profile"
	"github.com/dmitrijs2005/automailpro/internal/update"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	if err := config.EnsureDirectories(cfg); err != nil {
		var pce *filex.PathConflictError
		if errors.As(err, &pce) {
			log.Fatalf("configuration error: %v", err)
		}
		log.Fatalf("create directories: %v", err)
	}

	key, err := cfg.Key()
	if err != nil {
		log.Fatalf("key: %v", err)
	}

	api := client.NewHTTPClient(cfg, logger)

	db, err := client.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		log.Fatalf("error initializing database: %v", err)
	}
	defer db.Close()
	repos := client.NewRepositories(db)

	versions := update.VersionStore{ProgramFile: cfg.ProgramVersionFile, ExtensionFile: cfg.ExtensionVersionFile}
	programSrc, extensionSrc := update.Sources(cfg, api, api.HTTP())
	engine := update.NewEngine(api, update.Options{
		Store:         versions,
		Program:       programSrc,
		Extension:     extensionSrc,
		ProgramDir:    cfg.ProgramDir,
		ExtensionsDir: cfg.ExtensionsDir,
		TempDir:       cfg.TempDir,
		Meta:          repos.Metadata,
	}, logger)

	session := services.NewSessionService(api, services.SessionOptions{
		Path:               cfg.SessionFile,
		Key:                key,
		Location:           cfg.Location(),
		Validity:           cfg.SessionValidity,
		CredentialAttempts: cfg.CredentialAttempts,
		RetryDelay:         cfg.RetryDelay,
		Version: func() string {
			return versions.ReadLocal().Program
		},
		Gate: engine.Gate(),
	}, logger)

	builder := extension.NewBuilder(map[extension.Family]string{
		extension.Chromium: cfg.ChromiumTemplateDir,
		extension.Firefox:  cfg.FirefoxTemplateDir,
	}, cfg.OutputDir, logger)

	var installer services.Installer
	if cfg.InstallProfiles {
		installer = &profile.Installer{
			Runtime:              profile.ExecRunner{},
			ProfilesDir:          cfg.ProfilesDir,
			ChromiumExe:          cfg.ChromiumExecutable,
			FirefoxExe:           cfg.FirefoxExecutable,
			ReferencePreferences: cfg.ChromiumReferencePreferences,
			WaitAttempts:         20,
			WaitInterval:         cfg.RetryDelay / 4,
			Logger:               logger.With("component", "profile"),
		}
	}

	runs := services.NewRunService(api, builder, installer, repos, services.RunOptions{
		Key:            key,
		TraitementFile: cfg.TraitementFile,
		ResultsFile:    cfg.ResultsFile,
		Workers:        cfg.Workers,
	}, logger.With("component", "run"))

	app := cli.NewApp(cfg, cli.Deps{
		Session:   session,
		Updates:   engine,
		Runs:      runs,
		Scenarios: api,
	}, logger)

	app.Run(ctx)

}
