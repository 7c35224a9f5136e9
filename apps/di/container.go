// Package di builds the dependency graph shared by the API server and the admin CLI.
package di

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/account"
	"github.com/trezcool/academia/core/classroom"
	appfs "github.com/trezcool/academia/fs"
	cachesvc "github.com/trezcool/academia/services/cache"
	emailsvc "github.com/trezcool/academia/services/email"
	logsvc "github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database"
	sqlxrepos "github.com/trezcool/academia/storage/database/sqlx"
)

type (
	// DBLoggerParam resolves the logger dedicated to the database layer.
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Cleanup releases the connections opened by the container.
	Cleanup func()

	dbCleanup    func()
	cacheCleanup func()

	serviceParams struct {
		dig.In
		Conf       *core.Config
		Logger     core.Logger
		Tx         core.Transactor
		Accounts   account.Repository
		Classes    classroom.Repository
		MailSvc    core.EmailService
		Cache      core.Cache
		Validate   *validator.Validate
		Translator ut.Translator
	}
)

// Options tune the container for the binary using it.
type Options struct {
	LogPrefix string
	// Migrate applies pending migrations when opening the database.
	Migrate bool
}

// New returns a dig.Container able to build every application service from conf.
func New(conf *core.Config, opts Options) *dig.Container {
	c := dig.New()

	must(c.Provide(func() *core.Config { return conf }))
	must(c.Provide(func(conf *core.Config) core.Logger { return newLogger(conf, opts.LogPrefix) }))
	must(c.Provide(func(conf *core.Config) core.Logger { return newLogger(conf, "DB") }, dig.Name("dbLogger")))
	must(c.Provide(func(conf *core.Config, lp DBLoggerParam) (*sqlx.DB, dbCleanup, error) {
		return newDB(conf, lp.Logger, opts.Migrate)
	}))
	must(c.Provide(database.NewTransactor))
	must(c.Provide(func(db *sqlx.DB) account.Repository { return sqlxrepos.NewAccountRepository(db) }))
	must(c.Provide(func(db *sqlx.DB) classroom.Repository { return sqlxrepos.NewClassRepository(db) }))
	must(c.Provide(newCache))
	must(c.Provide(newCleanup))
	must(c.Provide(newEmailService))
	must(c.Provide(newValidator))
	must(c.Provide(newAccountService))
	must(c.Provide(newClassService))
	must(c.Provide(newServer))

	return c
}

func newLogger(conf *core.Config, prefix string) core.Logger {
	stdLogger := log.New(os.Stdout, prefix+" : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDB(conf *core.Config, logger core.Logger, migrate bool) (*sqlx.DB, dbCleanup, error) {
	ctx := context.Background()
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, nil, err
	}

	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, nil, err
	}

	if migrate {
		if err = database.Migrate(db, "up"); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logger.Info("migrations applied")
	}
	return db, func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", errors.Wrap(err, "closing database"))
		}
	}, nil
}

func newCache(conf *core.Config, logger core.Logger) (core.Cache, cacheCleanup) {
	cache, closeCache := cachesvc.NewRedisCache(context.Background(), conf, logger)
	return cache, closeCache
}

// newCleanup releases the cache before the database.
func newCleanup(closeDB dbCleanup, closeCache cacheCleanup) Cleanup {
	return func() {
		closeCache()
		closeDB()
	}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator(conf *core.Config, logger core.Logger) (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)
	classroom.InitValidators(validate, translator)

	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, logger)
	return validate, translator
}

func newAccountService(p serviceParams) *account.Service {
	return account.NewService(account.ServiceDeps{
		Tx:         p.Tx,
		Repo:       p.Accounts,
		ClassRepo:  p.Classes,
		MailSvc:    p.MailSvc,
		Cache:      p.Cache,
		Logger:     p.Logger,
		Validate:   p.Validate,
		Translator: p.Translator,
		Conf:       p.Conf,
	})
}

func newClassService(p serviceParams, accountSvc *account.Service) *classroom.Service {
	return classroom.NewService(classroom.ServiceDeps{
		Tx:         p.Tx,
		Repo:       p.Classes,
		Accounts:   accountSvc,
		Logger:     p.Logger,
		Validate:   p.Validate,
		Translator: p.Translator,
	})
}

func newServer(p serviceParams, accountSvc *account.Service, classSvc *classroom.Service) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		AccountSvc: accountSvc,
		ClassSvc:   classSvc,
		Validate:   p.Validate,
		Translator: p.Translator,
	})
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(fmt.Sprintf("%+v", errors.Wrap(err, "failed to provide dependency")))
	}
}
