package testutil

import (
	"io"
	"log"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/account"
	"github.com/trezcool/academia/core/classroom"
	appfs "github.com/trezcool/academia/fs"
	"github.com/trezcool/academia/services/email"
	"github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database/inmem"
)

// Env wires the services over an in-memory store.
type Env struct {
	Conf        *core.Config
	Logger      core.Logger
	Validate    *validator.Validate
	Translator  ut.Translator
	MailSvc     *emailsvc.MockService
	DB          *inmemdb.DB
	AccountRepo account.Repository
	ClassRepo   classroom.Repository
	AccountSvc  *account.Service
	ClassSvc    *classroom.Service
}

// NewLogger returns a logger printing nowhere, with rollbar disabled.
func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
}

// NewValidator returns a validator with every custom rule of the application registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)
	classroom.InitValidators(validate, translator)
	return validate, translator
}

func NewEnv(t *testing.T, cache ...core.Cache) *Env {
	t.Helper()
	account.PasswordHashCost = bcrypt.MinCost

	env := &Env{Conf: core.NewTestConfig()}
	env.Logger = NewLogger(env.Conf)
	env.Validate, env.Translator = NewValidator()
	env.MailSvc = emailsvc.NewMockService(env.Conf, env.Logger)
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, env.Conf, env.Logger)

	env.DB = inmemdb.Open()
	env.AccountRepo = inmemdb.NewAccountRepository(env.DB)
	env.ClassRepo = inmemdb.NewClassRepository(env.DB)

	deps := account.ServiceDeps{
		Tx:         env.DB,
		Repo:       env.AccountRepo,
		ClassRepo:  env.ClassRepo,
		MailSvc:    env.MailSvc,
		Logger:     env.Logger,
		Validate:   env.Validate,
		Translator: env.Translator,
		Conf:       env.Conf,
	}
	if len(cache) > 0 {
		deps.Cache = cache[0]
	}
	env.AccountSvc = account.NewService(deps)
	env.ClassSvc = classroom.NewService(classroom.ServiceDeps{
		Tx:         env.DB,
		Repo:       env.ClassRepo,
		Accounts:   env.AccountSvc,
		Logger:     env.Logger,
		Validate:   env.Validate,
		Translator: env.Translator,
	})
	return env
}
