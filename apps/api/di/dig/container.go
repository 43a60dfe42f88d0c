package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/campusboard/apps/api/echo"
	"github.com/trezcool/campusboard/core"
	"github.com/trezcool/campusboard/core/assignment"
	"github.com/trezcool/campusboard/core/auth"
	"github.com/trezcool/campusboard/core/notice"
	"github.com/trezcool/campusboard/core/user"
	emailsvc "github.com/trezcool/campusboard/services/email"
	logsvc "github.com/trezcool/campusboard/services/logger"
	"github.com/trezcool/campusboard/storage/database"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// ServerParams gathers everything the API server is built from.
type ServerParams struct {
	dig.In
	Conf          *core.Config
	Logger        core.Logger
	Validator     *core.Validator
	AuthSvc       *auth.Service
	UserSvc       *user.Service
	NoticeSvc     *notice.Service
	AssignmentSvc *assignment.Service
	Shutdown      chan os.Signal
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

// newRepositories connects to the configured database. The process exits when it cannot.
func newRepositories(conf *core.Config, loggerParam DBLoggerParam) *database.Repositories {
	repos, err := database.Open(context.Background(), conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up %s database: %v", conf.Database.Engine, err), err)
	}
	return repos
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newShutdownChannel() chan os.Signal {
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	return shutdown
}

func newAuthService(repos *database.Repositories, conf *core.Config) *auth.Service {
	return auth.NewService(repos.Sessions, repos.Users, conf)
}

func newUserService(
	repos *database.Repositories,
	sessions *auth.Service,
	mailSvc core.EmailService,
	validate *core.Validator,
	conf *core.Config,
) *user.Service {
	return user.NewService(repos.Users, sessions, mailSvc, validate, conf)
}

func newNoticeService(repos *database.Repositories, validate *core.Validator, conf *core.Config) *notice.Service {
	return notice.NewService(repos.Notices, validate, conf)
}

func newAssignmentService(repos *database.Repositories, validate *core.Validator, conf *core.Config) *assignment.Service {
	return assignment.NewService(repos.Assignments, validate, conf)
}

func newServer(p ServerParams) echoapi.Server {
	return echoapi.NewServer(&echoapi.Options{
		Address:       p.Conf.Server.Address(),
		Debug:         p.Conf.Debug,
		TestMode:      p.Conf.TestMode,
		Conf:          p.Conf,
		Logger:        p.Logger,
		Validator:     p.Validator,
		AuthSvc:       p.AuthSvc,
		UserSvc:       p.UserSvc,
		NoticeSvc:     p.NoticeSvc,
		AssignmentSvc: p.AssignmentSvc,
		Shutdown:      p.Shutdown,
	})
}

// New returns a new dependency injection dig.Container.
// newConfig is core.NewConfig outside of tests.
func New(newConfig func() *core.Config) *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewValidator))
	must(c.Provide(newShutdownChannel))
	must(c.Provide(newAuthService))
	must(c.Provide(newUserService))
	must(c.Provide(newNoticeService))
	must(c.Provide(newAssignmentService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
