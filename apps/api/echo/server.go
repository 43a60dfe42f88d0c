package echoapi

import (
	"context"
	"net/http"
	"os"
	"syscall"

	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/campusboard/core"
	"github.com/trezcool/campusboard/core/assignment"
	"github.com/trezcool/campusboard/core/auth"
	"github.com/trezcool/campusboard/core/notice"
	"github.com/trezcool/campusboard/core/user"
)

type (
	Options struct {
		Address        string
		Debug          bool
		TestMode       bool
		DisableReqLogs bool
		Conf           *core.Config
		Logger         core.Logger
		Validator      *core.Validator
		AuthSvc        *auth.Service
		UserSvc        *user.Service
		NoticeSvc      *notice.Service
		AssignmentSvc  *assignment.Service
		Shutdown       chan os.Signal // receives SIGTERM when a handler hits a shutdown error
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	vala.BeginValidation().Validate(
		vala.IsNotNil(opts, "opts"),
	).CheckAndPanic()
	vala.BeginValidation().Validate(
		vala.IsNotNil(opts.Conf, "opts.Conf"),
		vala.IsNotNil(opts.Logger, "opts.Logger"),
		vala.IsNotNil(opts.Validator, "opts.Validator"),
		vala.IsNotNil(opts.AuthSvc, "opts.AuthSvc"),
		vala.IsNotNil(opts.UserSvc, "opts.UserSvc"),
		vala.IsNotNil(opts.NoticeSvc, "opts.NoticeSvc"),
		vala.IsNotNil(opts.AssignmentSvc, "opts.AssignmentSvc"),
	).CheckAndPanic()

	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.HideBanner = true
	s.app.Server.ReadTimeout = s.opts.Conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = s.opts.Conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.opts.Debug || s.opts.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Validator.Translator, s.signalShutdown)
	s.app.Debug = s.opts.Debug

	s.app.GET("/", home)

	authed := authMiddleware(s.opts.AuthSvc)
	registerAuthAPI(s.app, authed, s.opts)
	registerUserAPI(s.app, authed, s.opts.UserSvc)
	registerNoticeAPI(s.app, authed, s.opts.NoticeSvc)
	registerAssignmentAPI(s.app, authed, s.opts.AssignmentSvc)
}

func (s *server) signalShutdown() {
	if s.opts.Shutdown != nil {
		s.opts.Shutdown <- syscall.SIGTERM
	}
}

// Start blocks until the server stops. It returns http.ErrServerClosed after Stop.
func (s *server) Start() error {
	return s.app.Start(s.opts.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "API is running")
}
