package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/academics"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/policy"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	logsvc "github.com/trezcool/darasa/services/logger"
	"github.com/trezcool/darasa/storage/database"
	sqlxrepos "github.com/trezcool/darasa/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) (*logsvc.RollbarLogger, core.Logger) {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger, logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB, core.DBExecutor) {
	db, err := database.Setup(context.Background(), conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// newValidator returns a validator with every custom validation registered.
func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	academics.InitValidators(validate, translator)
	return validate
}

// NewTracerProvider installs a tracer provider printing spans to stdout as the global one.
func NewTracerProvider() (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, errors.Wrap(err, "creating stdout exporter")
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp, nil
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(policy.New))

	// repositories
	must(c.Provide(sqlxrepos.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(sqlxrepos.NewClassLevelRepository, dig.As(new(school.ClassLevelRepository))))
	must(c.Provide(sqlxrepos.NewSubjectRepository, dig.As(new(school.SubjectRepository))))
	must(c.Provide(sqlxrepos.NewAnnouncementRepository, dig.As(new(school.AnnouncementRepository))))
	must(c.Provide(sqlxrepos.NewMaterialRepository, dig.As(new(school.MaterialRepository))))
	must(c.Provide(sqlxrepos.NewAttendanceRepository, dig.As(new(attendance.Repository))))
	must(c.Provide(sqlxrepos.NewAcademicsRepository, dig.As(new(academics.Repository))))

	// services
	must(c.Provide(user.NewService, dig.As(new(user.ServiceInterface))))
	must(c.Provide(school.NewService, dig.As(new(school.ServiceInterface))))
	must(c.Provide(attendance.NewService, dig.As(new(attendance.ServiceInterface))))
	must(c.Provide(academics.NewService, dig.As(new(academics.ServiceInterface))))

	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
