package app

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	"github.com/sanamente/catalogd/config"
	"github.com/sanamente/catalogd/internal/auth"
	"github.com/sanamente/catalogd/internal/catalog"
	"github.com/sanamente/catalogd/internal/domain"
	"github.com/sanamente/catalogd/internal/notify"
	"github.com/sanamente/catalogd/internal/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	bus       EventBus.Bus
	node      *snowflake.Node
	sched     *cron.Cron

	docStore     *store.GormStore
	authProvider *auth.JWTProvider
	sessionGate  *auth.Gate
	catalogSvc   *catalog.Service
}

// Ensure Application implements all interfaces
var (
	_ DBProvider      = (*Application)(nil)
	_ ConfigProvider  = (*Application)(nil)
	_ StoreProvider   = (*Application)(nil)
	_ AuthProvider    = (*Application)(nil)
	_ CatalogProvider = (*Application)(nil)
	_ AppContext      = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig  { return a.appConfig }
func (a *Application) DB() *gorm.DB               { return a.gormDB }
func (a *Application) Store() store.Store         { return a.docStore }
func (a *Application) Auth() *auth.JWTProvider    { return a.authProvider }
func (a *Application) Gate() *auth.Gate           { return a.sessionGate }
func (a *Application) Catalog() *catalog.Service  { return a.catalogSvc }
func (a *Application) Scheduler() *cron.Cron      { return a.sched }

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

func (a *Application) Init(cfg *config.AppConfig) error {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	a.initLogger(cfg)

	a.gormDB, err = openDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	zap.S().Info("Database connection successful")

	if err := a.MigrateDB(); err != nil {
		zap.S().Errorf("database migration failed: %v", err)
	}

	a.bus = EventBus.New()
	a.node, err = snowflake.NewNode(1)
	if err != nil {
		return fmt.Errorf("snowflake node init failed: %w", err)
	}

	a.docStore, err = store.NewGormStore(a.gormDB, a.bus, a.node)
	if err != nil {
		return fmt.Errorf("document store init failed: %w", err)
	}

	a.authProvider = auth.NewJWTProvider(a.gormDB, cfg.Web.Secret, cfg.Web.JwtExpiry)
	a.sessionGate = auth.NewGate(a.authProvider)

	var notifiers []notify.ProductNotifier
	if cfg.Catalog.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.Catalog.WebhookURL, 5*time.Second))
	}
	if cfg.Smtp.Host != "" && cfg.Smtp.To != "" {
		notifiers = append(notifiers, notify.NewMailNotifier(cfg.Smtp))
	}
	a.catalogSvc = catalog.NewService(a.docStore, cfg.Catalog.PlaceholderImage, notify.NewMulti(notifiers...))

	a.sched = cron.New(cron.WithLocation(time.Local))

	a.checkAdmin()
	a.checkSampleProducts()
	a.initJobs()
	return nil
}

// initLogger configures the global zap logger, with file rotation when
// file output is enabled.
func (a *Application) initLogger(cfg *config.AppConfig) {
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}
		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	} else {
		var err error
		logger, err = zapConfig.Build(zap.AddCaller(), zap.AddCallerSkip(1))
		if err != nil {
			panic(err)
		}
	}
	zap.ReplaceGlobals(logger)
}

func openDatabase(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.Name, cfg.User, cfg.Passwd)
	level := gormlogger.Silent
	if cfg.Debug {
		level = gormlogger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConn)
	sqlDB.SetMaxIdleConns(cfg.IdleConn)
	return db, nil
}

func (a *Application) MigrateDB() error {
	return a.gormDB.Migrator().AutoMigrate(domain.Tables...)
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.docStore != nil {
		a.docStore.Close()
	}
	_ = zap.L().Sync()
}
