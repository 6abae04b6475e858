package sql

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ncruces/go-sqlite3/gormlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"

	"github.com/mlflow/mlflow-go-backend/pkg/config"
	"github.com/mlflow/mlflow-go-backend/pkg/contract"
	"github.com/mlflow/mlflow-go-backend/pkg/store/sql/model"
	"github.com/mlflow/mlflow-go-backend/pkg/validation"
)

const batchSize = 100

// Store implements store.TrackingStore and store.ModelRegistryStore on a
// relational backend through GORM.
type Store struct {
	config   *config.Config
	db       *gorm.DB
	validate *validator.Validate
	logger   *logrus.Logger
}

func NewStore(cfg *config.Config, logger *logrus.Logger) (*Store, error) {
	dialector, err := dialectorFor(cfg.StoreURL)
	if err != nil {
		return nil, err
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	logger.SetLevel(level)

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: NewLoggerAdaptor(logger, LoggerAdaptorConfig{
			SlowThreshold:             cfg.SlowQueryThreshold.Duration,
			IgnoreRecordNotFoundError: true,
		}),
		// Cascades are explicit multi-table transactions, never
		// engine-level constraints.
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database %q: %w", cfg.StoreURL, err)
	}

	validate, err := validation.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to construct validator: %w", err)
	}

	return &Store{config: cfg, db: db, validate: validate, logger: logger}, nil
}

func dialectorFor(storeURL string) (gorm.Dialector, error) {
	uri, err := url.Parse(storeURL)
	if err != nil {
		return nil, fmt.Errorf("invalid store url %q: %w", storeURL, err)
	}

	switch uri.Scheme {
	case "postgres", "postgresql":
		return postgres.Open(storeURL), nil
	case "mysql":
		return mysql.Open(mysqlDSN(uri)), nil
	case "sqlserver":
		return sqlserver.Open(storeURL), nil
	case "sqlite":
		return gormlite.Open(sqliteDSN(storeURL)), nil
	default:
		return nil, fmt.Errorf("unsupported store url scheme %q", uri.Scheme)
	}
}

// mysqlDSN rewrites a mysql:// URL into the DSN shape the driver expects:
// user:pass@tcp(host:port)/dbname?params.
func mysqlDSN(uri *url.URL) string {
	var dsn strings.Builder

	if uri.User != nil {
		dsn.WriteString(uri.User.String())
		dsn.WriteString("@")
	}

	dsn.WriteString("tcp(")
	dsn.WriteString(uri.Host)
	dsn.WriteString(")")
	dsn.WriteString(uri.Path)

	if uri.RawQuery != "" {
		dsn.WriteString("?")
		dsn.WriteString(uri.RawQuery)
	}

	return dsn.String()
}

// sqliteDSN keeps everything after the scheme, so both plain paths
// (sqlite:///tmp/store.db) and driver options (sqlite://file:x?vfs=memdb)
// pass through.
func sqliteDSN(storeURL string) string {
	dsn := strings.TrimPrefix(storeURL, "sqlite://")
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}

	return dsn
}

// Migrate creates the table set for embedded and test use. Production
// deployments are migrated by external tooling, which also owns the
// alembic_version marker row.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(
		&model.Experiment{},
		&model.ExperimentTag{},
		&model.Run{},
		&model.Param{},
		&model.Tag{},
		&model.Metric{},
		&model.LatestMetric{},
		&model.Dataset{},
		&model.Input{},
		&model.InputTag{},
		&model.RegisteredModel{},
		&model.RegisteredModelTag{},
		&model.RegisteredModelAlias{},
		&model.ModelVersion{},
		&model.ModelVersionTag{},
		&model.AlembicVersion{},
	)
}

// SchemaVersion returns the raw schema-revision marker. The value is
// opaque to the store.
func (s *Store) SchemaVersion() (string, *contract.Error) {
	var version model.AlembicVersion
	if err := s.db.First(&version).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", contract.NewError(
				contract.ErrorCodeResourceDoesNotExist,
				"no schema version marker present",
			)
		}

		return "", contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			"failed to read schema version marker",
			err,
		)
	}

	return version.VersionNum, nil
}

// validateInput rejects malformed input structs at the API boundary.
func (s *Store) validateInput(input any) *contract.Error {
	if err := s.validate.Struct(input); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return contract.NewError(
				contract.ErrorCodeInvalidParameterValue,
				validationErrors.Error(),
			)
		}

		return contract.NewErrorWith(contract.ErrorCodeInternalError, "validation failed", err)
	}

	return nil
}
