package alertRepository

import (
	"time"

	"MineGuard/internal/entity"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

func New(db *sqlx.DB, log *logrus.Logger) Repository {
	return &repository{
		DB:  db,
		log: log,
	}
}

type repository struct {
	DB  *sqlx.DB
	log *logrus.Logger
}

type Repository interface {
	NewClient(tx bool) (Client, error)
}

func (r *repository) NewClient(tx bool) (Client, error) {
	var db sqlx.ExtContext
	var commitFunc, rollbackFunc func() error

	db = r.DB

	if tx {
		var err error
		txx, err := r.DB.Beginx()
		if err != nil {
			return Client{}, err
		}

		db = txx
		commitFunc = txx.Commit
		rollbackFunc = txx.Rollback
	} else {
		commitFunc = func() error { return nil }
		rollbackFunc = func() error { return nil }
	}

	return Client{
		Alerts:   &alertRepository{q: db, log: r.log},
		Commit:   commitFunc,
		Rollback: rollbackFunc,
	}, nil
}

type Client struct {
	Alerts interface {
		CreateAlert(ctx context.Context, alert entity.Alert) error
		GetByID(ctx context.Context, id string) (entity.Alert, error)
		MarkEmailSent(ctx context.Context, id string, at time.Time) (bool, error)
		AcknowledgeAlert(ctx context.Context, id string, at time.Time) (bool, error)
		ListAlerts(ctx context.Context, acknowledged, severity string, limit, offset int) ([]entity.Alert, error)
		CountAlerts(ctx context.Context, acknowledged, severity string) (int64, error)
		GetStats(ctx context.Context) (entity.AlertStats, error)
		ListUnsentCritical(ctx context.Context, limit int) ([]entity.Alert, error)
		ListUnalertedViolations(ctx context.Context, threshold float64, limit int) ([]entity.Detection, error)
	}

	Commit   func() error
	Rollback func() error
}

type alertRepository struct {
	q   sqlx.ExtContext
	log *logrus.Logger
}
