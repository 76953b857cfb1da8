// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/rovshanmuradov/whirlpool-positions/internal/domain"
	"github.com/rovshanmuradov/whirlpool-positions/internal/position"
	"github.com/rovshanmuradov/whirlpool-positions/internal/reward"
	"github.com/rovshanmuradov/whirlpool-positions/internal/storage"
	"github.com/rovshanmuradov/whirlpool-positions/internal/storage/models"
)

// gormLogger routes GORM logging to zap.
type gormLogger struct {
	zapLogger *zap.Logger
	logLevel  logger.LogLevel
}

func newGormLogger(zapLogger *zap.Logger) logger.Interface {
	return &gormLogger{
		zapLogger: zapLogger,
		logLevel:  logger.Warn,
	}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.logLevel = level
	return &newLogger
}

func (l *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Info {
		l.zapLogger.Sugar().Infof(msg, data...)
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Warn {
		l.zapLogger.Sugar().Warnf(msg, data...)
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Error {
		l.zapLogger.Sugar().Errorf(msg, data...)
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
	}

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		l.zapLogger.Error("trace", append(fields, zap.Error(err))...)
		return
	}

	if l.logLevel >= logger.Info {
		l.zapLogger.Info("trace", fields...)
	}
}

// migrationLock is the advisory lock key guarding AutoMigrate.
const migrationLock = 101

// Options tunes the connection pool.
type Options struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DefaultOptions returns the pool settings used when none are configured.
func DefaultOptions() Options {
	return Options{MaxIdleConns: 10, MaxOpenConns: 100, ConnMaxLifetime: time.Hour}
}

// postgresStorage implements storage.Storage on top of GORM.
type postgresStorage struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewStorage(dsn string, opts Options, zapLogger *zap.Logger) (storage.Storage, error) {
	gormLogger := newGormLogger(zapLogger.Named("gorm"))

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)

	return &postgresStorage{
		db:     db,
		logger: zapLogger.Named("postgres"),
	}, nil
}

func (p *postgresStorage) RunMigrations() error {
	var lockObtained bool
	err := p.db.Raw("SELECT pg_try_advisory_lock(?)", migrationLock).Scan(&lockObtained).Error
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !lockObtained {
		return fmt.Errorf("another migration is in progress")
	}
	defer p.db.Exec("SELECT pg_advisory_unlock(?)", migrationLock)

	err = p.db.AutoMigrate(
		&models.Pool{},
		&models.RewardSlot{},
		&models.TeardownIntent{},
		&models.TeardownStep{},
		&models.Transaction{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	p.logger.Info("migrations applied")
	return nil
}

func (p *postgresStorage) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (p *postgresStorage) GetPool(ctx context.Context, address solana.PublicKey) (*reward.Pool, error) {
	var m models.Pool
	err := p.db.WithContext(ctx).
		Preload("Slots", func(db *gorm.DB) *gorm.DB { return db.Order("slot_index") }).
		Where("address = ?", address.String()).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", reward.ErrPoolNotFound, address)
	}
	if err != nil {
		return nil, err
	}
	return m.ToPool()
}

// SavePool upserts the pool row and all of its slots in one transaction.
func (p *postgresStorage) SavePool(ctx context.Context, pool *reward.Pool) error {
	m := models.FromPool(pool)
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			DoUpdates: clause.AssignmentColumns([]string{"config", "updated_at"}),
		}).Omit("Slots").Create(m).Error
		if err != nil {
			return fmt.Errorf("save pool %s: %w", m.Address, err)
		}
		for i := range m.Slots {
			// a bound slot only accepts writes that keep its mint and vault
			res := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "pool_address"}, {Name: "slot_index"}},
				Where: clause.Where{Exprs: []clause.Expression{clause.Expr{
					SQL: "reward_slots.mint IS NULL OR reward_slots.mint = '' OR " +
						"(reward_slots.mint = excluded.mint AND reward_slots.vault = excluded.vault)",
				}}},
				DoUpdates: clause.AssignmentColumns([]string{
					"mint", "vault", "authority",
					"emissions_per_second_x64", "growth_global_x64", "updated_at",
				}),
			}).Create(&m.Slots[i])
			if res.Error != nil {
				return fmt.Errorf("save pool %s slot %d: %w", m.Address, m.Slots[i].SlotIndex, res.Error)
			}
			if res.RowsAffected == 0 {
				return domain.Fail("initialize_reward", domain.ErrSlotAlreadyBound,
					fmt.Errorf("pool %s slot %d is bound", m.Address, m.Slots[i].SlotIndex))
			}
		}
		return nil
	})
}

func (p *postgresStorage) Begin(ctx context.Context, intent position.Intent) error {
	m := models.FromIntent(intent)
	return p.db.WithContext(ctx).Create(m).Error
}

// Mark records step once; repeated marks are ignored.
func (p *postgresStorage) Mark(ctx context.Context, id uuid.UUID, step position.Step) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var intent models.TeardownIntent
		err := tx.Preload("Steps").Where("intent_id = ?", id.String()).First(&intent).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", position.ErrNoIntent, id)
		}
		if err != nil {
			return err
		}

		err = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.TeardownStep{
			IntentID:   intent.IntentID,
			Step:       string(step),
			Sequence:   len(intent.Steps),
			RecordedAt: time.Now().UTC(),
		}).Error
		if err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.TeardownStep{}).Where("intent_id = ?", intent.IntentID).Count(&count).Error; err != nil {
			return err
		}
		return tx.Model(&intent).Updates(map[string]interface{}{
			"finished":   count >= int64(len(position.TeardownSteps)),
			"updated_at": time.Now().UTC(),
		}).Error
	})
}

func (p *postgresStorage) Pending(ctx context.Context, mint solana.PublicKey) (position.Intent, error) {
	var m models.TeardownIntent
	err := p.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("sequence") }).
		Where("mint = ? AND finished = ?", mint.String(), false).
		Order("created_at desc").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return position.Intent{}, position.ErrNoIntent
	}
	if err != nil {
		return position.Intent{}, err
	}
	return m.ToIntent()
}

func (p *postgresStorage) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	return p.db.WithContext(ctx).Create(tx).Error
}

func (p *postgresStorage) GetTransaction(ctx context.Context, signature string) (*models.Transaction, error) {
	var tx models.Transaction
	err := p.db.WithContext(ctx).Where("signature = ?", signature).First(&tx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (p *postgresStorage) ListTransactions(ctx context.Context, mint string, limit, offset int) ([]*models.Transaction, error) {
	var txs []*models.Transaction
	err := p.db.WithContext(ctx).
		Where("mint = ?", mint).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&txs).Error
	return txs, err
}

func (p *postgresStorage) UpdateTransactionStatus(ctx context.Context, signature, status, errorMsg string) error {
	updates := map[string]interface{}{
		"status":        status,
		"error_message": errorMsg,
	}
	if status == models.TransactionConfirmed {
		updates["confirmed_at"] = time.Now().UTC()
	}
	res := p.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("signature = ?", signature).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrTransactionNotFound
	}
	return nil
}
