package logrecord

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	CreateLog(ctx context.Context, rec *LogRecord) error
	GetLog(ctx context.Context, id string) (*LogRecord, error)
	LogExists(ctx context.Context, id string) (bool, error)
	DeleteLog(ctx context.Context, id string) error
	ListPublicLogs(ctx context.Context, limit, offset int) ([]*LogRecord, error)
	CountLogs(ctx context.Context) (int64, error)

	UpsertVehicle(ctx context.Context, v *VehicleRecord) error
	GetVehicle(ctx context.Context, uuid string) (*VehicleRecord, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateLog(ctx context.Context, rec *LogRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *repository) GetLog(ctx context.Context, id string) (*LogRecord, error) {
	var rec LogRecord
	err := r.db.WithContext(ctx).Where("Id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLogNotFound
	}
	return &rec, err
}

func (r *repository) LogExists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&LogRecord{}).Where("Id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *repository) DeleteLog(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("Id = ?", id).Delete(&LogRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrLogNotFound
	}
	return nil
}

func (r *repository) ListPublicLogs(ctx context.Context, limit, offset int) ([]*LogRecord, error) {
	var recs []*LogRecord
	q := r.db.WithContext(ctx).Where("Public = ?", 1).Order("Date DESC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&recs).Error
	return recs, err
}

func (r *repository) CountLogs(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&LogRecord{}).Count(&count).Error
	return count, err
}

// UpsertVehicle replaces the vehicle row wholesale, matching the
// insert-or-replace semantics the schema was designed around.
func (r *repository) UpsertVehicle(ctx context.Context, v *VehicleRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "UUID"}},
		UpdateAll: true,
	}).Create(v).Error
}

func (r *repository) GetVehicle(ctx context.Context, uuid string) (*VehicleRecord, error) {
	var v VehicleRecord
	err := r.db.WithContext(ctx).Where("UUID = ?", uuid).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVehicleNotFound
	}
	return &v, err
}
