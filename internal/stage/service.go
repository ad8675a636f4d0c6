package stage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("stage not found")

// Default pipeline seeded on first migrate.
var defaultPhases = []Stage{
	{Phase: "Nuevo", Description: "Lead recién cargado"},
	{Phase: "Contactado", Description: "Hubo un primer contacto"},
	{Phase: "Negociando", Description: "En negociación activa"},
	{Phase: "Vendido", Description: "Operación cerrada"},
	{Phase: "Perdido", Description: "Lead descartado"},
}

type Service struct {
	DB *gorm.DB
}

func (s *Service) List(ctx context.Context) ([]Stage, error) {
	var out []Stage
	err := s.DB.WithContext(ctx).Order("phase asc").Find(&out).Error
	return out, err
}

func (s *Service) Get(ctx context.Context, id uint64) (*Stage, error) {
	var st Stage
	if err := s.DB.WithContext(ctx).First(&st, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &st, nil
}

func (s *Service) Create(ctx context.Context, st *Stage) error {
	return s.DB.WithContext(ctx).Create(st).Error
}

func (s *Service) Update(ctx context.Context, st *Stage) error {
	res := s.DB.WithContext(ctx).Model(&Stage{}).Where("id = ?", st.ID).
		Updates(map[string]any{"phase": st.Phase, "description": st.Description})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id uint64) error {
	res := s.DB.WithContext(ctx).Delete(&Stage{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// LogTransition appends a history row when the stage actually changed.
// The same stage twice in a row must not produce a duplicate row.
func LogTransition(tx *gorm.DB, contactID uint64, oldStage, newStage *uint64, at time.Time) error {
	if newStage == nil {
		return nil
	}
	if oldStage != nil && *oldStage == *newStage {
		return nil
	}
	h := History{ContactID: contactID, StageID: *newStage, ChangedAt: at}
	return tx.Create(&h).Error
}

// Seed inserts the default pipeline phases if they are missing.
func Seed(db *gorm.DB) error {
	for _, p := range defaultPhases {
		var st Stage
		err := db.Where(Stage{Phase: p.Phase}).
			Attrs(Stage{Description: p.Description}).
			FirstOrCreate(&st).Error
		if err != nil {
			return err
		}
	}
	return nil
}
