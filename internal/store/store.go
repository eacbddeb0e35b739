package store

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ErrNotFound is returned for lookups that match no row.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *gorm.DB
}

func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	for _, model := range []interface{}{&Upload{}, &Alert{}, &Preset{}} {
		if err := db.AutoMigrate(model); err != nil {
			log.Printf("[Store] migration warning (%T): %v", model, err)
		}
	}
	return &Store{db: db}, nil
}

// CreateUpload inserts the record and fills in its assigned id.
func (s *Store) CreateUpload(u *Upload) error {
	if err := s.db.Create(u).Error; err != nil {
		return fmt.Errorf("insert upload: %w", err)
	}
	return nil
}

// MarkFinished flips finished to true and reports how many rows the
// update touched. Zero rows means the record vanished underneath us.
func (s *Store) MarkFinished(id uint) (int64, error) {
	res := s.db.Model(&Upload{}).Where("id = ?", id).Update("finished", true)
	if res.Error != nil {
		return 0, fmt.Errorf("finish upload %d: %w", id, res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store) UploadByID(id uint) (*Upload, error) {
	var u Upload
	if err := s.db.First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) CreateAlert(a *Alert) error {
	if err := s.db.Create(a).Error; err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *Store) PresetByID(id uint) (*Preset, error) {
	var p Preset
	if err := s.db.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
