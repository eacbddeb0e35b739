package services

import (
	"errors"

	"github.com/lillie/clipd/internal/config"
	"github.com/lillie/clipd/internal/media"
	"github.com/lillie/clipd/internal/store"
)

// PresetSource is the slice of the store the resolver needs.
type PresetSource interface {
	PresetByID(id uint) (*store.Preset, error)
}

// ResolvedConfig is the per-job configuration: an optional crop and an
// optional display tag.
type ResolvedConfig struct {
	Crop *media.Crop
	Tag  string
}

// ResolvePreset resolves the named preset, or the environment defaults
// when no id is given. An unknown id is a validation failure; it must
// reject the request before any durable state exists.
func ResolvePreset(src PresetSource, id *uint) (ResolvedConfig, error) {
	if id == nil {
		resolved := ResolvedConfig{}
		if config.CropEnabled {
			resolved.Crop = &media.Crop{
				Width:       config.CropWidth,
				Height:      config.CropHeight,
				SourceWidth: config.CropSourceWidth,
			}
		}
		return resolved, nil
	}

	p, err := src.PresetByID(*id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ResolvedConfig{}, errOf(KindValidation, "unknown config %d", *id)
		}
		return ResolvedConfig{}, errOf(KindPersistence, "load config %d: %w", *id, err)
	}

	resolved := ResolvedConfig{}
	if p.DisplayName != nil {
		resolved.Tag = *p.DisplayName
	}
	if p.CropWidth != nil && p.CropHeight != nil && p.CropSourceWidth != nil {
		resolved.Crop = &media.Crop{
			Width:       *p.CropWidth,
			Height:      *p.CropHeight,
			SourceWidth: *p.CropSourceWidth,
		}
	}
	return resolved, nil
}
