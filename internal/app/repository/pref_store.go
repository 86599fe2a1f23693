package repository

import (
	"context"
	"fmt"

	"github.com/evanlinks/shortlink/internal/app/model"
)

// ThemeKey is the KV slot holding the UI theme preference.
const ThemeKey = "theme"

// PrefStore persists the single user preference kept next to the link set.
type PrefStore interface {
	Theme(ctx context.Context) (string, error)
	SetTheme(ctx context.Context, theme string) error
}

type prefStore struct {
	kv KV
}

// NewPrefStore returns a PrefStore over the shared KV.
func NewPrefStore(kv KV) PrefStore {
	return &prefStore{kv: kv}
}

func (p *prefStore) Theme(ctx context.Context) (string, error) {
	val, err := p.kv.Get(ctx, ThemeKey)
	if err != nil {
		return "", fmt.Errorf("load theme: %w", err)
	}
	if val != model.ThemeDark {
		// Anything unset or unrecognized reads back as the default.
		return model.ThemeLight, nil
	}
	return val, nil
}

func (p *prefStore) SetTheme(ctx context.Context, theme string) error {
	if theme != model.ThemeLight && theme != model.ThemeDark {
		return fmt.Errorf("unknown theme %q", theme)
	}
	if err := p.kv.Set(ctx, ThemeKey, theme); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}
