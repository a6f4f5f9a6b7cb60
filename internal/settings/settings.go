// Package settings owns the runtime configuration blob stored under the
// "app_config" key. It is read once at start, seeded with defaults when
// missing, and handed to consumers as an immutable *AppConfig.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"estekhdam/pkg/platform/sentinel"
)

// Key is the settings row holding AppConfig.
const Key = "app_config"

// Constants are the allowance figures used by payroll when issuing a decree.
type Constants struct {
	BaseYearlyUnit    int64 `json:"base_yearly_unit"`
	HousingAllowance  int64 `json:"housing_allowance"`
	FoodAllowance     int64 `json:"food_allowance"`
	PerChildAllowance int64 `json:"per_child_allowance"`
	MaritalAllowance  int64 `json:"marital_allowance"`
}

// DocumentLimit bounds one upload type.
type DocumentLimit struct {
	MaxMB int      `json:"max_mb"`
	Types []string `json:"types"`
}

func (l DocumentLimit) MaxBytes() int64 {
	return int64(l.MaxMB) << 20
}

type AppConfig struct {
	Constants      Constants                `json:"constants"`
	DocumentLimits map[string]DocumentLimit `json:"document_limits"`
}

// VideoKYCType is the document_limits entry governing video submissions.
const VideoKYCType = "video_kyc"

// Defaults returns the configuration seeded on first start.
func Defaults() AppConfig {
	images := []string{"pdf", "jpg", "png"}
	return AppConfig{
		Constants: Constants{
			BaseYearlyUnit:    2100000,
			HousingAllowance:  9000000,
			FoodAllowance:     14000000,
			PerChildAllowance: 7166184,
			MaritalAllowance:  5000000,
		},
		DocumentLimits: map[string]DocumentLimit{
			"birth_cert":     {MaxMB: 5, Types: images},
			"national_card":  {MaxMB: 5, Types: []string{"jpg", "png"}},
			"spouse_id":      {MaxMB: 5, Types: images},
			"child_id":       {MaxMB: 5, Types: images},
			"education_last": {MaxMB: 10, Types: []string{"pdf"}},
			"bank":           {MaxMB: 10, Types: images},
			"insurance":      {MaxMB: 10, Types: images},
			"military":       {MaxMB: 10, Types: images},
			"property_lease": {MaxMB: 20, Types: images},
			"utility_bill":   {MaxMB: 20, Types: images},
			VideoKYCType:     {MaxMB: 250, Types: []string{"mp4"}},
		},
	}
}

//go:generate mockgen -source=settings.go -destination=mocks/mocks.go -package=mocks Store

// Store reads and writes raw JSON settings rows.
type Store interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	// InsertIfAbsent writes value unless the key exists. It reports whether it wrote.
	InsertIfAbsent(ctx context.Context, key string, value json.RawMessage) (bool, error)
}

// Load reads AppConfig, seeding Defaults when the row is absent.
func Load(ctx context.Context, store Store) (*AppConfig, error) {
	raw, err := store.Get(ctx, Key)
	if errors.Is(err, sentinel.ErrNotFound) {
		defaults := Defaults()
		encoded, err := json.Marshal(defaults)
		if err != nil {
			return nil, fmt.Errorf("encode default settings: %w", err)
		}
		if _, err := store.InsertIfAbsent(ctx, Key, encoded); err != nil {
			return nil, fmt.Errorf("seed settings: %w", err)
		}
		// Another process may have seeded first; read back the winner.
		raw, err = store.Get(ctx, Key)
		if err != nil {
			return nil, fmt.Errorf("read seeded settings: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg AppConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if cfg.DocumentLimits == nil {
		cfg.DocumentLimits = map[string]DocumentLimit{}
	}
	return &cfg, nil
}

// Limit returns the upload limit for a document type.
func (c *AppConfig) Limit(docType string) (DocumentLimit, bool) {
	l, ok := c.DocumentLimits[docType]
	return l, ok
}

// DocumentTypes lists configured upload types, excluding video, sorted.
func (c *AppConfig) DocumentTypes() []string {
	out := make([]string, 0, len(c.DocumentLimits))
	for t := range c.DocumentLimits {
		if t != VideoKYCType {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return out
}

// Allows checks filename extension and size against the limit for docType.
func (c *AppConfig) Allows(docType, filename string, size int64) error {
	limit, ok := c.Limit(docType)
	if !ok {
		return fmt.Errorf("unknown document type %q", docType)
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "jpeg" {
		ext = "jpg"
	}
	if !slices.Contains(limit.Types, ext) {
		return fmt.Errorf("file type %q not allowed, expected one of %s", ext, strings.Join(limit.Types, ", "))
	}
	if size <= 0 {
		return errors.New("file is empty")
	}
	if size > limit.MaxBytes() {
		return fmt.Errorf("file exceeds %d MB", limit.MaxMB)
	}
	return nil
}
