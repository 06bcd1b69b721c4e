// Package seed loads the reference catalog (brokers, plans, predefined
// strategies and education modules) into the database. Applying a catalog
// twice leaves the database unchanged.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/andrewpaige1/stratdesk-api/models"
	"github.com/andrewpaige1/stratdesk-api/wizard"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Plan struct {
	Code           string          `yaml:"code"`
	Name           string          `yaml:"name"`
	Price          decimal.Decimal `yaml:"price"`
	Currency       string          `yaml:"currency"`
	IntervalMonths int             `yaml:"interval_months"`
	Features       []string        `yaml:"features"`
}

type Strategy struct {
	Basics     wizard.Basics   `yaml:"basics"`
	Legs       []wizard.Leg    `yaml:"legs"`
	Risk       wizard.Risk     `yaml:"risk"`
	IsPremium  bool            `yaml:"is_premium"`
	MinCapital decimal.Decimal `yaml:"min_capital"`
}

type Answer struct {
	Text      string `yaml:"text"`
	IsCorrect bool   `yaml:"is_correct"`
}

type Question struct {
	Prompt      string   `yaml:"prompt"`
	Explanation string   `yaml:"explanation"`
	Answers     []Answer `yaml:"answers"`
}

type Content struct {
	Title           string `yaml:"title"`
	ContentType     string `yaml:"content_type"`
	URL             string `yaml:"url"`
	Body            string `yaml:"body"`
	DurationMinutes int    `yaml:"duration_minutes"`
}

type Module struct {
	Title       string     `yaml:"title"`
	Description string     `yaml:"description"`
	OrderIndex  int        `yaml:"order_index"`
	PassPercent int        `yaml:"pass_percent"`
	Published   bool       `yaml:"published"`
	Contents    []Content  `yaml:"contents"`
	Questions   []Question `yaml:"questions"`
}

type Catalog struct {
	Brokers    []models.Broker `yaml:"brokers"`
	Plans      []Plan          `yaml:"plans"`
	Strategies []Strategy      `yaml:"strategies"`
	Modules    []Module        `yaml:"modules"`
}

// Result counts what Apply created.
type Result struct {
	Brokers    int
	Plans      int
	Strategies int
	Modules    int
}

// Decode reads a catalog, rejecting unknown keys.
func Decode(r io.Reader) (Catalog, error) {
	var cat Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cat); err != nil {
		return cat, fmt.Errorf("seed: decode catalog: %w", err)
	}
	return cat, nil
}

// Default returns the catalog compiled into the binary.
func Default() (Catalog, error) {
	return Decode(bytes.NewReader(defaultCatalog))
}

// LoadFile reads a catalog from path, or the default catalog when path is
// empty.
func LoadFile(path string) (Catalog, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("seed: open catalog: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Validate checks every entry before anything is written.
func (c Catalog) Validate() error {
	for i, p := range c.Plans {
		if err := p.model().Validate(); err != nil {
			return fmt.Errorf("seed: plans[%d] %q: %w", i, p.Code, err)
		}
	}
	for i, s := range c.Strategies {
		if _, err := wizard.Build(s.Basics, s.Legs, s.Risk); err != nil {
			return fmt.Errorf("seed: strategies[%d] %q: %w", i, s.Basics.Name, err)
		}
	}
	for i, m := range c.Modules {
		if _, err := m.model(); err != nil {
			return fmt.Errorf("seed: modules[%d] %q: %w", i, m.Title, err)
		}
	}
	return nil
}

func (p Plan) model() models.Plan {
	features, _ := json.Marshal(p.Features)
	currency := p.Currency
	if currency == "" {
		currency = "INR"
	}
	return models.Plan{
		Code:           p.Code,
		Name:           p.Name,
		Price:          p.Price,
		Currency:       currency,
		IntervalMonths: p.IntervalMonths,
		Features:       datatypes.JSON(features),
		IsActive:       true,
	}
}

// model builds the module tree with fresh public ids and validates it.
func (m Module) model() (models.Module, error) {
	mod := models.Module{
		PublicID:    gonanoid.Must(),
		Title:       m.Title,
		Description: m.Description,
		OrderIndex:  m.OrderIndex,
		PassPercent: m.PassPercent,
		IsPublished: m.Published,
	}
	if err := mod.Validate(); err != nil {
		return mod, err
	}
	for i, c := range m.Contents {
		item := models.ContentItem{
			PublicID:        gonanoid.Must(),
			Title:           c.Title,
			ContentType:     c.ContentType,
			URL:             c.URL,
			Body:            c.Body,
			DurationMinutes: c.DurationMinutes,
			OrderIndex:      i,
		}
		if err := item.Validate(); err != nil {
			return mod, fmt.Errorf("contents[%d]: %w", i, err)
		}
		mod.Contents = append(mod.Contents, item)
	}
	for i, q := range m.Questions {
		question := models.QuizQuestion{
			PublicID:    gonanoid.Must(),
			Prompt:      q.Prompt,
			Explanation: q.Explanation,
			OrderIndex:  i,
		}
		for j, a := range q.Answers {
			question.Answers = append(question.Answers, models.QuizAnswer{
				PublicID:   gonanoid.Must(),
				Text:       a.Text,
				IsCorrect:  a.IsCorrect,
				OrderIndex: j,
			})
		}
		if err := question.Validate(); err != nil {
			return mod, fmt.Errorf("questions[%d]: %w", i, err)
		}
		mod.Questions = append(mod.Questions, question)
	}
	return mod, nil
}

// Apply writes the catalog in one transaction. Brokers and plans are
// upserted by code. Predefined strategies are matched by name and updated in
// place. Modules are matched by title and only created when missing, so
// edits made through the API survive a reseed.
func Apply(ctx context.Context, db *gorm.DB, log *zap.Logger, cat Catalog) (Result, error) {
	var res Result
	if err := cat.Validate(); err != nil {
		return res, err
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, b := range cat.Brokers {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "code"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "requires_totp"}),
			}).Create(&b).Error; err != nil {
				return fmt.Errorf("seed: broker %q: %w", b.Code, err)
			}
			res.Brokers++
		}

		for _, p := range cat.Plans {
			plan := p.model()
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "code"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"name", "price", "currency", "interval_months", "features", "is_active", "updated_at",
				}),
			}).Create(&plan).Error; err != nil {
				return fmt.Errorf("seed: plan %q: %w", p.Code, err)
			}
			res.Plans++
		}

		for _, s := range cat.Strategies {
			created, err := applyStrategy(tx, s)
			if err != nil {
				return err
			}
			if created {
				res.Strategies++
			}
		}

		for _, m := range cat.Modules {
			var count int64
			if err := tx.Model(&models.Module{}).Where("title = ?", m.Title).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			mod, err := m.model()
			if err != nil {
				return err
			}
			if err := tx.Create(&mod).Error; err != nil {
				return fmt.Errorf("seed: module %q: %w", m.Title, err)
			}
			res.Modules++
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	log.Info("seed: catalog applied",
		zap.Int("brokers", res.Brokers),
		zap.Int("plans", res.Plans),
		zap.Int("newStrategies", res.Strategies),
		zap.Int("newModules", res.Modules))
	return res, nil
}

func applyStrategy(tx *gorm.DB, s Strategy) (bool, error) {
	draft, err := wizard.Build(s.Basics, s.Legs, s.Risk)
	if err != nil {
		return false, err
	}
	next, err := models.StrategyFromDraft(draft, models.StrategyPredefined)
	if err != nil {
		return false, err
	}
	next.IsPremium = s.IsPremium
	next.MinCapital = s.MinCapital

	var existing []models.Strategy
	if err := tx.Where("kind = ? AND name = ?", models.StrategyPredefined, next.Name).Limit(1).Find(&existing).Error; err != nil {
		return false, err
	}
	if len(existing) == 0 {
		if err := tx.Create(&next).Error; err != nil {
			return false, fmt.Errorf("seed: strategy %q: %w", next.Name, err)
		}
		return true, nil
	}

	// Leg ids are regenerated on every build; keep the stored legs when
	// nothing else about them changed.
	err = tx.Model(&existing[0]).Updates(map[string]any{
		"description": next.Description,
		"underlying":  next.Underlying,
		"entry_time":  next.EntryTime,
		"exit_time":   next.ExitTime,
		"legs":        legsOrExisting(existing[0].Legs, next.Legs),
		"risk":        next.Risk,
		"is_premium":  next.IsPremium,
		"min_capital": next.MinCapital,
	}).Error
	if err != nil {
		return false, fmt.Errorf("seed: strategy %q: %w", next.Name, err)
	}
	return false, nil
}

// legsOrExisting returns stored when it matches fresh apart from leg ids.
func legsOrExisting(stored, fresh datatypes.JSON) datatypes.JSON {
	var a, b []wizard.Leg
	if json.Unmarshal(stored, &a) != nil || json.Unmarshal(fresh, &b) != nil || len(a) != len(b) {
		return fresh
	}
	for i := range a {
		a[i].ID, b[i].ID = "", ""
		x, _ := json.Marshal(a[i])
		y, _ := json.Marshal(b[i])
		if !bytes.Equal(x, y) {
			return fresh
		}
	}
	return stored
}
