package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/quickdesk/helpdesk-service/internal/config"
	"github.com/quickdesk/helpdesk-service/internal/domain"
	"github.com/quickdesk/helpdesk-service/internal/persistence"
	"github.com/quickdesk/helpdesk-service/internal/repository"
	apperrors "github.com/quickdesk/helpdesk-service/pkg/util/errorutil"
)

// CategoryRef names a category either by id or by name. Making the two
// forms explicit keeps the create/update/list paths on one resolver.
type CategoryRef struct {
	id   string
	name string
}

// CategoryByID references a category by identifier.
func CategoryByID(id string) CategoryRef {
	return CategoryRef{id: id}
}

// CategoryByName references a category by case-insensitive name.
func CategoryByName(name string) CategoryRef {
	return CategoryRef{name: strings.TrimSpace(name)}
}

// ParseCategoryRef classifies raw client input: syntactically valid UUIDs
// resolve by id, anything else by name.
func ParseCategoryRef(input string) CategoryRef {
	input = strings.TrimSpace(input)
	if _, err := uuid.Parse(input); err == nil {
		return CategoryByID(input)
	}
	return CategoryByName(input)
}

// IsZero reports whether the ref carries no input at all.
func (r CategoryRef) IsZero() bool {
	return r.id == "" && r.name == ""
}

// CategoryResolver resolves category references for the workflow engine.
type CategoryResolver interface {
	Resolve(ctx context.Context, ref CategoryRef) (*domain.Category, error)
}

// CategoryService is the category directory: bootstrap seeding, lookup
// and listing, with a redis cache in front of the store.
type CategoryService struct {
	categories repository.CategoryRepository
	cache      *persistence.Redis
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// NewCategoryService constructs the service. cache may be nil.
func NewCategoryService(categories repository.CategoryRepository, cache *persistence.Redis, cacheTTL time.Duration, logger *zap.Logger) *CategoryService {
	return &CategoryService{
		categories: categories,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

// Seed creates any missing categories from the configured list. Safe to
// run on every deployment; existing categories are left untouched.
func (s *CategoryService) Seed(ctx context.Context, seed []config.CategorySeed) error {
	created := 0
	for _, entry := range seed {
		_, err := s.categories.GetByName(ctx, entry.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		category := &domain.Category{
			Name:        entry.Name,
			Description: entry.Description,
			Color:       entry.Color,
		}
		if err := s.categories.Create(ctx, category); err != nil {
			return err
		}
		created++
	}
	if created > 0 {
		s.invalidateListCache(ctx)
		s.logger.Info("seeded categories", zap.Int("created", created))
	}
	return nil
}

// Resolve maps a CategoryRef to a category, failing with a validation
// error when nothing matches.
func (s *CategoryService) Resolve(ctx context.Context, ref CategoryRef) (*domain.Category, error) {
	if ref.IsZero() {
		return nil, apperrors.NewValidationError("category is required", nil)
	}

	cacheKey := s.refCacheKey(ref)
	if cached := s.cacheGet(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	var (
		category *domain.Category
		err      error
	)
	if ref.id != "" {
		category, err = s.categories.GetByID(ctx, ref.id)
	} else {
		category, err = s.categories.GetByName(ctx, ref.name)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("invalid category", nil)
		}
		return nil, err
	}

	s.cacheSet(ctx, cacheKey, category)
	return category, nil
}

// ListActive returns all active categories, cached.
func (s *CategoryService) ListActive(ctx context.Context) ([]domain.Category, error) {
	if client := s.cache.Handle(); client != nil {
		if raw, err := client.Get(ctx, listCacheKey).Bytes(); err == nil {
			var categories []domain.Category
			if json.Unmarshal(raw, &categories) == nil {
				return categories, nil
			}
		}
	}

	categories, err := s.categories.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	if client := s.cache.Handle(); client != nil {
		if raw, err := json.Marshal(categories); err == nil {
			_ = client.Set(ctx, listCacheKey, raw, s.cacheTTL).Err()
		}
	}
	return categories, nil
}

const listCacheKey = "helpdesk:categories:active"

func (s *CategoryService) refCacheKey(ref CategoryRef) string {
	if ref.id != "" {
		return "helpdesk:category:id:" + ref.id
	}
	return "helpdesk:category:name:" + strings.ToLower(ref.name)
}

func (s *CategoryService) cacheGet(ctx context.Context, key string) *domain.Category {
	client := s.cache.Handle()
	if client == nil {
		return nil
	}
	raw, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var category domain.Category
	if err := json.Unmarshal(raw, &category); err != nil {
		return nil
	}
	return &category
}

func (s *CategoryService) cacheSet(ctx context.Context, key string, category *domain.Category) {
	client := s.cache.Handle()
	if client == nil {
		return
	}
	raw, err := json.Marshal(category)
	if err != nil {
		return
	}
	// cache errors only cost a future cache miss
	_ = client.Set(ctx, key, raw, s.cacheTTL).Err()
}

func (s *CategoryService) invalidateListCache(ctx context.Context) {
	if client := s.cache.Handle(); client != nil {
		_ = client.Del(ctx, listCacheKey).Err()
	}
}
