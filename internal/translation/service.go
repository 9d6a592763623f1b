package translation

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wichananm65/storefront-backend/internal/cache"
)

const CacheTag = "translations"

type Service struct {
	repo          Repository
	cache         cache.Store
	ttl           time.Duration
	defaultLocale string
	log           *zap.Logger
	now           func() time.Time
}

func NewService(repo Repository, store cache.Store, ttl time.Duration, defaultLocale string, log *zap.Logger) *Service {
	if store == nil {
		store = cache.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, cache: store, ttl: ttl, defaultLocale: defaultLocale, log: log, now: time.Now}
}

func (s *Service) List(ctx context.Context, f Filter) ([]Translation, error) {
	return s.repo.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, id string) (Translation, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) build(in Input) Translation {
	ns := strings.TrimSpace(in.Namespace)
	if ns == "" {
		ns = DefaultNamespace
	}
	return Translation{
		Locale:    in.Locale,
		Namespace: ns,
		Key:       strings.TrimSpace(in.Key),
		Value:     in.Value,
		UpdatedAt: s.now().UTC(),
	}
}

func (s *Service) Create(ctx context.Context, in Input) (Translation, error) {
	t, err := s.repo.Create(ctx, s.build(in))
	if err != nil {
		return Translation{}, err
	}
	s.revalidate(ctx)
	return t, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (Translation, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return Translation{}, err
	}
	t := s.build(in)
	t.ID = id
	t, err := s.repo.Update(ctx, t)
	if err != nil {
		return Translation{}, err
	}
	s.revalidate(ctx)
	return t, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.revalidate(ctx)
	return nil
}

// Dictionary returns key → value for the namespace. Keys missing in locale fall back
// to the default locale.
func (s *Service) Dictionary(ctx context.Context, locale, namespace string) (map[string]string, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	key := "translations:" + locale + ":" + namespace
	return cache.Remember(ctx, s.cache, key, s.ttl, []string{CacheTag}, func() (map[string]string, error) {
		out := make(map[string]string)
		if locale != s.defaultLocale && s.defaultLocale != "" {
			base, err := s.repo.List(ctx, Filter{Locale: s.defaultLocale, Namespace: namespace})
			if err != nil {
				return nil, err
			}
			for _, t := range base {
				out[t.Key] = t.Value
			}
		}
		items, err := s.repo.List(ctx, Filter{Locale: locale, Namespace: namespace})
		if err != nil {
			return nil, err
		}
		for _, t := range items {
			out[t.Key] = t.Value
		}
		return out, nil
	})
}

// Import upserts every leaf of a YAML document. Nested mappings become dotted keys and
// list items are keyed by index.
func (s *Service) Import(ctx context.Context, locale, namespace string, data []byte) (int, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	flat := make(map[string]string)
	flatten("", doc, flat)

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	now := s.now().UTC()
	for _, k := range keys {
		t := Translation{Locale: locale, Namespace: namespace, Key: k, Value: flat[k], UpdatedAt: now}
		if err := s.repo.Upsert(ctx, t); err != nil {
			return 0, fmt.Errorf("import %s: %w", k, err)
		}
	}
	if len(keys) > 0 {
		s.revalidate(ctx)
	}
	s.log.Info("translations imported", zap.String("locale", locale), zap.String("namespace", namespace), zap.Int("count", len(keys)))
	return len(keys), nil
}

func flatten(prefix string, v any, out map[string]string) {
	join := func(k string) string {
		if prefix == "" {
			return k
		}
		return prefix + "." + k
	}
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			flatten(join(k), child, out)
		}
	case map[any]any:
		for k, child := range t {
			flatten(join(fmt.Sprint(k)), child, out)
		}
	case []any:
		for i, child := range t {
			flatten(join(strconv.Itoa(i)), child, out)
		}
	case nil:
		if prefix != "" {
			out[prefix] = ""
		}
	default:
		if prefix != "" {
			out[prefix] = fmt.Sprint(t)
		}
	}
}

func (s *Service) revalidate(ctx context.Context) {
	if err := s.cache.Revalidate(ctx, CacheTag); err != nil {
		s.log.Warn("translation cache revalidation failed", zap.Error(err))
	}
}
