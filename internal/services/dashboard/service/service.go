// Package service computes and caches dashboard statistics.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/louisbranch/baranex/internal/platform/cache"
	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/requestctx"
	"github.com/louisbranch/baranex/internal/services/auth/user"
)

// DefaultTTL is how long a stats snapshot is served from cache.
const DefaultTTL = 5 * time.Minute

// ErrNotConfigured is returned when a count source is missing.
var ErrNotConfigured = errors.New("dashboard service is not configured")

// RegistryCounter counts registry records.
type RegistryCounter interface {
	CountResidents(ctx context.Context, barangayID string) (int64, error)
	CountHouseholds(ctx context.Context, barangayID string) (int64, error)
	CountActiveOfficials(ctx context.Context, barangayID string) (int64, error)
	CountOpenIncidents(ctx context.Context, barangayID string) (int64, error)
	CountPendingDocuments(ctx context.Context, barangayID string) (int64, error)
	CountPublishedAnnouncements(ctx context.Context, barangayID string) (int64, error)
}

// EmergencyCounter counts open emergency requests.
type EmergencyCounter interface {
	CountActive(ctx context.Context, barangayID string) (int64, error)
}

// UserCounter counts registered accounts.
type UserCounter interface {
	CountUsers(ctx context.Context, barangayID string) (int64, error)
}

// CacheObserver counts cache hits and misses.
type CacheObserver interface {
	ObserveCache(hit bool)
}

// Stats is one barangay's snapshot.
type Stats struct {
	BarangayID             string    `json:"barangay_id"`
	Residents              int64     `json:"residents"`
	Households             int64     `json:"households"`
	ActiveOfficials        int64     `json:"active_officials"`
	OpenIncidents          int64     `json:"open_incidents"`
	ActiveEmergencies      int64     `json:"active_emergencies"`
	PendingDocuments       int64     `json:"pending_documents"`
	PublishedAnnouncements int64     `json:"published_announcements"`
	Users                  int64     `json:"users"`
	GeneratedAt            time.Time `json:"generated_at"`
	Cached                 bool      `json:"cached"`
}

// Config wires the count sources and cache.
type Config struct {
	Registry      RegistryCounter
	Emergencies   EmergencyCounter
	Users         UserCounter
	Cache         cache.Cache
	CacheObserver CacheObserver
	TTL           time.Duration
	Logger        *zap.Logger
	Clock         func() time.Time
}

// Service serves dashboard statistics.
type Service struct {
	registry    RegistryCounter
	emergencies EmergencyCounter
	users       UserCounter
	cache       cache.Cache
	observer    CacheObserver
	ttl         time.Duration
	logger      *zap.Logger
	clock       func() time.Time
}

// NewService builds the dashboard service.
func NewService(cfg Config) *Service {
	s := &Service{
		registry:    cfg.Registry,
		emergencies: cfg.Emergencies,
		users:       cfg.Users,
		cache:       cfg.Cache,
		observer:    cfg.CacheObserver,
		ttl:         cfg.TTL,
		logger:      cfg.Logger,
		clock:       cfg.Clock,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	return s
}

// Stats returns the caller's barangay snapshot. Officials only; a superadmin
// may name another barangay. refresh bypasses the cache.
func (s *Service) Stats(ctx context.Context, caller requestctx.Principal, barangayID string, refresh bool) (Stats, error) {
	if s == nil || s.registry == nil || s.emergencies == nil || s.users == nil {
		return Stats{}, ErrNotConfigured
	}
	if caller.UserID == "" {
		return Stats{}, apperrors.New(apperrors.CodeUnauthenticated, "authentication required")
	}
	if !user.Role(caller.Role).AtLeast(user.RoleOfficial) {
		return Stats{}, apperrors.PermissionDenied("officials only")
	}
	barangayID = strings.TrimSpace(barangayID)
	if barangayID == "" || user.Role(caller.Role) != user.RoleSuperadmin {
		barangayID = caller.BarangayID
	}
	key := "dashboard:stats:" + barangayID

	if !refresh && s.cache != nil {
		var cached Stats
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("read stats cache", zap.String("barangay_id", barangayID), zap.Error(err))
		}
		s.observe(hit && err == nil)
		if hit && err == nil {
			cached.Cached = true
			return cached, nil
		}
	}

	stats, err := s.compute(ctx, barangayID)
	if err != nil {
		return Stats{}, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, stats, s.ttl); err != nil {
			s.logger.Warn("write stats cache", zap.String("barangay_id", barangayID), zap.Error(err))
		}
	}
	return stats, nil
}

func (s *Service) compute(ctx context.Context, barangayID string) (Stats, error) {
	stats := Stats{BarangayID: barangayID}
	counts := []struct {
		name  string
		dst   *int64
		count func(context.Context, string) (int64, error)
	}{
		{"residents", &stats.Residents, s.registry.CountResidents},
		{"households", &stats.Households, s.registry.CountHouseholds},
		{"officials", &stats.ActiveOfficials, s.registry.CountActiveOfficials},
		{"incidents", &stats.OpenIncidents, s.registry.CountOpenIncidents},
		{"emergencies", &stats.ActiveEmergencies, s.emergencies.CountActive},
		{"documents", &stats.PendingDocuments, s.registry.CountPendingDocuments},
		{"announcements", &stats.PublishedAnnouncements, s.registry.CountPublishedAnnouncements},
		{"users", &stats.Users, s.users.CountUsers},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range counts {
		g.Go(func() error {
			n, err := c.count(gctx, barangayID)
			if err != nil {
				return fmt.Errorf("count %s: %w", c.name, err)
			}
			*c.dst = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	stats.GeneratedAt = s.clock().UTC()
	return stats, nil
}

func (s *Service) observe(hit bool) {
	if s.observer != nil {
		s.observer.ObserveCache(hit)
	}
}
