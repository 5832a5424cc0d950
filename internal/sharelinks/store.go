package sharelinks

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/angelmondragon/sharecart-backend/pkg/config"
	"github.com/angelmondragon/sharecart-backend/pkg/db"
	"github.com/angelmondragon/sharecart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sharecart-backend/pkg/errors"
	"github.com/angelmondragon/sharecart-backend/pkg/types"
)

const (
	// MaxReferrerNameLength bounds the display name stored on a link.
	MaxReferrerNameLength = 100
	// NotFoundMessage is shown for every key that cannot be resolved.
	NotFoundMessage = "This cart link is invalid or has expired."

	maxKeyAttempts = 5
)

var keyPattern = regexp.MustCompile(`^[a-f0-9-]{36}$`)

// CreateInput carries everything needed to persist a new share link.
type CreateInput struct {
	Snapshot       types.CartSnapshot
	ReferrerName   string
	ReferrerUserID *string
	Note           *string
	TTL            time.Duration
}

// Store manages the share link table.
type Store interface {
	Create(ctx context.Context, input CreateInput, now time.Time) (*models.ShareLink, error)
	FindLive(ctx context.Context, key string, now time.Time) (*models.ShareLink, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type store struct {
	repo   Repository
	newKey func() string
}

// NewStore builds a share link store.
func NewStore(repo Repository) (Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("share link repository required")
	}
	return &store{repo: repo, newKey: uuid.NewString}, nil
}

// ValidKey reports whether key has the shape of an issued share key.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

// NotFound returns the error used for unknown, malformed and expired keys.
func NotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, NotFoundMessage)
}

func (s *store) Create(ctx context.Context, input CreateInput, now time.Time) (*models.ShareLink, error) {
	name := strings.TrimSpace(input.ReferrerName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "referrer name is required").
			WithDetails(map[string]any{"field": "referrer_name"})
	}
	if utf8.RuneCountInString(name) > MaxReferrerNameLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("referrer name must be at most %d characters", MaxReferrerNameLength)).
			WithDetails(map[string]any{"field": "referrer_name"})
	}
	if len(input.Snapshot) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "your cart is empty")
	}

	ttl := input.TTL
	if ttl <= 0 {
		ttl = time.Duration(config.DefaultLinkTTLDays) * 24 * time.Hour
	}
	createdAt := now.UTC()

	var lastErr error
	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		link := &models.ShareLink{
			ShareKey:       s.newKey(),
			CartSnapshot:   input.Snapshot.Clone(),
			ReferrerName:   name,
			ReferrerUserID: input.ReferrerUserID,
			Note:           normalizeNote(input.Note),
			CreatedAt:      createdAt,
			ExpiresAt:      createdAt.Add(ttl),
		}
		err := s.repo.Create(ctx, link)
		if err == nil {
			return link, nil
		}
		if !db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not save share link")
		}
		lastErr = err
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, lastErr, "could not allocate a unique share key")
}

func (s *store) FindLive(ctx context.Context, key string, now time.Time) (*models.ShareLink, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if !ValidKey(key) {
		return nil, NotFound()
	}
	link, err := s.repo.FindLiveByKey(ctx, key, now.UTC())
	if err != nil {
		if db.IsNotFound(err) {
			return nil, NotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not load share link")
	}
	if !link.IsLive(now) {
		return nil, NotFound()
	}
	return link, nil
}

func (s *store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	deleted, err := s.repo.DeleteExpired(ctx, now.UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not delete expired share links")
	}
	return deleted, nil
}

func normalizeNote(note *string) *string {
	if note == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*note)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// IsNotFound reports whether err is the share link not-found error.
func IsNotFound(err error) bool {
	return pkgerrors.HasCode(err, pkgerrors.CodeNotFound)
}
