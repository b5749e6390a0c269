package secret

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"inigma/internal/domain"
	"inigma/internal/store"
	"inigma/internal/utility"
)

const permanentTTL = domain.PermanentTTL

// createIDAttempts bounds regeneration when a fresh id collides with an
// existing record. With 25 chars over a 64-char alphabet a single retry is
// already vanishingly unlikely.
const createIDAttempts = 5

// Options tune behavior that the protocol leaves to deployment.
type Options struct {
	// RequireViewerUID rejects view requests without a uid instead of
	// treating them as anonymous viewers of unclaimed secrets.
	RequireViewerUID bool
}

// Service owns the secret lifecycle: the one-way unclaimed→owned state
// machine, TTL-governed visibility and the creator/owner permission rules.
// It is stateless between requests; every piece of shared state lives in
// the Store.
type Service struct {
	store store.Store
	log   *zap.SugaredLogger
	opts  Options

	now   func() time.Time
	newID func() (string, error)
}

func NewService(st store.Store, log *zap.SugaredLogger, opts Options) *Service {
	return &Service{
		store: st,
		log:   log,
		opts:  opts,
		now:   time.Now,
		newID: func() (string, error) { return utility.RandomID(domain.IDLength) },
	}
}

// Create validates the payload, computes the absolute expiry and stores a
// fresh unclaimed record. ttlDays=0 requests permanent retention.
func (s *Service) Create(ctx context.Context, req domain.CreateReq) (string, error) {
	if err := validatePayload(req.Ciphertext, req.IV, req.Salt); err != nil {
		return "", err
	}
	if !validUID(req.CreatorUID) {
		return "", fmt.Errorf("%w: invalid creator_uid", domain.ErrInvalidInput)
	}
	ttlDays := 30
	if req.TTLDays != nil {
		ttlDays = *req.TTLDays
	}
	if ttlDays < 0 || ttlDays > domain.MaxTTLDays {
		return "", fmt.Errorf("%w: ttl must be between 0 and %d days", domain.ErrInvalidInput, domain.MaxTTLDays)
	}
	label, err := sanitizeLabel(req.Label)
	if err != nil {
		return "", err
	}

	now := s.now().Unix()
	ttl := int64(permanentTTL)
	if ttlDays != 0 {
		ttl = now + int64(ttlDays)*86400
	}
	if ttl != permanentTTL && ttl <= now {
		return "", fmt.Errorf("%w: ttl cannot be in the past", domain.ErrInvalidInput)
	}

	id, err := s.freshID(ctx)
	if err != nil {
		return "", err
	}

	rec := domain.Secret{
		ID:         id,
		Ciphertext: req.Ciphertext,
		IV:         req.IV,
		Salt:       req.Salt,
		TTL:        ttl,
		OwnerID:    "",
		CreatorID:  req.CreatorUID,
		Label:      label,
		CreatedAt:  now,
	}
	if err := s.store.Put(ctx, rec); err != nil {
		return "", fmt.Errorf("storing secret: %w", err)
	}
	return id, nil
}

// freshID draws random identifiers until one is unused. Ids are never
// reused; a collision with a live record just means another draw.
func (s *Service) freshID(ctx context.Context) (string, error) {
	for i := 0; i < createIDAttempts; i++ {
		id, err := s.newID()
		if err != nil {
			return "", fmt.Errorf("generating id: %w", err)
		}
		_, err = s.store.Get(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return id, nil
		}
		if err != nil {
			return "", fmt.Errorf("checking id uniqueness: %w", err)
		}
	}
	return "", errors.New("could not generate an unused id")
}

// View returns the payload of a live secret the requester may see. Expired
// records are lazily deleted and reported as absent, indistinguishable from
// never-existed.
func (s *Service) View(ctx context.Context, id, uid string) (domain.ViewRes, error) {
	if !validID(id) {
		return domain.ViewRes{}, fmt.Errorf("%w: invalid view parameter", domain.ErrInvalidInput)
	}
	if err := s.checkViewerUID(uid); err != nil {
		return domain.ViewRes{}, err
	}

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ViewRes{}, domain.ErrNotFound
		}
		return domain.ViewRes{}, fmt.Errorf("fetching secret: %w", err)
	}

	if rec.Expired(s.now().Unix()) {
		s.lazyDelete(ctx, id)
		return domain.ViewRes{}, domain.ErrNotFound
	}

	if !rec.Unclaimed() && rec.OwnerID != uid {
		return domain.ViewRes{}, domain.ErrForbidden
	}

	return domain.ViewRes{
		Ciphertext: rec.Ciphertext,
		IV:         rec.IV,
		Salt:       rec.Salt,
		Label:      rec.Label,
		IsOwner:    !rec.Unclaimed() && rec.OwnerID == uid,
	}, nil
}

// Claim transfers ownership of an unclaimed secret to the requester and
// replaces the payload with one re-encrypted under the claimant's own key
// material. Among concurrent claimants exactly one wins; the rest observe
// ErrConflict.
func (s *Service) Claim(ctx context.Context, req domain.ClaimReq) error {
	if !validID(req.ID) {
		return fmt.Errorf("%w: invalid view parameter", domain.ErrInvalidInput)
	}
	if !validUID(req.UID) {
		return fmt.Errorf("%w: invalid uid", domain.ErrInvalidInput)
	}
	if err := validatePayload(req.Ciphertext, req.IV, req.Salt); err != nil {
		return err
	}

	now := s.now().Unix()
	applied, err := s.store.ConditionalUpdate(ctx, req.ID,
		func(rec domain.Secret) bool { return rec.Unclaimed() && !rec.Expired(now) },
		func(rec *domain.Secret) {
			rec.OwnerID = req.UID
			rec.Ciphertext = req.Ciphertext
			rec.IV = req.IV
			rec.Salt = req.Salt
		})
	if err != nil {
		return fmt.Errorf("claiming secret: %w", err)
	}
	if applied {
		return nil
	}

	// Losing the update means absent, expired or already owned; read once
	// more to tell the caller which.
	rec, err := s.store.Get(ctx, req.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("fetching secret: %w", err)
	}
	if rec.Expired(now) {
		s.lazyDelete(ctx, req.ID)
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

// Rename sets the display name. Only the current owner may rename; an
// unclaimed secret has no owner yet, so renaming it is forbidden even for
// the creator.
func (s *Service) Rename(ctx context.Context, req domain.RenameReq) error {
	if !validID(req.ID) {
		return fmt.Errorf("%w: invalid view parameter", domain.ErrInvalidInput)
	}
	if !validUID(req.UID) {
		return fmt.Errorf("%w: invalid uid", domain.ErrInvalidInput)
	}
	label, err := sanitizeLabel(req.Label)
	if err != nil {
		return err
	}

	now := s.now().Unix()
	applied, err := s.store.ConditionalUpdate(ctx, req.ID,
		func(rec domain.Secret) bool { return rec.OwnerID == req.UID && !rec.Expired(now) },
		func(rec *domain.Secret) { rec.Label = label })
	if err != nil {
		return fmt.Errorf("renaming secret: %w", err)
	}
	if applied {
		return nil
	}

	rec, err := s.store.Get(ctx, req.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("fetching secret: %w", err)
	}
	if rec.Expired(now) {
		s.lazyDelete(ctx, req.ID)
		return domain.ErrNotFound
	}
	return domain.ErrForbidden
}

// Delete removes a secret: the owner may always delete it, the creator only
// while it is still unclaimed.
func (s *Service) Delete(ctx context.Context, id, uid string) error {
	if !validID(id) {
		return fmt.Errorf("%w: invalid view parameter", domain.ErrInvalidInput)
	}
	if !validUID(uid) {
		return fmt.Errorf("%w: invalid uid", domain.ErrInvalidInput)
	}

	rec, err := s.store.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("fetching secret: %w", err)
	}
	if rec.Expired(s.now().Unix()) {
		s.lazyDelete(ctx, id)
		return domain.ErrNotFound
	}

	authorized := rec.OwnerID == uid || (rec.Unclaimed() && rec.CreatorID == uid)
	if !authorized {
		return domain.ErrForbidden
	}

	existed, err := s.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting secret: %w", err)
	}
	if !existed {
		// vanished between the read and the delete
		return domain.ErrNotFound
	}
	return nil
}

// ListOwned returns the requester's claimed secrets, newest first.
func (s *Service) ListOwned(ctx context.Context, req domain.ListReq) (domain.ListRes, error) {
	if !validUID(req.UID) {
		return domain.ListRes{}, fmt.Errorf("%w: invalid uid", domain.ErrInvalidInput)
	}
	return s.list(ctx, req, func(rec domain.Secret) bool {
		return rec.OwnerID == req.UID
	})
}

// ListPending returns secrets the requester created that nobody has claimed
// yet, newest first.
func (s *Service) ListPending(ctx context.Context, req domain.ListReq) (domain.ListRes, error) {
	if !validUID(req.UID) {
		return domain.ListRes{}, fmt.Errorf("%w: invalid uid", domain.ErrInvalidInput)
	}
	return s.list(ctx, req, func(rec domain.Secret) bool {
		return rec.CreatorID == req.UID && rec.Unclaimed()
	})
}

func (s *Service) list(ctx context.Context, req domain.ListReq, match func(domain.Secret) bool) (domain.ListRes, error) {
	now := s.now().Unix()

	var recs []domain.Secret
	err := s.store.Scan(ctx, func(rec domain.Secret) error {
		if !rec.Expired(now) && match(rec) {
			recs = append(recs, rec)
		}
		return nil
	})
	if err != nil {
		return domain.ListRes{}, fmt.Errorf("listing secrets: %w", err)
	}

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CreatedAt != recs[j].CreatedAt {
			return recs[i].CreatedAt > recs[j].CreatedAt
		}
		return recs[i].ID < recs[j].ID
	})

	page := req.Page
	if page < 1 {
		page = 1
	}
	perPage := req.PerPage
	if perPage < 1 {
		perPage = domain.DefaultPageSize
	}
	if perPage > domain.MaxPageSize {
		perPage = domain.MaxPageSize
	}

	total := len(recs)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	items := make([]domain.ListItem, 0, end-start)
	for _, rec := range recs[start:end] {
		left := timeRemaining(rec.TTL, now)
		items = append(items, domain.ListItem{
			ID:            rec.ID,
			Label:         rec.Label,
			DaysRemaining: left.value,
			Display:       left.display,
			DisplayType:   left.kind,
		})
	}

	return domain.ListRes{
		Secrets: items,
		Page:    page,
		PerPage: perPage,
		Total:   total,
		HasMore: end < total,
	}, nil
}

func (s *Service) checkViewerUID(uid string) error {
	if uid == "" {
		if s.opts.RequireViewerUID {
			return fmt.Errorf("%w: uid is required", domain.ErrInvalidInput)
		}
		return nil
	}
	if !validUID(uid) {
		return fmt.Errorf("%w: invalid uid", domain.ErrInvalidInput)
	}
	return nil
}

// lazyDelete clears an expired record as a read side effect. Failures are
// logged and otherwise ignored: the sweeper will get it.
func (s *Service) lazyDelete(ctx context.Context, id string) {
	if _, err := s.store.Delete(ctx, id); err != nil {
		s.log.Warnw("failed to delete expired secret", "id", id, "error", err)
	}
}
