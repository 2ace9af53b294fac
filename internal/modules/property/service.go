package property

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"villabook/internal/domain"
	"villabook/internal/repository"
)

const maxSlugAttempts = 50

type Service struct {
	properties      PropertyRepository
	users           UserRepository
	notifier        Notifier
	defaultCurrency string
	now             func() time.Time
	loggerf         func(format string, args ...interface{})
}

func NewService(properties PropertyRepository, users UserRepository, notifier Notifier, defaultCurrency string) *Service {
	if defaultCurrency == "" {
		defaultCurrency = "usd"
	}
	return &Service{
		properties:      properties,
		users:           users,
		notifier:        notifier,
		defaultCurrency: strings.ToLower(defaultCurrency),
		now:             time.Now,
		loggerf:         log.Printf,
	}
}

// List returns bookable properties only.
func (s *Service) List(ctx context.Context, q ListQuery) ([]domain.Property, int64, error) {
	return s.properties.ListBookable(ctx, repository.PropertyFilter{
		City:      q.City,
		MinGuests: q.Guests,
		Page:      q.Page,
		Limit:     q.Limit,
	})
}

// Get resolves a property by id or slug. Properties that are not bookable are
// visible to their owner and admins only.
func (s *Service) Get(ctx context.Context, actor domain.Actor, idOrSlug string) (*domain.Property, error) {
	p, err := s.resolve(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if !p.IsBookable() && !actor.Privileged() && !p.OwnedBy(actor.UserID) {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Service) ListOwn(ctx context.Context, actor domain.Actor) ([]domain.Property, error) {
	return s.properties.ListByOwner(ctx, actor.UserID)
}

func (s *Service) Create(ctx context.Context, actor domain.Actor, req CreatePropertyRequest) (*domain.Property, error) {
	rates, err := s.rateCard(req.Rates)
	if err != nil {
		return nil, err
	}
	sl, err := s.uniqueSlug(ctx, req.Title, 0)
	if err != nil {
		return nil, err
	}

	p := &domain.Property{
		OwnerID:     actor.UserID,
		Title:       strings.TrimSpace(req.Title),
		Slug:        sl,
		Description: strings.TrimSpace(req.Description),
		Address:     strings.TrimSpace(req.Address),
		City:        strings.TrimSpace(req.City),
		Country:     strings.TrimSpace(req.Country),
		MaxGuests:   req.MaxGuests,
		Bedrooms:    req.Bedrooms,
		Bathrooms:   req.Bathrooms,
		RateCard:    rates,
		Status:      domain.PropertyDraft,
		Approval:    domain.ApprovalPending,
	}
	if err := s.properties.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create property: %w", err)
	}
	s.loggerf("level=info msg=property created id=%d owner=%d slug=%s", p.ID, p.OwnerID, p.Slug)
	return p, nil
}

// Update applies the present fields. Any change sends the property back to moderation.
func (s *Service) Update(ctx context.Context, actor domain.Actor, id int64, req UpdatePropertyRequest) (*domain.Property, error) {
	p, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	changed := false
	setString := func(dst *string, v *string) {
		if v == nil {
			return
		}
		if t := strings.TrimSpace(*v); t != *dst {
			*dst = t
			changed = true
		}
	}
	setInt := func(dst *int, v *int) {
		if v != nil && *v != *dst {
			*dst = *v
			changed = true
		}
	}

	setString(&p.Title, req.Title)
	setString(&p.Description, req.Description)
	setString(&p.Address, req.Address)
	setString(&p.City, req.City)
	setString(&p.Country, req.Country)
	setInt(&p.MaxGuests, req.MaxGuests)
	setInt(&p.Bedrooms, req.Bedrooms)
	setInt(&p.Bathrooms, req.Bathrooms)
	if req.Rates != nil {
		rates, err := s.rateCard(*req.Rates)
		if err != nil {
			return nil, err
		}
		if rates != p.RateCard {
			p.RateCard = rates
			changed = true
		}
	}

	if !changed {
		return p, nil
	}
	p.Approval = domain.ApprovalPending
	p.RejectionReason = ""
	p.ApprovedAt = nil
	p.ApprovedBy = nil
	if err := s.properties.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("save property %d: %w", id, err)
	}
	s.loggerf("level=info msg=property updated id=%d approval=%s", p.ID, p.Approval)
	return p, nil
}

func (s *Service) Publish(ctx context.Context, actor domain.Actor, id int64) (*domain.Property, error) {
	return s.setStatus(ctx, actor, id, domain.PropertyPublished)
}

func (s *Service) Unpublish(ctx context.Context, actor domain.Actor, id int64) (*domain.Property, error) {
	return s.setStatus(ctx, actor, id, domain.PropertyUnpublished)
}

func (s *Service) setStatus(ctx context.Context, actor domain.Actor, id int64, status domain.PropertyStatus) (*domain.Property, error) {
	p, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if p.Status == status {
		return p, nil
	}
	p.Status = status
	if err := s.properties.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("save property %d: %w", id, err)
	}
	s.loggerf("level=info msg=property status changed id=%d status=%s", p.ID, p.Status)
	return p, nil
}

func (s *Service) ListByApproval(ctx context.Context, q ApprovalQuery) ([]domain.Property, int64, error) {
	return s.properties.ListByApproval(ctx, q.Approval, q.Page, q.Limit)
}

func (s *Service) Approve(ctx context.Context, adminID, id int64) (*domain.Property, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	p.Approval = domain.ApprovalApproved
	p.RejectionReason = ""
	p.ApprovedAt = &now
	p.ApprovedBy = &adminID
	if err := s.properties.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("approve property %d: %w", id, err)
	}
	s.loggerf("level=info msg=property approved id=%d admin=%d", p.ID, adminID)
	s.notifyOwner(ctx, p)
	return p, nil
}

func (s *Service) Reject(ctx context.Context, adminID, id int64, reason string) (*domain.Property, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Approval = domain.ApprovalRejected
	p.RejectionReason = reason
	p.ApprovedAt = nil
	p.ApprovedBy = nil
	if err := s.properties.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("reject property %d: %w", id, err)
	}
	s.loggerf("level=info msg=property rejected id=%d admin=%d", p.ID, adminID)
	s.notifyOwner(ctx, p)
	return p, nil
}

func (s *Service) notifyOwner(ctx context.Context, p *domain.Property) {
	if s.notifier == nil {
		return
	}
	owner, err := s.users.GetByID(ctx, p.OwnerID)
	if err != nil {
		s.loggerf("level=warn msg=property owner lookup failed id=%d owner=%d err=%v", p.ID, p.OwnerID, err)
		return
	}
	s.notifier.PropertyReviewed(ctx, p, owner)
}

func (s *Service) owned(ctx context.Context, actor domain.Actor, id int64) (*domain.Property, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Privileged() && !p.OwnedBy(actor.UserID) {
		return nil, ErrForbidden
	}
	return p, nil
}

func (s *Service) load(ctx context.Context, id int64) (*domain.Property, error) {
	p, err := s.properties.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *Service) resolve(ctx context.Context, idOrSlug string) (*domain.Property, error) {
	if id, err := strconv.ParseInt(idOrSlug, 10, 64); err == nil {
		return s.load(ctx, id)
	}
	p, err := s.properties.GetBySlug(ctx, idOrSlug)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return p, err
}

// uniqueSlug derives a slug from the title and appends -2, -3, ... until it is free.
func (s *Service) uniqueSlug(ctx context.Context, title string, excludeID int64) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = "property"
	}
	// A purely numeric slug would be read back as an id.
	if _, err := strconv.ParseInt(base, 10, 64); err == nil {
		base = "property-" + base
	}

	candidate := base
	for i := 2; i <= maxSlugAttempts; i++ {
		exists, err := s.properties.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return base + "-" + uuid.NewString()[:8], nil
}

func (s *Service) rateCard(in RateCardInput) (domain.RateCard, error) {
	currency := strings.ToLower(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	minNights := in.MinNights
	if minNights == 0 {
		minNights = 1
	}
	if in.NightlyRate <= 0 || in.WeekendRate < 0 || in.CleaningFee < 0 {
		return domain.RateCard{}, ErrInvalidRates
	}
	if in.WeeklyDiscountPct < 0 || in.WeeklyDiscountPct > 100 || in.MonthlyDiscountPct < 0 || in.MonthlyDiscountPct > 100 {
		return domain.RateCard{}, ErrInvalidRates
	}
	return domain.RateCard{
		Currency:           currency,
		NightlyRate:        in.NightlyRate,
		WeekendRate:        in.WeekendRate,
		WeeklyDiscountPct:  in.WeeklyDiscountPct,
		MonthlyDiscountPct: in.MonthlyDiscountPct,
		CleaningFee:        in.CleaningFee,
		MinNights:          minNights,
	}, nil
}
