package service

import (
	"context"
	"fmt"

	"courtportal/internal/domain"
)

// RegistryService covers the non-messaging portal content: guest
// registrations, notices, events, swearing-in preferences, and court
// information pages.
type RegistryService struct {
	guests    domain.GuestRepository
	notices   domain.NoticeRepository
	events    domain.EventRepository
	swearing  domain.SwearingRepository
	courtInfo domain.CourtInfoRepository
}

func NewRegistryService(
	guests domain.GuestRepository,
	notices domain.NoticeRepository,
	events domain.EventRepository,
	swearing domain.SwearingRepository,
	courtInfo domain.CourtInfoRepository,
) *RegistryService {
	return &RegistryService{
		guests:    guests,
		notices:   notices,
		events:    events,
		swearing:  swearing,
		courtInfo: courtInfo,
	}
}

// RegisterGuest records a visitor for the calling judge.
func (s *RegistryService) RegisterGuest(ctx context.Context, caller *domain.User, g *domain.GuestEntry) error {
	if caller.Role != domain.RoleJudge && caller.Role != domain.RoleAdmin {
		return fmt.Errorf("only judges may register guests: %w", domain.ErrPermissionDenied)
	}
	if g.Name == "" || g.IDNumber == "" {
		return fmt.Errorf("guest name and id number are required: %w", domain.ErrInvalidInput)
	}
	g.JudgeID = caller.ID
	if g.Status == "" {
		g.Status = domain.GuestDraft
	}
	return s.guests.Create(ctx, g)
}

// ListGuests returns the caller's own registrations, or every
// registration for administrators.
func (s *RegistryService) ListGuests(ctx context.Context, caller *domain.User) ([]*domain.GuestEntry, error) {
	if caller.Role == domain.RoleAdmin {
		return s.guests.ListAll(ctx)
	}
	return s.guests.ListForJudge(ctx, caller.ID)
}

// UpdateGuest modifies a registration the caller owns.
func (s *RegistryService) UpdateGuest(ctx context.Context, caller *domain.User, g *domain.GuestEntry) error {
	existing, err := s.guests.GetByID(ctx, g.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("guest %d: %w", g.ID, domain.ErrNotFound)
	}
	if existing.JudgeID != caller.ID && caller.Role != domain.RoleAdmin {
		return fmt.Errorf("guest belongs to another judge: %w", domain.ErrPermissionDenied)
	}
	g.JudgeID = existing.JudgeID
	return s.guests.Update(ctx, g)
}

// DeleteGuest removes a registration the caller owns.
func (s *RegistryService) DeleteGuest(ctx context.Context, caller *domain.User, id int64) error {
	existing, err := s.guests.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("guest %d: %w", id, domain.ErrNotFound)
	}
	if existing.JudgeID != caller.ID && caller.Role != domain.RoleAdmin {
		return fmt.Errorf("guest belongs to another judge: %w", domain.ErrPermissionDenied)
	}
	return s.guests.Delete(ctx, id)
}

// PublishNotice creates a notice or circular. Admin only.
func (s *RegistryService) PublishNotice(ctx context.Context, caller *domain.User, n *domain.Notice) error {
	if caller.Role != domain.RoleAdmin {
		return fmt.Errorf("only administrators may publish notices: %w", domain.ErrPermissionDenied)
	}
	if n.Title == "" {
		return fmt.Errorf("notice title is required: %w", domain.ErrInvalidInput)
	}
	if n.Type == "" {
		n.Type = "notice"
	}
	n.CreatedBy = caller.ID
	return s.notices.Create(ctx, n)
}

func (s *RegistryService) ListNotices(ctx context.Context, noticeType string) ([]*domain.Notice, error) {
	return s.notices.List(ctx, noticeType)
}

func (s *RegistryService) DeleteNotice(ctx context.Context, caller *domain.User, id int64) error {
	if caller.Role != domain.RoleAdmin {
		return fmt.Errorf("only administrators may delete notices: %w", domain.ErrPermissionDenied)
	}
	existing, err := s.notices.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("notice %d: %w", id, domain.ErrNotFound)
	}
	return s.notices.Delete(ctx, id)
}

// ScheduleEvent creates a court event. Admin only.
func (s *RegistryService) ScheduleEvent(ctx context.Context, caller *domain.User, e *domain.Event) error {
	if caller.Role != domain.RoleAdmin {
		return fmt.Errorf("only administrators may schedule events: %w", domain.ErrPermissionDenied)
	}
	if e.Title == "" || e.StartsAt.IsZero() {
		return fmt.Errorf("event title and start time are required: %w", domain.ErrInvalidInput)
	}
	e.CreatedBy = caller.ID
	return s.events.Create(ctx, e)
}

func (s *RegistryService) ListEvents(ctx context.Context, upcomingOnly bool) ([]*domain.Event, error) {
	return s.events.List(ctx, upcomingOnly)
}

func (s *RegistryService) UpdateEvent(ctx context.Context, caller *domain.User, e *domain.Event) error {
	if caller.Role != domain.RoleAdmin {
		return fmt.Errorf("only administrators may update events: %w", domain.ErrPermissionDenied)
	}
	existing, err := s.events.GetByID(ctx, e.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("event %d: %w", e.ID, domain.ErrNotFound)
	}
	return s.events.Update(ctx, e)
}

func (s *RegistryService) DeleteEvent(ctx context.Context, caller *domain.User, id int64) error {
	if caller.Role != domain.RoleAdmin {
		return fmt.Errorf("only administrators may delete events: %w", domain.ErrPermissionDenied)
	}
	existing, err := s.events.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("event %d: %w", id, domain.ErrNotFound)
	}
	return s.events.Delete(ctx, id)
}

// SaveSwearingPreference records the caller's own swearing-in election,
// replacing any previous one.
func (s *RegistryService) SaveSwearingPreference(ctx context.Context, caller *domain.User, choice domain.CeremonyChoice, religiousText string) (*domain.SwearingPreference, error) {
	if !choice.Valid() {
		return nil, fmt.Errorf("unknown ceremony choice %q: %w", choice, domain.ErrInvalidInput)
	}
	p := &domain.SwearingPreference{
		UserID:         caller.ID,
		CeremonyChoice: choice,
		ReligiousText:  religiousText,
	}
	if err := s.swearing.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// MySwearingPreference returns the caller's own election.
func (s *RegistryService) MySwearingPreference(ctx context.Context, caller *domain.User) (*domain.SwearingPreference, error) {
	p, err := s.swearing.GetByUser(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("no swearing preference recorded: %w", domain.ErrNotFound)
	}
	return p, nil
}

// ListSwearingPreferences returns every recorded election. Admin only.
func (s *RegistryService) ListSwearingPreferences(ctx context.Context, caller *domain.User) ([]*domain.SwearingPreference, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("only administrators may list swearing preferences: %w", domain.ErrPermissionDenied)
	}
	return s.swearing.ListAll(ctx)
}

// SwearingPreferenceFor returns one user's election. Admin only.
func (s *RegistryService) SwearingPreferenceFor(ctx context.Context, caller *domain.User, userID int64) (*domain.SwearingPreference, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("only administrators may view another user's swearing preference: %w", domain.ErrPermissionDenied)
	}
	p, err := s.swearing.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("user %d has no swearing preference: %w", userID, domain.ErrNotFound)
	}
	return p, nil
}

// SetSwearingPreference records an election on another user's behalf.
// Admin only.
func (s *RegistryService) SetSwearingPreference(ctx context.Context, caller *domain.User, userID int64, choice domain.CeremonyChoice, religiousText string) (*domain.SwearingPreference, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("only administrators may set another user's swearing preference: %w", domain.ErrPermissionDenied)
	}
	if !choice.Valid() {
		return nil, fmt.Errorf("unknown ceremony choice %q: %w", choice, domain.ErrInvalidInput)
	}
	p := &domain.SwearingPreference{
		UserID:         userID,
		CeremonyChoice: choice,
		ReligiousText:  religiousText,
	}
	if err := s.swearing.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteSwearingPreference removes a user's election. Admin only.
func (s *RegistryService) DeleteSwearingPreference(ctx context.Context, caller *domain.User, userID int64) error {
	if caller.Role != domain.RoleAdmin {
		return fmt.Errorf("only administrators may delete a swearing preference: %w", domain.ErrPermissionDenied)
	}
	return s.swearing.DeleteByUser(ctx, userID)
}

// UpsertCourtInfo creates or updates a court content page. Admin only.
func (s *RegistryService) UpsertCourtInfo(ctx context.Context, caller *domain.User, c *domain.CourtInfo) error {
	if caller.Role != domain.RoleAdmin {
		return fmt.Errorf("only administrators may edit court information: %w", domain.ErrPermissionDenied)
	}
	if c.Section == "" || c.Title == "" {
		return fmt.Errorf("section and title are required: %w", domain.ErrInvalidInput)
	}
	return s.courtInfo.Upsert(ctx, c)
}

func (s *RegistryService) ListCourtInfo(ctx context.Context, section string) ([]*domain.CourtInfo, error) {
	return s.courtInfo.ListBySection(ctx, section)
}

func (s *RegistryService) DeleteCourtInfo(ctx context.Context, caller *domain.User, id int64) error {
	if caller.Role != domain.RoleAdmin {
		return fmt.Errorf("only administrators may edit court information: %w", domain.ErrPermissionDenied)
	}
	return s.courtInfo.Delete(ctx, id)
}
