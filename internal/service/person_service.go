package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/veletic/gatehouse/internal/domain"
	"github.com/veletic/gatehouse/internal/mailer"
	"github.com/veletic/gatehouse/internal/repository"
	"github.com/veletic/gatehouse/internal/search"
	"github.com/veletic/gatehouse/pkg/events"
	"github.com/veletic/gatehouse/pkg/logger"
)

type PersonService interface {
	Create(ctx context.Context, req *domain.CreatePersonRequest, creator string) (*domain.PersonStatus, error)
	// Toggle flips the person's presence at the operator's building and
	// returns the state after the flip.
	Toggle(ctx context.Context, personID int64, building, creator string) (domain.PresenceState, *domain.AccessEvent, error)
	// Search lists persons with derived presence, fuzzy-ranked when query is
	// non-empty, in identifier order otherwise.
	Search(ctx context.Context, query string, limit, offset int) ([]domain.PersonStatus, error)
	Get(ctx context.Context, id int64) (*domain.Person, error)
	Occupancy(ctx context.Context) ([]domain.Occupancy, error)
	SetBanned(ctx context.Context, id int64, banned bool) error
	Delete(ctx context.Context, id int64) error
}

type personService struct {
	personRepo    repository.PersonRepository
	directoryRepo repository.DirectoryRepository
	engine        *search.Engine
	eventBus      events.Publisher
	mailer        mailer.Service
}

func NewPersonService(
	personRepo repository.PersonRepository,
	directoryRepo repository.DirectoryRepository,
	engine *search.Engine,
	eventBus events.Publisher,
	mailSvc mailer.Service,
) PersonService {
	return &personService{
		personRepo:    personRepo,
		directoryRepo: directoryRepo,
		engine:        engine,
		eventBus:      eventBus,
		mailer:        mailSvc,
	}
}

func (s *personService) Create(ctx context.Context, req *domain.CreatePersonRequest, creator string) (*domain.PersonStatus, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var guarantor *domain.Person
	if req.Type == domain.TypeGuest {
		var err error
		guarantor, err = s.personRepo.FindByID(ctx, *req.GuarantorID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Validationf("guarantor %d does not exist", *req.GuarantorID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load guarantor: %w", err)
		}
		if guarantor.Banned {
			return nil, fmt.Errorf("%w: guarantor is banned", domain.ErrConflict)
		}
	}

	status, err := s.personRepo.Create(ctx, req, creator)
	if err != nil {
		return nil, err
	}

	if err := s.eventBus.Publish(ctx, events.PersonCreated, events.PersonCreatedEvent{
		PersonID:   status.ID,
		Identifier: status.Identifier,
		Type:       string(status.Type),
		Building:   req.Building,
		Creator:    creator,
		Timestamp:  status.CreatedAt,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish person event", "error", err)
	}

	if guarantor != nil {
		s.notifyGuarantorDepartment(ctx, status, guarantor, req.Building)
	}

	return status, nil
}

// notifyGuarantorDepartment mails the department contact of a new guest's
// guarantor. Best effort: mail trouble never fails the registration.
func (s *personService) notifyGuarantorDepartment(ctx context.Context, guest *domain.PersonStatus, guarantor *domain.Person, building string) {
	if guarantor.Department == nil {
		return
	}
	dept, err := s.directoryRepo.FindDepartment(ctx, *guarantor.Department)
	if err != nil || dept.ContactEmail == "" {
		return
	}
	guestName := strings.TrimSpace(guest.Fname + " " + guest.Lname)
	guarantorName := strings.TrimSpace(guarantor.Fname + " " + guarantor.Lname)
	if err := s.mailer.SendGuestRegistered(dept.ContactEmail, guestName, guarantorName, building); err != nil {
		logger.WarnContext(ctx, "Failed to send guest notification", "error", err, "department", dept.Name)
	}
}

func (s *personService) Toggle(ctx context.Context, personID int64, building, creator string) (domain.PresenceState, *domain.AccessEvent, error) {
	if personID <= 0 {
		return "", nil, domain.Validationf("invalid person id")
	}
	if building == "" {
		return "", nil, domain.Validationf("building is required")
	}

	person, err := s.personRepo.FindByID(ctx, personID)
	if err != nil {
		return "", nil, err
	}

	event, state, err := s.personRepo.Toggle(ctx, personID, building, creator)
	if err != nil {
		// Only a ban is worth a notification; conflicts mapped from
		// constraint violations stay silent.
		if errors.Is(err, domain.ErrConflict) && person.Banned {
			s.notifyBannedAttempt(ctx, person, building, creator)
		}
		return "", nil, err
	}

	subject := events.PersonEntered
	if state == domain.StateOutside {
		subject = events.PersonExited
	}
	if err := s.eventBus.Publish(ctx, subject, events.PersonCrossingEvent{
		PersonID:   personID,
		Identifier: person.Identifier,
		Building:   building,
		Creator:    creator,
		Timestamp:  event.Ts,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish crossing event", "error", err)
	}

	return state, event, nil
}

func (s *personService) notifyBannedAttempt(ctx context.Context, person *domain.Person, building, creator string) {
	if person.Department == nil {
		return
	}
	dept, err := s.directoryRepo.FindDepartment(ctx, *person.Department)
	if err != nil || dept.ContactEmail == "" {
		return
	}
	name := strings.TrimSpace(person.Fname + " " + person.Lname)
	if err := s.mailer.SendBannedAttempt(dept.ContactEmail, name, building, creator); err != nil {
		logger.WarnContext(ctx, "Failed to send banned-attempt notification", "error", err)
	}
}

func (s *personService) Search(ctx context.Context, query string, limit, offset int) ([]domain.PersonStatus, error) {
	statuses, err := s.personRepo.ListStatuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list persons: %w", err)
	}

	ranked := s.engine.Rank(query, statuses)

	if offset >= len(ranked) {
		return []domain.PersonStatus{}, nil
	}
	ranked = ranked[offset:]
	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (s *personService) Get(ctx context.Context, id int64) (*domain.Person, error) {
	return s.personRepo.FindByID(ctx, id)
}

func (s *personService) Occupancy(ctx context.Context) ([]domain.Occupancy, error) {
	return s.personRepo.Occupancy(ctx)
}

func (s *personService) SetBanned(ctx context.Context, id int64, banned bool) error {
	return s.personRepo.SetBanned(ctx, id, banned)
}

func (s *personService) Delete(ctx context.Context, id int64) error {
	return s.personRepo.Delete(ctx, id)
}
