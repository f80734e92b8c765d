package visits

import (
	"context"
	"time"

	"github.com/wolfman30/medvisit-platform/internal/directory"
	"github.com/wolfman30/medvisit-platform/pkg/logging"
)

// Service marks doctors as visited and records the event trail.
type Service struct {
	repo      directory.Repository
	log       *EventLog
	snapshots directory.SnapshotInvalidator
	logger    *logging.Logger
	now       func() time.Time
}

// NewService creates a visit service. The event log and snapshots may be nil.
func NewService(repo directory.Repository, log *EventLog, snapshots directory.SnapshotInvalidator, logger *logging.Logger) *Service {
	return &Service{
		repo:      repo,
		log:       log,
		snapshots: snapshots,
		logger:    logger,
		now:       time.Now,
	}
}

// MarkVisitedToday stamps the doctor's last visit with today's date and
// returns the updated record. Only the last visit field changes; notes and
// future appointments are untouched.
func (s *Service) MarkVisitedToday(ctx context.Context, orgID, doctorID string) (*directory.Doctor, error) {
	today := s.now().Format("2006-01-02")

	patch := directory.DoctorPatch{LastVisit: &today}
	if err := s.repo.UpdateDoctorFields(ctx, orgID, doctorID, patch); err != nil {
		return nil, err
	}
	if s.snapshots != nil {
		s.snapshots.Invalidate(ctx, orgID)
	}

	// The event trail is best-effort; a log failure never undoes the visit.
	if err := s.log.LogEvent(ctx, Event{
		EventType: EventVisitCompleted,
		OrgID:     orgID,
		DoctorID:  doctorID,
		VisitDate: today,
	}); err != nil {
		s.logger.Error("failed to log visit event", "error", err, "doctor_id", doctorID, "org_id", orgID)
	}

	return s.repo.GetDoctor(ctx, orgID, doctorID)
}

// History returns the recorded visit events for a doctor, newest first.
func (s *Service) History(ctx context.Context, orgID, doctorID string, limit int) ([]Event, error) {
	if _, err := s.repo.GetDoctor(ctx, orgID, doctorID); err != nil {
		return nil, err
	}
	return s.log.EventsForDoctor(ctx, orgID, doctorID, limit)
}
