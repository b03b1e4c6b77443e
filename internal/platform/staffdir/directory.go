// Package staffdir maintains the athlete-to-doctor assignment directory.
// Injury tickets are routed to whichever doctor is assigned to the reporting
// athlete at submission time.
package staffdir

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNoAssignment is returned when an athlete has no assigned doctor.
var ErrNoAssignment = errors.New("athlete has no assigned doctor")

// Assignment links an athlete to their current doctor.
type Assignment struct {
	AthleteID  uuid.UUID `json:"athlete_id"`
	DoctorID   uuid.UUID `json:"doctor_id"`
	AssignedBy uuid.UUID `json:"assigned_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Directory resolves and maintains athlete-doctor assignments.
type Directory interface {
	// Assign creates or replaces the athlete's doctor assignment.
	Assign(ctx context.Context, a *Assignment) error
	// Get returns the athlete's current assignment.
	Get(ctx context.Context, athleteID uuid.UUID) (*Assignment, error)
	// AssignedDoctor resolves the doctor responsible for the athlete.
	AssignedDoctor(ctx context.Context, athleteID uuid.UUID) (uuid.UUID, error)
	// AthletesForDoctor lists athletes currently assigned to the doctor.
	AthletesForDoctor(ctx context.Context, doctorID uuid.UUID) ([]uuid.UUID, error)
}

// InMemoryDirectory is a thread-safe Directory for development and tests.
type InMemoryDirectory struct {
	mu          sync.RWMutex
	assignments map[uuid.UUID]*Assignment
}

func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{assignments: make(map[uuid.UUID]*Assignment)}
}

func (d *InMemoryDirectory) Assign(_ context.Context, a *Assignment) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := d.assignments[a.AthleteID]; ok {
		a.CreatedAt = existing.CreatedAt
	} else {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	stored := *a
	d.assignments[a.AthleteID] = &stored
	return nil
}

func (d *InMemoryDirectory) Get(_ context.Context, athleteID uuid.UUID) (*Assignment, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	a, ok := d.assignments[athleteID]
	if !ok {
		return nil, ErrNoAssignment
	}
	out := *a
	return &out, nil
}

func (d *InMemoryDirectory) AssignedDoctor(ctx context.Context, athleteID uuid.UUID) (uuid.UUID, error) {
	a, err := d.Get(ctx, athleteID)
	if err != nil {
		return uuid.Nil, err
	}
	return a.DoctorID, nil
}

func (d *InMemoryDirectory) AthletesForDoctor(_ context.Context, doctorID uuid.UUID) ([]uuid.UUID, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []uuid.UUID
	for athleteID, a := range d.assignments {
		if a.DoctorID == doctorID {
			out = append(out, athleteID)
		}
	}
	return out, nil
}
