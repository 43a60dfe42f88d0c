package assignment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/campusboard/core"
	"github.com/trezcool/campusboard/core/policy"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound = fmt.Errorf("assignment %w", core.ErrNotFound)
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		// QueryAssignments returns the assignments of studentID ("" for all), newest first with ties broken by descending ID.
		QueryAssignments(ctx context.Context, studentID string) ([]Assignment, error)
		// GetAssignment returns ErrNotFound when missing.
		GetAssignment(ctx context.Context, id string) (Assignment, error)
	}

	Service struct {
		repo     Repository
		validate *core.Validator
		conf     *core.Config
	}
)

func NewService(repo Repository, validate *core.Validator, conf *core.Config) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()
	return &Service{repo: repo, validate: validate, conf: conf}
}

func (svc *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return core.StoreContext(ctx, svc.conf.Database.QueryTimeout)
}

// Submit stores a new Assignment of the acting student.
func (svc *Service) Submit(ctx context.Context, actor policy.Actor, na NewAssignment) (Assignment, error) {
	if !actor.Can(policy.SubmitAssignment) {
		return Assignment{}, core.ErrForbidden
	}

	na.Clean()
	if err := svc.validate.Check(na); err != nil {
		return Assignment{}, err
	}

	a := Assignment{
		ID:          uuid.New().String(),
		StudentID:   actor.ID,
		Title:       na.Title,
		Content:     na.Content,
		SubmittedAt: core.NowUTC(NowFunc),
	}

	ctx, cancel := svc.storeContext(ctx)
	defer cancel()
	a, err := svc.repo.CreateAssignment(ctx, a)
	return a, core.TrapStoreErr(err, "creating assignment")
}

func (svc *Service) query(ctx context.Context, studentID string) ([]Assignment, error) {
	ctx, cancel := svc.storeContext(ctx)
	defer cancel()
	assignments, err := svc.repo.QueryAssignments(ctx, studentID)
	if err != nil {
		return nil, core.TrapStoreErr(err, "querying assignments")
	}
	if assignments == nil {
		assignments = []Assignment{}
	}
	return assignments, nil
}

// ListForStudent returns the assignments submitted by studentID, newest first.
func (svc *Service) ListForStudent(ctx context.Context, studentID string) ([]Assignment, error) {
	if studentID == "" {
		return []Assignment{}, nil
	}
	return svc.query(ctx, studentID)
}

// ListAll returns every assignment, newest first. Only admins may list all assignments.
func (svc *Service) ListAll(ctx context.Context, actor policy.Actor) ([]Assignment, error) {
	if !actor.Can(policy.ListAllAssignments) {
		return nil, core.ErrForbidden
	}
	return svc.query(ctx, "")
}

// ListVisible returns all assignments to admins and their own to students.
func (svc *Service) ListVisible(ctx context.Context, actor policy.Actor) ([]Assignment, error) {
	switch {
	case actor.Can(policy.ListAllAssignments):
		return svc.ListAll(ctx, actor)
	case actor.Can(policy.ListOwnAssignments):
		return svc.ListForStudent(ctx, actor.ID)
	}
	return nil, core.ErrForbidden
}

// Get returns an Assignment visible to actor. Students asking for another student's assignment get ErrNotFound.
func (svc *Service) Get(ctx context.Context, id string, actor policy.Actor) (Assignment, error) {
	ctx, cancel := svc.storeContext(ctx)
	defer cancel()
	a, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		return Assignment{}, core.TrapStoreErr(err, "finding assignment")
	}
	if actor.Can(policy.ListAllAssignments) {
		return a, nil
	}
	if actor.Can(policy.ListOwnAssignments) && a.StudentID == actor.ID {
		return a, nil
	}
	return Assignment{}, errors.WithStack(ErrNotFound)
}
