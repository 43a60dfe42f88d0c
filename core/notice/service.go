package notice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"

	"github.com/trezcool/campusboard/core"
	"github.com/trezcool/campusboard/core/policy"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound = fmt.Errorf("notice %w", core.ErrNotFound)
)

type (
	Repository interface {
		CreateNotice(ctx context.Context, n Notice) (Notice, error)
		// QueryNotices returns notices of category ("" for all), newest first with ties broken by descending ID.
		QueryNotices(ctx context.Context, category Category) ([]Notice, error)
		// GetNotice returns ErrNotFound when missing.
		GetNotice(ctx context.Context, id string) (Notice, error)
		// DeleteNotice returns ErrNotFound when missing.
		DeleteNotice(ctx context.Context, id string) error
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

// List returns the notices of filter.Category, or all of them, newest first.
func (svc *Service) List(ctx context.Context, filter QueryFilter) ([]Notice, error) {
	category, err := filter.category()
	if err != nil {
		return nil, err
	}

	ctx, cancel := svc.storeContext(ctx)
	defer cancel()
	notices, err := svc.repo.QueryNotices(ctx, category)
	if err != nil {
		return nil, core.TrapStoreErr(err, "querying notices")
	}
	if notices == nil {
		notices = []Notice{}
	}
	return notices, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Notice, error) {
	ctx, cancel := svc.storeContext(ctx)
	defer cancel()
	n, err := svc.repo.GetNotice(ctx, id)
	return n, core.TrapStoreErr(err, "finding notice")
}

// Create stores a new Notice authored by actor. Only admins may create notices.
func (svc *Service) Create(ctx context.Context, nn NewNotice, actor policy.Actor) (Notice, error) {
	if !actor.Can(policy.CreateNotice) {
		return Notice{}, core.ErrForbidden
	}

	nn.Clean()
	if err := svc.validate.Check(nn); err != nil {
		return Notice{}, err
	}
	category := CategoryGeneral
	if nn.Category != "" {
		c, err := ParseCategory(nn.Category)
		if err != nil {
			return Notice{}, err
		}
		category = c
	}

	n := Notice{
		ID:        uuid.New().String(),
		Title:     nn.Title,
		Content:   nn.Content,
		Category:  category,
		ImageURL:  nn.ImageURL,
		CreatedAt: core.NowUTC(NowFunc),
		AuthorID:  actor.ID,
	}

	ctx, cancel := svc.storeContext(ctx)
	defer cancel()
	n, err := svc.repo.CreateNotice(ctx, n)
	return n, core.TrapStoreErr(err, "creating notice")
}

// Delete removes a Notice. Only admins may delete notices; permission is checked before existence.
func (svc *Service) Delete(ctx context.Context, id string, actor policy.Actor) error {
	if !actor.Can(policy.DeleteNotice) {
		return core.ErrForbidden
	}

	ctx, cancel := svc.storeContext(ctx)
	defer cancel()
	return core.TrapStoreErr(svc.repo.DeleteNotice(ctx, id), "deleting notice")
}
