package dashboard

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/tutorhub/core/backend"
	"github.com/trezcool/tutorhub/core/session"
)

// Backend is the generic resource API of the REST backend.
type Backend interface {
	List(ctx context.Context, token, path string) ([]backend.Record, error)
	Get(ctx context.Context, token, path, id string) (backend.Record, error)
	Create(ctx context.Context, token, path string, body backend.Record) (backend.Record, error)
	Update(ctx context.Context, token, path, id string, body backend.Record) (backend.Record, error)
	Delete(ctx context.Context, token, path, id string) error
}

// Mutation is the answer to a write: the written record (if any) and the refreshed first page.
type Mutation struct {
	Record backend.Record `json:"record,omitempty"`
	Page   Page           `json:"page"`
}

type Service struct {
	backend   Backend
	resources registry
}

// NewService uses DefaultResources when resources is nil.
func NewService(b Backend, resources map[session.Role][]Resource) *Service {
	if resources == nil {
		resources = DefaultResources
	}
	return &Service{backend: b, resources: newRegistry(resources)}
}

// Resources lists the collections available to role.
func (svc *Service) Resources(role session.Role) []Resource {
	return svc.resources.list(role)
}

func (svc *Service) List(ctx context.Context, role session.Role, token, name string, q Query) (Page, error) {
	res, err := svc.resources.lookup(role, name)
	if err != nil {
		return Page{}, err
	}
	return svc.page(ctx, res, token, q)
}

func (svc *Service) page(ctx context.Context, res Resource, token string, q Query) (Page, error) {
	q = q.normalized()
	records, err := svc.backend.List(ctx, token, res.Path)
	if err != nil {
		return Page{}, errors.Wrapf(err, "listing %s", res.Name)
	}
	return Paginate(Filter(records, q.Search, res.SearchFields), q.Page, q.PageSize), nil
}

func (svc *Service) Get(ctx context.Context, role session.Role, token, name, id string) (backend.Record, error) {
	res, err := svc.resources.lookup(role, name)
	if err != nil {
		return nil, err
	}
	rec, err := svc.backend.Get(ctx, token, res.Path, id)
	return rec, errors.Wrapf(err, "getting %s %s", res.Name, id)
}

func (svc *Service) writable(role session.Role, name string) (Resource, error) {
	res, err := svc.resources.lookup(role, name)
	if err != nil {
		return Resource{}, err
	}
	if res.ReadOnly {
		return Resource{}, errors.Wrapf(ErrReadOnly, "%s/%s", role, name)
	}
	return res, nil
}

// refreshed re-fetches the first page once a write went through.
func (svc *Service) refreshed(ctx context.Context, res Resource, token string, rec backend.Record, q Query) (Mutation, error) {
	q.Page = 1
	p, err := svc.page(ctx, res, token, q)
	if err != nil {
		return Mutation{}, err
	}
	return Mutation{Record: rec, Page: p}, nil
}

func (svc *Service) Create(ctx context.Context, role session.Role, token, name string, body backend.Record, q Query) (Mutation, error) {
	res, err := svc.writable(role, name)
	if err != nil {
		return Mutation{}, err
	}
	rec, err := svc.backend.Create(ctx, token, res.Path, body)
	if err != nil {
		return Mutation{}, errors.Wrapf(err, "creating %s", res.Name)
	}
	return svc.refreshed(ctx, res, token, rec, q)
}

func (svc *Service) Update(ctx context.Context, role session.Role, token, name, id string, body backend.Record, q Query) (Mutation, error) {
	res, err := svc.writable(role, name)
	if err != nil {
		return Mutation{}, err
	}
	rec, err := svc.backend.Update(ctx, token, res.Path, id, body)
	if err != nil {
		return Mutation{}, errors.Wrapf(err, "updating %s %s", res.Name, id)
	}
	return svc.refreshed(ctx, res, token, rec, q)
}

func (svc *Service) Delete(ctx context.Context, role session.Role, token, name, id string, q Query) (Mutation, error) {
	res, err := svc.writable(role, name)
	if err != nil {
		return Mutation{}, err
	}
	if err = svc.backend.Delete(ctx, token, res.Path, id); err != nil {
		return Mutation{}, errors.Wrapf(err, "deleting %s %s", res.Name, id)
	}
	return svc.refreshed(ctx, res, token, nil, q)
}
