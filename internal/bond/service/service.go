package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"bonds/internal/bond/metrics"
	"bonds/internal/bond/models"
	"bonds/internal/lei"
	id "bonds/pkg/domain"
	dErrors "bonds/pkg/domain-errors"
	"bonds/pkg/requestcontext"
)

// Resolver turns an LEI into the issuer's legal name.
type Resolver interface {
	LegalName(ctx context.Context, lei string) (string, error)
}

// Store persists bonds. List and Count are always scoped to one owner.
type Store interface {
	Create(ctx context.Context, bond *models.Bond) error
	List(ctx context.Context, owner id.AccountID, filter models.Filter, page models.PageRequest) ([]*models.Bond, error)
	Count(ctx context.Context, owner id.AccountID, filter models.Filter) (int, error)
}

// Service validates, enriches and stores bonds, and answers owner-scoped
// listings.
type Service struct {
	bonds    Store
	resolver Resolver
	logger   *slog.Logger
	metrics  *metrics.Metrics
	pageSize int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPageSize sets the listing page size. Non-positive values are ignored.
func WithPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// New constructs a Service.
func New(bonds Store, resolver Resolver, opts ...Option) (*Service, error) {
	if bonds == nil {
		return nil, errors.New("bond store is required")
	}
	if resolver == nil {
		return nil, errors.New("legal name resolver is required")
	}
	s := &Service{
		bonds:    bonds,
		resolver: resolver,
		logger:   slog.Default(),
		pageSize: models.DefaultPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create validates input, resolves the legal name for its LEI and stores the
// bond for owner. Nothing is stored unless every step succeeds, and the
// resolver is never called for invalid input.
func (s *Service) Create(ctx context.Context, owner id.AccountID, input models.RawInput) (*models.Bond, error) {
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	fields, errs := models.ParseBondInput(input)
	if errs != nil {
		return nil, errs
	}

	legalName, err := s.resolveLegalName(ctx, fields.LEI)
	if err != nil {
		return nil, err
	}

	bond := models.NewBond(id.NewBondID(), owner, fields, legalName, requestcontext.Now(ctx))
	if bond.LegalName != legalName {
		s.logger.WarnContext(ctx, "legal name truncated",
			"request_id", requestcontext.RequestID(ctx),
			"lei", fields.LEI,
			"legal_name", legalName,
			"stored", bond.LegalName,
		)
	}

	if err := s.bonds.Create(ctx, bond); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store bond")
	}

	s.metrics.IncrementBondsCreated()
	s.logger.InfoContext(ctx, "bond created",
		"request_id", requestcontext.RequestID(ctx),
		"owner_id", owner.String(),
		"bond_id", bond.ID.String(),
		"isin", bond.ISIN,
	)
	return bond, nil
}

// resolveLegalName calls the resolver and maps its failure kinds onto domain
// codes. Only a timeout is distinguishable by the caller.
func (s *Service) resolveLegalName(ctx context.Context, leiCode string) (string, error) {
	start := time.Now()
	name, err := s.resolver.LegalName(ctx, leiCode)
	if err == nil {
		s.metrics.ObserveResolution(metrics.OutcomeOK, time.Since(start))
		return name, nil
	}

	switch lei.KindOf(err) {
	case lei.KindTimeout:
		s.metrics.ObserveResolution(metrics.OutcomeTimeout, time.Since(start))
		return "", dErrors.Wrap(err, dErrors.CodeUpstreamTimeout, "Upstream service timed out.")
	case lei.KindMalformed:
		s.metrics.ObserveResolution(metrics.OutcomeMalformed, time.Since(start))
	default:
		s.metrics.ObserveResolution(metrics.OutcomeUpstream, time.Since(start))
	}
	return "", dErrors.Wrap(err, dErrors.CodeInternal, "legal name resolution failed")
}

// List returns one page of owner's bonds matching params. Unknown parameter
// keys are ignored. A recognised key with a value that cannot match its
// field yields an empty listing. page.Number zero selects the last page and
// a page past the end is not found.
func (s *Service) List(ctx context.Context, owner id.AccountID, params map[string]string, page models.PageRequest) (*models.Page, error) {
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if page.Size <= 0 {
		page.Size = s.pageSize
	}

	filter, ok := models.ParseFilter(params)
	count := 0
	if ok {
		var err error
		count, err = s.bonds.Count(ctx, owner, filter)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count bonds")
		}
	}

	lastPage := models.PageCount(count, page.Size)
	if page.Number == 0 {
		page.Number = lastPage
	}
	if page.Number < 1 || page.Number > lastPage {
		return nil, dErrors.New(dErrors.CodeNotFound, models.MsgInvalidPage)
	}

	results := []*models.Bond{}
	if count > 0 {
		var err error
		results, err = s.bonds.List(ctx, owner, filter, page)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list bonds")
		}
	}

	return &models.Page{
		Count:   count,
		Number:  page.Number,
		Size:    page.Size,
		Results: results,
	}, nil
}
