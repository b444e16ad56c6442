package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"bonds/internal/bond/models"
	"bonds/internal/bond/service"
	"bonds/internal/bond/store"
	"bonds/internal/lei"
	id "bonds/pkg/domain"
	"bonds/pkg/testutil"
)

const (
	testISIN = "FR0000131104"
	testLEI  = "R0MUWSFPU8MPRO8K5P83"
)

type HandlerSuite struct {
	suite.Suite
	router chi.Router
	store  *store.InMemory
	owner  id.AccountID

	mu    sync.Mutex
	gleif http.HandlerFunc
	calls int
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.gleif = directoryRecords(`[{"Entity":{"LegalName":{"$":"BNP PARIBAS"}}}]`)
	s.calls = 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		handler := s.gleif
		s.calls++
		s.mu.Unlock()
		handler(w, r)
	}))
	s.T().Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := lei.NewClient(srv.URL+"/api/v2/", 200*time.Millisecond, logger)
	s.store = store.NewInMemory()
	svc, err := service.New(s.store, resolver, service.WithLogger(logger), service.WithPageSize(2))
	s.Require().NoError(err)

	s.router = chi.NewRouter()
	New(svc, logger).Register(s.router)
	s.owner = id.NewAccountID()
}

func directoryRecords(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func (s *HandlerSuite) setDirectory(handler http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gleif = handler
}

func (s *HandlerSuite) directoryCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func validBond() map[string]any {
	return map[string]any{
		"isin":     testISIN,
		"size":     100000000,
		"currency": "EUR",
		"maturity": "2025-02-28",
		"lei":      testLEI,
	}
}

func (s *HandlerSuite) do(req *http.Request, owner id.AccountID) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, testutil.WithAccountID(req, owner))
}

func (s *HandlerSuite) create(owner id.AccountID, body map[string]any) *httptest.ResponseRecorder {
	return s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/bonds", body), owner)
}

func (s *HandlerSuite) list(owner id.AccountID, query string) *models.PageResponse {
	rr := s.do(httptest.NewRequest(http.MethodGet, "/bonds"+query, nil), owner)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	return testutil.UnmarshalResponse[models.PageResponse](s.T(), rr)
}

func (s *HandlerSuite) seed(owner id.AccountID, isins ...string) {
	for _, isin := range isins {
		body := validBond()
		body["isin"] = isin
		testutil.AssertStatus(s.T(), s.create(owner, body), http.StatusCreated)
	}
}

func (s *HandlerSuite) TestCreate() {
	s.Run("stores the bond with the resolved legal name", func() {
		rr := s.create(s.owner, validBond())

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		s.JSONEq(`{
			"isin": "FR0000131104",
			"size": 100000000,
			"currency": "EUR",
			"maturity": "2025-02-28",
			"lei": "R0MUWSFPU8MPRO8K5P83",
			"legal_name": "BNPPARIBAS"
		}`, rr.Body.String())
	})

	s.Run("accepts a form body", func() {
		req := testutil.NewFormRequest(s.T(), http.MethodPost, "/bonds", url.Values{
			"isin":     {" " + testISIN + " "},
			"size":     {"100"},
			"currency": {"EUR"},
			"maturity": {"2025-02-28"},
			"lei":      {testLEI},
		})
		rr := s.do(req, s.owner)

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		s.Equal(testISIN, testutil.UnmarshalResponse[models.BondResponse](s.T(), rr).ISIN)
	})
}

func (s *HandlerSuite) TestCreateValidation() {
	tests := []struct {
		name     string
		body     map[string]any
		expected map[string][]string
	}{
		{
			name: "fields missing",
			body: map[string]any{},
			expected: map[string][]string{
				"isin":     {"This field is required."},
				"size":     {"This field is required."},
				"currency": {"This field is required."},
				"maturity": {"This field is required."},
				"lei":      {"This field is required."},
			},
		},
		{
			name: "fields blank",
			body: map[string]any{"isin": "", "size": "", "currency": "", "maturity": "", "lei": ""},
			expected: map[string][]string{
				"isin":     {"This field may not be blank."},
				"size":     {"A valid integer is required."},
				"currency": {"This field may not be blank."},
				"maturity": {"Date has wrong format. Use one of these formats instead: YYYY-MM-DD."},
				"lei":      {"This field may not be blank."},
			},
		},
		{
			name: "fields too long",
			body: map[string]any{
				"isin":     strings.Repeat("I", 13),
				"size":     100,
				"currency": "EURO",
				"maturity": "2025-02-28",
				"lei":      strings.Repeat("L", 21),
			},
			expected: map[string][]string{
				"isin":     {"Ensure this field has no more than 12 characters."},
				"currency": {"Ensure this field has no more than 3 characters."},
				"lei":      {"Ensure this field has no more than 20 characters."},
			},
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			before := s.directoryCalls()
			rr := s.create(s.owner, tt.body)

			testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
			s.Equal(tt.expected, testutil.UnmarshalFieldErrors(s.T(), rr))
			s.Equal(before, s.directoryCalls(), "directory must not be called for invalid input")
		})
	}
	s.Zero(s.list(s.owner, "").Count)
}

func (s *HandlerSuite) TestCreateDirectoryTimeout() {
	s.setDirectory(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})

	rr := s.create(s.owner, validBond())

	testutil.AssertStatus(s.T(), rr, http.StatusGatewayTimeout)
	s.JSONEq(`{"error":"upstream_timeout","error_description":"Upstream service timed out."}`, rr.Body.String())
	s.Zero(s.list(s.owner, "").Count)
}

func (s *HandlerSuite) TestCreateDirectoryFailures() {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{name: "two matching records", handler: directoryRecords(`[
			{"Entity":{"LegalName":{"$":"BNP PARIBAS"}}},
			{"Entity":{"LegalName":{"$":"BNP PARIBAS SA"}}}
		]`)},
		{name: "no matching record", handler: directoryRecords(`[]`)},
		{name: "server error", handler: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.setDirectory(tt.handler)

			rr := s.create(s.owner, validBond())

			testutil.AssertStatus(s.T(), rr, http.StatusInternalServerError)
			s.JSONEq(`{"error":"internal_error"}`, rr.Body.String())
		})
	}
	s.Zero(s.list(s.owner, "").Count)
}

func (s *HandlerSuite) TestListReturnsOnlyOwnBonds() {
	other := id.NewAccountID()
	s.seed(s.owner, "OWN000000001")
	s.seed(other, "OTHER0000001")

	page := s.list(s.owner, "")

	s.Equal(1, page.Count)
	s.Require().Len(page.Results, 1)
	s.Equal("OWN000000001", page.Results[0].ISIN)
	s.Equal("BNPPARIBAS", page.Results[0].LegalName)
	s.Nil(page.Next)
	s.Nil(page.Previous)
}

func (s *HandlerSuite) TestListFilters() {
	s.seed(s.owner, "AAA000000001", "BBB000000002")

	s.Run("valid filter", func() {
		page := s.list(s.owner, "?isin=BBB000000002")
		s.Equal(1, page.Count)
		s.Equal("BBB000000002", page.Results[0].ISIN)
	})

	s.Run("filters combine", func() {
		page := s.list(s.owner, "?isin=BBB000000002&currency=USD")
		s.Zero(page.Count)
		s.NotNil(page.Results)
	})

	s.Run("unknown filter is ignored", func() {
		s.Equal(2, s.list(s.owner, "?colour=blue").Count)
	})

	s.Run("unparseable typed filter matches nothing", func() {
		s.Zero(s.list(s.owner, "?size=big").Count)
	})

	s.Run("undecodable text filter matches nothing", func() {
		s.Zero(s.list(s.owner, "?isin=%FF").Count)
		s.Zero(s.list(s.owner, "?lei=%00").Count)
	})
}

func (s *HandlerSuite) TestListPagination() {
	s.seed(s.owner, "PAGE00000001", "PAGE00000002", "PAGE00000003", "PAGE00000004", "PAGE00000005")

	s.Run("first page links forward", func() {
		page := s.list(s.owner, "?currency=EUR")
		s.Equal(5, page.Count)
		s.Len(page.Results, 2)
		s.Require().NotNil(page.Next)
		s.Equal("http://example.com/bonds?currency=EUR&page=2", *page.Next)
		s.Nil(page.Previous)
	})

	s.Run("second page links back without a page parameter", func() {
		page := s.list(s.owner, "?page=2")
		s.Equal("PAGE00000003", page.Results[0].ISIN)
		s.Require().NotNil(page.Previous)
		s.Equal("http://example.com/bonds", *page.Previous)
		s.Require().NotNil(page.Next)
		s.Equal("http://example.com/bonds?page=3", *page.Next)
	})

	s.Run("last page", func() {
		page := s.list(s.owner, "?page=last")
		s.Require().Len(page.Results, 1)
		s.Equal("PAGE00000005", page.Results[0].ISIN)
		s.Nil(page.Next)
		s.Require().NotNil(page.Previous)
		s.Equal("http://example.com/bonds?page=2", *page.Previous)
	})

	s.Run("invalid pages", func() {
		for _, query := range []string{"?page=0", "?page=4", "?page=abc"} {
			rr := s.do(httptest.NewRequest(http.MethodGet, "/bonds"+query, nil), s.owner)
			testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
			s.JSONEq(`{"error":"not_found","error_description":"Invalid page."}`, rr.Body.String(), query)
		}
	})

	s.Run("listing is idempotent", func() {
		s.Equal(s.list(s.owner, "?page=2"), s.list(s.owner, "?page=2"))
	})
}

func (s *HandlerSuite) TestMissingAccountIsInternal() {
	rr := testutil.DoRequest(s.router, httptest.NewRequest(http.MethodGet, "/bonds", nil))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, "internal_error")
}
