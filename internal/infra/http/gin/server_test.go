package ginserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendibook/internal/app/commands"
	"vendibook/internal/app/dto"
	checkoutapp "vendibook/internal/app/handlers/checkout"
	"vendibook/internal/app/identity"
	"vendibook/internal/app/policies"
	"vendibook/internal/app/queries"
	domainbooking "vendibook/internal/domain/booking"
	domaincheckout "vendibook/internal/domain/checkout"
	domainlistings "vendibook/internal/domain/listings"
	"vendibook/internal/infra/config"
	ginserver "vendibook/internal/infra/http/gin"
	"vendibook/internal/infra/obs"
	"vendibook/internal/infra/security"
)

type commandBus func(ctx context.Context, cmd commands.Command) (any, error)

func (f commandBus) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	return f(ctx, cmd)
}

type queryBus func(ctx context.Context, q queries.Query) (any, error)

func (f queryBus) Ask(ctx context.Context, q queries.Query) (any, error) {
	return f(ctx, q)
}

type testServer struct {
	router http.Handler
	tokens *security.TokenService
}

func newTestServer(t *testing.T, cmds commandBus, qs queryBus) testServer {
	t.Helper()
	tokens, err := security.NewTokenService("test-secret")
	require.NoError(t, err)
	logger := obs.Discard()
	auth := ginserver.AuthMiddleware{Verifier: tokens, Logger: logger}
	router := ginserver.NewRouter(config.Config{Env: "test"}, obs.Middleware{Logger: logger}, obs.HealthHandlers{}, ginserver.Handlers{
		Listing:        ginserver.ListingHandler{Queries: qs, Logger: logger},
		Availability:   ginserver.AvailabilityHandler{Queries: qs, Logger: logger},
		Checkout:       ginserver.CheckoutHandler{Commands: cmds, Queries: qs, Logger: logger},
		HostListing:    ginserver.HostListingHandler{Commands: cmds, Logger: logger},
		HostBooking:    ginserver.HostBookingHandler{Commands: cmds, Logger: logger},
		Reservation:    ginserver.ReservationHandler{Commands: cmds, Queries: qs, Logger: logger},
		AuthMiddleware: auth.Handle,
	})
	return testServer{router: router, tokens: tokens}
}

func (s testServer) do(t *testing.T, method, path, body, user string, roles ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		token, err := s.tokens.Issue(user, roles, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	rec := srv.do(t, http.MethodGet, "/livez", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthentication(t *testing.T) {
	var seen []string
	cmds := commandBus(func(ctx context.Context, cmd commands.Command) (any, error) {
		seen = append(seen, cmd.Key())
		return dto.CheckoutSession{ID: "s-1"}, nil
	})
	srv := newTestServer(t, cmds, nil)

	t.Run("invalid token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/reservations", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid token", decode(t, rec)["error"])
	})

	t.Run("anonymous renter route", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/api/v1/checkout", `{"listing_id":"truck-1"}`, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("host route without host role", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/api/v1/host/listings/truck-1/activate", "", "renter-1")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("signed in renter", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/api/v1/checkout", `{"listing_id":"truck-1"}`, "renter-1")
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "s-1", decode(t, rec)["id"])
	})

	assert.Equal(t, []string{"checkout.start"}, seen)
}

func TestCheckoutCommandsCarryCaller(t *testing.T) {
	var got checkoutapp.SubmitCheckoutCommand
	cmds := commandBus(func(ctx context.Context, cmd commands.Command) (any, error) {
		got = cmd.(checkoutapp.SubmitCheckoutCommand)
		return &dto.SubmitResult{ReservationID: "res-1"}, nil
	})
	srv := newTestServer(t, cmds, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/s-1/submit", nil)
	token, err := srv.tokens.Issue("renter-1", nil, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(ginserver.IdempotencyKeyHeader, " submit-42 ")
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "res-1", decode(t, rec)["reservation_id"])
	assert.Equal(t, "s-1", got.SessionID)
	assert.Equal(t, "renter-1", got.RenterID)
	assert.Equal(t, "submit-42", got.IdempotencyKeyV)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   map[string]any
	}{
		{
			name:       "not found",
			err:        fmt.Errorf("load: %w", domainlistings.ErrListingNotFound),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "conflict",
			err:        fmt.Errorf("%w: taken", domaincheckout.ErrAvailabilityConflict),
			wantStatus: http.StatusConflict,
		},
		{
			name:       "validation",
			err:        &domaincheckout.ValidationError{Field: "selection.span", Message: "those dates are not available"},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   map[string]any{"field": "selection.span", "error": "those dates are not available"},
		},
		{
			name:       "payment declined",
			err:        policies.ErrPaymentDeclined,
			wantStatus: http.StatusPaymentRequired,
		},
		{
			name:       "retryable payment",
			err:        &domaincheckout.RetryableError{Op: "payment", ReservationID: "res-9", Err: policies.ErrPaymentDeclined},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   map[string]any{"retryable": true, "reservation_id": "res-9"},
		},
		{
			name:       "forbidden",
			err:        identity.ErrForbidden,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "invalid transition",
			err:        domainbooking.ErrInvalidState,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "unexpected",
			err:        errors.New("connection reset by peer"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   map[string]any{"error": "internal error"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds := commandBus(func(context.Context, commands.Command) (any, error) { return nil, tt.err })
			srv := newTestServer(t, cmds, nil)

			rec := srv.do(t, http.MethodPost, "/api/v1/reservations/res-9/cancel", "", "renter-1")
			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decode(t, rec)
			for k, v := range tt.wantBody {
				assert.Equal(t, v, body[k], k)
			}
		})
	}
}

func TestListingQuote_ParsesQuery(t *testing.T) {
	var got any
	qs := queryBus(func(ctx context.Context, q queries.Query) (any, error) {
		got = q
		return dto.Quote{}, nil
	})
	srv := newTestServer(t, nil, qs)

	rec := srv.do(t, http.MethodGet, "/api/v1/listings/truck-1/quote?date=2026-10-20&hours=3", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)

	rec = srv.do(t, http.MethodGet, "/api/v1/listings/truck-1/quote?start=20-10-2026", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
