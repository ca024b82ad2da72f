package httpserver

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

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentbay/internal/app"
	"rentbay/internal/domain"
	"rentbay/internal/featured"
	"rentbay/internal/moderation"
	"rentbay/internal/shortlet"
)

const testSecret = "test-secret-with-enough-entropy"

var testNow = time.Date(2026, 6, 1, 6, 0, 0, 0, time.UTC)

func token(t *testing.T, sub string, claims jwt.MapClaims, secret string) string {
	t.Helper()
	c := jwt.MapClaims{"sub": sub, "exp": time.Now().Add(time.Hour).Unix(), "role": "authenticated"}
	for k, v := range claims {
		c[k] = v
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func userToken(t *testing.T, sub string) string { return token(t, sub, nil, testSecret) }

func adminToken(t *testing.T) string {
	return token(t, "admin-1", jwt.MapClaims{"app_metadata": map[string]any{"role": "admin"}}, testSecret)
}

type stubListings struct {
	listing  domain.Listing
	err      error
	gotActor app.Actor
	gotDraft app.ListingDraft
	gotKey   string
	feature  domain.FeatureResult
	page     domain.ListingsPage
}

func (s *stubListings) Search(_ context.Context, q domain.ListingQuery) (domain.ListingsPage, error) {
	return s.page, s.err
}

func (s *stubListings) Get(_ context.Context, ref string, viewer app.Actor) (domain.Listing, error) {
	s.gotActor = viewer
	return s.listing, s.err
}

func (s *stubListings) Create(_ context.Context, actor app.Actor, d app.ListingDraft) (domain.Listing, error) {
	s.gotActor, s.gotDraft = actor, d
	return s.listing, s.err
}

func (s *stubListings) Update(_ context.Context, actor app.Actor, _ string, _ app.ListingPatch) (domain.Listing, error) {
	s.gotActor = actor
	return s.listing, s.err
}

func (s *stubListings) Submit(_ context.Context, actor app.Actor, _ string) (domain.Listing, error) {
	s.gotActor = actor
	return s.listing, s.err
}

func (s *stubListings) Feature(_ context.Context, actor app.Actor, _ string, key string) (domain.FeatureResult, error) {
	s.gotActor, s.gotKey = actor, key
	return s.feature, s.err
}

func (s *stubListings) Dashboard(context.Context, app.Actor) (app.Dashboard, error) {
	return app.Dashboard{}, s.err
}

type stubStays struct {
	gotAction string
	booking   domain.Booking
}

func (s *stubStays) Availability(context.Context, string, string, string) ([]shortlet.Slot, error) {
	return []shortlet.Slot{}, nil
}

func (s *stubStays) Quote(context.Context, string, time.Time, time.Time) (shortlet.StayQuote, error) {
	return shortlet.StayQuote{Nights: 2}, nil
}

func (s *stubStays) Book(context.Context, app.Actor, string, time.Time, time.Time) (domain.Booking, error) {
	return s.booking, nil
}

func (s *stubStays) Respond(_ context.Context, _ app.Actor, _ string, action string) (domain.Booking, error) {
	s.gotAction = action
	return s.booking, nil
}

func (s *stubStays) Cancel(context.Context, app.Actor, string) (domain.Booking, error) {
	return s.booking, nil
}

type stubAdmin struct{ csv []byte }

func (s *stubAdmin) ReviewQueue(context.Context) ([]app.ReviewItem, error) { return nil, nil }

func (s *stubAdmin) Decide(context.Context, string, string, string) (domain.Listing, moderation.Rubric, error) {
	return domain.Listing{}, moderation.Rubric{}, nil
}

func (s *stubAdmin) FeaturedSummary(context.Context) (featured.Summary, error) {
	return featured.Summary{}, nil
}

func (s *stubAdmin) ExportCSV(context.Context, string) ([]byte, error) { return s.csv, nil }

func newTestServer(l *stubListings, st *stubStays, ad *stubAdmin) http.Handler {
	s := New()
	s.MountAPI(&Handlers{
		Auth:     NewAuthenticator(testSecret),
		Listings: l,
		Stays:    st,
		Admin:    ad,
		Now:      func() time.Time { return testNow },
	})
	return s.Mux()
}

func do(t *testing.T, h http.Handler, method, path, tok, body string, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func sampleListing() domain.Listing {
	lat, lon := 6.51234, 3.38765
	return domain.Listing{
		ID: "0b9d6f7e-3c1a-4f55-9d8e-2a1b3c4d5e6f", OwnerID: "owner-1", Slug: "bright-flat",
		Title: "Bright two bedroom flat", Kind: domain.KindRent, Status: domain.StatusLive,
		PriceMinor: 25_000_000, Currency: "NGN", City: "Lagos", Country: "NG",
		Lat: &lat, Lon: &lon, LocationPrecision: domain.LocationApproximate,
		ReviewNote: ptr("fix the cover"),
	}
}

func ptr[T any](v T) *T { return &v }

func TestAuth_ProtectedRouteRejectsMissingAndBadTokens(t *testing.T) {
	h := newTestServer(&stubListings{}, &stubStays{}, &stubAdmin{})
	expired := token(t, "u1", jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()}, testSecret)

	cases := map[string]string{
		"missing":      "",
		"wrong secret": token(t, "u1", nil, "other-secret"),
		"expired":      expired,
		"not a jwt":    "abc.def",
		"no subject":   token(t, "", nil, testSecret),
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/v1/me/dashboard", tok, "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.NotEmpty(t, decode(t, rec)["error"])
		})
	}
}

func TestAuth_RejectsNonBearerScheme(t *testing.T) {
	h := newTestServer(&stubListings{listing: sampleListing()}, &stubStays{}, &stubAdmin{})
	rec := do(t, h, http.MethodGet, "/v1/listings/bright-flat", "", "", "Authorization", "Basic dXNlcjpwYXNz")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_AdminRoutesNeedAdminRole(t *testing.T) {
	h := newTestServer(&stubListings{}, &stubStays{}, &stubAdmin{})

	rec := do(t, h, http.MethodGet, "/v1/admin/featured", userToken(t, "u1"), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/admin/featured", adminToken(t), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoleOf(t *testing.T) {
	assert.Equal(t, "user", roleOf(jwt.MapClaims{"role": "authenticated"}))
	assert.Equal(t, RoleService, roleOf(jwt.MapClaims{"role": "service_role"}))
	assert.Equal(t, RoleAdmin, roleOf(jwt.MapClaims{"role": "authenticated", "app_metadata": map[string]any{"role": "admin"}}))
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, 404},
		{fmt.Errorf("%w: taken", domain.ErrConflict), 409},
		{domain.ErrUnavailable, 409},
		{domain.ErrPlanLimit, 402},
		{domain.ErrInsufficientCredits, 402},
		{domain.ErrForbidden, 403},
		{domain.ErrUnauthorized, 401},
		{fmt.Errorf("%w: bad", domain.ErrInvalid), 422},
		{errors.New("boom"), 500},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, statusFor(c.err), c.err.Error())
	}
}

func TestInternalErrorsAreHidden(t *testing.T) {
	h := newTestServer(&stubListings{err: errors.New("dial tcp 10.0.0.3:3306: refused")}, &stubStays{}, &stubAdmin{})
	rec := do(t, h, http.MethodGet, "/v1/listings", "", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decode(t, rec)["error"])
}

func TestCreateListing_ValidationErrorsUseJSONNames(t *testing.T) {
	h := newTestServer(&stubListings{}, &stubStays{}, &stubAdmin{})
	rec := do(t, h, http.MethodPost, "/v1/listings", userToken(t, "u1"), `{"kind":"castle","currency":"NAIRA","lat":123}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	fields, ok := decode(t, rec)["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "this field is required", fields["title"])
	assert.Contains(t, fields["kind"], "must be one of")
	assert.Contains(t, fields, "currency")
	assert.Contains(t, fields, "lat")
}

func TestUpdateListing_BlankTitleRejected(t *testing.T) {
	stub := &stubListings{listing: sampleListing()}
	h := newTestServer(stub, &stubStays{}, &stubAdmin{})
	rec := do(t, h, http.MethodPatch, "/v1/listings/"+stub.listing.ID, userToken(t, "owner-1"), `{"title":"     "}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	fields, ok := decode(t, rec)["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "must not be blank", fields["title"])
	assert.Empty(t, stub.gotActor.UserID, "service not called")
}

func TestCreateListing_BadBodies(t *testing.T) {
	h := newTestServer(&stubListings{}, &stubStays{}, &stubAdmin{})
	for _, body := range []string{`{"title":`, `{"title":"Loft in Yaba","kind":"rent","owner_id":"me"}`} {
		rec := do(t, h, http.MethodPost, "/v1/listings", userToken(t, "u1"), body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestCreateListing_PassesActorAndDraft(t *testing.T) {
	stub := &stubListings{listing: sampleListing()}
	h := newTestServer(stub, &stubStays{}, &stubAdmin{})
	rec := do(t, h, http.MethodPost, "/v1/listings", userToken(t, "owner-1"),
		`{"title":"Sunny loft in Yaba","kind":"rent","price_minor":100000,"photos":["a.jpg"]}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "/v1/listings/"+stub.listing.ID, rec.Header().Get("Location"))
	assert.Equal(t, app.Actor{UserID: "owner-1"}, stub.gotActor)
	assert.Equal(t, "Sunny loft in Yaba", stub.gotDraft.Title)
	assert.Equal(t, []string{"a.jpg"}, stub.gotDraft.Photos)
}

func TestGetListing_ETagAndNotModified(t *testing.T) {
	h := newTestServer(&stubListings{listing: sampleListing()}, &stubStays{}, &stubAdmin{})

	rec := do(t, h, http.MethodGet, "/v1/listings/bright-flat", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.True(t, strings.HasPrefix(etag, `W/"`))

	rec = do(t, h, http.MethodGet, "/v1/listings/bright-flat", "", "", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
}

func TestGetListing_PublicViewShape(t *testing.T) {
	h := newTestServer(&stubListings{listing: sampleListing()}, &stubStays{}, &stubAdmin{})
	body := decode(t, do(t, h, http.MethodGet, "/v1/listings/bright-flat", "", ""))

	price := body["price"].(map[string]any)
	assert.Equal(t, "₦250,000.00", price["display"])
	loc := body["location"].(map[string]any)
	assert.Equal(t, 6.51, loc["lat"])
	assert.Equal(t, 3.39, loc["lon"])
	assert.NotContains(t, body, "review_note")
	assert.Equal(t, []any{}, body["photos"])
}

func TestGetListing_OwnerSeesReviewNote(t *testing.T) {
	l := sampleListing()
	l.Status = domain.StatusChangesRequested
	stub := &stubListings{listing: l}
	h := newTestServer(stub, &stubStays{}, &stubAdmin{})

	rec := do(t, h, http.MethodGet, "/v1/listings/"+l.ID, userToken(t, "owner-1"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fix the cover", decode(t, rec)["review_note"])
	assert.Equal(t, "private, no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "owner-1", stub.gotActor.UserID)
}

func TestSearch_RejectsNonNumericParams(t *testing.T) {
	h := newTestServer(&stubListings{}, &stubStays{}, &stubAdmin{})
	rec := do(t, h, http.MethodGet, "/v1/listings?limit=ten", "", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestFeature_ReplayAnswers200(t *testing.T) {
	until := testNow.Add(7 * 24 * time.Hour)
	stub := &stubListings{feature: domain.FeatureResult{FeaturedUntil: until, Entry: domain.LedgerEntry{BalanceAfter: 1}, Replayed: true}}
	h := newTestServer(stub, &stubStays{}, &stubAdmin{})

	rec := do(t, h, http.MethodPost, "/v1/listings/L1/feature", userToken(t, "owner-1"), "", "Idempotency-Key", " key-1 ")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "key-1", stub.gotKey)
	body := decode(t, rec)
	assert.Equal(t, true, body["replayed"])
	assert.Equal(t, float64(1), body["credits_left"])
}

func TestFeature_InsufficientCreditsIs402(t *testing.T) {
	h := newTestServer(&stubListings{err: domain.ErrInsufficientCredits}, &stubStays{}, &stubAdmin{})
	rec := do(t, h, http.MethodPost, "/v1/listings/L1/feature", userToken(t, "owner-1"), "", "Idempotency-Key", "k")
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestBook_RejectsBadDates(t *testing.T) {
	h := newTestServer(&stubListings{}, &stubStays{}, &stubAdmin{})
	rec := do(t, h, http.MethodPost, "/v1/listings/L1/bookings", userToken(t, "g1"), `{"check_in":"07/01/2026","check_out":"2026-07-04"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode(t, rec)["fields"], "check_in")
}

func TestBookingResponses_RouteOnAction(t *testing.T) {
	st := &stubStays{booking: domain.Booking{ID: "B1", CheckIn: testNow, CheckOut: testNow.Add(48 * time.Hour), Currency: "NGN"}}
	h := newTestServer(&stubListings{}, st, &stubAdmin{})

	rec := do(t, h, http.MethodPost, "/v1/bookings/B1/decline", userToken(t, "host"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, app.BookingDecline, st.gotAction)
	assert.Equal(t, "2026-06-01", decode(t, rec)["check_in"])

	rec = do(t, h, http.MethodPost, "/v1/bookings/B1/approve", userToken(t, "host"), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQuote_RequiresDates(t *testing.T) {
	h := newTestServer(&stubListings{}, &stubStays{}, &stubAdmin{})
	rec := do(t, h, http.MethodGet, "/v1/listings/L1/quote?check_in=2026-07-01", "", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/listings/L1/quote?check_in=2026-07-01&check_out=2026-07-03", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExportCSV_Headers(t *testing.T) {
	h := newTestServer(&stubListings{}, &stubStays{}, &stubAdmin{csv: []byte("id,slug\n")})
	rec := do(t, h, http.MethodGet, "/v1/admin/listings.csv", adminToken(t), "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="listings-2026-06-01.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "id,slug\n", rec.Body.String())
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	h := newTestServer(&stubListings{}, &stubStays{}, &stubAdmin{})
	rec := do(t, h, http.MethodGet, "/v2/nothing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "route not found", decode(t, rec)["error"])
}
