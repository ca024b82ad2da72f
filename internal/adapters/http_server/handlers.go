package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"rentbay/internal/app"
	"rentbay/internal/domain"
	"rentbay/internal/featured"
	"rentbay/internal/moderation"
	"rentbay/internal/shortlet"
)

type ListingAPI interface {
	Search(ctx context.Context, q domain.ListingQuery) (domain.ListingsPage, error)
	Get(ctx context.Context, ref string, viewer app.Actor) (domain.Listing, error)
	Create(ctx context.Context, actor app.Actor, d app.ListingDraft) (domain.Listing, error)
	Update(ctx context.Context, actor app.Actor, id string, p app.ListingPatch) (domain.Listing, error)
	Submit(ctx context.Context, actor app.Actor, id string) (domain.Listing, error)
	Feature(ctx context.Context, actor app.Actor, id, idempotencyKey string) (domain.FeatureResult, error)
	Dashboard(ctx context.Context, actor app.Actor) (app.Dashboard, error)
}

type StayAPI interface {
	Availability(ctx context.Context, listingID, date, tz string) ([]shortlet.Slot, error)
	Quote(ctx context.Context, listingID string, checkIn, checkOut time.Time) (shortlet.StayQuote, error)
	Book(ctx context.Context, actor app.Actor, listingID string, checkIn, checkOut time.Time) (domain.Booking, error)
	Respond(ctx context.Context, actor app.Actor, bookingID, action string) (domain.Booking, error)
	Cancel(ctx context.Context, actor app.Actor, bookingID string) (domain.Booking, error)
}

type AdminAPI interface {
	ReviewQueue(ctx context.Context) ([]app.ReviewItem, error)
	Decide(ctx context.Context, listingID, action, reason string) (domain.Listing, moderation.Rubric, error)
	FeaturedSummary(ctx context.Context) (featured.Summary, error)
	ExportCSV(ctx context.Context, status string) ([]byte, error)
}

type ReferralAPI interface {
	RequestCashout(ctx context.Context, actor app.Actor, amountMinor int64) (app.CashoutResult, error)
	Queue(ctx context.Context, status string) ([]domain.Cashout, error)
}

type BillingAPI interface {
	Overview(ctx context.Context, actor app.Actor) (app.BillingOverview, error)
}

type LegalAPI interface {
	Status(ctx context.Context, actor app.Actor) ([]domain.LegalStatus, error)
	Accept(ctx context.Context, actor app.Actor, document string, version int) error
}

// Handlers binds the HTTP surface to the application services.
type Handlers struct {
	Auth      *Authenticator
	Listings  ListingAPI
	Stays     StayAPI
	Admin     AdminAPI
	Referrals ReferralAPI
	Billing   BillingAPI
	Legal     LegalAPI
	Now       func() time.Time
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// MountAPI registers every route under /v1 plus the health probe.
func (s *Server) MountAPI(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.mux.Route("/v1", func(r chi.Router) {
		r.Use(h.Auth.Middleware)

		r.Get("/listings", h.searchListings)
		r.Get("/listings/{id}", h.getListing)
		r.Get("/listings/{id}/availability", h.availability)
		r.Get("/listings/{id}/quote", h.quote)

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth)
			r.Post("/listings", h.createListing)
			r.Patch("/listings/{id}", h.updateListing)
			r.Post("/listings/{id}/submit", h.submitListing)
			r.Post("/listings/{id}/feature", h.featureListing)
			r.Post("/listings/{id}/bookings", h.book)
			r.Post("/bookings/{id}/{action:^(confirm|decline)$}", h.respondBooking)
			r.Post("/bookings/{id}/cancel", h.cancelBooking)
			r.Get("/me/dashboard", h.dashboard)
			r.Get("/me/billing", h.billing)
			r.Get("/legal/status", h.legalStatus)
			r.Post("/legal/accept", h.legalAccept)
			r.Post("/referrals/cashouts", h.requestCashout)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/reviews", h.reviewQueue)
			r.Post("/reviews/{id}", h.decide)
			r.Get("/featured", h.featuredSummary)
			r.Get("/cashouts", h.cashoutQueue)
			r.Get("/listings.csv", h.exportCSV)
		})
	})
}

func (h *Handlers) searchListings(w http.ResponseWriter, r *http.Request) {
	q, err := parseListingQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := h.Listings.Search(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	lang, now := langOf(r), h.now()
	out := pageView{Items: make([]listingView, 0, len(page.Items)), Total: page.Total, Limit: page.Limit, Offset: page.Offset}
	for _, l := range page.Items {
		out.Items = append(out.Items, toListingView(l, lang, now))
	}
	writeCachedJSON(w, r, out)
}

func parseListingQuery(r *http.Request) (domain.ListingQuery, error) {
	v := r.URL.Query()
	q := domain.ListingQuery{
		City: strings.TrimSpace(v.Get("city")),
		Kind: strings.TrimSpace(v.Get("kind")),
		Q:    strings.TrimSpace(v.Get("q")),
	}
	var err error
	if q.MinPrice, err = optInt64(v.Get("min_price"), "min_price"); err != nil {
		return q, err
	}
	if q.MaxPrice, err = optInt64(v.Get("max_price"), "max_price"); err != nil {
		return q, err
	}
	if b, err := optInt64(v.Get("bedrooms"), "bedrooms"); err != nil {
		return q, err
	} else if b != nil {
		n := int(*b)
		q.Bedrooms = &n
	}
	if q.Limit, err = intParam(v.Get("limit"), "limit"); err != nil {
		return q, err
	}
	if q.Offset, err = intParam(v.Get("offset"), "offset"); err != nil {
		return q, err
	}
	return q, nil
}

func optInt64(raw, name string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalid, name)
	}
	return &n, nil
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalid, name)
	}
	return n, nil
}

func parseDate(raw, name string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", domain.ErrInvalid, name)
	}
	return t, nil
}

func (h *Handlers) getListing(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	l, err := h.Listings.Get(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	v := toListingView(l, langOf(r), h.now())
	if !actor.Admin && actor.UserID != l.OwnerID {
		v.ReviewNote = nil
	}
	if !l.Visible() {
		// owner or admin view of an unpublished listing
		w.Header().Set("Cache-Control", "private, no-store")
		writeJSON(w, http.StatusOK, v)
		return
	}
	writeCachedJSON(w, r, v)
}

func (h *Handlers) createListing(w http.ResponseWriter, r *http.Request) {
	var req listingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	l, err := h.Listings.Create(r.Context(), actorFrom(r), req.draft())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/listings/"+l.ID)
	writeJSON(w, http.StatusCreated, toListingView(l, langOf(r), h.now()))
}

func (h *Handlers) updateListing(w http.ResponseWriter, r *http.Request) {
	var req listingPatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	l, err := h.Listings.Update(r.Context(), actorFrom(r), chi.URLParam(r, "id"), req.patch())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingView(l, langOf(r), h.now()))
}

func (h *Handlers) submitListing(w http.ResponseWriter, r *http.Request) {
	l, err := h.Listings.Submit(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingView(l, langOf(r), h.now()))
}

func (h *Handlers) featureListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.Listings.Feature(r.Context(), actorFrom(r), id, strings.TrimSpace(r.Header.Get("Idempotency-Key")))
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, featureView{ListingID: id, FeaturedUntil: res.FeaturedUntil, CreditsLeft: res.Entry.BalanceAfter, Replayed: res.Replayed})
}

func (h *Handlers) availability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	slots, err := h.Stays.Availability(r.Context(), chi.URLParam(r, "id"), q.Get("date"), q.Get("tz"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

func (h *Handlers) quote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in, err := parseDate(q.Get("check_in"), "check_in")
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := parseDate(q.Get("check_out"), "check_out")
	if err != nil {
		writeError(w, err)
		return
	}
	quote, err := h.Stays.Quote(r.Context(), chi.URLParam(r, "id"), in, out)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (h *Handlers) book(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	// the validator already checked the layout
	in, _ := time.Parse(time.DateOnly, req.CheckIn)
	out, _ := time.Parse(time.DateOnly, req.CheckOut)
	b, err := h.Stays.Book(r.Context(), actorFrom(r), chi.URLParam(r, "id"), in, out)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingView(b, langOf(r)))
}

func (h *Handlers) respondBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.Stays.Respond(r.Context(), actorFrom(r), chi.URLParam(r, "id"), chi.URLParam(r, "action"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingView(b, langOf(r)))
}

func (h *Handlers) cancelBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.Stays.Cancel(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingView(b, langOf(r)))
}

func (h *Handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.Listings.Dashboard(r.Context(), actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handlers) billing(w http.ResponseWriter, r *http.Request) {
	o, err := h.Billing.Overview(r.Context(), actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handlers) legalStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.Legal.Status(r.Context(), actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": st})
}

func (h *Handlers) legalAccept(w http.ResponseWriter, r *http.Request) {
	var req acceptRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.Legal.Accept(r.Context(), actorFrom(r), req.Document, req.Version); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) requestCashout(w http.ResponseWriter, r *http.Request) {
	var req cashoutRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.Referrals.RequestCashout(r.Context(), actorFrom(r), req.AmountMinor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cashoutResultView{Cashout: toCashoutView(res.Cashout, langOf(r)), Assessment: res.Assessment})
}

func (h *Handlers) reviewQueue(w http.ResponseWriter, r *http.Request) {
	items, err := h.Admin.ReviewQueue(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	lang, now := langOf(r), h.now()
	out := make([]reviewItemView, 0, len(items))
	for _, it := range items {
		out = append(out, reviewItemView{Listing: toListingView(it.Listing, lang, now), Rubric: it.Rubric})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handlers) decide(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	l, rubric, err := h.Admin.Decide(r.Context(), id, req.Action, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	p, _ := principalFrom(r.Context())
	log.Info().Str("listing_id", id).Str("action", req.Action).Str("admin", p.UserID).Msg("moderation decision")
	writeJSON(w, http.StatusOK, decisionView{Listing: toListingView(l, langOf(r), h.now()), Rubric: rubric})
}

func (h *Handlers) featuredSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.Admin.FeaturedSummary(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handlers) cashoutQueue(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Referrals.Queue(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, err)
		return
	}
	lang := langOf(r)
	out := make([]cashoutView, 0, len(rows))
	for _, c := range rows {
		out = append(out, toCashoutView(c, lang))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handlers) exportCSV(w http.ResponseWriter, r *http.Request) {
	body, err := h.Admin.ExportCSV(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, err)
		return
	}
	name := fmt.Sprintf("listings-%s.csv", h.now().UTC().Format(time.DateOnly))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("write csv export failed")
	}
}
