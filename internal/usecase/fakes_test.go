package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	domain "github.com/skymall/checkout-api/internal/entity"
)

// In-memory fakes for the ports. They implement just enough semantics
// (guarded transitions, cap re-checks, lock-once) to exercise the usecases.

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

// --- intents ---

type fakeIntentRepo struct {
	mu      sync.Mutex
	intents map[string]*domain.PaymentIntent
}

func newIntentRepo() *fakeIntentRepo {
	return &fakeIntentRepo{intents: map[string]*domain.PaymentIntent{}}
}

func (r *fakeIntentRepo) Create(_ context.Context, in *domain.PaymentIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *in
	r.intents[in.IntentID] = &cp
	return nil
}

func (r *fakeIntentRepo) GetByID(_ context.Context, id string) (*domain.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.intents[id]
	if !ok {
		return nil, domain.ErrIntentNotFound
	}
	cp := *in
	return &cp, nil
}

func (r *fakeIntentRepo) GetByChargeID(_ context.Context, chargeID string) (*domain.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, in := range r.intents {
		if in.GatewayChargeID == chargeID {
			cp := *in
			return &cp, nil
		}
	}
	return nil, domain.ErrIntentNotFound
}

func (r *fakeIntentRepo) GetByGatewayRef(_ context.Context, ref string) (*domain.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, in := range r.intents {
		if in.GatewayRef == ref {
			cp := *in
			return &cp, nil
		}
	}
	return nil, domain.ErrIntentNotFound
}

func (r *fakeIntentRepo) UpdateStatusIf(_ context.Context, id string, from, to domain.IntentStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.intents[id]
	if !ok || in.Status != from {
		return false, nil
	}
	in.Status = to
	return true, nil
}

func (r *fakeIntentRepo) MarkOutcome(_ context.Context, id string, status domain.IntentStatus, chargeID string, risk *float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.intents[id]
	if !ok {
		return errors.New("not found")
	}
	in.Status = status
	if chargeID != "" {
		in.GatewayChargeID = chargeID
	}
	if risk != nil {
		v := *risk
		in.RiskScore = &v
	}
	return nil
}

func (r *fakeIntentRepo) SetGatewayRef(_ context.Context, id, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.intents[id]
	if !ok {
		return errors.New("not found")
	}
	in.GatewayRef = ref
	return nil
}

func (r *fakeIntentRepo) CaptureByGatewayRef(_ context.Context, ref, chargeID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, in := range r.intents {
		if in.GatewayRef != ref {
			continue
		}
		switch in.Status {
		case domain.IntentInitiated, domain.IntentAuthorized, domain.IntentPendingReview:
			in.Status = domain.IntentCaptured
			in.GatewayChargeID = chargeID
			return true, nil
		}
		return false, nil
	}
	return false, nil
}

func (r *fakeIntentRepo) FailByGatewayRef(_ context.Context, ref string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, in := range r.intents {
		if in.GatewayRef != ref {
			continue
		}
		switch in.Status {
		case domain.IntentInitiated, domain.IntentAuthorized, domain.IntentPendingReview:
			in.Status = domain.IntentFailed
			return true, nil
		}
		return false, nil
	}
	return false, nil
}

func (r *fakeIntentRepo) get(id string) domain.PaymentIntent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.intents[id]
}

func (r *fakeIntentRepo) seed(in domain.PaymentIntent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := in
	r.intents[in.IntentID] = &cp
}

// --- refunds ---

type fakeRefundRepo struct {
	mu      sync.Mutex
	refunds map[string]*domain.Refund
}

func newRefundRepo() *fakeRefundRepo {
	return &fakeRefundRepo{refunds: map[string]*domain.Refund{}}
}

func (r *fakeRefundRepo) CreatePendingLocked(_ context.Context, ref *domain.Refund, capturedMinor int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, existing := range r.refunds {
		if existing.ChargeID == ref.ChargeID && existing.Status != domain.RefundFailed {
			total += existing.AmountMinor
		}
	}
	if total+ref.AmountMinor > capturedMinor {
		return domain.ErrRefundExceedsCharge
	}
	cp := *ref
	r.refunds[ref.RefundID] = &cp
	return nil
}

func (r *fakeRefundRepo) UpdateStatus(_ context.Context, refundID string, status domain.RefundStatus, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, ok := r.refunds[refundID]
	if !ok {
		return errors.New("not found")
	}
	ref.Status = status
	ref.FailureReason = reason
	return nil
}

func (r *fakeRefundRepo) SucceededTotal(_ context.Context, chargeID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, ref := range r.refunds {
		if ref.ChargeID == chargeID && ref.Status == domain.RefundSucceeded {
			total += ref.AmountMinor
		}
	}
	return total, nil
}

func (r *fakeRefundRepo) MarkSucceededByCharge(_ context.Context, chargeID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, ref := range r.refunds {
		if ref.ChargeID == chargeID && ref.Status == domain.RefundPending {
			ref.Status = domain.RefundSucceeded
			n++
		}
	}
	return n, nil
}

func (r *fakeRefundRepo) get(id string) domain.Refund {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.refunds[id]
}

// --- sessions ---

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.CheckoutSession
}

func newSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]*domain.CheckoutSession{}}
}

func (r *fakeSessionRepo) Create(_ context.Context, s *domain.CheckoutSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sessions[s.SessionID] = &cp
	return nil
}

func (r *fakeSessionRepo) GetByID(_ context.Context, id string) (*domain.CheckoutSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) UpdateStatusIf(_ context.Context, id string, from, to domain.SessionStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.Status != from {
		return false, nil
	}
	s.Status = to
	return true, nil
}

func (r *fakeSessionRepo) get(id string) domain.CheckoutSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.sessions[id]
}

type nopSessionCache struct{}

func (nopSessionCache) Put(context.Context, *domain.CheckoutSession) error { return nil }
func (nopSessionCache) Get(context.Context, string) (*domain.CheckoutSession, bool, error) {
	return nil, false, nil
}
func (nopSessionCache) Del(context.Context, string) error { return nil }

// fakeSessionCache keeps whatever was Put until Del, like the Redis cache: a
// stale entry stays stale until someone drops it.
type fakeSessionCache struct {
	mu    sync.Mutex
	items map[string]*domain.CheckoutSession
}

func newSessionCache() *fakeSessionCache {
	return &fakeSessionCache{items: map[string]*domain.CheckoutSession{}}
}

func (c *fakeSessionCache) Put(_ context.Context, s *domain.CheckoutSession) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *s
	c.items[s.SessionID] = &cp
	return nil
}

func (c *fakeSessionCache) Get(_ context.Context, id string) (*domain.CheckoutSession, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.items[id]
	if !ok {
		return nil, false, nil
	}
	cp := *s
	return &cp, true, nil
}

func (c *fakeSessionCache) Del(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
	return nil
}

// --- methods ---

type fakeMethodRepo struct {
	methods map[string]*domain.PaymentMethod
}

func (r *fakeMethodRepo) GetByID(_ context.Context, id string) (*domain.PaymentMethod, error) {
	m, ok := r.methods[id]
	if !ok {
		return nil, domain.ErrInvalidPaymentMethod
	}
	return m, nil
}

func (r *fakeMethodRepo) GetDefault(context.Context, string) (*domain.PaymentMethod, error) {
	return nil, domain.ErrInvalidPaymentMethod
}
func (r *fakeMethodRepo) Save(context.Context, *domain.PaymentMethod) error      { return nil }
func (r *fakeMethodRepo) SetDefault(context.Context, string, string) error       { return nil }
func (r *fakeMethodRepo) SoftDelete(context.Context, string) error               { return nil }
func (r *fakeMethodRepo) ListByUser(context.Context, string) ([]domain.PaymentMethod, error) {
	return nil, nil
}

// --- caches ---

type fakeIdem struct {
	mu    sync.Mutex
	locks map[string]bool
	resps map[string][]byte
}

func newIdem() *fakeIdem {
	return &fakeIdem{locks: map[string]bool{}, resps: map[string][]byte{}}
}

func (s *fakeIdem) TryLock(_ context.Context, scope, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := scope + ":" + key
	if s.locks[k] {
		return false, nil
	}
	s.locks[k] = true
	return true, nil
}

func (s *fakeIdem) Unlock(_ context.Context, scope, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, scope+":"+key)
	return nil
}

func (s *fakeIdem) Remember(_ context.Context, scope, key string, resp []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resps[scope+":"+key] = resp
	return nil
}

func (s *fakeIdem) Recall(_ context.Context, scope, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.resps[scope+":"+key]
	return b, ok, nil
}

// --- gateway ---

type fakeGateway struct {
	mu sync.Mutex

	createCalls  int
	confirmCalls int
	refundCalls  int

	createErr  error
	confirmErr error
	refundErr  error

	charge GatewayCharge
	refund GatewayRefund
}

func newGateway() *fakeGateway {
	return &fakeGateway{
		charge: GatewayCharge{ChargeID: "ch_1", Outcome: ChargeSucceeded},
		refund: GatewayRefund{GatewayRef: "re_1", Succeeded: true},
	}
}

func (g *fakeGateway) CreateIntent(_ context.Context, _ int64, _, _ string) (GatewayIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls++
	if g.createErr != nil {
		return GatewayIntent{}, g.createErr
	}
	return GatewayIntent{GatewayRef: "pi_1", ClientSecret: "pi_1_secret"}, nil
}

func (g *fakeGateway) ConfirmIntent(_ context.Context, _, _, _ string) (GatewayCharge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.confirmCalls++
	if g.confirmErr != nil {
		return GatewayCharge{}, g.confirmErr
	}
	return g.charge, nil
}

func (g *fakeGateway) Refund(_ context.Context, _ string, _ int64, _ string) (GatewayRefund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refundCalls++
	if g.refundErr != nil {
		return GatewayRefund{}, g.refundErr
	}
	return g.refund, nil
}

func (g *fakeGateway) PublishableKey() string { return "pk_test" }

// --- collaborators ---

type fakeCatalog struct {
	items map[string]CatalogItem
	err   error
}

func (c *fakeCatalog) Prices(_ context.Context, _ []string) (map[string]CatalogItem, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.items, nil
}

type fakeTax struct {
	exempt int64
	err    error
	asked  bool
	// needsDest mirrors the real collaborator: no destination, no exemption.
	needsDest bool
}

func (t *fakeTax) ExemptMinor(_ context.Context, q TaxQuery) (int64, error) {
	t.asked = true
	if t.err != nil {
		return 0, t.err
	}
	if t.needsDest && q.Destination == "" {
		return 0, nil
	}
	return t.exempt, nil
}

type fakeInventory struct {
	unavailable map[string]bool
	checkErr    error
	reserved    [][]domain.CartItem
}

func (i *fakeInventory) Available(_ context.Context, sku string, _ int64) (bool, error) {
	if i.checkErr != nil {
		return false, i.checkErr
	}
	return !i.unavailable[sku], nil
}

func (i *fakeInventory) Reserve(_ context.Context, _ string, items []domain.CartItem) error {
	i.reserved = append(i.reserved, items)
	return nil
}

type fakeLoyalty struct {
	valuePerMile int64
	valueErr     error
	redeemErr    error
	redeemed     int64
}

func (l *fakeLoyalty) RedemptionValue(_ context.Context, _ string, miles int64, _ string) (int64, error) {
	if l.valueErr != nil {
		return 0, l.valueErr
	}
	return miles * l.valuePerMile, nil
}

func (l *fakeLoyalty) Redeem(_ context.Context, _ string, miles int64, _ string) error {
	if l.redeemErr != nil {
		return l.redeemErr
	}
	l.redeemed += miles
	return nil
}

type fakeRisk struct {
	score float64
	err   error
}

func (r *fakeRisk) Score(context.Context, string, int64, string, map[string]string) (float64, error) {
	if r.err != nil {
		return 0, r.err
	}
	return r.score, nil
}

type fakeNotifier struct {
	confirmed []string
	scheduled []string
}

func (n *fakeNotifier) PaymentConfirmed(_ context.Context, _, orderID string, _ int64, _ string) error {
	n.confirmed = append(n.confirmed, orderID)
	return nil
}

func (n *fakeNotifier) Schedule(_ context.Context, orderID string) error {
	n.scheduled = append(n.scheduled, orderID)
	return nil
}

// --- outbox ---

type fakeOutbox struct {
	mu   sync.Mutex
	rows []OutboxRow
}

func (o *fakeOutbox) Insert(_ context.Context, routingKey string, payload []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rows = append(o.rows, OutboxRow{ID: int64(len(o.rows) + 1), RoutingKey: routingKey, Payload: payload})
	return nil
}

func (o *fakeOutbox) FetchPending(_ context.Context, limit int) ([]OutboxRow, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.rows) < limit {
		limit = len(o.rows)
	}
	out := make([]OutboxRow, limit)
	copy(out, o.rows[:limit])
	return out, nil
}

func (o *fakeOutbox) MarkSent(context.Context, int64) error   { return nil }
func (o *fakeOutbox) MarkFailed(context.Context, int64) error { return nil }

func (o *fakeOutbox) keys() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, 0, len(o.rows))
	for _, r := range o.rows {
		out = append(out, r.RoutingKey)
	}
	return out
}

// --- rates ---

type fakeRateRepo struct {
	mu    sync.Mutex
	rates []domain.CurrencyRate
}

func (r *fakeRateRepo) UpsertAll(_ context.Context, rates []domain.CurrencyRate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rates = rates
	return nil
}

func (r *fakeRateRepo) All(context.Context) ([]domain.CurrencyRate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rates, nil
}

type fakeRateSource struct {
	rates []domain.CurrencyRate
	err   error
}

func (s *fakeRateSource) Fetch(context.Context, string) ([]domain.CurrencyRate, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rates, nil
}

// newRateStore builds a warmed store with the given quote rates against USD.
func newRateStore(t interface{ Fatalf(string, ...any) }, rates ...domain.CurrencyRate) *CurrencyRateStore {
	repo := &fakeRateRepo{rates: rates}
	store := NewCurrencyRateStore("USD", &fakeRateSource{rates: rates}, repo, time.Hour)
	if err := store.Warm(context.Background()); err != nil {
		t.Fatalf("warm rates: %v", err)
	}
	return store
}

// --- webhook events ---

type fakeWebhookRepo struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func newWebhookRepo() *fakeWebhookRepo { return &fakeWebhookRepo{seen: map[string]bool{}} }

func (r *fakeWebhookRepo) Insert(_ context.Context, ev *domain.WebhookEvent) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	if r.seen[ev.EventID] {
		return false, nil
	}
	r.seen[ev.EventID] = true
	return true, nil
}
