package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/storesync/backend/internal/domain/catalog"
	credentialdomain "github.com/storesync/backend/internal/domain/credential"
	"github.com/storesync/backend/internal/domain/integration"
	"github.com/storesync/backend/internal/domain/shared"
	"github.com/storesync/backend/internal/domain/trade"
)

// ---------------------------------------------------------------------------
// Platform fake
// ---------------------------------------------------------------------------

// fakePlatform serves scripted entities and pages. failAtPage simulates a
// network failure fetching one specific page.
type fakePlatform struct {
	products  map[string]*integration.PlatformProduct
	orders    map[string]*integration.PlatformOrder
	checkouts map[string]*integration.PlatformCheckout

	productPages  [][]integration.PlatformProduct
	orderPages    [][]integration.PlatformOrder
	checkoutPages [][]integration.PlatformCheckout

	failAtPage int

	registerCalls  []string
	failingEvents  map[string]bool
	lastCallback   string
	getProductErrs map[string]error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		products:       make(map[string]*integration.PlatformProduct),
		orders:         make(map[string]*integration.PlatformOrder),
		checkouts:      make(map[string]*integration.PlatformCheckout),
		failingEvents:  make(map[string]bool),
		getProductErrs: make(map[string]error),
	}
}

func (f *fakePlatform) GetProduct(ctx context.Context, token, id string) (*integration.PlatformProduct, error) {
	if err, ok := f.getProductErrs[id]; ok {
		return nil, err
	}
	p, ok := f.products[id]
	if !ok {
		return nil, integration.ErrNotFoundUpstream
	}
	return p, nil
}

func (f *fakePlatform) GetOrder(ctx context.Context, token, id string) (*integration.PlatformOrder, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, integration.ErrNotFoundUpstream
	}
	return o, nil
}

func (f *fakePlatform) GetCheckout(ctx context.Context, token, id string) (*integration.PlatformCheckout, error) {
	c, ok := f.checkouts[id]
	if !ok {
		return nil, integration.ErrNotFoundUpstream
	}
	return c, nil
}

func (f *fakePlatform) ListProducts(ctx context.Context, token string, page integration.PageRequest) ([]integration.PlatformProduct, error) {
	if f.failAtPage > 0 && page.Page == f.failAtPage {
		return nil, fmt.Errorf("%w: connection reset", integration.ErrPlatformUnavailable)
	}
	if page.Page > len(f.productPages) {
		return nil, nil
	}
	return f.productPages[page.Page-1], nil
}

func (f *fakePlatform) ListOrders(ctx context.Context, token string, page integration.PageRequest) ([]integration.PlatformOrder, error) {
	if f.failAtPage > 0 && page.Page == f.failAtPage {
		return nil, fmt.Errorf("%w: connection reset", integration.ErrPlatformUnavailable)
	}
	if page.Page > len(f.orderPages) {
		return nil, nil
	}
	return f.orderPages[page.Page-1], nil
}

func (f *fakePlatform) ListCheckouts(ctx context.Context, token string, page integration.PageRequest) ([]integration.PlatformCheckout, error) {
	if f.failAtPage > 0 && page.Page == f.failAtPage {
		return nil, fmt.Errorf("%w: connection reset", integration.ErrPlatformUnavailable)
	}
	if page.Page > len(f.checkoutPages) {
		return nil, nil
	}
	return f.checkoutPages[page.Page-1], nil
}

func (f *fakePlatform) RegisterWebhook(ctx context.Context, token string, sub integration.WebhookSubscription, callbackURL string) error {
	f.registerCalls = append(f.registerCalls, sub.Event)
	f.lastCallback = callbackURL
	if f.failingEvents[sub.Event] {
		return fmt.Errorf("%w: HTTP 422", integration.ErrPlatformRequestFailed)
	}
	return nil
}

var _ integration.CommercePlatform = (*fakePlatform)(nil)

// ---------------------------------------------------------------------------
// Repository fakes
// ---------------------------------------------------------------------------

type fakeProductRepo struct {
	rows    []*catalog.Product
	saves   int
	updates int
}

func (r *fakeProductRepo) FindByExternalID(ctx context.Context, storeID, externalID string) (*catalog.Product, error) {
	var found *catalog.Product
	for _, p := range r.rows {
		if p.StoreID == storeID && p.ExternalID == externalID {
			if found == nil || p.UpdatedAt.After(found.UpdatedAt) {
				found = p
			}
		}
	}
	if found == nil {
		return nil, shared.ErrNotFound
	}
	return found, nil
}

func (r *fakeProductRepo) Save(ctx context.Context, product *catalog.Product) error {
	r.saves++
	r.rows = append(r.rows, product)
	return nil
}

func (r *fakeProductRepo) Update(ctx context.Context, product *catalog.Product) error {
	r.updates++
	product.UpdatedAt = time.Now()
	return nil
}

func (r *fakeProductRepo) DeleteByExternalID(ctx context.Context, storeID, externalID string) error {
	kept := r.rows[:0]
	for _, p := range r.rows {
		if !(p.StoreID == storeID && p.ExternalID == externalID) {
			kept = append(kept, p)
		}
	}
	r.rows = kept
	return nil
}

func (r *fakeProductRepo) DeleteByStore(ctx context.Context, storeID string) (int64, error) {
	var deleted int64
	kept := r.rows[:0]
	for _, p := range r.rows {
		if p.StoreID == storeID {
			deleted++
			continue
		}
		kept = append(kept, p)
	}
	r.rows = kept
	return deleted, nil
}

func (r *fakeProductRepo) FindDuplicates(ctx context.Context, storeID string) ([]catalog.DuplicateGroup, error) {
	byExternal := make(map[string][]catalog.Product)
	for _, p := range r.rows {
		if p.StoreID == storeID {
			byExternal[p.ExternalID] = append(byExternal[p.ExternalID], *p)
		}
	}
	groups := make([]catalog.DuplicateGroup, 0)
	for externalID, rows := range byExternal {
		if len(rows) < 2 {
			continue
		}
		sortProductsByUpdatedAtDesc(rows)
		groups = append(groups, catalog.DuplicateGroup{StoreID: storeID, ExternalID: externalID, Products: rows})
	}
	return groups, nil
}

func (r *fakeProductRepo) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	drop := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := r.rows[:0]
	for _, p := range r.rows {
		if !drop[p.ID] {
			kept = append(kept, p)
		}
	}
	r.rows = kept
	return nil
}

func (r *fakeProductRepo) CountByStore(ctx context.Context, storeID string) (int64, error) {
	var count int64
	for _, p := range r.rows {
		if p.StoreID == storeID {
			count++
		}
	}
	return count, nil
}

func sortProductsByUpdatedAtDesc(rows []catalog.Product) {
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0 && rows[j].UpdatedAt.After(rows[j-1].UpdatedAt); j-- {
			rows[j], rows[j-1] = rows[j-1], rows[j]
		}
	}
}

var _ catalog.ProductRepository = (*fakeProductRepo)(nil)

type fakeOrderRepo struct {
	rows    []*trade.Order
	saves   int
	updates int
	saveErr error
}

func (r *fakeOrderRepo) FindByExternalID(ctx context.Context, storeID, externalID string) (*trade.Order, error) {
	var found *trade.Order
	for _, o := range r.rows {
		if o.StoreID == storeID && o.ExternalID == externalID {
			if found == nil || o.UpdatedAt.After(found.UpdatedAt) {
				found = o
			}
		}
	}
	if found == nil {
		return nil, shared.ErrNotFound
	}
	return found, nil
}

func (r *fakeOrderRepo) Save(ctx context.Context, order *trade.Order) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.rows = append(r.rows, order)
	return nil
}

func (r *fakeOrderRepo) Update(ctx context.Context, order *trade.Order) error {
	r.updates++
	order.UpdatedAt = time.Now()
	return nil
}

func (r *fakeOrderRepo) DeleteByExternalID(ctx context.Context, storeID, externalID string) error {
	kept := r.rows[:0]
	for _, o := range r.rows {
		if !(o.StoreID == storeID && o.ExternalID == externalID) {
			kept = append(kept, o)
		}
	}
	r.rows = kept
	return nil
}

func (r *fakeOrderRepo) DeleteByStore(ctx context.Context, storeID string) (int64, error) {
	var deleted int64
	kept := r.rows[:0]
	for _, o := range r.rows {
		if o.StoreID == storeID {
			deleted++
			continue
		}
		kept = append(kept, o)
	}
	r.rows = kept
	return deleted, nil
}

func (r *fakeOrderRepo) FindDuplicates(ctx context.Context, storeID string) ([]trade.OrderDuplicateGroup, error) {
	byExternal := make(map[string][]trade.Order)
	for _, o := range r.rows {
		if o.StoreID == storeID {
			byExternal[o.ExternalID] = append(byExternal[o.ExternalID], *o)
		}
	}
	groups := make([]trade.OrderDuplicateGroup, 0)
	for externalID, rows := range byExternal {
		if len(rows) < 2 {
			continue
		}
		for i := 1; i < len(rows); i++ {
			for j := i; j > 0 && rows[j].UpdatedAt.After(rows[j-1].UpdatedAt); j-- {
				rows[j], rows[j-1] = rows[j-1], rows[j]
			}
		}
		groups = append(groups, trade.OrderDuplicateGroup{StoreID: storeID, ExternalID: externalID, Orders: rows})
	}
	return groups, nil
}

func (r *fakeOrderRepo) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	drop := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := r.rows[:0]
	for _, o := range r.rows {
		if !drop[o.ID] {
			kept = append(kept, o)
		}
	}
	r.rows = kept
	return nil
}

var _ trade.OrderRepository = (*fakeOrderRepo)(nil)

type fakeCheckoutRepo struct {
	rows []*trade.Checkout
}

func (r *fakeCheckoutRepo) FindByExternalID(ctx context.Context, storeID, externalID string) (*trade.Checkout, error) {
	for _, c := range r.rows {
		if c.StoreID == storeID && c.ExternalID == externalID {
			return c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeCheckoutRepo) Save(ctx context.Context, checkout *trade.Checkout) error {
	r.rows = append(r.rows, checkout)
	return nil
}

func (r *fakeCheckoutRepo) Update(ctx context.Context, checkout *trade.Checkout) error {
	checkout.UpdatedAt = time.Now()
	return nil
}

func (r *fakeCheckoutRepo) DeleteByExternalID(ctx context.Context, storeID, externalID string) error {
	kept := r.rows[:0]
	for _, c := range r.rows {
		if !(c.StoreID == storeID && c.ExternalID == externalID) {
			kept = append(kept, c)
		}
	}
	r.rows = kept
	return nil
}

func (r *fakeCheckoutRepo) DeleteByStore(ctx context.Context, storeID string) (int64, error) {
	var deleted int64
	kept := r.rows[:0]
	for _, c := range r.rows {
		if c.StoreID == storeID {
			deleted++
			continue
		}
		kept = append(kept, c)
	}
	r.rows = kept
	return deleted, nil
}

func (r *fakeCheckoutRepo) FindDuplicates(ctx context.Context, storeID string) ([]trade.CheckoutDuplicateGroup, error) {
	return nil, nil
}

func (r *fakeCheckoutRepo) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	drop := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := r.rows[:0]
	for _, c := range r.rows {
		if !drop[c.ID] {
			kept = append(kept, c)
		}
	}
	r.rows = kept
	return nil
}

var _ trade.CheckoutRepository = (*fakeCheckoutRepo)(nil)

type fakeSnapshotRepo struct {
	rows []*trade.OrderSnapshot
}

func (r *fakeSnapshotRepo) Upsert(ctx context.Context, snapshot *trade.OrderSnapshot) error {
	for i, existing := range r.rows {
		if existing.StoreID == snapshot.StoreID && existing.ExternalID == snapshot.ExternalID {
			r.rows[i] = snapshot
			return nil
		}
	}
	r.rows = append(r.rows, snapshot)
	return nil
}

func (r *fakeSnapshotRepo) FindByStore(ctx context.Context, storeID string) ([]trade.OrderSnapshot, error) {
	out := make([]trade.OrderSnapshot, 0)
	for _, s := range r.rows {
		if s.StoreID == storeID {
			out = append(out, *s)
		}
	}
	return out, nil
}

var _ trade.OrderSnapshotRepository = (*fakeSnapshotRepo)(nil)

// ---------------------------------------------------------------------------
// Credential fakes
// ---------------------------------------------------------------------------

type fakeCredentialRepo struct {
	creds map[string]*credentialdomain.Credential
}

func newFakeCredentialRepo() *fakeCredentialRepo {
	return &fakeCredentialRepo{creds: make(map[string]*credentialdomain.Credential)}
}

func (r *fakeCredentialRepo) FindByStoreID(ctx context.Context, storeID string) (*credentialdomain.Credential, error) {
	cred, ok := r.creds[storeID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cred, nil
}

func (r *fakeCredentialRepo) Save(ctx context.Context, cred *credentialdomain.Credential) error {
	r.creds[cred.StoreID] = cred
	return nil
}

func (r *fakeCredentialRepo) Update(ctx context.Context, cred *credentialdomain.Credential) error {
	r.creds[cred.StoreID] = cred
	return nil
}

func (r *fakeCredentialRepo) Delete(ctx context.Context, storeID string) error {
	delete(r.creds, storeID)
	return nil
}

var _ credentialdomain.Repository = (*fakeCredentialRepo)(nil)

// fakeCipher prefixes instead of encrypting; tests only need round trips
type fakeCipher struct{}

func (fakeCipher) Encrypt(plaintext string) (string, error) {
	return "enc:" + plaintext, nil
}

func (fakeCipher) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, "enc:") {
		return "", fmt.Errorf("malformed ciphertext")
	}
	return strings.TrimPrefix(ciphertext, "enc:"), nil
}

var _ credentialdomain.Cipher = fakeCipher{}

// ---------------------------------------------------------------------------
// Order decoder fake
// ---------------------------------------------------------------------------

type fakeDecoder struct {
	orders map[string]*integration.PlatformOrder
}

func (d *fakeDecoder) DecodeOrder(raw []byte) (*integration.PlatformOrder, error) {
	order, ok := d.orders[string(raw)]
	if !ok {
		return nil, fmt.Errorf("%w: unrecognized snapshot", integration.ErrPlatformInvalidResponse)
	}
	return order, nil
}
