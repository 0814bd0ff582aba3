package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"streampay/internal/models"
	"streampay/internal/repositories"
	"streampay/internal/services/exchange"
	"streampay/internal/services/fee"
	"streampay/internal/services/gateway"
)

func testFeeCalculator() *fee.Calculator {
	flat := fee.Structure{Percentage: 2.0}
	return fee.NewCalculator(fee.Config{
		Structures: map[fee.Type]fee.Structure{
			fee.TypeDeposit:     flat,
			fee.TypeWithdrawal:  flat,
			fee.TypeTransfer:    flat,
			fee.TypeDonation:    flat,
			fee.TypeTransaction: flat,
		},
	})
}

var assertedFault = errors.New("injected storage fault")

func walletCacheKey(walletID uint) string {
	return fmt.Sprintf("wallet:%d", walletID)
}

// fakeStore is an in-memory stand-in for the database. ExecuteInTransaction
// runs fn against a deep copy of the state and only commits it when fn
// returns nil, which lets tests inject faults mid-transaction and assert
// nothing leaked.
type fakeStore struct {
	wallets      map[uint]*models.Wallet
	transactions []*models.Transaction
	nextWalletID uint
	nextTxID     uint

	// failCreateTxAfter fails the Nth transaction Create (1-based) inside
	// the current run when set.
	failCreateTxAfter int
	createTxCalls     int

	// beforeClaim runs once just before the next ClaimPending evaluates
	// its predicate. Tests use it to emulate a concurrent settlement that
	// commits first.
	beforeClaim func(*fakeStore)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		wallets:      make(map[uint]*models.Wallet),
		nextWalletID: 1,
		nextTxID:     1,
	}
}

func (s *fakeStore) clone() *fakeStore {
	c := &fakeStore{
		wallets:           make(map[uint]*models.Wallet, len(s.wallets)),
		transactions:      make([]*models.Transaction, len(s.transactions)),
		nextWalletID:      s.nextWalletID,
		nextTxID:          s.nextTxID,
		failCreateTxAfter: s.failCreateTxAfter,
		createTxCalls:     s.createTxCalls,
		beforeClaim:       s.beforeClaim,
	}
	for id, w := range s.wallets {
		cp := *w
		c.wallets[id] = &cp
	}
	for i, tx := range s.transactions {
		cp := *tx
		c.transactions[i] = &cp
	}
	return c
}

func (s *fakeStore) adopt(c *fakeStore) {
	s.wallets = c.wallets
	s.transactions = c.transactions
	s.nextWalletID = c.nextWalletID
	s.nextTxID = c.nextTxID
	s.createTxCalls = c.createTxCalls
}

type fakeWalletRepo struct {
	store *fakeStore
}

func (r *fakeWalletRepo) Create(ctx context.Context, wallet *models.Wallet) error {
	for _, w := range r.store.wallets {
		if w.UserID == wallet.UserID && w.Currency == wallet.Currency {
			return repositories.ErrDuplicateWallet
		}
	}
	wallet.ID = r.store.nextWalletID
	r.store.nextWalletID++
	wallet.CreatedAt = time.Now()
	cp := *wallet
	r.store.wallets[wallet.ID] = &cp
	return nil
}

func (r *fakeWalletRepo) GetByID(ctx context.Context, id uint) (*models.Wallet, error) {
	w, ok := r.store.wallets[id]
	if !ok {
		return nil, repositories.ErrWalletNotFound
	}
	cp := *w
	return &cp, nil
}

func (r *fakeWalletRepo) GetByIDForUpdate(ctx context.Context, id uint) (*models.Wallet, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeWalletRepo) GetByUserAndCurrency(ctx context.Context, userID uint, currency string) (*models.Wallet, error) {
	for _, w := range r.store.wallets {
		if w.UserID == userID && w.Currency == currency {
			cp := *w
			return &cp, nil
		}
	}
	return nil, repositories.ErrWalletNotFound
}

func (r *fakeWalletRepo) GetByUserID(ctx context.Context, userID uint) ([]*models.Wallet, error) {
	var out []*models.Wallet
	for _, w := range r.store.wallets {
		if w.UserID == userID {
			cp := *w
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeWalletRepo) Update(ctx context.Context, wallet *models.Wallet) error {
	if _, ok := r.store.wallets[wallet.ID]; !ok {
		return repositories.ErrWalletNotFound
	}
	cp := *wallet
	r.store.wallets[wallet.ID] = &cp
	return nil
}

func (r *fakeWalletRepo) SetActive(ctx context.Context, walletID uint, active bool) error {
	w, ok := r.store.wallets[walletID]
	if !ok {
		return repositories.ErrWalletNotFound
	}
	w.IsActive = active
	return nil
}

func (r *fakeWalletRepo) ExecuteInTransaction(ctx context.Context, fn func(repositories.WalletRepository, repositories.TransactionRepository) error) error {
	snapshot := r.store.clone()
	err := fn(&fakeWalletRepo{store: snapshot}, &fakeTransactionRepo{store: snapshot})
	if err != nil {
		return err
	}
	r.store.adopt(snapshot)
	return nil
}

func (r *fakeWalletRepo) GetTotalBalance(ctx context.Context, currency string) (float64, error) {
	var total float64
	for _, w := range r.store.wallets {
		if currency == "" || w.Currency == currency {
			total += w.Balance
		}
	}
	return total, nil
}

func (r *fakeWalletRepo) GetActiveWalletsCount(ctx context.Context) (int64, error) {
	var n int64
	for _, w := range r.store.wallets {
		if w.IsActive {
			n++
		}
	}
	return n, nil
}

type fakeTransactionRepo struct {
	store *fakeStore
}

func (r *fakeTransactionRepo) Create(ctx context.Context, tx *models.Transaction) error {
	r.store.createTxCalls++
	if r.store.failCreateTxAfter > 0 && r.store.createTxCalls >= r.store.failCreateTxAfter {
		return assertedFault
	}
	tx.ID = r.store.nextTxID
	r.store.nextTxID++
	tx.CreatedAt = time.Now()
	cp := *tx
	r.store.transactions = append(r.store.transactions, &cp)
	return nil
}

func (r *fakeTransactionRepo) GetByID(ctx context.Context, id uint) (*models.Transaction, error) {
	for _, tx := range r.store.transactions {
		if tx.ID == id {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, repositories.ErrTransactionNotFound
}

func (r *fakeTransactionRepo) GetByReference(ctx context.Context, reference string) ([]*models.Transaction, error) {
	var out []*models.Transaction
	for _, tx := range r.store.transactions {
		if tx.Reference == reference {
			cp := *tx
			out = append(out, &cp)
		}
	}
	if len(out) == 0 {
		return nil, repositories.ErrTransactionNotFound
	}
	return out, nil
}

func (r *fakeTransactionRepo) GetByExternalID(ctx context.Context, externalID string) (*models.Transaction, error) {
	for _, tx := range r.store.transactions {
		if tx.ExternalID == externalID {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, repositories.ErrTransactionNotFound
}

func (r *fakeTransactionRepo) GetByWallet(ctx context.Context, walletID uint, txType string, limit, offset int) ([]*models.Transaction, error) {
	var out []*models.Transaction
	for _, tx := range r.store.transactions {
		if tx.WalletID != walletID {
			continue
		}
		if txType != "" && tx.Type != txType {
			continue
		}
		cp := *tx
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeTransactionRepo) SumCompletedByWallet(ctx context.Context, walletID uint) (float64, error) {
	var sum float64
	for _, tx := range r.store.transactions {
		if tx.WalletID == walletID && tx.Status == models.TransactionStatusCompleted {
			sum += tx.Amount
		}
	}
	return sum, nil
}

func (r *fakeTransactionRepo) SumByType(ctx context.Context, walletID uint) ([]repositories.TypeSum, error) {
	byType := make(map[string]*repositories.TypeSum)
	for _, tx := range r.store.transactions {
		if tx.WalletID != walletID || tx.Status != models.TransactionStatusCompleted {
			continue
		}
		agg, ok := byType[tx.Type]
		if !ok {
			agg = &repositories.TypeSum{Type: tx.Type}
			byType[tx.Type] = agg
		}
		agg.Count++
		agg.Total += tx.Amount
	}
	var out []repositories.TypeSum
	for _, agg := range byType {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

func (r *fakeTransactionRepo) ClaimPending(ctx context.Context, id uint, status, failureReason string) error {
	if hook := r.store.beforeClaim; hook != nil {
		r.store.beforeClaim = nil
		hook(r.store)
	}
	for _, tx := range r.store.transactions {
		if tx.ID != id {
			continue
		}
		if tx.Status != models.TransactionStatusPending {
			return repositories.ErrTransactionNotPending
		}
		tx.Status = status
		tx.FailureReason = failureReason
		now := time.Now()
		tx.ProcessedAt = &now
		return nil
	}
	return repositories.ErrTransactionNotPending
}

type fakeCache struct {
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.data[key]
	if !ok {
		return repositories.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(c.data, key)
	}
	return nil
}

func (c *fakeCache) GetFloat64(ctx context.Context, key string) (float64, error) {
	var v float64
	if err := c.Get(ctx, key, &v); err != nil {
		return 0, err
	}
	return v, nil
}

func (c *fakeCache) SetFloat64(ctx context.Context, key string, value float64, expiration time.Duration) error {
	return c.Set(ctx, key, value, expiration)
}

func (c *fakeCache) GetWallet(ctx context.Context, walletID uint) (*models.Wallet, error) {
	var w models.Wallet
	if err := c.Get(ctx, walletCacheKey(walletID), &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (c *fakeCache) SetWallet(ctx context.Context, wallet *models.Wallet) error {
	return c.Set(ctx, walletCacheKey(wallet.ID), wallet, 0)
}

func (c *fakeCache) DeleteWallet(ctx context.Context, walletID uint) error {
	return c.Delete(ctx, walletCacheKey(walletID))
}

type fakeRates struct {
	rate float64
	err  error
}

func (f *fakeRates) Convert(ctx context.Context, amount float64, from, to string) (exchange.Conversion, error) {
	if f.err != nil {
		return exchange.Conversion{}, f.err
	}
	return exchange.Conversion{Amount: amount * f.rate, Rate: f.rate}, nil
}

type fakeGateway struct {
	intents int
	payouts int
	err     error
}

func (g *fakeGateway) CreatePaymentIntent(ctx context.Context, amount float64, currency string, metadata map[string]string) (*gateway.PaymentIntent, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.intents++
	return &gateway.PaymentIntent{
		ID:           fmt.Sprintf("pi_%d", g.intents),
		ClientSecret: fmt.Sprintf("pi_%d_secret", g.intents),
		Status:       "requires_payment_method",
	}, nil
}

func (g *fakeGateway) CreatePayout(ctx context.Context, amount float64, currency, destination string) (*gateway.Payout, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.payouts++
	return &gateway.Payout{ID: fmt.Sprintf("po_%d", g.payouts), Status: "pending"}, nil
}

func (g *fakeGateway) GetPaymentStatus(ctx context.Context, intentID string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return "succeeded", nil
}

// newTestService wires a ledger service over the in-memory fakes with a
// flat 2% fee on every operation type, which keeps expected values easy to
// compute by hand.
func newTestService(store *fakeStore) (Service, *fakeGateway) {
	gw := &fakeGateway{}
	svc := NewService(
		&fakeWalletRepo{store: store},
		&fakeTransactionRepo{store: store},
		newFakeCache(),
		testFeeCalculator(),
		&fakeRates{rate: 0.5},
		gw,
		Config{},
		nil,
	)
	return svc, gw
}
