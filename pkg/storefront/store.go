package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrUserRequired      = errors.New("storefront: user id required")
	ErrEmptyCart         = errors.New("storefront: cart is empty")
	ErrInsufficientFunds = errors.New("storefront: insufficient funds")
)

// DefaultPaymentMethod is recorded when checkout is called without one.
const DefaultPaymentMethod = "balance"

const (
	keyCart     = "cart"
	keyWishlist = "wishlist"
	keyLibrary  = "library"
	keyReceipts = "receipts"
	keyBalance  = "balance"
)

// Store reads and writes per-user storefront records. Every mutation runs
// under one lock so read-modify-write cycles do not interleave within a
// process.
type Store struct {
	kv     KV
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

func NewStore(kv KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		kv:     kv,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func userKey(user, record string) string { return user + ":" + record }

// loadRecord decodes the record into a fresh value. Absent and malformed
// values yield fallback, never a partial decode.
func loadRecord[T any](ctx context.Context, s *Store, user, record string, fallback T) (T, error) {
	if strings.TrimSpace(user) == "" {
		return fallback, ErrUserRequired
	}

	raw, err := s.kv.Get(ctx, userKey(user, record))
	if errors.Is(err, ErrKeyNotFound) {
		return fallback, nil
	}
	if err != nil {
		return fallback, fmt.Errorf("read %s: %w", record, err)
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		s.logger.WarnContext(ctx, "discarding malformed storefront record",
			slog.String("user", user),
			slog.String("record", record),
			slog.String("error", err.Error()))
		return fallback, nil
	}
	return v, nil
}

func (s *Store) save(ctx context.Context, user, record string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", record, err)
	}
	if err := s.kv.Set(ctx, userKey(user, record), raw); err != nil {
		return fmt.Errorf("write %s: %w", record, err)
	}
	return nil
}

// Cart returns the user's cart, empty when nothing is stored.
func (s *Store) Cart(ctx context.Context, user string) ([]CartItem, error) {
	items, err := loadRecord(ctx, s, user, keyCart, []CartItem{})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// AddToCart adds one copy of item. A second add with the same title bumps
// the quantity instead of adding a line.
func (s *Store) AddToCart(ctx context.Context, user string, item CartItem) ([]CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.Cart(ctx, user)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range items {
		if items[i].Title == item.Title {
			items[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		item.Quantity = 1
		items = append(items, item)
	}

	if err := s.save(ctx, user, keyCart, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) RemoveFromCart(ctx context.Context, user, title string) ([]CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.Cart(ctx, user)
	if err != nil {
		return nil, err
	}
	items = removeCartLine(items, title)

	if err := s.save(ctx, user, keyCart, items); err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateQuantity sets the quantity of the line with title. Quantities
// below one remove the line.
func (s *Store) UpdateQuantity(ctx context.Context, user, title string, quantity int) ([]CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.Cart(ctx, user)
	if err != nil {
		return nil, err
	}

	if quantity < 1 {
		items = removeCartLine(items, title)
	} else {
		for i := range items {
			if items[i].Title == title {
				items[i].Quantity = quantity
			}
		}
	}

	if err := s.save(ctx, user, keyCart, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ClearCart(ctx context.Context, user string) error {
	if strings.TrimSpace(user) == "" {
		return ErrUserRequired
	}
	if err := s.kv.Delete(ctx, userKey(user, keyCart)); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// CartTotal sums price times quantity over the cart.
func (s *Store) CartTotal(ctx context.Context, user string) (decimal.Decimal, error) {
	items, err := s.Cart(ctx, user)
	if err != nil {
		return decimal.Zero, err
	}
	return cartTotal(items), nil
}

func cartTotal(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func removeCartLine(items []CartItem, title string) []CartItem {
	out := items[:0]
	for _, it := range items {
		if it.Title != title {
			out = append(out, it)
		}
	}
	return out
}

func (s *Store) Wishlist(ctx context.Context, user string) ([]WishlistItem, error) {
	items, err := loadRecord(ctx, s, user, keyWishlist, []WishlistItem{})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// AddToWishlist stores item unless a game with the same title is already
// wishlisted.
func (s *Store) AddToWishlist(ctx context.Context, user string, item WishlistItem) ([]WishlistItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.Wishlist(ctx, user)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if it.Title == item.Title {
			return items, nil
		}
	}
	items = append(items, item)

	if err := s.save(ctx, user, keyWishlist, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) RemoveFromWishlist(ctx context.Context, user, title string) ([]WishlistItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.Wishlist(ctx, user)
	if err != nil {
		return nil, err
	}

	out := items[:0]
	for _, it := range items {
		if it.Title != title {
			out = append(out, it)
		}
	}

	if err := s.save(ctx, user, keyWishlist, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) IsWishlisted(ctx context.Context, user, title string) (bool, error) {
	items, err := s.Wishlist(ctx, user)
	if err != nil {
		return false, err
	}
	for _, it := range items {
		if it.Title == title {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) Library(ctx context.Context, user string) ([]LibraryItem, error) {
	items, err := loadRecord(ctx, s, user, keyLibrary, []LibraryItem{})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) Receipts(ctx context.Context, user string) ([]Receipt, error) {
	items, err := loadRecord(ctx, s, user, keyReceipts, []Receipt{})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Balance returns the wallet balance, StartingBalance when none is stored.
func (s *Store) Balance(ctx context.Context, user string) (decimal.Decimal, error) {
	stored, err := loadRecord[*decimal.Decimal](ctx, s, user, keyBalance, nil)
	if err != nil {
		return decimal.Zero, err
	}
	if stored == nil {
		return StartingBalance, nil
	}
	return *stored, nil
}
