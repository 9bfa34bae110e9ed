package storefront

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aussiebroadwan/gamevault/pkg/idx"
)

// Checkout pays for the whole cart from the wallet. On success the games
// are added to the library, a receipt is recorded and the cart is emptied.
func (s *Store) Checkout(ctx context.Context, user, paymentMethod string) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.Cart(ctx, user)
	if err != nil {
		return Receipt{}, err
	}
	if len(items) == 0 {
		return Receipt{}, ErrEmptyCart
	}

	balance, err := s.Balance(ctx, user)
	if err != nil {
		return Receipt{}, err
	}
	total := cartTotal(items)
	if total.GreaterThan(balance) {
		return Receipt{}, fmt.Errorf("%w: total %s exceeds balance %s",
			ErrInsufficientFunds, total.StringFixed(2), balance.StringFixed(2))
	}

	if strings.TrimSpace(paymentMethod) == "" {
		paymentMethod = DefaultPaymentMethod
	}

	now := s.now()
	receipt := Receipt{
		OrderID:       idx.NewAt(now).String(),
		Games:         make([]ReceiptLine, 0, len(items)),
		Date:          now,
		Amount:        total,
		PaymentMethod: paymentMethod,
	}

	library, err := s.Library(ctx, user)
	if err != nil {
		return Receipt{}, err
	}
	receipts, err := s.Receipts(ctx, user)
	if err != nil {
		return Receipt{}, err
	}

	prevLibrary, prevReceipts := library, receipts
	for _, it := range items {
		receipt.Games = append(receipt.Games, ReceiptLine{
			Title:    it.Title,
			Price:    it.SalePrice,
			Quantity: it.Quantity,
		})
		library = append(library, LibraryItem{
			Title:        it.Title,
			GameID:       it.GameID,
			PurchaseDate: now,
			OrderID:      receipt.OrderID,
		})
	}
	receipts = append(receipts, receipt)

	// The balance is written last so a failed order never costs money.
	if err := s.save(ctx, user, keyLibrary, library); err != nil {
		return Receipt{}, err
	}
	if err := s.save(ctx, user, keyReceipts, receipts); err != nil {
		s.restore(ctx, user, prevLibrary, prevReceipts)
		return Receipt{}, err
	}
	if err := s.save(ctx, user, keyBalance, balance.Sub(total)); err != nil {
		s.restore(ctx, user, prevLibrary, prevReceipts)
		return Receipt{}, err
	}
	if err := s.ClearCart(ctx, user); err != nil {
		return Receipt{}, err
	}

	s.logger.InfoContext(ctx, "checkout completed",
		slog.String("user", user),
		slog.String("order_id", receipt.OrderID),
		slog.String("amount", total.StringFixed(2)),
		slog.Int("games", len(items)))

	return receipt, nil
}

// restore puts back the library and receipts an unpaid order touched.
func (s *Store) restore(ctx context.Context, user string, library []LibraryItem, receipts []Receipt) {
	if err := s.save(ctx, user, keyLibrary, library); err != nil {
		s.logger.ErrorContext(ctx, "failed to restore library after checkout error",
			slog.String("user", user),
			slog.String("error", err.Error()))
	}
	if err := s.save(ctx, user, keyReceipts, receipts); err != nil {
		s.logger.ErrorContext(ctx, "failed to restore receipts after checkout error",
			slog.String("user", user),
			slog.String("error", err.Error()))
	}
}
