package storefront

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PlaceholderThumb is shown for games without artwork.
const PlaceholderThumb = "/assets/default-placeholder.png"

// StartingBalance is the wallet of a player who has never checked out.
var StartingBalance = decimal.NewFromInt(100)

type CartItem struct {
	Title     string          `json:"title"`
	Thumb     string          `json:"thumb"`
	SalePrice decimal.Decimal `json:"salePrice"`
	GameID    string          `json:"gameID"`
	Quantity  int             `json:"quantity"`
}

// Subtotal is the line price times its quantity.
func (c CartItem) Subtotal() decimal.Decimal {
	return c.SalePrice.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

type WishlistItem struct {
	Title     string          `json:"title"`
	Thumb     string          `json:"thumb"`
	SalePrice decimal.Decimal `json:"salePrice"`
	GameID    string          `json:"gameID"`
}

type LibraryItem struct {
	Title        string    `json:"title"`
	GameID       string    `json:"gameID"`
	PurchaseDate time.Time `json:"purchaseDate"`
	OrderID      string    `json:"orderId"`
}

type ReceiptLine struct {
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type Receipt struct {
	OrderID       string          `json:"orderId"`
	Games         []ReceiptLine   `json:"games"`
	Date          time.Time       `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod"`
}

// ThumbOrPlaceholder returns thumb, or PlaceholderThumb when it is blank.
func ThumbOrPlaceholder(thumb string) string {
	if strings.TrimSpace(thumb) == "" {
		return PlaceholderThumb
	}
	return thumb
}
