// Package deals reads the storefront catalog from the CheapShark deals API.
package deals

import (
	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the public CheapShark API root.
const DefaultBaseURL = "https://www.cheapshark.com/api/1.0"

// SortBy is a CheapShark deal ordering.
type SortBy string

const (
	SortDealRating SortBy = "Deal Rating"
	SortTitle      SortBy = "Title"
	SortSavings    SortBy = "Savings"
	SortPrice      SortBy = "Price"
	SortMetacritic SortBy = "Metacritic"
	SortReviews    SortBy = "Reviews"
	SortRelease    SortBy = "Release"
	SortStore      SortBy = "Store"
	SortRecent     SortBy = "Recent"
)

// Query filters a deal listing. Zero fields are left to the API defaults.
type Query struct {
	StoreID    string
	SortBy     SortBy
	Title      string
	UpperPrice decimal.Decimal
	PageSize   int
	PageNumber int
}

// Deal is one entry of a deal listing.
type Deal struct {
	DealID             string          `json:"dealID"`
	GameID             string          `json:"gameID"`
	StoreID            string          `json:"storeID"`
	Title              string          `json:"title"`
	Thumb              string          `json:"thumb"`
	SalePrice          decimal.Decimal `json:"salePrice"`
	NormalPrice        decimal.Decimal `json:"normalPrice"`
	Savings            decimal.Decimal `json:"savings"`
	IsOnSale           string          `json:"isOnSale"`
	MetacriticScore    string          `json:"metacriticScore"`
	SteamRatingText    string          `json:"steamRatingText"`
	SteamRatingPercent string          `json:"steamRatingPercent"`
	SteamAppID         string          `json:"steamAppID"`
	ReleaseDate        int64           `json:"releaseDate"`
	LastChange         int64           `json:"lastChange"`
	DealRating         string          `json:"dealRating"`
}

// OnSale reports whether the deal is below its normal price.
func (d Deal) OnSale() bool { return d.IsOnSale == "1" }

// GameInfo describes the game behind a single deal.
type GameInfo struct {
	StoreID            string          `json:"storeID"`
	GameID             string          `json:"gameID"`
	Name               string          `json:"name"`
	SteamAppID         string          `json:"steamAppID"`
	SalePrice          decimal.Decimal `json:"salePrice"`
	RetailPrice        decimal.Decimal `json:"retailPrice"`
	SteamRatingText    string          `json:"steamRatingText"`
	SteamRatingPercent string          `json:"steamRatingPercent"`
	MetacriticScore    string          `json:"metacriticScore"`
	MetacriticLink     string          `json:"metacriticLink"`
	ReleaseDate        int64           `json:"releaseDate"`
	Publisher          string          `json:"publisher"`
	Thumb              string          `json:"thumb"`
}

// StorePrice is the same game offered by another store.
type StorePrice struct {
	DealID      string          `json:"dealID"`
	StoreID     string          `json:"storeID"`
	SalePrice   decimal.Decimal `json:"salePrice"`
	RetailPrice decimal.Decimal `json:"retailPrice"`
}

// CheapestPrice is the lowest price the game has been seen at.
type CheapestPrice struct {
	Price decimal.Decimal `json:"price"`
	Date  int64           `json:"date"`
}

// DealDetail is the lookup result for one deal id.
type DealDetail struct {
	GameInfo      GameInfo      `json:"gameInfo"`
	CheaperStores []StorePrice  `json:"cheaperStores"`
	CheapestPrice CheapestPrice `json:"cheapestPrice"`
}
