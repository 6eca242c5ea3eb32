package schemes

import (
	"github.com/shopspring/decimal"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"
)

// Scheme is one row of the scheme master
type Scheme struct {
	Code            string
	ISIN            string
	Name            string
	AMC             string
	PurchaseAllowed bool
	MinPurchase     decimal.Decimal
	LastNAV         decimal.Decimal
}

// InstrumentSource lists mutual fund instruments. *kiteconnect.Client
// satisfies it.
type InstrumentSource interface {
	GetMFInstruments() (kiteconnect.MFInstruments, error)
}

// NewKiteSource returns a Kite Connect client authorised with accessToken.
func NewKiteSource(apiKey, accessToken string) *kiteconnect.Client {
	kite := kiteconnect.New(apiKey)
	kite.SetAccessToken(accessToken)
	return kite
}
