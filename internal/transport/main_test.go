package transport

import (
	"os"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMain(m *testing.M) {
	// Same wire format cmd/api sets at startup
	decimal.MarshalJSONWithoutQuotes = true
	os.Exit(m.Run())
}
