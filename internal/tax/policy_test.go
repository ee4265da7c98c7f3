package tax

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteFor(t *testing.T) {
	cases := []struct {
		name    string
		country string
		rate    float64
		label   string
		code    string
	}{
		{"ドイツ", "DE", 0.19, "MwSt. 19%", "DE"},
		{"フィンランド", "FI", 0.255, "ALV 25.5%", "FI"},
		{"ルクセンブルク", "LU", 0.16, "TVA 16%", "LU"},
		{"ハンガリーは最高税率", "HU", 0.27, "ÁFA 27%", "HU"},
		{"スイスは非EUでも課税", "CH", 0.081, "MWST 8.1%", "CH"},
		{"英国", "GB", 0.20, "VAT 20%", "GB"},
		{"小文字でも引ける", "de", 0.19, "MwSt. 19%", "DE"},
		{"空白は無視する", " fr ", 0.20, "TVA 20%", "FR"},
		{"USは売上税を取らない", "US", 0, LabelNoSalesTax, "US"},
		{"空はunknown扱い", "", 0, LabelNoTax, "unknown"},
		{"unknownも非課税", "unknown", 0, LabelNoTax, "unknown"},
		{"未知の国コードは非課税", "XX", 0, LabelNoTax, "XX"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := QuoteFor(tc.country)
			assert.Equal(t, tc.code, q.CountryCode)
			assert.Equal(t, tc.rate, q.Rate)
			assert.Equal(t, tc.label, q.Label)
		})
	}
}

func TestAmountFor(t *testing.T) {
	// 最小通貨単位のまま丸める
	assert.Equal(t, int64(52440), AmountFor(276000, 0.19))
	assert.Equal(t, int64(1900), AmountFor(10000, 0.19))
	assert.Equal(t, int64(0), AmountFor(50000, 0))

	// 端数は四捨五入（FIの25.5%など）
	assert.Equal(t, int64(26), AmountFor(101, 0.255))
	assert.Equal(t, int64(8), AmountFor(99, 0.081))
}
