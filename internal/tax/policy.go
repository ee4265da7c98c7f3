package tax

import (
	"math"
	"strings"
)

// 国コードに対する税率と表示ラベル。
type Quote struct {
	CountryCode string  `json:"country_code"`
	Rate        float64 `json:"rate"`
	Label       string  `json:"label"`
}

type rateEntry struct {
	rate  float64
	label string
}

// 国コード -> 税率の正規テーブル。1国1エントリだけを正とする。
var rateTable = map[string]rateEntry{
	"AT": {0.20, "MwSt. 20%"},
	"BE": {0.21, "BTW 21%"},
	"BG": {0.20, "ДДС 20%"},
	"HR": {0.25, "PDV 25%"},
	"CY": {0.19, "ΦΠΑ 19%"},
	"CZ": {0.21, "DPH 21%"},
	"DK": {0.25, "MOMS 25%"},
	"EE": {0.22, "KM 22%"},
	"FI": {0.255, "ALV 25.5%"},
	"FR": {0.20, "TVA 20%"},
	"GE": {0.18, "VAT 18%"},
	"DE": {0.19, "MwSt. 19%"},
	"GR": {0.24, "ΦΠΑ 24%"},
	"HU": {0.27, "ÁFA 27%"},
	"IS": {0.24, "VSK 24%"},
	"IE": {0.23, "VAT 23%"},
	"IT": {0.22, "IVA 22%"},
	"LV": {0.21, "PVN 21%"},
	"LT": {0.21, "PVM 21%"},
	"LU": {0.16, "TVA 16%"},
	"MT": {0.18, "VAT 18%"},
	"MD": {0.20, "TVA 20%"},
	"NL": {0.21, "BTW 21%"},
	"NO": {0.25, "MVA 25%"},
	"PL": {0.23, "VAT 23%"},
	"PT": {0.23, "IVA 23%"},
	"RO": {0.19, "TVA 19%"},
	"SK": {0.23, "DPH 23%"},
	"SI": {0.22, "DDV 22%"},
	"ES": {0.21, "IVA 21%"},
	"SE": {0.25, "MOMS 25%"},
	"CH": {0.081, "MWST 8.1%"},
	"TR": {0.20, "KDV 20%"},
	"UA": {0.20, "ПДВ 20%"},
	"GB": {0.20, "VAT 20%"},
}

const (
	LabelNoTax      = "No VAT/Tax"
	LabelNoSalesTax = "No Sales Tax"
)

// 国コードから税率を引く。失敗しない：未知の国は税率0に落とす。
// 入力は大文字小文字を区別しない。空・unknownは課税なし。
func QuoteFor(countryCode string) Quote {
	code := strings.ToUpper(strings.TrimSpace(countryCode))
	if code == "" || code == "UNKNOWN" {
		return Quote{CountryCode: "unknown", Rate: 0, Label: LabelNoTax}
	}

	//USは州税を計算しない（nexus判定は扱わない）
	if code == "US" {
		return Quote{CountryCode: code, Rate: 0, Label: LabelNoSalesTax}
	}

	e, ok := rateTable[code]
	if !ok {
		return Quote{CountryCode: code, Rate: 0, Label: LabelNoTax}
	}
	return Quote{CountryCode: code, Rate: e.rate, Label: e.label}
}

// 税額 = round(基本金額 * 税率)。最小通貨単位で返す。
func AmountFor(baseAmount int64, rate float64) int64 {
	return int64(math.Round(float64(baseAmount) * rate))
}
