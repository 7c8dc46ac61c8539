package lnscan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAmountAsSatoshis(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		amount string
		sats   uint64
		err    bool
	}{
		{amount: "0.00001", sats: 1000},
		{amount: "1", sats: 100_000_000},
		{amount: "21000000", sats: 2_100_000_000_000_000},
		{amount: "0", sats: 0},
		{amount: ".5", sats: 50_000_000},
		{amount: "0.123456789", sats: 12_345_678},
		{amount: "0.000000009", sats: 0},
		{amount: "-0.1", err: true},
		{amount: "abc", err: true},
		{amount: "", err: true},
		{amount: "1e400", err: true},
		{amount: "1e30", err: true},
		{amount: "1e20000000", err: true},
		{amount: "1e-20000000", err: true},
		{amount: "+1", err: true},
		{amount: ".", err: true},
		{amount: "1.", sats: 100_000_000},
		{amount: "000000000000000000000000001", sats: 100_000_000},
		{amount: "184467440737.09551615", sats: 18_446_744_073_709_551_615},
		{amount: "184467440737.09551616", err: true},
		{amount: "1000000000000", err: true},
		{amount: "0." + strings.Repeat("9", 1_000_000), sats: 99_999_999},
	}

	for _, tc := range testCases {
		name := tc.amount
		if len(name) > 32 {
			name = name[:32]
		}

		t.Run(name, func(t *testing.T) {
			sats, err := ParseAmountAsSatoshis(tc.amount)
			if tc.err {
				require.ErrorIs(t, err, ErrInvalidAmount)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.sats, sats)
		})
	}
}

func TestFindLNURL(t *testing.T) {
	t.Parallel()

	const code = "lnurl1dp68gurn8ghj7um9wfmxjcm99e3k7mf0v9cxj0m385ekvcenxc6r2c35xvukxefcv5mkvv34x5ekzd3ev56nyd3hxqurzepexejxxepnxscrvwfnv9nxzcn9xq6xyefhvgcxxcmyxymnserxfq5fns"

	testCases := []struct {
		name  string
		text  string
		found bool
	}{
		{name: "bare", text: code, found: true},
		{name: "upper case", text: "LNURL1DP68GURN8GHJ7UM9WFMXJCM99E3K7MF0V9CXJ0M385EKVCENXC6R2C35XVUKXEFCV5MKVV34X5EKZD3EV56NYD3HXQURZEPEXEJXXEPNXSCRVWFNV9NXZCN9XQ6XYEFHVGCXXCMYXYMNSERXFQ5FNS", found: true},
		{name: "lightning scheme", text: "lightning:" + code, found: true},
		{name: "fallback url", text: "https://example.com/?lightning=" + code, found: true},
		{name: "fallback url with params", text: "https://example.com/?a=b&lightning=" + code, found: true},
		{name: "bip21", text: "bitcoin:bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq?lightning=" + code, found: true},
		{name: "padded", text: "  " + code + "  ", found: true},
		{name: "not at start", text: "pay " + code},
		{name: "invoice", text: "lnbc1qqqqqqqq"},
		{name: "empty", text: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			found, ok := FindLNURL(tc.text)
			require.Equal(t, tc.found, ok)
			if tc.found {
				require.Equal(t, code, found)
			} else {
				require.Empty(t, found)
			}
		})
	}
}

func TestIsLightningAddress(t *testing.T) {
	t.Parallel()

	require.True(t, IsLightningAddress("alice@example.com"))
	require.False(t, IsLightningAddress("alice@example"))
	require.False(t, IsLightningAddress("02ab@1.2.3.4:9735"))
}
