package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormBar(t *testing.T) {
	cases := map[string]string{
		"1m":       "1m",
		"15m":      "15m",
		"1h":       "1H",
		"1H":       "1H",
		"4H":       "4H",
		"candle1H": "1H",
		" 1d ":     "1D",
		"1D":       "1D",
		"1W":       "1W",
		"3M":       "3M",
		"":         "",
	}

	for in, want := range cases {
		assert.Equal(t, want, NormBar(in), "input %q", in)
	}
}
