package identity

import (
	"fmt"
	"math/rand"
)

var uaPlatforms = []string{
	"Windows NT 10.0; Win64; x64",
	"Windows NT 10.0; WOW64",
	"Macintosh; Intel Mac OS X 10_15_7",
	"Macintosh; Intel Mac OS X 11_2_3",
	"X11; Linux x86_64",
}

// RandomUserAgent builds a plausible Chrome user agent string. Useful for
// padding a configured pool that is too small.
func RandomUserAgent() string {
	platform := uaPlatforms[rand.Intn(len(uaPlatforms))]
	major := 110 + rand.Intn(20)
	build := 4400 + rand.Intn(1400)
	patch := 50 + rand.Intn(150)
	webkit := 36 + rand.Intn(14)
	return fmt.Sprintf(
		"Mozilla/5.0 (%s) AppleWebKit/537.%d (KHTML, like Gecko) Chrome/%d.0.%d.%d Safari/537.%d",
		platform, webkit, major, build, patch, webkit,
	)
}
