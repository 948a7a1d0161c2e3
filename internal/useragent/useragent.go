// Package useragent builds the pool of browser User-Agent strings the
// upstream client rotates through, one random pick per request.
package useragent

import (
	"fmt"
	"math/rand/v2"
)

// DefaultCount is the minimum pool size produced by Generate.
const DefaultCount = 1000

// Pool is an immutable set of unique User-Agent strings.
// Pick is safe for concurrent use.
type Pool struct {
	agents []string
}

// NewPool wraps a fixed list. Duplicates and empty strings are dropped.
// It panics if no usable agent remains; a pool is never empty.
func NewPool(agents []string) *Pool {
	seen := make(map[string]struct{}, len(agents))
	out := make([]string, 0, len(agents))
	for _, a := range agents {
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	if len(out) == 0 {
		panic("useragent: empty pool")
	}
	return &Pool{agents: out}
}

// Pick returns one agent chosen uniformly at random.
func (p *Pool) Pick() string {
	return p.agents[rand.IntN(len(p.agents))]
}

// Len returns the number of distinct agents.
func (p *Pool) Len() int { return len(p.agents) }

// Agents returns a copy of the pool's contents.
func (p *Pool) Agents() []string {
	out := make([]string, len(p.agents))
	copy(out, p.agents)
	return out
}

// Generate returns a pool of at least count unique agents (DefaultCount when
// count < 1), seeded with the fixed current-browser list and topped up with
// synthesized desktop and mobile agents drawn from rnd.
func Generate(count int, rnd *rand.Rand) *Pool {
	if count < 1 {
		count = DefaultCount
	}
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	set := make(map[string]struct{}, count)
	agents := make([]string, 0, count)
	add := func(a string) {
		if _, ok := set[a]; ok {
			return
		}
		set[a] = struct{}{}
		agents = append(agents, a)
	}

	for _, a := range latest {
		add(a)
	}
	for len(agents) < count {
		add(synthesize(rnd))
	}
	return &Pool{agents: agents}
}

var desktopPlatforms = []string{
	"Windows NT 10.0; Win64; x64",
	"Windows NT 10.0; WOW64",
	"Windows NT 6.1; Win64; x64",
	"Macintosh; Intel Mac OS X 10_15_7",
	"Macintosh; Intel Mac OS X 13_6_1",
	"Macintosh; Intel Mac OS X 14_4",
	"X11; Linux x86_64",
	"X11; Ubuntu; Linux x86_64",
	"X11; Fedora; Linux x86_64",
}

var androidDevices = []string{
	"Linux; Android 13; SM-S918B",
	"Linux; Android 14; Pixel 8",
	"Linux; Android 14; Pixel 7a",
	"Linux; Android 12; SM-A525F",
	"Linux; Android 13; M2101K20G",
	"Linux; Android 11; moto g(30)",
}

var iosVersions = []string{"15_8", "16_6", "16_7", "17_2", "17_4", "17_5", "18_0"}

func synthesize(rnd *rand.Rand) string {
	switch rnd.IntN(6) {
	case 0, 1:
		return fmt.Sprintf("Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%d.0.%d.%d Safari/537.36",
			pick(rnd, desktopPlatforms), 100+rnd.IntN(32), 4000+rnd.IntN(2600), rnd.IntN(250))
	case 2:
		v := 100 + rnd.IntN(32)
		return fmt.Sprintf("Mozilla/5.0 (%s; rv:%d.0) Gecko/20100101 Firefox/%d.0",
			pick(rnd, desktopPlatforms), v, v)
	case 3:
		v, build := 100+rnd.IntN(32), 1000+rnd.IntN(1600)
		return fmt.Sprintf("Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%d.0.%d.%d Safari/537.36 Edg/%d.0.%d.%d",
			pick(rnd, desktopPlatforms[:3]), v, build, rnd.IntN(200), v, build, rnd.IntN(200))
	case 4:
		return fmt.Sprintf("Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%d.0.%d.%d Mobile Safari/537.36",
			pick(rnd, androidDevices), 100+rnd.IntN(32), 4000+rnd.IntN(2600), rnd.IntN(250))
	default:
		ios := pick(rnd, iosVersions)
		return fmt.Sprintf("Mozilla/5.0 (iPhone; CPU iPhone OS %s like Mac OS X) AppleWebKit/605.1.%d (KHTML, like Gecko) Version/%d.%d Mobile/15E148 Safari/604.1",
			ios, 1+rnd.IntN(15), 15+rnd.IntN(4), rnd.IntN(7))
	}
}

func pick(rnd *rand.Rand, from []string) string {
	return from[rnd.IntN(len(from))]
}

// latest is a snapshot of widely deployed browser agents.
var latest = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4.1 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.2478.80",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_4_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4.1 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 10; K) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Mobile Safari/537.36",
}
