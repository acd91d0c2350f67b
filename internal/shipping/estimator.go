// Package shipping estimates carrier costs from a static commune → price-zone table.
package shipping

import (
	"sort"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Zone is a shipping price tier
type Zone string

const (
	ZoneRM      Zone = "RM"
	ZoneNorte   Zone = "NORTE"
	ZoneCentro  Zone = "CENTRO"
	ZoneSur     Zone = "SUR"
	ZoneExtremo Zone = "EXTREMO"
)

// Zones lists the price tiers in display order
var Zones = []Zone{ZoneRM, ZoneNorte, ZoneCentro, ZoneSur, ZoneExtremo}

var basePrices = map[Zone]int64{
	ZoneRM:      4500,
	ZoneCentro:  6500,
	ZoneNorte:   8900,
	ZoneSur:     7900,
	ZoneExtremo: 12500,
}

// BasePrice returns the zone's base price
func (z Zone) BasePrice() int64 {
	return basePrices[z]
}

// Carrier is a courier code
type Carrier string

const (
	CarrierStarken     Carrier = "STARKEN"
	CarrierChilexpress Carrier = "CHILEXPRESS"
	CarrierBlue        Carrier = "BLUE"
	// CarrierOther is a self-managed carrier; it is never priced
	CarrierOther Carrier = "OTHER"
)

// Carriers lists the priced carriers
var Carriers = []Carrier{CarrierStarken, CarrierChilexpress, CarrierBlue}

var multipliers = map[Carrier]decimal.Decimal{
	CarrierStarken:     decimal.RequireFromString("1.0"),
	CarrierChilexpress: decimal.RequireFromString("1.4"),
	CarrierBlue:        decimal.RequireFromString("0.9"),
}

var communesByZone = map[Zone][]string{
	ZoneRM:      {"santiago", "providencia", "las condes", "maipu", "puente alto"},
	ZoneNorte:   {"arica", "iquique", "antofagasta", "copiapo", "la serena"},
	ZoneCentro:  {"valparaiso", "viña del mar", "rancagua", "talca"},
	ZoneSur:     {"concepcion", "temuco", "valdivia", "puerto montt"},
	ZoneExtremo: {"coyhaique", "punta arenas"},
}

var communeIndex = buildIndex()

func buildIndex() map[string]Zone {
	idx := make(map[string]Zone)
	for zone, communes := range communesByZone {
		for _, c := range communes {
			idx[Normalize(c)] = zone
		}
	}
	return idx
}

// Normalize lowercases, trims and strips diacritics so "Viña del Mar" matches "vina del mar"
func Normalize(commune string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(commune)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(commune))
	}
	return strings.Join(strings.Fields(out), " ")
}

// ResolveZone maps a commune to its zone. Unknown or empty communes fall back to RM.
func ResolveZone(commune string) Zone {
	if zone, ok := communeIndex[Normalize(commune)]; ok {
		return zone
	}
	return ZoneRM
}

// Estimate returns the integer cost of shipping to commune with carrier and the zone used.
// OTHER costs 0 and resolves to no zone. Unknown carrier codes are priced at the base rate.
func Estimate(commune string, carrier Carrier) (int64, *Zone) {
	if carrier == CarrierOther {
		return 0, nil
	}
	zone := ResolveZone(commune)
	mult, ok := multipliers[carrier]
	if !ok {
		mult = decimal.NewFromInt(1)
	}
	cost := decimal.NewFromInt(zone.BasePrice()).Mul(mult).Truncate(0).IntPart()
	return cost, &zone
}

// Quote is the cost of every priced carrier for one commune
type Quote struct {
	Commune string
	Zone    Zone
	Options map[Carrier]int64
}

// QuoteAll prices every carrier in Carriers
func QuoteAll(commune string) Quote {
	q := Quote{
		Commune: commune,
		Zone:    ResolveZone(commune),
		Options: make(map[Carrier]int64, len(Carriers)),
	}
	for _, c := range Carriers {
		q.Options[c], _ = Estimate(commune, c)
	}
	return q
}

// ZoneCommunes is one entry of the commune directory
type ZoneCommunes struct {
	Zone      Zone
	BasePrice int64
	Communes  []string
}

// Directory lists each zone with its title-cased communes sorted alphabetically
func Directory() []ZoneCommunes {
	title := cases.Title(language.Spanish)
	out := make([]ZoneCommunes, 0, len(Zones))
	for _, z := range Zones {
		names := make([]string, 0, len(communesByZone[z]))
		for _, c := range communesByZone[z] {
			names = append(names, title.String(c))
		}
		sort.Strings(names)
		out = append(out, ZoneCommunes{Zone: z, BasePrice: z.BasePrice(), Communes: names})
	}
	return out
}
