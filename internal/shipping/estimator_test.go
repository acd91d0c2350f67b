package shipping_test

import (
	"testing"

	"github.com/clarotec/orders-api/internal/shipping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveZone(t *testing.T) {
	tests := []struct {
		commune string
		want    shipping.Zone
	}{
		{"Santiago", shipping.ZoneRM},
		{"  LAS CONDES ", shipping.ZoneRM},
		{"Viña del Mar", shipping.ZoneCentro},
		{"vina del mar", shipping.ZoneCentro},
		{"Concepción", shipping.ZoneSur},
		{"Copiapó", shipping.ZoneNorte},
		{"Punta Arenas", shipping.ZoneExtremo},
		{"", shipping.ZoneRM},
		{"Atlantis", shipping.ZoneRM},
	}

	for _, tt := range tests {
		t.Run(tt.commune, func(t *testing.T) {
			assert.Equal(t, tt.want, shipping.ResolveZone(tt.commune))
		})
	}
}

func TestEstimate_SantiagoCarriers(t *testing.T) {
	tests := []struct {
		carrier shipping.Carrier
		want    int64
	}{
		{shipping.CarrierStarken, 4500},
		{shipping.CarrierChilexpress, 6300},
		{shipping.CarrierBlue, 4050},
		{shipping.Carrier("PIGEON"), 4500},
	}

	for _, tt := range tests {
		t.Run(string(tt.carrier), func(t *testing.T) {
			cost, zone := shipping.Estimate("Santiago", tt.carrier)
			assert.Equal(t, tt.want, cost)
			require.NotNil(t, zone)
			assert.Equal(t, shipping.ZoneRM, *zone)
		})
	}
}

func TestEstimate_OtherIsFreeWithoutZone(t *testing.T) {
	cost, zone := shipping.Estimate("Punta Arenas", shipping.CarrierOther)
	assert.Equal(t, int64(0), cost)
	assert.Nil(t, zone)
}

func TestEstimate_TruncatesFractions(t *testing.T) {
	// 7900 × 0.9 = 7110, 12500 × 1.4 = 17500, 8900 × 0.9 = 8010
	cost, _ := shipping.Estimate("Temuco", shipping.CarrierBlue)
	assert.Equal(t, int64(7110), cost)
	cost, _ = shipping.Estimate("Coyhaique", shipping.CarrierChilexpress)
	assert.Equal(t, int64(17500), cost)
	cost, _ = shipping.Estimate("Arica", shipping.CarrierBlue)
	assert.Equal(t, int64(8010), cost)
}

func TestQuoteAll(t *testing.T) {
	q := shipping.QuoteAll("Valparaíso")
	assert.Equal(t, shipping.ZoneCentro, q.Zone)
	assert.Equal(t, map[shipping.Carrier]int64{
		shipping.CarrierStarken:     6500,
		shipping.CarrierChilexpress: 9100,
		shipping.CarrierBlue:        5850,
	}, q.Options)
}

func TestDirectory(t *testing.T) {
	dir := shipping.Directory()
	require.Len(t, dir, 5)

	zones := make([]shipping.Zone, 0, len(dir))
	for _, d := range dir {
		zones = append(zones, d.Zone)
	}
	assert.Equal(t, shipping.Zones, zones)

	assert.Equal(t, []string{"Las Condes", "Maipu", "Providencia", "Puente Alto", "Santiago"}, dir[0].Communes)
	assert.Equal(t, int64(4500), dir[0].BasePrice)
	assert.Contains(t, dir[2].Communes, "Viña Del Mar")
}
