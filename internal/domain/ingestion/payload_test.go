package ingestion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTime() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

func TestParsePayload_MixedScalarTypes(t *testing.T) {
	raw := []byte(`{
		"name": "7 Night Caribbean",
		"saildate": "2026-03-14",
		"nights": "7",
		"seadays": 3,
		"voyagecode": 12345,
		"startportid": 101,
		"endportid": "101",
		"nofly": "Y",
		"departuk": 0,
		"cheapestinside": "499.50",
		"cheapestsuite": 1899,
		"ports": {
			"101": "Miami",
			"202": {"name": "Cozumel", "latitude": "20.42", "longitude": -86.92, "country": "Mexico"}
		},
		"regions": {"4": "Caribbean"},
		"unknownfield": {"nested": true}
	}`)

	p, err := ParsePayload(raw)
	require.NoError(t, err)

	assert.Equal(t, "7 Night Caribbean", p.Name)
	assert.Equal(t, 7, p.Nights.Value)
	assert.Equal(t, 3, p.SeaDays.Value)
	assert.Equal(t, "12345", p.VoyageCode.String())
	assert.Equal(t, "101", p.StartPortID.String())
	assert.True(t, p.NoFly.Value)
	assert.True(t, p.DepartUK.Valid)
	assert.False(t, p.DepartUK.Value)

	assert.True(t, p.CheapestInside.Valid)
	assert.Equal(t, 499.50, p.CheapestInside.Value)
	assert.Equal(t, 1899.0, p.CheapestSuite.Value)
	assert.False(t, p.CheapestBalcony.Valid)

	sd, err := p.SailDateTime()
	require.NoError(t, err)
	assert.Equal(t, "2026-03-14", sd.Format("2006-01-02"))

	// Bare-name and object port forms normalize to the same shape
	assert.Equal(t, "Miami", p.Ports["101"].Name)
	coz := p.Ports["202"]
	assert.Equal(t, "Cozumel", coz.Name)
	assert.Equal(t, 20.42, coz.Latitude.Value)
	assert.Equal(t, -86.92, coz.Longitude.Value)
	assert.Equal(t, "Mexico", coz.Country)

	assert.Equal(t, "Caribbean", p.Regions["4"])
}

func TestParsePayload_Invalid(t *testing.T) {
	_, err := ParsePayload([]byte("not valid json {{{"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JSON parse error")
}

func TestFlexFloat_NonNumericStringIsAbsent(t *testing.T) {
	var f FlexFloat
	require.NoError(t, f.UnmarshalJSON([]byte(`"POA"`)))
	assert.False(t, f.Valid)
	assert.Nil(t, f.Ptr())
}

func TestShipContent_LaunchYear(t *testing.T) {
	assert.Equal(t, 2009, (&ShipContent{Launched: "2009-12-01"}).LaunchYear())
	assert.Equal(t, 2015, (&ShipContent{Launched: "2015"}).LaunchYear())
	assert.Equal(t, 0, (&ShipContent{Launched: ""}).LaunchYear())
	assert.Equal(t, 0, (&ShipContent{Launched: "n/a"}).LaunchYear())
}

func TestParseFilePath(t *testing.T) {
	ids := ParseFilePath("/2026/03/7/410/2154321.json")
	assert.Equal(t, "7", ids.CruiseLineID)
	assert.Equal(t, "410", ids.ShipID)
	assert.Equal(t, "2154321", ids.CodeToCruiseID)
	assert.True(t, ids.Complete())

	// Mount prefix before the year directory
	ids = ParseFilePath("/feed/2026/03/7/410/2154321.json")
	assert.Equal(t, "7", ids.CruiseLineID)
	assert.Equal(t, "410", ids.ShipID)

	assert.False(t, ParseFilePath("/2026/03/file.json").Complete())
	assert.False(t, ParseFilePath("").Complete())
}

func TestImportMetrics_ErrorListBound(t *testing.T) {
	m := NewMetricsRecorder(testTime())
	for i := 0; i < 150; i++ {
		m.RecordFailure("/f", ErrorKindParseError, assert.AnError)
	}
	snap := m.Snapshot()
	assert.Len(t, snap.Errors, MaxTrackedErrors)
	assert.Equal(t, 150, snap.FilesFailed)
	assert.Equal(t, 150, snap.SkipReasons.ParseError)
}

func TestSyncOptions_Normalized(t *testing.T) {
	o := SyncOptions{}.Normalized()
	assert.Equal(t, int64(DefaultMaxFileSizeBytes), o.MaxFileSizeBytes)
	assert.Equal(t, DefaultConcurrency, o.Concurrency)
	assert.Equal(t, DefaultConcurrency+1, o.FtpPoolSize)
	assert.True(t, o.SkipOversizedEnabled())
	assert.True(t, o.DeltaSyncEnabled())

	o = SyncOptions{Concurrency: 20}.Normalized()
	assert.Equal(t, MaxConcurrency, o.Concurrency)

	o = SyncOptions{ForceFullSync: true}.Normalized()
	assert.False(t, o.DeltaSyncEnabled())
}
