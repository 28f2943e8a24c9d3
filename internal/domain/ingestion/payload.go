package ingestion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// SailingPayload is the normalized form of one vendor sailing file.
// Unknown fields in the feed are ignored. LineID, ShipID and
// CodeToCruiseID are authoritative from the file path and overwrite
// whatever the JSON body carried.
type SailingPayload struct {
	Name        string     `json:"name"`
	SailDate    string     `json:"saildate"`
	Nights      FlexInt    `json:"nights"`
	SeaDays     FlexInt    `json:"seadays"`
	VoyageCode  FlexString `json:"voyagecode"`
	StartPortID FlexString `json:"startportid"`
	EndPortID   FlexString `json:"endportid"`
	MarketID    FlexString `json:"marketid"`
	NoFly       FlexBool   `json:"nofly"`
	DepartUK    FlexBool   `json:"departuk"`

	LineID         FlexString `json:"lineid"`
	ShipID         FlexString `json:"shipid"`
	CodeToCruiseID FlexString `json:"codetocruiseid"`

	LineContent *LineContent `json:"linecontent"`
	ShipContent *ShipContent `json:"shipcontent"`

	Ports     map[string]PortInfo `json:"ports"`
	Regions   RegionMap           `json:"regions"`
	Itinerary []ItineraryEntry    `json:"itinerary"`
	Cabins    map[string]CabinInfo `json:"cabins"`

	CachedPrices map[string]CachedPrice `json:"cachedprices"`

	CheapestInside  FlexFloat `json:"cheapestinside"`
	CheapestOutside FlexFloat `json:"cheapestoutside"`
	CheapestBalcony FlexFloat `json:"cheapestbalcony"`
	CheapestSuite   FlexFloat `json:"cheapestsuite"`

	AltSailings []AltSailing `json:"altsailings"`
}

// ParsePayload decodes vendor JSON bytes into a SailingPayload
func ParsePayload(raw []byte) (*SailingPayload, error) {
	var p SailingPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("JSON parse error: %w", err)
	}
	return &p, nil
}

// SailDateTime parses the payload's ISO sail date
func (p *SailingPayload) SailDateTime() (time.Time, error) {
	return time.Parse("2006-01-02", p.SailDate)
}

// LineContent carries the vendor's cruise-line marketing metadata
type LineContent struct {
	Logo        string `json:"logo"`
	Description string `json:"description"`
	Code        string `json:"code"`
	ShortName   string `json:"shortname"`
	NiceURL     string `json:"niceurl"`
}

// ShipContent carries the vendor's per-ship metadata block
type ShipContent struct {
	Name             string              `json:"name"`
	Tonnage          FlexFloat           `json:"tonnage"`
	Occupancy        FlexInt             `json:"occupancy"`
	Launched         string              `json:"launched"`
	Length           FlexFloat           `json:"length"`
	Code             string              `json:"code"`
	ShipClass        string              `json:"shipclass"`
	DefaultShipImage string              `json:"defaultshipimage"`
	DefaultImageHD   string              `json:"defaultshipimagehd"`
	DefaultImage2K   string              `json:"defaultshipimage2k"`
	ShipImages       []ShipImage         `json:"shipimages"`
	ShipDecks        map[string]ShipDeck `json:"shipdecks"`
}

// LaunchYear extracts the year from the launched date, 0 when unknown
func (s *ShipContent) LaunchYear() int {
	if len(s.Launched) < 4 {
		return 0
	}
	t, err := time.Parse("2006-01-02", s.Launched)
	if err != nil {
		// Some feeds send just the year
		t, err = time.Parse("2006", s.Launched[:4])
		if err != nil {
			return 0
		}
	}
	return t.Year()
}

// ShipImage is one gallery entry for a ship
type ShipImage struct {
	ImageURL   string   `json:"imageurl"`
	ImageURLHD string   `json:"imageurlhd"`
	ImageURL2K string   `json:"imageurl2k"`
	Caption    string   `json:"caption"`
	Default    FlexBool `json:"default"`
}

// ShipDeck is one deck-plan entry for a ship
type ShipDeck struct {
	DeckName       string                       `json:"deckname"`
	PlanImage      string                       `json:"planimage"`
	Description    string                       `json:"description"`
	CabinLocations map[string]DeckCabinLocation `json:"cabinlocations"`
}

// DeckCabinLocation is a cabin bounding box on a deck plan
type DeckCabinLocation struct {
	CabinID FlexString `json:"cabinid"`
	X1      FlexFloat  `json:"x1"`
	Y1      FlexFloat  `json:"y1"`
	X2      FlexFloat  `json:"x2"`
	Y2      FlexFloat  `json:"y2"`
}

// PortInfo is the normalized form of the vendor's ports map values,
// which arrive either as a bare name string or as a full object.
type PortInfo struct {
	Name             string    `json:"name"`
	Latitude         FlexFloat `json:"latitude"`
	Longitude        FlexFloat `json:"longitude"`
	Country          string    `json:"country"`
	CountryCode      string    `json:"countrycode"`
	Description      string    `json:"description"`
	ShortDescription string    `json:"shortdescription"`
}

func (p *PortInfo) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*p = PortInfo{Name: name}
		return nil
	}
	type portInfoAlias PortInfo
	var alias portInfoAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*p = PortInfo(alias)
	return nil
}

// RegionMap decodes the vendor's regions object ({id: name}), keeping
// the feed's iteration-independent id→name association.
type RegionMap map[string]string

// ItineraryEntry is one day of a sailing's itinerary
type ItineraryEntry struct {
	Day                  FlexString `json:"day"`
	PortID               FlexString `json:"portid"`
	Name                 string     `json:"name"`
	ArriveTime           string     `json:"arrivetime"`
	DepartTime           string     `json:"departtime"`
	OrderID              FlexInt    `json:"orderid"`
	Latitude             FlexFloat  `json:"latitude"`
	Longitude            FlexFloat  `json:"longitude"`
	Description          string     `json:"description"`
	ShortDescription     string     `json:"shortdescription"`
	ItineraryDescription string     `json:"itinerarydescription"`
}

// CabinInfo is one cabin-type entry from the vendor's cabins map
type CabinInfo struct {
	ID             FlexString       `json:"id"`
	Name           string           `json:"name"`
	CodType        string           `json:"codtype"`
	Description    string           `json:"description"`
	ImageURL       string           `json:"imageurl"`
	ImageURL2K     string           `json:"imageurl2k"`
	ImageURLHD     string           `json:"imageurlhd"`
	ColourCode     string           `json:"colourcode"`
	AllCabinDecks  []FlexString     `json:"allcabindecks"`
	AllCabinImages []CabinImageInfo `json:"allcabinimages"`
}

// CabinImageInfo is one image of a cabin type
type CabinImageInfo struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

// CachedPrice is one live per-cabin price entry
type CachedPrice struct {
	Price    FlexFloat `json:"price"`
	Currency string    `json:"currency"`
}

// AltSailing references a related voyage by provider identifier
type AltSailing struct {
	ID            FlexString `json:"id"`
	SailDate      string     `json:"saildate"`
	Nights        FlexInt    `json:"nights"`
	CheapestPrice FlexFloat  `json:"cheapestprice"`
}
