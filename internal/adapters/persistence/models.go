package persistence

import (
	"time"
)

// Catalog tables. Every catalog entity carries (provider,
// provider_identifier) as the external natural key used for idempotent
// upsert; internal IDs are surrogate UUIDs. needs_review / auto_created
// are promoted to columns so maintenance reports can filter on them;
// the rest of the vendor metadata is stored as a JSON document.

// CruiseLineModel represents the cruise_lines table
type CruiseLineModel struct {
	ID                 string    `gorm:"column:id;primaryKey"`
	Provider           string    `gorm:"column:provider;not null;uniqueIndex:uq_cruise_lines_provider,priority:1"`
	ProviderIdentifier string    `gorm:"column:provider_identifier;not null;uniqueIndex:uq_cruise_lines_provider,priority:2"`
	Name               string    `gorm:"column:name;not null"`
	Slug               string    `gorm:"column:slug;not null"`
	NeedsReview        bool      `gorm:"column:needs_review;not null;default:false"`
	AutoCreated        bool      `gorm:"column:auto_created;not null;default:false"`
	Metadata           string    `gorm:"column:metadata;type:jsonb"`
	CreatedAt          time.Time `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (CruiseLineModel) TableName() string {
	return "cruise_lines"
}

// ShipModel represents the ships table
type ShipModel struct {
	ID                 string           `gorm:"column:id;primaryKey"`
	Provider           string           `gorm:"column:provider;not null;uniqueIndex:uq_ships_provider,priority:1"`
	ProviderIdentifier string           `gorm:"column:provider_identifier;not null;uniqueIndex:uq_ships_provider,priority:2"`
	CruiseLineID       string           `gorm:"column:cruise_line_id;not null;index"`
	CruiseLine         *CruiseLineModel `gorm:"foreignKey:CruiseLineID;references:ID"`
	Name               string           `gorm:"column:name;not null"`
	Slug               string           `gorm:"column:slug;not null"`
	ShipClass          string           `gorm:"column:ship_class"`
	ImageURL           string           `gorm:"column:image_url"`
	NeedsReview        bool             `gorm:"column:needs_review;not null;default:false"`
	AutoCreated        bool             `gorm:"column:auto_created;not null;default:false"`
	Metadata           string           `gorm:"column:metadata;type:jsonb"`
	CreatedAt          time.Time        `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (ShipModel) TableName() string {
	return "ships"
}

// ShipDeckModel represents the ship_decks table
type ShipDeckModel struct {
	ID           string     `gorm:"column:id;primaryKey"`
	ShipID       string     `gorm:"column:ship_id;not null;index"`
	Ship         *ShipModel `gorm:"foreignKey:ShipID;references:ID;constraint:OnDelete:CASCADE"`
	Name         string     `gorm:"column:name;not null"`
	DeckNumber   int        `gorm:"column:deck_number"`
	DeckPlanURL  string     `gorm:"column:deck_plan_url"`
	Description  string     `gorm:"column:description;type:text"`
	DisplayOrder int        `gorm:"column:display_order;not null;default:0"`
	Metadata     string     `gorm:"column:metadata;type:jsonb"` // cabin bounding boxes
	CreatedAt    time.Time  `gorm:"column:created_at;not null;autoCreateTime"`
}

func (ShipDeckModel) TableName() string {
	return "ship_decks"
}

// ShipCabinTypeModel represents the ship_cabin_types table
type ShipCabinTypeModel struct {
	ID            string     `gorm:"column:id;primaryKey"`
	ShipID        string     `gorm:"column:ship_id;not null;uniqueIndex:uq_cabin_types_ship_code,priority:1"`
	Ship          *ShipModel `gorm:"foreignKey:ShipID;references:ID;constraint:OnDelete:CASCADE"`
	CabinCode     string     `gorm:"column:cabin_code;not null;uniqueIndex:uq_cabin_types_ship_code,priority:2"`
	CabinCategory string     `gorm:"column:cabin_category;not null"`
	Name          string     `gorm:"column:name"`
	Description   string     `gorm:"column:description;type:text"`
	ImageURL      string     `gorm:"column:image_url"`
	Metadata      string     `gorm:"column:metadata;type:jsonb"`
	CreatedAt     time.Time  `gorm:"column:created_at;not null;autoCreateTime"`
}

func (ShipCabinTypeModel) TableName() string {
	return "ship_cabin_types"
}

// CabinImageModel represents the cabin_images table
type CabinImageModel struct {
	ID           string              `gorm:"column:id;primaryKey"`
	CabinTypeID  string              `gorm:"column:cabin_type_id;not null;uniqueIndex:uq_cabin_images_order,priority:1"`
	CabinType    *ShipCabinTypeModel `gorm:"foreignKey:CabinTypeID;references:ID;constraint:OnDelete:CASCADE"`
	ImageURL     string              `gorm:"column:image_url;not null"`
	ImageURLHD   string              `gorm:"column:image_url_hd"`
	ImageURL2K   string              `gorm:"column:image_url_2k"`
	Caption      string              `gorm:"column:caption"`
	DisplayOrder int                 `gorm:"column:display_order;not null;uniqueIndex:uq_cabin_images_order,priority:2"`
	IsDefault    bool                `gorm:"column:is_default;not null;default:false"`
}

func (CabinImageModel) TableName() string {
	return "cabin_images"
}

// PortModel represents the ports table
type PortModel struct {
	ID                 string    `gorm:"column:id;primaryKey"`
	Provider           string    `gorm:"column:provider;not null;uniqueIndex:uq_ports_provider,priority:1"`
	ProviderIdentifier string    `gorm:"column:provider_identifier;not null;uniqueIndex:uq_ports_provider,priority:2"`
	Name               string    `gorm:"column:name;not null"`
	Slug               string    `gorm:"column:slug;not null"`
	Latitude           *float64  `gorm:"column:latitude"`
	Longitude          *float64  `gorm:"column:longitude"`
	NeedsReview        bool      `gorm:"column:needs_review;not null;default:false"`
	AutoCreated        bool      `gorm:"column:auto_created;not null;default:false"`
	Metadata           string    `gorm:"column:metadata;type:jsonb"`
	CreatedAt          time.Time `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (PortModel) TableName() string {
	return "ports"
}

// RegionModel represents the regions table
type RegionModel struct {
	ID                 string    `gorm:"column:id;primaryKey"`
	Provider           string    `gorm:"column:provider;not null;uniqueIndex:uq_regions_provider,priority:1"`
	ProviderIdentifier string    `gorm:"column:provider_identifier;not null;uniqueIndex:uq_regions_provider,priority:2"`
	Name               string    `gorm:"column:name;not null"`
	Slug               string    `gorm:"column:slug;not null"`
	NeedsReview        bool      `gorm:"column:needs_review;not null;default:false"`
	Metadata           string    `gorm:"column:metadata;type:jsonb"`
	CreatedAt          time.Time `gorm:"column:created_at;not null;autoCreateTime"`
}

func (RegionModel) TableName() string {
	return "regions"
}

// SailingModel represents the sailings table
type SailingModel struct {
	ID                 string           `gorm:"column:id;primaryKey"`
	Provider           string           `gorm:"column:provider;not null;uniqueIndex:uq_sailings_provider,priority:1"`
	ProviderIdentifier string           `gorm:"column:provider_identifier;not null;uniqueIndex:uq_sailings_provider,priority:2"`
	CruiseLineID       string           `gorm:"column:cruise_line_id;not null;index"`
	CruiseLine         *CruiseLineModel `gorm:"foreignKey:CruiseLineID;references:ID"`
	ShipID             string           `gorm:"column:ship_id;not null;index"`
	Ship               *ShipModel       `gorm:"foreignKey:ShipID;references:ID"`
	Name               string           `gorm:"column:name;not null"`
	SailDate           time.Time        `gorm:"column:sail_date;not null;index"`
	EndDate            time.Time        `gorm:"column:end_date;not null;index"`
	Nights             int              `gorm:"column:nights;not null"`
	SeaDays            *int             `gorm:"column:sea_days"`
	VoyageCode         string           `gorm:"column:voyage_code"`
	MarketID           string           `gorm:"column:market_id"`
	NoFly              bool             `gorm:"column:no_fly;not null;default:false"`
	DepartUK           bool             `gorm:"column:depart_uk;not null;default:false"`
	EmbarkPortID       string           `gorm:"column:embark_port_id;not null"`
	EmbarkPort         *PortModel       `gorm:"foreignKey:EmbarkPortID;references:ID"`
	DisembarkPortID    string           `gorm:"column:disembark_port_id;not null"`
	DisembarkPort      *PortModel       `gorm:"foreignKey:DisembarkPortID;references:ID"`
	EmbarkPortName     string           `gorm:"column:embark_port_name"`
	DisembarkPortName  string           `gorm:"column:disembark_port_name"`

	CheapestInsideCents    *int64 `gorm:"column:cheapest_inside_cents"`
	CheapestOceanviewCents *int64 `gorm:"column:cheapest_oceanview_cents"`
	CheapestBalconyCents   *int64 `gorm:"column:cheapest_balcony_cents"`
	CheapestSuiteCents     *int64 `gorm:"column:cheapest_suite_cents"`

	Metadata     string    `gorm:"column:metadata;type:jsonb"`
	LastSyncedAt time.Time `gorm:"column:last_synced_at;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (SailingModel) TableName() string {
	return "sailings"
}

// SailingRegionModel represents the sailing_regions join table
type SailingRegionModel struct {
	SailingID string        `gorm:"column:sailing_id;primaryKey"`
	Sailing   *SailingModel `gorm:"foreignKey:SailingID;references:ID;constraint:OnDelete:CASCADE"`
	RegionID  string        `gorm:"column:region_id;primaryKey"`
	Region    *RegionModel  `gorm:"foreignKey:RegionID;references:ID;constraint:OnDelete:CASCADE"`
	IsPrimary bool          `gorm:"column:is_primary;not null;default:false"`
}

func (SailingRegionModel) TableName() string {
	return "sailing_regions"
}

// SailingStopModel represents the sailing_stops table.
// PortID is null for sea days.
type SailingStopModel struct {
	ID            string        `gorm:"column:id;primaryKey"`
	SailingID     string        `gorm:"column:sailing_id;not null;index"`
	Sailing       *SailingModel `gorm:"foreignKey:SailingID;references:ID;constraint:OnDelete:CASCADE"`
	PortID        *string       `gorm:"column:port_id"`
	Port          *PortModel    `gorm:"foreignKey:PortID;references:ID"`
	PortName      string        `gorm:"column:port_name;not null"`
	IsSeaDay      bool          `gorm:"column:is_sea_day;not null;default:false"`
	DayNumber     int           `gorm:"column:day_number;not null"`
	SequenceOrder int           `gorm:"column:sequence_order;not null"`
	ArrivalTime   string        `gorm:"column:arrival_time"`
	DepartureTime string        `gorm:"column:departure_time"`
}

func (SailingStopModel) TableName() string {
	return "sailing_stops"
}

// SailingCabinPriceModel represents the sailing_cabin_prices table.
// Rows are rewritten in full on every upsert of the parent sailing.
type SailingCabinPriceModel struct {
	ID                  string        `gorm:"column:id;primaryKey"`
	SailingID           string        `gorm:"column:sailing_id;not null;index"`
	Sailing             *SailingModel `gorm:"foreignKey:SailingID;references:ID;constraint:OnDelete:CASCADE"`
	CabinCode           string        `gorm:"column:cabin_code;not null"`
	CabinCategory       string        `gorm:"column:cabin_category;not null"`
	Occupancy           int           `gorm:"column:occupancy;not null;default:2"`
	BasePriceCents      int64         `gorm:"column:base_price_cents;not null"`
	TaxesCents          int64         `gorm:"column:taxes_cents;not null;default:0"`
	OriginalCurrency    string        `gorm:"column:original_currency;not null"`
	OriginalAmountCents int64         `gorm:"column:original_amount_cents;not null"`
	IsPerPerson         int           `gorm:"column:is_per_person;not null;default:1"`
}

func (SailingCabinPriceModel) TableName() string {
	return "sailing_cabin_prices"
}

// AlternateSailingModel represents the alternate_sailings table.
// AlternateSailingID stays null until the backfill finds the referenced
// voyage in-store.
type AlternateSailingModel struct {
	ID                          string        `gorm:"column:id;primaryKey"`
	SailingID                   string        `gorm:"column:sailing_id;not null;uniqueIndex:uq_alt_sailing,priority:1"`
	Sailing                     *SailingModel `gorm:"foreignKey:SailingID;references:ID;constraint:OnDelete:CASCADE"`
	Provider                    string        `gorm:"column:provider;not null"`
	AlternateProviderIdentifier string        `gorm:"column:alternate_provider_identifier;not null;uniqueIndex:uq_alt_sailing,priority:2"`
	AlternateSailingID          *string       `gorm:"column:alternate_sailing_id"`
	AlternateSailDate           *time.Time    `gorm:"column:alternate_sail_date"`
	AlternateNights             *int          `gorm:"column:alternate_nights"`
	AlternateLeadPriceCents     *int64        `gorm:"column:alternate_lead_price_cents"`
}

func (AlternateSailingModel) TableName() string {
	return "alternate_sailings"
}

// SyncRawModel represents the sync_raw table holding opaque vendor payloads
type SyncRawModel struct {
	ProviderSailingID string    `gorm:"column:provider_sailing_id;primaryKey"`
	RawData           string    `gorm:"column:raw_data;type:jsonb;not null"`
	SyncedAt          time.Time `gorm:"column:synced_at;not null"`
	ExpiresAt         time.Time `gorm:"column:expires_at;not null;index"`
}

func (SyncRawModel) TableName() string {
	return "sync_raw"
}

// FtpFileSyncModel represents the ftp_file_sync delta-tracking table
type FtpFileSyncModel struct {
	FilePath      string     `gorm:"column:file_path;primaryKey"`
	FileSize      int64      `gorm:"column:file_size;not null"`
	FtpModifiedAt *time.Time `gorm:"column:ftp_modified_at"`
	ContentHash   *string    `gorm:"column:content_hash"`
	LastSyncedAt  time.Time  `gorm:"column:last_synced_at;not null"`
	SyncStatus    string     `gorm:"column:sync_status;not null"`
	LastError     string     `gorm:"column:last_error;type:text"`
}

func (FtpFileSyncModel) TableName() string {
	return "ftp_file_sync"
}

// SyncHistoryModel represents the sync_history table
type SyncHistoryModel struct {
	ID          string     `gorm:"column:id;primaryKey"`
	StartedAt   time.Time  `gorm:"column:started_at;not null;index:idx_sync_history_started,sort:desc"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	Status      string     `gorm:"column:status;not null"`
	Options     string     `gorm:"column:options;type:jsonb"`
	Metrics     string     `gorm:"column:metrics;type:jsonb"`
	ErrorCount  int        `gorm:"column:error_count;not null;default:0"`
	Errors      string     `gorm:"column:errors;type:jsonb"`
}

func (SyncHistoryModel) TableName() string {
	return "sync_history"
}
