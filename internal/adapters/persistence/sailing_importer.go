package persistence

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/atlasvoyages/cruisesync/internal/application/common"
	"github.com/atlasvoyages/cruisesync/internal/domain/catalog"
	"github.com/atlasvoyages/cruisesync/internal/domain/ingestion"
	"github.com/atlasvoyages/cruisesync/internal/domain/shared"
	"github.com/atlasvoyages/cruisesync/pkg/utils"
)

// RawPayloadTTL is how long raw vendor payloads are retained
const RawPayloadTTL = 30 * 24 * time.Hour

// GormSailingImporter is the idempotent per-file write path into the
// catalog. Each sailing is imported in a single database transaction:
// reference resolution, the sailing row, stop replacement, cabin types,
// pricing, images, alternates and the raw payload either all land or
// none do.
type GormSailingImporter struct {
	db       *gorm.DB
	resolver *referenceResolver
	clock    shared.Clock
	provider string
}

// NewGormSailingImporter creates the importer. A nil clock uses real time.
func NewGormSailingImporter(db *gorm.DB, cache common.ReferenceCache, provider string, clock shared.Clock) *GormSailingImporter {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &GormSailingImporter{
		db:       db,
		resolver: newReferenceResolver(cache, provider),
		clock:    clock,
		provider: provider,
	}
}

// StubCounters returns (and optionally resets) the stub-creation counters
func (imp *GormSailingImporter) StubCounters(reset bool) ingestion.StubCounters {
	return imp.resolver.StubCounters(reset)
}

// ImportSailing upserts one sailing and all of its children
func (imp *GormSailingImporter) ImportSailing(
	ctx context.Context,
	payload *ingestion.SailingPayload,
	ids ingestion.PathIdentifiers,
	raw []byte,
) (common.ImportOutcome, error) {
	sailDate, err := payload.SailDateTime()
	if err != nil {
		return common.ImportOutcome{}, fmt.Errorf("invalid saildate %q: %w", payload.SailDate, err)
	}
	if !payload.Nights.Valid {
		return common.ImportOutcome{}, fmt.Errorf("missing nights for sailing %s", ids.CodeToCruiseID)
	}
	nights := payload.Nights.Value
	endDate := sailDate.AddDate(0, 0, nights)
	now := imp.clock.Now()

	var outcome common.ImportOutcome
	err = imp.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lineID, err := imp.resolver.resolveCruiseLine(tx, ids.CruiseLineID, payload.LineContent)
		if err != nil {
			return err
		}
		shipID, err := imp.resolver.resolveShip(tx, lineID, ids.ShipID, payload.ShipContent)
		if err != nil {
			return err
		}

		embarkInfo := portInfoFor(payload, payload.StartPortID.String())
		embarkID, err := imp.resolver.resolvePort(tx, payload.StartPortID.String(), embarkInfo)
		if err != nil {
			return err
		}
		disembarkInfo := portInfoFor(payload, payload.EndPortID.String())
		disembarkID, err := imp.resolver.resolvePort(tx, payload.EndPortID.String(), disembarkInfo)
		if err != nil {
			return err
		}

		regionID := ""
		if key, name, ok := firstRegion(payload.Regions); ok {
			regionID, err = imp.resolver.resolveRegion(tx, key, name)
			if err != nil {
				return err
			}
		}

		sailingID, isNew, err := imp.upsertSailing(tx, payload, ids, sailDate, endDate, nights,
			lineID, shipID, embarkID, disembarkID, embarkInfo, disembarkInfo, now)
		if err != nil {
			return err
		}
		outcome.IsNew = isNew

		if regionID != "" {
			link := SailingRegionModel{SailingID: sailingID, RegionID: regionID, IsPrimary: true}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
				return fmt.Errorf("failed to link region: %w", err)
			}
		}

		if err := imp.replaceStops(tx, sailingID, payload); err != nil {
			return err
		}
		if err := imp.importCabinTypes(tx, shipID, payload); err != nil {
			return err
		}
		if err := imp.importDecks(tx, shipID, payload); err != nil {
			return err
		}
		if err := imp.replaceCabinPrices(tx, sailingID, shipID, payload); err != nil {
			return err
		}
		if err := imp.importCabinImages(tx, shipID, payload); err != nil {
			return err
		}
		if err := imp.insertAlternates(tx, sailingID, payload); err != nil {
			return err
		}

		if raw != nil {
			rawModel := SyncRawModel{
				ProviderSailingID: ids.CodeToCruiseID,
				RawData:           string(raw),
				SyncedAt:          now,
				ExpiresAt:         now.Add(RawPayloadTTL),
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "provider_sailing_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"raw_data", "synced_at", "expires_at"}),
			}).Create(&rawModel).Error; err != nil {
				return fmt.Errorf("failed to store raw payload: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return common.ImportOutcome{}, err
	}
	return outcome, nil
}

// portInfoFor returns the payload's ports-map entry for an identifier
func portInfoFor(payload *ingestion.SailingPayload, portID string) *ingestion.PortInfo {
	if info, ok := payload.Ports[portID]; ok {
		return &info
	}
	return nil
}

// firstRegion picks the payload's primary region deterministically: the
// lowest key, numerically when all keys parse as integers.
func firstRegion(regions ingestion.RegionMap) (key, name string, ok bool) {
	if len(regions) == 0 {
		return "", "", false
	}
	keys := make([]string, 0, len(regions))
	for k := range regions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, erri := strconv.Atoi(keys[i])
		nj, errj := strconv.Atoi(keys[j])
		if erri == nil && errj == nil {
			return ni < nj
		}
		return keys[i] < keys[j]
	})
	return keys[0], regions[keys[0]], true
}

func (imp *GormSailingImporter) upsertSailing(
	tx *gorm.DB,
	payload *ingestion.SailingPayload,
	ids ingestion.PathIdentifiers,
	sailDate, endDate time.Time,
	nights int,
	lineID, shipID, embarkID, disembarkID string,
	embarkInfo, disembarkInfo *ingestion.PortInfo,
	now time.Time,
) (string, bool, error) {
	meta := map[string]interface{}{}
	if payload.MarketID.String() != "" {
		meta["marketId"] = payload.MarketID.String()
	}
	if payload.NoFly.Valid {
		meta["nofly"] = payload.NoFly.Value
	}
	if payload.DepartUK.Valid {
		meta["departuk"] = payload.DepartUK.Value
	}

	model := SailingModel{
		Provider:           imp.provider,
		ProviderIdentifier: ids.CodeToCruiseID,
		CruiseLineID:       lineID,
		ShipID:             shipID,
		Name:               payload.Name,
		SailDate:           sailDate,
		EndDate:            endDate,
		Nights:             nights,
		VoyageCode:         payload.VoyageCode.String(),
		MarketID:           payload.MarketID.String(),
		NoFly:              payload.NoFly.Valid && payload.NoFly.Value,
		DepartUK:           payload.DepartUK.Valid && payload.DepartUK.Value,
		EmbarkPortID:       embarkID,
		DisembarkPortID:    disembarkID,
		EmbarkPortName:     portName(embarkInfo),
		DisembarkPortName:  portName(disembarkInfo),
		Metadata:           marshalMetadata(meta),
		LastSyncedAt:       now,
	}
	if payload.SeaDays.Valid {
		model.SeaDays = &payload.SeaDays.Value
	}
	model.CheapestInsideCents = utils.ToMinorUnitsPtr(payload.CheapestInside.Ptr())
	model.CheapestOceanviewCents = utils.ToMinorUnitsPtr(payload.CheapestOutside.Ptr())
	model.CheapestBalconyCents = utils.ToMinorUnitsPtr(payload.CheapestBalcony.Ptr())
	model.CheapestSuiteCents = utils.ToMinorUnitsPtr(payload.CheapestSuite.Ptr())

	var existing SailingModel
	err := tx.Where("provider = ? AND provider_identifier = ?", imp.provider, ids.CodeToCruiseID).
		First(&existing).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		model.ID = uuid.NewString()
		if err := tx.Create(&model).Error; err != nil {
			return "", false, fmt.Errorf("failed to create sailing: %w", err)
		}
		return model.ID, true, nil
	case err != nil:
		return "", false, fmt.Errorf("failed to look up sailing: %w", err)
	}

	model.ID = existing.ID
	model.CreatedAt = existing.CreatedAt
	if err := tx.Model(&SailingModel{}).Where("id = ?", existing.ID).
		Select("*").Omit("id", "created_at").Updates(&model).Error; err != nil {
		return "", false, fmt.Errorf("failed to update sailing: %w", err)
	}
	return existing.ID, false, nil
}

func portName(info *ingestion.PortInfo) string {
	if info == nil {
		return ""
	}
	return info.Name
}

// replaceStops rewrites the sailing's itinerary: all existing stops are
// deleted and one stop inserted per itinerary entry.
func (imp *GormSailingImporter) replaceStops(tx *gorm.DB, sailingID string, payload *ingestion.SailingPayload) error {
	if err := tx.Where("sailing_id = ?", sailingID).Delete(&SailingStopModel{}).Error; err != nil {
		return fmt.Errorf("failed to clear stops: %w", err)
	}
	for i, entry := range payload.Itinerary {
		stop := SailingStopModel{
			ID:            uuid.NewString(),
			SailingID:     sailingID,
			DayNumber:     i + 1,
			SequenceOrder: i,
			ArrivalTime:   entry.ArriveTime,
			DepartureTime: entry.DepartTime,
		}
		if day, err := strconv.Atoi(entry.Day.String()); err == nil {
			stop.DayNumber = day
		}
		if entry.OrderID.Valid {
			stop.SequenceOrder = entry.OrderID.Value
		}

		if catalog.IsSeaDay(entry.Name) {
			stop.PortName = catalog.SeaDayPortName
			stop.IsSeaDay = true
		} else if entry.PortID.String() == "" {
			stop.PortName = entry.Name
		} else {
			info := &ingestion.PortInfo{
				Name:             entry.Name,
				Latitude:         entry.Latitude,
				Longitude:        entry.Longitude,
				Description:      entry.Description,
				ShortDescription: entry.ShortDescription,
			}
			if mapped := portInfoFor(payload, entry.PortID.String()); mapped != nil {
				info = mapped
			}
			portID, err := imp.resolver.resolvePort(tx, entry.PortID.String(), info)
			if err != nil {
				return err
			}
			stop.PortID = &portID
			stop.PortName = entry.Name
		}
		if err := tx.Create(&stop).Error; err != nil {
			return fmt.Errorf("failed to insert stop: %w", err)
		}
	}
	return nil
}

// importCabinTypes inserts the ship's cabin types once: skipped entirely
// when the ship already has any cabin-type rows.
func (imp *GormSailingImporter) importCabinTypes(tx *gorm.DB, shipID string, payload *ingestion.SailingPayload) error {
	if len(payload.Cabins) == 0 {
		return nil
	}
	var count int64
	if err := tx.Model(&ShipCabinTypeModel{}).Where("ship_id = ?", shipID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count cabin types: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, code := range sortedKeys(payload.Cabins) {
		cabin := payload.Cabins[code]
		decks := make([]string, 0, len(cabin.AllCabinDecks))
		for _, d := range cabin.AllCabinDecks {
			decks = append(decks, d.String())
		}
		meta := map[string]interface{}{
			"color_code": cabin.ColourCode,
			"decks":      decks,
			"image_hd":   cabin.ImageURLHD,
			"image_2k":   cabin.ImageURL2K,
		}
		model := ShipCabinTypeModel{
			ID:            uuid.NewString(),
			ShipID:        shipID,
			CabinCode:     code,
			CabinCategory: string(catalog.NormalizeCabinCategory(cabin.CodType)),
			Name:          cabin.Name,
			Description:   cabin.Description,
			ImageURL:      cabin.ImageURL,
			Metadata:      marshalMetadata(meta),
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model).Error; err != nil {
			return fmt.Errorf("failed to insert cabin type %s: %w", code, err)
		}
	}
	return nil
}

// importDecks inserts the ship's deck plans once: not re-imported when
// any deck row exists for the ship. Malformed cabin bounding boxes are dropped.
func (imp *GormSailingImporter) importDecks(tx *gorm.DB, shipID string, payload *ingestion.SailingPayload) error {
	if payload.ShipContent == nil || len(payload.ShipContent.ShipDecks) == 0 {
		return nil
	}
	var count int64
	if err := tx.Model(&ShipDeckModel{}).Where("ship_id = ?", shipID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count decks: %w", err)
	}
	if count > 0 {
		return nil
	}

	keys := sortedKeys(payload.ShipContent.ShipDecks)
	for order, key := range keys {
		deck := payload.ShipContent.ShipDecks[key]
		locations := make([]catalog.CabinLocation, 0, len(deck.CabinLocations))
		for _, loc := range deck.CabinLocations {
			if loc.X1.Valid && loc.Y1.Valid && loc.X2.Valid && loc.Y2.Valid {
				locations = append(locations, catalog.CabinLocation{
					CabinID: loc.CabinID.String(),
					X1:      loc.X1.Value,
					Y1:      loc.Y1.Value,
					X2:      loc.X2.Value,
					Y2:      loc.Y2.Value,
				})
			}
		}
		deckNumber := 0
		if n, err := strconv.Atoi(key); err == nil {
			deckNumber = n
		}
		model := ShipDeckModel{
			ID:           uuid.NewString(),
			ShipID:       shipID,
			Name:         deck.DeckName,
			DeckNumber:   deckNumber,
			DeckPlanURL:  deck.PlanImage,
			Description:  deck.Description,
			DisplayOrder: order,
			Metadata: marshalMetadata(map[string]interface{}{
				"cabin_locations": catalog.FilterCabinLocations(locations),
			}),
		}
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("failed to insert deck %s: %w", key, err)
		}
	}
	return nil
}

// replaceCabinPrices rewrites the sailing's detailed price rows from the
// vendor's cached-prices map. A no-op when the map is empty.
func (imp *GormSailingImporter) replaceCabinPrices(tx *gorm.DB, sailingID, shipID string, payload *ingestion.SailingPayload) error {
	if len(payload.CachedPrices) == 0 {
		return nil
	}
	if err := tx.Where("sailing_id = ?", sailingID).Delete(&SailingCabinPriceModel{}).Error; err != nil {
		return fmt.Errorf("failed to clear cabin prices: %w", err)
	}

	// Category comes from the matched cabin type when the ship has one
	var cabinTypes []ShipCabinTypeModel
	if err := tx.Where("ship_id = ?", shipID).Find(&cabinTypes).Error; err != nil {
		return fmt.Errorf("failed to load cabin types: %w", err)
	}
	categoryByCode := make(map[string]string, len(cabinTypes))
	for _, ct := range cabinTypes {
		categoryByCode[ct.CabinCode] = ct.CabinCategory
	}

	for _, code := range sortedKeys(payload.CachedPrices) {
		price := payload.CachedPrices[code]
		if !price.Price.Valid || price.Price.Value <= 0 {
			continue
		}
		category, ok := categoryByCode[code]
		if !ok {
			category = string(catalog.CategoryForCabinCode(code))
		}
		currency := price.Currency
		if currency == "" {
			currency = "CAD"
		}
		cents := utils.ToMinorUnits(price.Price.Value)
		model := SailingCabinPriceModel{
			ID:                  uuid.NewString(),
			SailingID:           sailingID,
			CabinCode:           code,
			CabinCategory:       category,
			Occupancy:           2,
			BasePriceCents:      cents,
			TaxesCents:          0,
			OriginalCurrency:    currency,
			OriginalAmountCents: cents,
			IsPerPerson:         1,
		}
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("failed to insert cabin price %s: %w", code, err)
		}
	}
	return nil
}

// importCabinImages inserts cabin-type gallery images once per ship:
// skipped when any of the ship's cabin types already has images.
func (imp *GormSailingImporter) importCabinImages(tx *gorm.DB, shipID string, payload *ingestion.SailingPayload) error {
	if len(payload.Cabins) == 0 {
		return nil
	}
	var count int64
	err := tx.Model(&CabinImageModel{}).
		Joins("JOIN ship_cabin_types ON ship_cabin_types.id = cabin_images.cabin_type_id").
		Where("ship_cabin_types.ship_id = ?", shipID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to count cabin images: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, code := range sortedKeys(payload.Cabins) {
		cabin := payload.Cabins[code]
		if len(cabin.AllCabinImages) == 0 {
			continue
		}
		var cabinType ShipCabinTypeModel
		err := tx.Where("ship_id = ? AND cabin_code = ?", shipID, code).First(&cabinType).Error
		if err == gorm.ErrRecordNotFound {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to find cabin type %s: %w", code, err)
		}
		for i, img := range cabin.AllCabinImages {
			model := CabinImageModel{
				ID:           uuid.NewString(),
				CabinTypeID:  cabinType.ID,
				ImageURL:     img.URL,
				ImageURLHD:   cabin.ImageURLHD,
				ImageURL2K:   cabin.ImageURL2K,
				Caption:      img.Caption,
				DisplayOrder: i,
				IsDefault:    i == 0,
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model).Error; err != nil {
				return fmt.Errorf("failed to insert cabin image: %w", err)
			}
		}
	}
	return nil
}

// insertAlternates records alternate-voyage references. The FK to the
// alternate sailing stays null until BackfillAlternates links it.
func (imp *GormSailingImporter) insertAlternates(tx *gorm.DB, sailingID string, payload *ingestion.SailingPayload) error {
	for _, alt := range payload.AltSailings {
		if alt.ID.String() == "" {
			continue
		}
		model := AlternateSailingModel{
			ID:                          uuid.NewString(),
			SailingID:                   sailingID,
			Provider:                    imp.provider,
			AlternateProviderIdentifier: alt.ID.String(),
			AlternateLeadPriceCents:     utils.ToMinorUnitsPtr(alt.CheapestPrice.Ptr()),
		}
		if alt.Nights.Valid {
			model.AlternateNights = &alt.Nights.Value
		}
		if sd, err := time.Parse("2006-01-02", alt.SailDate); err == nil {
			model.AlternateSailDate = &sd
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model).Error; err != nil {
			return fmt.Errorf("failed to insert alternate sailing: %w", err)
		}
	}
	return nil
}

// BackfillAlternates links alternate rows whose referenced voyage has
// since been ingested. Returns the number of rows linked.
func (imp *GormSailingImporter) BackfillAlternates(ctx context.Context) (int, error) {
	res := imp.db.WithContext(ctx).Exec(`
		UPDATE alternate_sailings
		SET alternate_sailing_id = (
			SELECT s.id FROM sailings s
			WHERE s.provider = alternate_sailings.provider
			  AND s.provider_identifier = alternate_sailings.alternate_provider_identifier
		)
		WHERE alternate_sailing_id IS NULL
		  AND EXISTS (
			SELECT 1 FROM sailings s
			WHERE s.provider = alternate_sailings.provider
			  AND s.provider_identifier = alternate_sailings.alternate_provider_identifier
		  )`)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to backfill alternate sailings: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

// sortedKeys returns map keys in ascending order for deterministic writes
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
