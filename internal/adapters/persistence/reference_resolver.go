package persistence

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/atlasvoyages/cruisesync/internal/application/common"
	"github.com/atlasvoyages/cruisesync/internal/domain/catalog"
	"github.com/atlasvoyages/cruisesync/internal/domain/ingestion"
	"github.com/atlasvoyages/cruisesync/pkg/utils"
)

// referenceResolver resolves provider identifiers to internal catalog
// IDs, creating stub rows for entities the vendor references before
// their full metadata has arrived. Lookups go cache → database → insert;
// the (provider, provider_identifier) unique index is authoritative
// under concurrent workers, so a conflicting insert falls back to a
// second select.
type referenceResolver struct {
	cache    common.ReferenceCache
	provider string

	mu    sync.Mutex
	stubs ingestion.StubCounters
}

func newReferenceResolver(cache common.ReferenceCache, provider string) *referenceResolver {
	return &referenceResolver{cache: cache, provider: provider}
}

// StubCounters returns the counters accumulated since the last reset
func (r *referenceResolver) StubCounters(reset bool) ingestion.StubCounters {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.stubs
	if reset {
		r.stubs = ingestion.StubCounters{}
	}
	return out
}

func (r *referenceResolver) countStub(kind common.RefKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch kind {
	case common.RefCruiseLine:
		r.stubs.CruiseLines++
	case common.RefShip:
		r.stubs.Ships++
	case common.RefPort:
		r.stubs.Ports++
	case common.RefRegion:
		r.stubs.Regions++
	}
}

func marshalMetadata(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return "{}"
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// resolveCruiseLine returns the internal ID for a provider line,
// creating a stub when unknown and enriching a stub when content arrived.
func (r *referenceResolver) resolveCruiseLine(tx *gorm.DB, providerID string, content *ingestion.LineContent) (string, error) {
	if id, ok := r.cache.Get(common.RefCruiseLine, providerID); ok {
		return id, nil
	}

	var existing CruiseLineModel
	err := tx.Where("provider = ? AND provider_identifier = ?", r.provider, providerID).First(&existing).Error
	switch {
	case err == nil:
		if content != nil {
			r.enrichCruiseLine(tx, existing.ID, content)
		}
		r.cache.Set(common.RefCruiseLine, providerID, existing.ID)
		return existing.ID, nil
	case err != gorm.ErrRecordNotFound:
		return "", fmt.Errorf("failed to look up cruise line %s: %w", providerID, err)
	}

	name := "Cruise Line " + providerID
	meta := map[string]interface{}{}
	needsReview := content == nil
	if content != nil {
		if content.ShortName != "" {
			name = content.ShortName
		}
		meta["logo_url"] = content.Logo
		meta["description"] = content.Description
		meta["code"] = content.Code
		meta["shortname"] = content.ShortName
		meta["website"] = content.NiceURL
	}

	model := CruiseLineModel{
		ID:                 uuid.NewString(),
		Provider:           r.provider,
		ProviderIdentifier: providerID,
		Name:               name,
		Slug:               utils.Slugify(name),
		NeedsReview:        needsReview,
		AutoCreated:        true,
		Metadata:           marshalMetadata(meta),
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model)
	if res.Error != nil {
		return "", fmt.Errorf("failed to create cruise line %s: %w", providerID, res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost the race to a concurrent worker
		if err := tx.Where("provider = ? AND provider_identifier = ?", r.provider, providerID).First(&existing).Error; err != nil {
			return "", fmt.Errorf("failed to re-fetch cruise line %s: %w", providerID, err)
		}
		r.cache.Set(common.RefCruiseLine, providerID, existing.ID)
		return existing.ID, nil
	}
	r.countStub(common.RefCruiseLine)
	r.cache.Set(common.RefCruiseLine, providerID, model.ID)
	return model.ID, nil
}

// enrichCruiseLine merges vendor content into a line that is still a stub
func (r *referenceResolver) enrichCruiseLine(tx *gorm.DB, id string, content *ingestion.LineContent) {
	updates := map[string]interface{}{
		"needs_review": false,
		"metadata": marshalMetadata(map[string]interface{}{
			"logo_url":    content.Logo,
			"description": content.Description,
			"code":        content.Code,
			"shortname":   content.ShortName,
			"website":     content.NiceURL,
		}),
	}
	if content.ShortName != "" {
		updates["name"] = content.ShortName
		updates["slug"] = utils.Slugify(content.ShortName)
	}
	tx.Model(&CruiseLineModel{}).
		Where("id = ? AND needs_review = ?", id, true).
		Updates(updates)
}

// resolveShip returns the internal ID for a provider ship under a line
func (r *referenceResolver) resolveShip(tx *gorm.DB, cruiseLineID, providerID string, content *ingestion.ShipContent) (string, error) {
	if id, ok := r.cache.Get(common.RefShip, providerID); ok {
		return id, nil
	}

	var existing ShipModel
	err := tx.Where("provider = ? AND provider_identifier = ?", r.provider, providerID).First(&existing).Error
	switch {
	case err == nil:
		if content != nil {
			r.enrichShip(tx, &existing, content)
		}
		r.cache.Set(common.RefShip, providerID, existing.ID)
		return existing.ID, nil
	case err != gorm.ErrRecordNotFound:
		return "", fmt.Errorf("failed to look up ship %s: %w", providerID, err)
	}

	name := "Ship " + providerID
	shipClass := ""
	imageURL := ""
	meta := map[string]interface{}{}
	needsReview := content == nil
	if content != nil {
		if content.Name != "" {
			name = content.Name
		}
		shipClass = content.ShipClass
		imageURL = content.DefaultShipImage
		meta = shipMetadata(content)
	}

	model := ShipModel{
		ID:                 uuid.NewString(),
		Provider:           r.provider,
		ProviderIdentifier: providerID,
		CruiseLineID:       cruiseLineID,
		Name:               name,
		Slug:               utils.Slugify(name),
		ShipClass:          shipClass,
		ImageURL:           imageURL,
		NeedsReview:        needsReview,
		AutoCreated:        true,
		Metadata:           marshalMetadata(meta),
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model)
	if res.Error != nil {
		return "", fmt.Errorf("failed to create ship %s: %w", providerID, res.Error)
	}
	if res.RowsAffected == 0 {
		if err := tx.Where("provider = ? AND provider_identifier = ?", r.provider, providerID).First(&existing).Error; err != nil {
			return "", fmt.Errorf("failed to re-fetch ship %s: %w", providerID, err)
		}
		r.cache.Set(common.RefShip, providerID, existing.ID)
		return existing.ID, nil
	}
	r.countStub(common.RefShip)
	r.cache.Set(common.RefShip, providerID, model.ID)
	return model.ID, nil
}

// shipMetadata builds the ship metadata document, enforcing at most one
// default gallery image.
func shipMetadata(content *ingestion.ShipContent) map[string]interface{} {
	gallery := make([]map[string]interface{}, 0, len(content.ShipImages))
	defaultSeen := false
	for _, img := range content.ShipImages {
		isDefault := img.Default.Valid && img.Default.Value && !defaultSeen
		if isDefault {
			defaultSeen = true
		}
		gallery = append(gallery, map[string]interface{}{
			"url":     img.ImageURL,
			"hd":      img.ImageURLHD,
			"2k":      img.ImageURL2K,
			"caption": img.Caption,
			"default": isDefault,
		})
	}
	meta := map[string]interface{}{
		"code":    content.Code,
		"gallery": gallery,
	}
	if content.Tonnage.Valid {
		meta["tonnage"] = content.Tonnage.Value
	}
	if content.Occupancy.Valid {
		meta["passenger_capacity"] = content.Occupancy.Value
	}
	if content.Length.Valid {
		meta["length"] = content.Length.Value
	}
	if year := content.LaunchYear(); year > 0 {
		meta["year_built"] = year
	}
	return meta
}

// enrichShip merges vendor content into a ship still lacking primary evidence
func (r *referenceResolver) enrichShip(tx *gorm.DB, existing *ShipModel, content *ingestion.ShipContent) {
	updates := map[string]interface{}{
		"needs_review": false,
		"metadata":     marshalMetadata(shipMetadata(content)),
	}
	if content.Name != "" {
		updates["name"] = content.Name
		updates["slug"] = utils.Slugify(content.Name)
	}
	if content.ShipClass != "" {
		updates["ship_class"] = content.ShipClass
	}
	if content.DefaultShipImage != "" {
		updates["image_url"] = content.DefaultShipImage
	}
	tx.Model(&ShipModel{}).
		Where("id = ? AND (needs_review = ? OR image_url = ?)", existing.ID, true, "").
		Updates(updates)
}

// resolvePort returns the internal ID for a provider port. info may be
// nil when the payload only referenced the port by ID.
func (r *referenceResolver) resolvePort(tx *gorm.DB, providerID string, info *ingestion.PortInfo) (string, error) {
	if id, ok := r.cache.Get(common.RefPort, providerID); ok {
		return id, nil
	}

	var existing PortModel
	err := tx.Where("provider = ? AND provider_identifier = ?", r.provider, providerID).First(&existing).Error
	switch {
	case err == nil:
		if info != nil {
			r.enrichPort(tx, &existing, info)
		}
		r.cache.Set(common.RefPort, providerID, existing.ID)
		return existing.ID, nil
	case err != gorm.ErrRecordNotFound:
		return "", fmt.Errorf("failed to look up port %s: %w", providerID, err)
	}

	name := "Port " + providerID
	needsReview := true
	var lat, lng *float64
	meta := map[string]interface{}{}
	if info != nil {
		if info.Name != "" {
			name = info.Name
		}
		if info.Latitude.Valid && info.Longitude.Valid &&
			catalog.ValidCoordinates(info.Latitude.Value, info.Longitude.Value) {
			lat, lng = info.Latitude.Ptr(), info.Longitude.Ptr()
			needsReview = false
		}
		meta["country"] = info.Country
		meta["country_code"] = info.CountryCode
		meta["description"] = info.Description
		meta["short_description"] = info.ShortDescription
	}

	model := PortModel{
		ID:                 uuid.NewString(),
		Provider:           r.provider,
		ProviderIdentifier: providerID,
		Name:               name,
		Slug:               utils.Slugify(name),
		Latitude:           lat,
		Longitude:          lng,
		NeedsReview:        needsReview,
		AutoCreated:        true,
		Metadata:           marshalMetadata(meta),
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model)
	if res.Error != nil {
		return "", fmt.Errorf("failed to create port %s: %w", providerID, res.Error)
	}
	if res.RowsAffected == 0 {
		if err := tx.Where("provider = ? AND provider_identifier = ?", r.provider, providerID).First(&existing).Error; err != nil {
			return "", fmt.Errorf("failed to re-fetch port %s: %w", providerID, err)
		}
		r.cache.Set(common.RefPort, providerID, existing.ID)
		return existing.ID, nil
	}
	r.countStub(common.RefPort)
	r.cache.Set(common.RefPort, providerID, model.ID)
	return model.ID, nil
}

// enrichPort fills in coordinates on a port that has none yet. Valid
// coordinates clear needs_review; invalid ones are dropped silently.
func (r *referenceResolver) enrichPort(tx *gorm.DB, existing *PortModel, info *ingestion.PortInfo) {
	if existing.Latitude != nil {
		return
	}
	if !info.Latitude.Valid || !info.Longitude.Valid {
		return
	}
	if !catalog.ValidCoordinates(info.Latitude.Value, info.Longitude.Value) {
		return
	}
	updates := map[string]interface{}{
		"latitude":     info.Latitude.Value,
		"longitude":    info.Longitude.Value,
		"needs_review": false,
		"metadata": marshalMetadata(map[string]interface{}{
			"country":           info.Country,
			"country_code":      info.CountryCode,
			"description":       info.Description,
			"short_description": info.ShortDescription,
		}),
	}
	if info.Name != "" {
		updates["name"] = info.Name
		updates["slug"] = utils.Slugify(info.Name)
	}
	tx.Model(&PortModel{}).
		Where("id = ? AND latitude IS NULL", existing.ID).
		Updates(updates)
}

// resolveRegion returns the internal ID for a provider region
func (r *referenceResolver) resolveRegion(tx *gorm.DB, providerID, name string) (string, error) {
	if id, ok := r.cache.Get(common.RefRegion, providerID); ok {
		return id, nil
	}

	var existing RegionModel
	err := tx.Where("provider = ? AND provider_identifier = ?", r.provider, providerID).First(&existing).Error
	switch {
	case err == nil:
		r.cache.Set(common.RefRegion, providerID, existing.ID)
		return existing.ID, nil
	case err != gorm.ErrRecordNotFound:
		return "", fmt.Errorf("failed to look up region %s: %w", providerID, err)
	}

	needsReview := name == ""
	if name == "" {
		name = "Region " + providerID
	}
	model := RegionModel{
		ID:                 uuid.NewString(),
		Provider:           r.provider,
		ProviderIdentifier: providerID,
		Name:               name,
		Slug:               utils.Slugify(name),
		NeedsReview:        needsReview,
		Metadata:           "{}",
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model)
	if res.Error != nil {
		return "", fmt.Errorf("failed to create region %s: %w", providerID, res.Error)
	}
	if res.RowsAffected == 0 {
		if err := tx.Where("provider = ? AND provider_identifier = ?", r.provider, providerID).First(&existing).Error; err != nil {
			return "", fmt.Errorf("failed to re-fetch region %s: %w", providerID, err)
		}
		r.cache.Set(common.RefRegion, providerID, existing.ID)
		return existing.ID, nil
	}
	r.countStub(common.RefRegion)
	r.cache.Set(common.RefRegion, providerID, model.ID)
	return model.ID, nil
}
