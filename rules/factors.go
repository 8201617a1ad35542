package rules

// FactorKind tells where a catalogued factor comes from
type FactorKind string

const (
	FactorKindInput  FactorKind = "input"
	FactorKindPreset FactorKind = "preset"
	FactorKindOutput FactorKind = "output"
)

// FactorInfo describes a well-known factor offered to rule authors.
// Rules are not limited to these names.
type FactorInfo struct {
	Name  string     `json:"name"`
	Label string     `json:"label"`
	Kind  FactorKind `json:"kind"`
}

// FactorCatalog lists the well-known factors in display order
func FactorCatalog() []FactorInfo {
	return []FactorInfo{
		{FactorWidth, "Width (inches)", FactorKindInput},
		{FactorHeight, "Height (inches)", FactorKindInput},
		{FactorDepth, "Depth (inches)", FactorKindInput},
		{FactorArea, "Area (sq inches)", FactorKindInput},
		{FactorVolume, "Volume (cubic inches)", FactorKindInput},
		{FactorBasePrice, "Base Price", FactorKindInput},

		{"default_height", "Default Height", FactorKindPreset},
		{"default_width", "Default Width", FactorKindPreset},
		{"default_depth", "Default Depth", FactorKindPreset},
		{"labor_rate", "Labor Rate", FactorKindPreset},
		{"material_markup", "Material Markup", FactorKindPreset},
		{"tax_rate", "Tax Rate", FactorKindPreset},
		{"delivery_fee", "Delivery Fee", FactorKindPreset},
		{"installation_fee", "Installation Fee", FactorKindPreset},
		{"storage_fee", "Storage Fee", FactorKindPreset},
		{"minimum_order", "Minimum Order", FactorKindPreset},
		{"rush_order_fee", "Rush Order Fee", FactorKindPreset},
		{"shipping_rate", "Shipping Rate", FactorKindPreset},
		{"import_tax_rate", "Import Tax Rate", FactorKindPreset},
		{"exchange_rate", "Exchange Rate", FactorKindPreset},

		{"unit_cost", "Unit Cost", FactorKindOutput},
		{"shipping_cost", "Shipping Cost", FactorKindOutput},
		{"import_tax", "Import Tax", FactorKindOutput},
		{"storage", "Storage", FactorKindOutput},
		{"total_cost", "Total Cost", FactorKindOutput},
		{FactorFinalPrice, "Final Price", FactorKindOutput},
		{"in_usd", "Price in USD", FactorKindOutput},
		{FactorDisplayedPrice, "Displayed Price", FactorKindOutput},
		{"discount_rate", "Discount Rate", FactorKindOutput},
		{"profit_margin", "Profit Margin", FactorKindOutput},
		{"operating_cost", "Operating Cost", FactorKindOutput},
	}
}
