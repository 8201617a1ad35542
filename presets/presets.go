package presets

// Values holds the business constants an administrator can edit.
// Percentages are stored as whole numbers (30 means 30%).
type Values struct {
	DefaultHeight   float64 `json:"defaultHeight"`
	DefaultWidth    float64 `json:"defaultWidth"`
	DefaultDepth    float64 `json:"defaultDepth"`
	LaborRate       float64 `json:"laborRate"`
	MaterialMarkup  float64 `json:"materialMarkup"`
	TaxRate         float64 `json:"taxRate"`
	DeliveryFee     float64 `json:"deliveryFee"`
	InstallationFee float64 `json:"installationFee"`
	StorageFee      float64 `json:"storageFee"`
	MinimumOrder    float64 `json:"minimumOrder"`
	RushOrderFee    float64 `json:"rushOrderFee"`
	ShippingRate    float64 `json:"shippingRate"`
	ImportTaxRate   float64 `json:"importTaxRate"`
	ExchangeRate    float64 `json:"exchangeRate"`
}

// Defaults returns the values a fresh installation starts with
func Defaults() Values {
	return Values{
		DefaultHeight:   30,
		DefaultWidth:    24,
		DefaultDepth:    24,
		LaborRate:       75,
		MaterialMarkup:  30,
		TaxRate:         13,
		DeliveryFee:     150,
		InstallationFee: 500,
		StorageFee:      25,
		MinimumOrder:    1000,
		RushOrderFee:    15,
		ShippingRate:    2.5,
		ImportTaxRate:   5,
		ExchangeRate:    1,
	}
}

// Factors maps the values to namespace factor names.
// material_markup becomes a multiplier and the tax rates become fractions,
// so Defaults().Factors() yields material_markup=1.3 and import_tax_rate=0.05.
func (v Values) Factors() map[string]float64 {
	return map[string]float64{
		"default_height":   v.DefaultHeight,
		"default_width":    v.DefaultWidth,
		"default_depth":    v.DefaultDepth,
		"labor_rate":       v.LaborRate,
		"material_markup":  1 + v.MaterialMarkup/100,
		"tax_rate":         v.TaxRate / 100,
		"delivery_fee":     v.DeliveryFee,
		"installation_fee": v.InstallationFee,
		"storage_fee":      v.StorageFee,
		"minimum_order":    v.MinimumOrder,
		"rush_order_fee":   v.RushOrderFee,
		"shipping_rate":    v.ShippingRate,
		"import_tax_rate":  v.ImportTaxRate / 100,
		"exchange_rate":    v.ExchangeRate,
	}
}
