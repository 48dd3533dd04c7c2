package appeears

// DefaultLayer is the NDVI layer of the 250 m 16-day MODIS vegetation index products
const DefaultLayer = "_250m_16_days_NDVI"

// productLayers maps a product id to the exact NDVI layer name AppEEARS exposes for it
var productLayers = map[string]string{
	"MYD13Q1.061": DefaultLayer,
	"MOD13Q1.061": DefaultLayer,
}

// LayerFor returns the NDVI layer for product, or DefaultLayer when the
// product is not in the table.
func LayerFor(product string) string {
	if l, ok := productLayers[product]; ok {
		return l
	}
	return DefaultLayer
}
