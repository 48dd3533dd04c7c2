package phenology

import (
	"strings"

	"github.com/bloomwatch/backend/internal/domain"
)

// Crop identifiers
const (
	CropWalnut  = "walnut"
	CropApple   = "apple"
	CropCotton  = "cotton"
	CropCorn    = "corn"
	CropAlfalfa = "alfalfa"
)

var cropAliases = map[string]string{
	"walnut":  CropWalnut,
	"nogal":   CropWalnut,
	"apple":   CropApple,
	"manzana": CropApple,
	"cotton":  CropCotton,
	"algodon": CropCotton,
	"corn":    CropCorn,
	"maize":   CropCorn,
	"maiz":    CropCorn,
	"alfalfa": CropAlfalfa,
}

var accentFolder = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u")

// CanonicalCrop maps English and Spanish crop names to a crop identifier.
// The second result is false for unknown crops.
func CanonicalCrop(crop string) (string, bool) {
	key := accentFolder.Replace(strings.ToLower(strings.TrimSpace(crop)))
	c, ok := cropAliases[key]
	return c, ok
}

type hintTable map[domain.Status]string

var genericHints = hintTable{
	domain.StatusInsufficientData: "Not enough observations yet; widen the date range.",
	domain.StatusPreFlowering:     "Canopy is greening up; plan pollination and irrigation ahead of bloom.",
	domain.StatusFlowering:        "Vegetation is at its seasonal peak; protect the crop from stress.",
	domain.StatusPostFlowering:    "Greenness is declining past the peak; scout for pests and plan harvest.",
	domain.StatusStable:           "Vegetation is steady; keep routine monitoring.",
}

var cropHints = map[string]hintTable{
	CropWalnut: {
		domain.StatusPreFlowering:  "Catkins are close; schedule light irrigation and check for blight.",
		domain.StatusFlowering:     "Walnut bloom under way; avoid water stress and copper sprays on open flowers.",
		domain.StatusPostFlowering: "Nut set phase; watch for codling moth and husk fly.",
		domain.StatusStable:        "Walnut canopy stable; maintain irrigation schedule.",
	},
	CropApple: {
		domain.StatusPreFlowering:  "Bud break advancing; place hives before king bloom.",
		domain.StatusFlowering:     "Apple bloom; maximize pollination and protect against frost.",
		domain.StatusPostFlowering: "Petal fall; plan fruit thinning and scout for scab.",
		domain.StatusStable:        "Apple canopy stable; keep regular orchard scouting.",
	},
	CropCotton: {
		domain.StatusPreFlowering:  "Squaring stage; keep soil moisture even ahead of bloom.",
		domain.StatusFlowering:     "Cotton flowering; avoid water stress and monitor bollworm.",
		domain.StatusPostFlowering: "Boll development; watch for defoliation timing.",
		domain.StatusStable:        "Cotton canopy stable; continue routine monitoring.",
	},
	CropCorn: {
		domain.StatusPreFlowering:  "Approaching tasseling; nitrogen and water demand are rising.",
		domain.StatusFlowering:     "Silking and pollination; water stress now cuts yield the most.",
		domain.StatusPostFlowering: "Grain fill; monitor moisture and plan harvest.",
		domain.StatusStable:        "Corn canopy stable; continue routine monitoring.",
	},
	CropAlfalfa: {
		domain.StatusPreFlowering:  "Regrowth advancing; plan the next cut near early bloom.",
		domain.StatusFlowering:     "Alfalfa in bloom; cut now for the best quality and yield balance.",
		domain.StatusPostFlowering: "Past bloom; forage quality is dropping, cut soon.",
		domain.StatusStable:        "Alfalfa stand stable; monitor regrowth.",
	},
}

// HintFor returns the advisory text for a crop and status. Unknown crops and
// statuses without a crop-specific entry use the generic table.
func HintFor(crop string, status domain.Status) string {
	if c, ok := CanonicalCrop(crop); ok {
		if h, ok := cropHints[c][status]; ok {
			return h
		}
	}
	return genericHints[status]
}
