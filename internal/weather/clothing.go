package weather

// ClothingCategory groups conditions by what to wear.
type ClothingCategory string

const (
	ClothingCold   ClothingCategory = "cold"
	ClothingHot    ClothingCategory = "hot"
	ClothingRain   ClothingCategory = "rain"
	ClothingNormal ClothingCategory = "normal"
)

// Advice is a clothing recommendation derived from a Snapshot.
type Advice struct {
	Category ClothingCategory `json:"category"`
	Text     string           `json:"text"`
}

var adviceText = map[ClothingCategory]string{
	ClothingCold:   "Wear a warm jacket, hat and gloves.",
	ClothingHot:    "Light clothes and sunscreen.",
	ClothingRain:   "Bring a raincoat or an umbrella.",
	ClothingNormal: "A light jacket will do.",
}

// Advise classifies conditions. Temperature checks take priority over rain.
func Advise(tempC, precipPct int) Advice {
	var c ClothingCategory
	switch {
	case tempC <= 5:
		c = ClothingCold
	case tempC > 25:
		c = ClothingHot
	case precipPct >= 30:
		c = ClothingRain
	default:
		c = ClothingNormal
	}
	return Advice{Category: c, Text: adviceText[c]}
}
