package models

// FoodType labels what a group is counting.
type FoodType string

const (
	FoodPizza     FoodType = "pizza"
	FoodJapones   FoodType = "japones"
	FoodHamburger FoodType = "hamburger"
	FoodPastel    FoodType = "pastel"
	FoodChurrasco FoodType = "churrasco"
)

// DefaultFoodType is used when a group is created without a valid food type.
const DefaultFoodType = FoodPizza

var foodTypes = map[FoodType]struct{}{
	FoodPizza:     {},
	FoodJapones:   {},
	FoodHamburger: {},
	FoodPastel:    {},
	FoodChurrasco: {},
}

// Valid reports whether f is one of the known food types.
func (f FoodType) Valid() bool {
	_, ok := foodTypes[f]
	return ok
}

// ParseFoodType returns the food type named by s, or DefaultFoodType when s
// is empty or unknown.
func ParseFoodType(s string) FoodType {
	if f := FoodType(s); f.Valid() {
		return f
	}
	return DefaultFoodType
}
