// Package catalog holds the fixed table of animal codes and the bet
// categories that can be placed against them.
package catalog

import "github.com/shopspring/decimal"

// Color is the color assigned to an animal code
type Color string

const (
	Green Color = "verde"
	Red   Color = "rojo"
	Black Color = "negro"
)

// OwlCode is the code that pays the elevated multiplier
const OwlCode = "40"

// Special category tokens
const (
	SpecialRed   = "ROJO"
	SpecialBlack = "NEGRO"
	SpecialEven  = "PAR"
	SpecialOdd   = "IMPAR"
)

// Payout multipliers
var (
	AnimalMultiplier   = decimal.NewFromInt(35)
	OwlMultiplier      = decimal.NewFromInt(70)
	SpecialMultiplier  = decimal.NewFromInt(2)
	TripletaMultiplier = decimal.NewFromInt(60)
)

// Animal is one entry of the catalog
type Animal struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Color Color  `json:"color"`
}

var animals = []Animal{
	{"00", "Ballena", Green},
	{"0", "Delfin", Green},
	{"1", "Carnero", Red},
	{"2", "Toro", Black},
	{"3", "Ciempies", Red},
	{"4", "Alacran", Black},
	{"5", "Leon", Red},
	{"6", "Rana", Black},
	{"7", "Perico", Red},
	{"8", "Raton", Black},
	{"9", "Aguila", Red},
	{"10", "Tigre", Black},
	{"11", "Gato", Black},
	{"12", "Caballo", Red},
	{"13", "Mono", Black},
	{"14", "Paloma", Red},
	{"15", "Zorro", Black},
	{"16", "Oso", Red},
	{"17", "Pavo", Black},
	{"18", "Burro", Red},
	{"19", "Chivo", Red},
	{"20", "Cochino", Black},
	{"21", "Gallo", Red},
	{"22", "Camello", Black},
	{"23", "Cebra", Red},
	{"24", "Iguana", Black},
	{"25", "Gallina", Red},
	{"26", "Vaca", Black},
	{"27", "Perro", Red},
	{"28", "Zamuro", Black},
	{"29", "Elefante", Black},
	{"30", "Caiman", Red},
	{"31", "Lapa", Black},
	{"32", "Ardilla", Red},
	{"33", "Pescado", Black},
	{"34", "Venado", Red},
	{"35", "Jirafa", Black},
	{"36", "Culebra", Red},
	{"37", "Aviapa", Red},
	{"38", "Conejo", Black},
	{"39", "Tortuga", Red},
	{"40", "Lechuza", Black},
}

var byCode = func() map[string]Animal {
	m := make(map[string]Animal, len(animals))
	for _, a := range animals {
		m[a.Code] = a
	}
	return m
}()

// All returns the catalog in display order. The slice is a copy.
func All() []Animal {
	out := make([]Animal, len(animals))
	copy(out, animals)
	return out
}

// Lookup returns the animal for code. Codes are compared as strings,
// so "0" and "00" are distinct entries.
func Lookup(code string) (Animal, bool) {
	a, ok := byCode[code]
	return a, ok
}

// Valid reports whether code is part of the catalog
func Valid(code string) bool {
	_, ok := byCode[code]
	return ok
}

// Name returns the display name for code, or "" when unknown
func Name(code string) string {
	return byCode[code].Name
}

// IsRed reports whether code belongs to the red set
func IsRed(code string) bool {
	return byCode[code].Color == Red
}

// IsExcluded reports whether code is one of the green codes on which
// no special category can win
func IsExcluded(code string) bool {
	return byCode[code].Color == Green
}

// IsOwl reports whether code pays the owl multiplier
func IsOwl(code string) bool {
	return code == OwlCode
}

// ValidSpecial reports whether token is a special category
func ValidSpecial(token string) bool {
	switch token {
	case SpecialRed, SpecialBlack, SpecialEven, SpecialOdd:
		return true
	}
	return false
}

// AnimalPayout returns the multiplier paid by a winning straight bet on code
func AnimalPayout(code string) decimal.Decimal {
	if IsOwl(code) {
		return OwlMultiplier
	}
	return AnimalMultiplier
}
