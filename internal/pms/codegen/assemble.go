package codegen

// Normalize keeps the ASCII letters and digits of value, uppercased, crops
// them to width from the left and right-pads with pad. Punctuation in rating
// and package codes does not survive into the part number.
func Normalize(value string, width int, pad byte) string {
	return padRight(alnumUpper(value), width, pad)
}

// FactoryParts feed the factory part number:
// Product(3) Make(2) MPN(3) Rating(5) Package(4).
type FactoryParts struct {
	Product string
	Make    string
	MPN     string
	Rating  string
	Package string
}

// Normalized returns the parts cropped and padded to their widths.
func (p FactoryParts) Normalized() FactoryParts {
	return FactoryParts{
		Product: Normalize(p.Product, ProductWidth, PadAlpha),
		Make:    Normalize(p.Make, MakeWidth, PadAlpha),
		MPN:     Normalize(p.MPN, MPNWidth, PadNumeric),
		Rating:  Normalize(p.Rating, RatingWidth, PadNumeric),
		Package: Normalize(p.Package, PackageWidth, PadPackage),
	}
}

// AssembleFactory builds the 17 character factory part number.
func AssembleFactory(p FactoryParts) string {
	n := p.Normalized()
	return n.Product + n.Make + n.MPN + n.Rating + n.Package
}

// ItemParts feed the catalog part number:
// Product(3) SubCategory(2) Make(2) Model(3) Remarks(4) Rating(3).
type ItemParts struct {
	Product     string
	SubCategory string
	Make        string
	Model       string
	Remarks     string
	Rating      string
}

func (p ItemParts) Normalized() ItemParts {
	return ItemParts{
		Product:     Normalize(p.Product, ProductWidth, PadAlpha),
		SubCategory: Normalize(p.SubCategory, SubCategoryWidth, PadAlpha),
		Make:        Normalize(p.Make, MakeWidth, PadAlpha),
		Model:       Normalize(p.Model, ModelWidth, PadNumeric),
		Remarks:     Normalize(p.Remarks, RemarksWidth, PadNumeric),
		Rating:      Normalize(p.Rating, ItemRatingWidth, PadNumeric),
	}
}

// AssembleItem builds the 17 character catalog part number.
func AssembleItem(p ItemParts) string {
	n := p.Normalized()
	return n.Product + n.SubCategory + n.Make + n.Model + n.Remarks + n.Rating
}

const (
	FactoryPartNumberLength = ProductWidth + MakeWidth + MPNWidth + RatingWidth + PackageWidth
	ItemPartNumberLength    = ProductWidth + SubCategoryWidth + MakeWidth + ModelWidth + RemarksWidth + ItemRatingWidth
	maxPartNumberLength     = 32
)

// ValidPartNumber accepts assembled numbers and legacy catalog numbers:
// uppercase ASCII letters, digits and '-', 1 to 32 characters.
func ValidPartNumber(s string) bool {
	if s == "" || len(s) > maxPartNumberLength {
		return false
	}
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-') {
			return false
		}
	}
	return true
}
