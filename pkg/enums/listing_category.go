package enums

// ListingCategory groups listings by material family.
type ListingCategory string

const (
	ListingCategorySteel     ListingCategory = "steel"
	ListingCategoryConcrete  ListingCategory = "concrete"
	ListingCategoryWood      ListingCategory = "wood"
	ListingCategoryScaffold  ListingCategory = "scaffold"
	ListingCategoryEquipment ListingCategory = "equipment"
	ListingCategoryOther     ListingCategory = "other"
)

var listingCategories = []ListingCategory{
	ListingCategorySteel, ListingCategoryConcrete, ListingCategoryWood,
	ListingCategoryScaffold, ListingCategoryEquipment, ListingCategoryOther,
}

func (v ListingCategory) IsValid() bool { return valid(listingCategories, v) }

func ParseListingCategory(raw string) (ListingCategory, error) {
	return parse("listing category", listingCategories, raw)
}
