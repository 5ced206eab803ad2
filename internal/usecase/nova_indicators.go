package usecase

// ultraProcessedMarkers are phrases whose presence marks an ingredient
// list as NOVA 4. Matched as substrings of the lowercased text.
var ultraProcessedMarkers = []string{
	// Flavourings
	"natural flavoring", "natural flavouring", "natural flavor", "artificial flavor",
	"artificial flavour", "flavor enhancer", "flavour enhancer", "yeast extract",
	// Texturizers
	"carrageenan", "modified starch", "modified corn starch", "modified food starch",
	"xanthan gum", "guar gum", "cellulose gum", "polysorbate", "mono and diglycerides",
	"mono- and diglycerides", "soy lecithin", "emulsifier",
	// Sugars and sweeteners
	"high fructose corn syrup", "corn syrup", "maltodextrin", "dextrose", "invert sugar",
	"sucralose", "aspartame", "acesulfame",
	// Fats and proteins
	"hydrogenated", "interesterified", "protein isolate", "hydrolyzed", "sodium caseinate",
	// Preservatives and colors
	"sodium nitrite", "sodium benzoate", "potassium sorbate", "artificial color",
	"caramel color", "monosodium glutamate", "tbhq",
}

// seedOilNames flag industrial seed oils. Informational only.
var seedOilNames = []string{
	"canola oil", "soybean oil", "corn oil", "sunflower oil",
	"safflower oil", "cottonseed oil", "grapeseed oil", "rice bran oil",
}

// wholeFoodWords identify unprocessed or minimally processed foods
var wholeFoodWords = []string{
	"water", "milk", "rice", "meat", "egg", "fish", "chicken", "beef", "fruit",
	"vegetable", "beans", "lentils", "oats", "nuts", "potato", "tomato", "apple",
}

// culinaryIngredientWords identify NOVA 2 processed culinary ingredients
var culinaryIngredientWords = []string{
	"salt", "sugar", "honey", "olive oil", "butter", "vinegar",
	"maple syrup", "lard", "coconut oil", "cane sugar",
}
