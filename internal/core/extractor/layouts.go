package extractor

// Layout is the ordered selector cascade for one marketplace page layout.
type Layout struct {
	Blocks []BlockStrategy
	Title  []FieldStrategy
	Price  []FieldStrategy
	Rating []FieldStrategy
	Orders []FieldStrategy
	Image  []FieldStrategy
	Link   []FieldStrategy
}

// DefaultLayout covers the search-result layouts seen on AliExpress, newest first.
func DefaultLayout() Layout {
	return Layout{
		Blocks: []BlockStrategy{
			Blocks(`div[data-widget-cid="module_item_list_square"] div._1k5Jn`),
			Blocks(`div.list-item`),
			Blocks(`div.item`),
			Blocks(`div[data-widget-cid] div.item-info`),
			Blocks(`a[href*="/item/"]`),
		},
		Title: []FieldStrategy{
			AttrOrText("h3", "title"),
			AttrOrText("h2", "title"),
			AttrOrText("h1", "title"),
			AttrOrText(".item-title", "title"),
			Attr("a[title]", "title"),
			Attr("[title]", "title"),
			Text(".title"),
			Text("span.item-title-label"),
			SelfAttr("title"),
		},
		Price: []FieldStrategy{
			Text(".price"),
			Text(".item-price"),
			Text(".price-current"),
			Text(`span[class*="price"]`),
			Text(`div[class*="price"]`),
			Text("span.notranslate"),
		},
		Rating: []FieldStrategy{
			AttrOrText(".rate-star", "data-rating"),
			AttrOrText(".rating", "data-rating"),
			AttrOrText(".stars", "data-rating"),
			Attr("[data-rating]", "data-rating"),
			AttrOrText(".item-rating", "data-rating"),
		},
		Orders: []FieldStrategy{
			Text(".item-sales"),
			Text(".sold"),
			Text(".orders"),
			Text(`span[class*="sold"]`),
			Text(`span[class*="order"]`),
		},
		Image: []FieldStrategy{
			Attr("img", "src"),
			Attr("img", "data-src"),
		},
		Link: []FieldStrategy{
			SelfAttr("href"),
			Attr(`a[href*="/item/"]`, "href"),
			Attr("a", "href"),
		},
	}
}
