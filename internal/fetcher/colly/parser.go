package collyfetcher

import (
	"bytes"
	"fmt"

	"github.com/antchfx/xmlquery"

	"github.com/JakeFAU/bgg-catalog-harvester/internal/crawler"
)

// ParseItems extracts the item elements sitting directly under the document
// root. A document without items yields an empty slice. An empty body, a
// body that is not XML, or one without a root element is malformed.
func ParseItems(body []byte) ([]crawler.Entity, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, malformed("empty body")
	}
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, malformed(err.Error())
	}
	if !hasRootElement(doc) {
		return nil, malformed("no root element")
	}

	items := xmlquery.Find(doc, "/*/item")
	entities := make([]crawler.Entity, 0, len(items))
	for _, item := range items {
		entities = append(entities, toEntity(item))
	}
	return entities, nil
}

func toEntity(item *xmlquery.Node) crawler.Entity {
	entity := crawler.Entity{
		ID:       item.SelectAttr("id"),
		Category: item.SelectAttr("type"),
		Name:     crawler.UnknownName,
	}
	if name := xmlquery.FindOne(item, "name[@type='primary']"); name != nil {
		entity.Name = name.SelectAttr("value")
	}
	for _, attr := range item.Attr {
		switch attr.Name.Local {
		case "id", "type":
			continue
		}
		if entity.Attributes == nil {
			entity.Attributes = make(map[string]string)
		}
		entity.Attributes[attr.Name.Local] = attr.Value
	}
	if year := xmlquery.FindOne(item, "yearpublished"); year != nil {
		if entity.Attributes == nil {
			entity.Attributes = make(map[string]string)
		}
		entity.Attributes["yearpublished"] = year.SelectAttr("value")
	}
	return entity
}

func hasRootElement(doc *xmlquery.Node) bool {
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			return true
		}
	}
	return false
}

func malformed(reason string) error {
	return fmt.Errorf("%w: %w: %s", crawler.ErrTransientFetch, crawler.ErrMalformedResponse, reason)
}
