// Package attribute turns remote attribute values into the descriptor list
// stored on a variant row.
package attribute

import (
	"encoding/json"
	"sort"

	"github.com/fekuna/omnipos-catalog-sync/internal/model"
)

const fallbackName = "default"

// Compose returns the descriptors for variant, taken from the candidates whose
// id the variant references. Duplicate ids keep the position of their first
// occurrence and the contents of their last. The result is stably sorted by
// kind. A variant with no matching values gets one inactive Text descriptor
// named after the variant.
func Compose(variant model.RemoteVariant, candidates []model.RemoteAttributeValue) []model.AttributeDescriptor {
	wanted := make(map[int64]bool, len(variant.AttributeValueIDs))
	for _, id := range variant.AttributeValueIDs {
		wanted[id] = true
	}

	var out []model.AttributeDescriptor
	pos := map[int64]int{}
	for _, c := range candidates {
		if !wanted[c.ID] {
			continue
		}
		d := describe(c)
		if i, ok := pos[c.ID]; ok {
			out[i] = d
			continue
		}
		pos[c.ID] = len(out)
		out = append(out, d)
	}

	if len(out) == 0 {
		return []model.AttributeDescriptor{fallback(variant)}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

func describe(v model.RemoteAttributeValue) model.AttributeDescriptor {
	d := model.AttributeDescriptor{
		ID:       v.ID,
		Name:     v.Name,
		Kind:     model.DescriptorText,
		TypeName: v.LineLabel,
		IsActive: 1,
	}
	if v.ColorCode != nil && *v.ColorCode != "" {
		d.Name = *v.ColorCode
		d.Kind = model.DescriptorColor
	}
	return d
}

func fallback(variant model.RemoteVariant) model.AttributeDescriptor {
	name := fallbackName
	if variant.DisplayName != nil && *variant.DisplayName != "" {
		name = *variant.DisplayName
	}
	return model.AttributeDescriptor{
		ID:       variant.ID,
		Name:     name,
		Kind:     model.DescriptorText,
		TypeName: name,
		IsActive: 0,
	}
}

// Encode serializes descriptors for the variant details column.
func Encode(descriptors []model.AttributeDescriptor) (string, error) {
	if descriptors == nil {
		descriptors = []model.AttributeDescriptor{}
	}
	b, err := json.Marshal(descriptors)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
