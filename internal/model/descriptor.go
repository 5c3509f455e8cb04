package model

type DescriptorKind string

const (
	DescriptorColor DescriptorKind = "Color"
	DescriptorText  DescriptorKind = "Text"
)

// AttributeDescriptor is persisted as a JSON list in product_variants.details.
type AttributeDescriptor struct {
	ID       int64          `json:"id"`
	Name     string         `json:"name"`
	Kind     DescriptorKind `json:"type"`
	TypeName string         `json:"typeName"`
	IsActive int            `json:"isActive"`
}
