package models

// CategorySchema the catalog category entity
var CategorySchema = EntitySchema{
	Kind:  "category",
	Title: "category",
	Fields: []FieldSchema{
		{Name: "name", Label: "Name Category", Type: FieldTypeText, Rule: "required,max=255", Sortable: true},
		{Name: "slug", Label: "Slug", Type: FieldTypeText, Rule: "omitempty,slug", Sortable: true},
		{Name: "total", Label: "Total Product", Type: FieldTypeInteger, Sortable: true},
	},
	Attachment: &AttachmentSchema{
		Name: "thumbnail", Label: "Thumbnail", MaxBytes: MaxAttachmentBytes,
	},
}

// ProductSchema the catalog product entity
var ProductSchema = EntitySchema{
	Kind:  "product",
	Title: "product",
	Fields: []FieldSchema{
		{Name: "name", Label: "Name Product", Type: FieldTypeText, Rule: "required,max=255", Sortable: true},
		{Name: "category", Label: "Name Category", Type: FieldTypeText, Rule: "max=255", Sortable: true},
		{Name: "price", Label: "Price", Type: FieldTypeDecimal, Sortable: true},
		{Name: "sold", Label: "Sold", Type: FieldTypeInteger, Sortable: true},
		{Name: "made_on", Label: "Made On", Type: FieldTypeDate, Sortable: true},
	},
	Attachment: &AttachmentSchema{
		Name: "thumbnail", Label: "Thumbnail Product", MaxBytes: MaxAttachmentBytes,
	},
}

// CatalogSchemas all built-in entity schemas
func CatalogSchemas() []EntitySchema {
	return []EntitySchema{CategorySchema, ProductSchema}
}
