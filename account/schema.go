package account

// Entitlement is a group the connector exposes.
type Entitlement struct {
	Type       string            `json:"type" yaml:"type"`
	UUID       string            `json:"uuid" yaml:"uuid"`
	Identity   string            `json:"identity" yaml:"identity"`
	Attributes map[string]string `json:"attributes" yaml:"attributes"`
}

// BaseEntitlement returns the single group assigned to request generated
// attributes.
func BaseEntitlement() Entitlement {
	return Entitlement{
		Type:     "group",
		UUID:     "Account",
		Identity: "account",
		Attributes: map[string]string{
			"id":          "account",
			"name":        "Account",
			"description": "Assign to generate account attributes",
		},
	}
}

// SchemaAttribute describes one account attribute.
type SchemaAttribute struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
	Multi       bool   `json:"multi,omitempty" yaml:"multi,omitempty"`
	Entitlement bool   `json:"entitlement,omitempty" yaml:"entitlement,omitempty"`
}

// Schema is the discovered account schema.
type Schema struct {
	DisplayAttribute  string            `json:"displayAttribute" yaml:"displayAttribute"`
	IdentityAttribute string            `json:"identityAttribute" yaml:"identityAttribute"`
	GroupAttribute    string            `json:"groupAttribute,omitempty" yaml:"groupAttribute,omitempty"`
	Attributes        []SchemaAttribute `json:"attributes" yaml:"attributes"`
}

// BaseSchema returns the fixed part of the schema: the id and name attributes.
func BaseSchema() Schema {
	return Schema{
		DisplayAttribute:  AttrName,
		IdentityAttribute: AttrID,
		Attributes: []SchemaAttribute{
			{Name: AttrID, Type: "string", Description: "Identity ID"},
			{Name: AttrName, Type: "string", Description: "Identity name"},
		},
	}
}

// WithStringAttributes returns a copy of s with one string attribute appended
// per name.
func (s Schema) WithStringAttributes(names ...string) Schema {
	out := s
	out.Attributes = make([]SchemaAttribute, 0, len(s.Attributes)+len(names))
	out.Attributes = append(out.Attributes, s.Attributes...)
	for _, name := range names {
		out.Attributes = append(out.Attributes, SchemaAttribute{
			Name:        name,
			Type:        "string",
			Description: name,
		})
	}
	return out
}
