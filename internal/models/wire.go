package models

// Payload is the body of add_reference and update_reference.
//
// The wire schema names the type field "reference_type" while the stored
// Reference uses "type". ToPayload and Payload.Draft are the only places
// that translate between the two.
type Payload struct {
	ID            string   `json:"id"`
	ReferenceName string   `json:"referenceName"`
	AbsolutePath  string   `json:"absolutePath"`
	ReferenceType Type     `json:"reference_type"`
	Status        Status   `json:"status"`
	Tags          []string `json:"tags"`
	Description   *string  `json:"description"`
	CreatedAt     string   `json:"createdAt"`
	LastOpenedAt  string   `json:"lastOpenedAt"`
	Pinned        bool     `json:"pinned"`
}

// ToPayload builds the outbound payload. id is empty for creates; the
// timestamp fields are always sent as empty placeholders.
func ToPayload(id string, d Draft) Payload {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return Payload{
		ID:            id,
		ReferenceName: d.ReferenceName,
		AbsolutePath:  d.AbsolutePath,
		ReferenceType: d.Type,
		Status:        d.Status,
		Tags:          tags,
		Description:   d.Description,
		Pinned:        d.Pinned,
	}
}

// Draft extracts the client-editable fields, dropping placeholders.
func (p Payload) Draft() Draft {
	return Draft{
		ReferenceName: p.ReferenceName,
		AbsolutePath:  p.AbsolutePath,
		Type:          p.ReferenceType,
		Status:        p.Status,
		Tags:          p.Tags,
		Description:   p.Description,
		Pinned:        p.Pinned,
	}
}
