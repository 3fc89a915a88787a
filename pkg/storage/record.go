package storage

import (
	"time"
)

// AssociationRecord is one repo↔unit link. The storage id is opaque and
// assigned by the backend; the dedup identity is (TypeID, UnitID).
type AssociationRecord struct {
	ID        string
	TypeID    string
	UnitID    string
	RepoID    string
	OwnerType string
	OwnerID   string
	Created   time.Time
	Updated   time.Time

	// Metadata holds the matched unit payload after the merge stage. It is
	// nil on records read straight from storage.
	Metadata *UnitRecord
}

// DedupKey is the identity used when collapsing duplicate associations.
func (r *AssociationRecord) DedupKey() string {
	return r.TypeID + "+" + r.UnitID
}

// AsDocument converts the record to its stored document form. The storage id
// is included only when set.
func (r *AssociationRecord) AsDocument() Document {
	doc := Document{
		FieldRepoID:     r.RepoID,
		FieldUnitTypeID: r.TypeID,
		FieldUnitID:     r.UnitID,
		FieldOwnerType:  r.OwnerType,
		FieldOwnerID:    r.OwnerID,
		FieldCreated:    r.Created,
		FieldUpdated:    r.Updated,
	}
	if r.ID != "" {
		doc[FieldID] = r.ID
	}
	return doc
}

// AssociationFromDocument decodes a stored document into an
// AssociationRecord. Absent fields are left zero, which is what projected
// reads produce.
func AssociationFromDocument(doc Document) *AssociationRecord {
	rec := &AssociationRecord{
		ID:        docString(doc, FieldID),
		TypeID:    docString(doc, FieldUnitTypeID),
		UnitID:    docString(doc, FieldUnitID),
		RepoID:    docString(doc, FieldRepoID),
		OwnerType: docString(doc, FieldOwnerType),
		OwnerID:   docString(doc, FieldOwnerID),
	}
	if t, ok := doc[FieldCreated].(time.Time); ok {
		rec.Created = t
	}
	if t, ok := doc[FieldUpdated].(time.Time); ok {
		rec.Updated = t
	}
	return rec
}

// UnitRecord is a content payload record. The schema varies per unit type, so
// everything except the id stays in the open Fields mapping.
type UnitRecord struct {
	ID     string
	Fields Document
}

// UnitFromDocument decodes a stored unit document, splitting out the id.
func UnitFromDocument(doc Document) *UnitRecord {
	fields := make(Document, len(doc))
	for k, v := range doc {
		if k == FieldID {
			continue
		}
		fields[k] = v
	}
	return &UnitRecord{
		ID:     docString(doc, FieldID),
		Fields: fields,
	}
}

// AsDocument converts the unit back to its stored form.
func (u *UnitRecord) AsDocument() Document {
	doc := make(Document, len(u.Fields)+1)
	for k, v := range u.Fields {
		doc[k] = v
	}
	if u.ID != "" {
		doc[FieldID] = u.ID
	}
	return doc
}

func docString(doc Document, field string) string {
	s, _ := doc[field].(string)
	return s
}
