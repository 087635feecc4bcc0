package models

// Contact is the persisted directory entry. Nombre and Telefono are caller
// supplied; Pais, ISO2, Capital and HoraCapital are derived by the enrichment
// pipeline and never set independently of each other.
//
// HoraCapital is stored as a cache hint only: readers always see a freshly
// recomputed value (or absent), never the stored one.
type Contact struct {
	ID          string
	Nombre      string
	Telefono    string
	Pais        string
	ISO2        string
	Capital     string
	HoraCapital string
}

// PhoneChange carries a new phone number together with the complete
// enrichment bundle derived from it. The grouping is deliberate: a phone
// update always replaces all four derived fields, never a subset.
type PhoneChange struct {
	Telefono    string
	Pais        string
	ISO2        string
	Capital     string
	HoraCapital string
}

// Update is a partial mutation applied atomically by the store.
type Update struct {
	Nombre *string
	Phone  *PhoneChange
}

// IsEmpty reports whether the update would change nothing.
func (u Update) IsEmpty() bool {
	return u.Nombre == nil && u.Phone == nil
}

// Apply merges the update into a contact. Stores use this so all
// implementations agree on the merge semantics.
func (u Update) Apply(c *Contact) {
	if u.Nombre != nil {
		c.Nombre = *u.Nombre
	}
	if u.Phone != nil {
		c.Telefono = u.Phone.Telefono
		c.Pais = u.Phone.Pais
		c.ISO2 = u.Phone.ISO2
		c.Capital = u.Phone.Capital
		c.HoraCapital = u.Phone.HoraCapital
	}
}
