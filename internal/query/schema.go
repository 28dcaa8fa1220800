package query

// Entity identifies the base table a plan is built against.
type Entity string

const (
	EntityUser  Entity = "user"
	EntityStore Entity = "store"
)

// Field maps a caller-visible field name to the SQL expression it reads.
// Expressions are fixed at compile time; caller input only ever reaches a query as a bind argument.
type Field struct {
	Column     string
	Filterable bool
	Sortable   bool
}

// Schema is the whitelist for one base entity.
type Schema struct {
	Entity       Entity
	Fields       map[string]Field
	SearchFields []string
	DefaultSort  string
	// TieBreaker is appended as the final ascending sort key so page windows never overlap.
	TieBreaker string
}

// RatingSortExpr orders stores by their raw mean rating, 0 when unrated. It reads the
// aggregate join named "agg" that store listings attach.
const RatingSortExpr = "COALESCE(agg.average, 0)"

// StoreSchema is the store listing whitelist: filterable {name, email, address},
// sortable {name, email, address, rating}.
var StoreSchema = Schema{
	Entity: EntityStore,
	Fields: map[string]Field{
		"name":    {Column: "s.name", Filterable: true, Sortable: true},
		"email":   {Column: "s.email", Filterable: true, Sortable: true},
		"address": {Column: "s.address", Filterable: true, Sortable: true},
		"rating":  {Column: RatingSortExpr, Sortable: true},
	},
	SearchFields: []string{"name", "address"},
	DefaultSort:  "name",
	TieBreaker:   "s.id",
}

// UserSchema is the user listing whitelist: filterable and sortable {name, email, address, role}.
var UserSchema = Schema{
	Entity: EntityUser,
	Fields: map[string]Field{
		"name":    {Column: "u.name", Filterable: true, Sortable: true},
		"email":   {Column: "u.email", Filterable: true, Sortable: true},
		"address": {Column: "u.address", Filterable: true, Sortable: true},
		"role":    {Column: "u.role", Filterable: true, Sortable: true},
	},
	SearchFields: []string{"name", "email", "address"},
	DefaultSort:  "name",
	TieBreaker:   "u.id",
}

// IsFilterable reports whether name may be used as a filter key.
func (s Schema) IsFilterable(name string) bool {
	f, ok := s.Fields[name]
	return ok && f.Filterable
}
