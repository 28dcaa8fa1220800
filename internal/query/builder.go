package query

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Clark-Hu/store-ratings/internal/domain"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

// Direction is a validated SQL sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// ParseDirection is case-insensitive and falls back to Asc on anything but "desc".
func ParseDirection(raw string) Direction {
	if strings.EqualFold(strings.TrimSpace(raw), "desc") {
		return Desc
	}
	return Asc
}

// Params is the untrusted listing request.
type Params struct {
	Filters       map[string]string
	Search        string
	SortField     string
	SortDirection string
	Page          int
	PageSize      int
}

// Plan is a parameterized retrieval plan. Where references exactly Args; callers that
// need more placeholders continue numbering after len(Args()).
type Plan struct {
	Entity    Entity
	Where     string
	OrderBy   string
	Page      int
	PageSize  int
	Offset    int64
	SortField string
	Direction Direction
	args      []any
}

// Args returns a copy of the predicate arguments.
func (p Plan) Args() []any {
	out := make([]any, len(p.args))
	copy(out, p.args)
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a literal, case-insensitive substring pattern for ILIKE.
func containsPattern(value string) string {
	return "%" + likeEscaper.Replace(value) + "%"
}

// Build validates params against schema and assembles the plan.
// Unknown filter or sort fields fail with domain.ErrInvalidQuery.
func Build(schema Schema, params Params) (Plan, error) {
	plan := Plan{Entity: schema.Entity}

	arg := func(value any) string {
		plan.args = append(plan.args, value)
		return fmt.Sprintf("$%d", len(plan.args))
	}

	// Sorted keys keep placeholder numbering deterministic for identical requests.
	keys := make([]string, 0, len(params.Filters))
	for key := range params.Filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	where := make([]string, 0, len(keys)+1)
	for _, key := range keys {
		field, ok := schema.Fields[key]
		if !ok || !field.Filterable {
			return Plan{}, fmt.Errorf("%w: unknown %s filter field %q", domain.ErrInvalidQuery, schema.Entity, key)
		}
		value := params.Filters[key]
		if value == "" {
			continue
		}
		where = append(where, fmt.Sprintf("%s ILIKE %s", field.Column, arg(containsPattern(value))))
	}

	if search := params.Search; search != "" && len(schema.SearchFields) > 0 {
		p := arg(containsPattern(search))
		ors := make([]string, 0, len(schema.SearchFields))
		for _, name := range schema.SearchFields {
			ors = append(ors, fmt.Sprintf("%s ILIKE %s", schema.Fields[name].Column, p))
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}

	if len(where) > 0 {
		plan.Where = "WHERE " + strings.Join(where, " AND ")
	}

	sortField := strings.TrimSpace(params.SortField)
	if sortField == "" {
		sortField = schema.DefaultSort
	}
	field, ok := schema.Fields[sortField]
	if !ok || !field.Sortable {
		return Plan{}, fmt.Errorf("%w: unknown %s sort field %q", domain.ErrInvalidQuery, schema.Entity, sortField)
	}
	plan.SortField = sortField
	plan.Direction = ParseDirection(params.SortDirection)
	plan.OrderBy = fmt.Sprintf("ORDER BY %s %s, %s ASC", field.Column, plan.Direction, schema.TieBreaker)

	page, pageSize, err := normalizeWindow(params.Page, params.PageSize)
	if err != nil {
		return Plan{}, err
	}
	plan.Page = page
	plan.PageSize = pageSize
	plan.Offset = int64(page-1) * int64(pageSize)

	return plan, nil
}

func normalizeWindow(page, pageSize int) (int, int, error) {
	if page < 0 {
		return 0, 0, fmt.Errorf("%w: page must be at least 1", domain.ErrInvalidQuery)
	}
	if pageSize < 0 {
		return 0, 0, fmt.Errorf("%w: page size must be at least 1", domain.ErrInvalidQuery)
	}
	if page == 0 {
		page = DefaultPage
	}
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	// offset+pageSize must stay representable.
	if int64(page) > math.MaxInt64/int64(pageSize) {
		return 0, 0, fmt.Errorf("%w: page window out of range", domain.ErrInvalidQuery)
	}
	return page, pageSize, nil
}
